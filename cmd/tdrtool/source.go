package main

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/tdr2024/internal/assets"
	"github.com/Faultbox/tdr2024/internal/config"
	"github.com/Faultbox/tdr2024/internal/logger"
)

// source is an asset manager plus the name of the requested file inside it.
type source struct {
	assets *assets.Manager
	name   string
}

func (s *source) close() {
	if err := s.assets.Close(); err != nil {
		logger.Warn("closing asset sources", zap.Error(err))
	}
}

// openSource builds an asset manager over the configured roots and locates
// file in it. A file outside every root brings its volume in as the highest
// priority source so references into sibling directories still resolve.
func openSource(cfg *config.Config, file string) (*source, error) {
	m := assets.NewManager()
	for _, root := range cfg.Assets.Roots {
		if err := addRoot(m, root); err != nil {
			logger.Debug("skipping asset root", zap.String("root", root), zap.Error(err))
		}
	}

	if name, ok := withinRoots(cfg.Assets.Roots, file); ok {
		return &source{assets: m, name: name}, nil
	}

	// a bare level name is looked up in the roots
	if _, err := os.Stat(file); os.IsNotExist(err) && m.Exists(file) {
		return &source{assets: m, name: assets.Normalize(file)}, nil
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		m.Close()
		return nil, err
	}
	base := volumeRoot(abs)
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		m.Close()
		return nil, err
	}
	if err := m.AddDir(base); err != nil {
		m.Close()
		return nil, err
	}
	return &source{assets: m, name: filepath.ToSlash(rel)}, nil
}

// addRoot adds a configured root, opening .zip files as archives.
func addRoot(m *assets.Manager, root string) error {
	if strings.EqualFold(filepath.Ext(root), ".zip") {
		return m.AddArchive(root)
	}
	return m.AddDir(root)
}

// volumeRoot returns the root directory of the volume holding abs.
func volumeRoot(abs string) string {
	return filepath.VolumeName(abs) + string(filepath.Separator)
}

// withinRoots returns file relative to the highest priority root containing it.
func withinRoots(roots []string, file string) (string, bool) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", false
	}
	for i := len(roots) - 1; i >= 0; i-- {
		root, err := filepath.Abs(roots[i])
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		return filepath.ToSlash(rel), true
	}
	return "", false
}

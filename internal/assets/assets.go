// Package assets resolves game asset paths against an ordered set of sources.
package assets

import (
	"archive/zip"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/tdr2024/internal/logger"
)

type source struct {
	name string
	fsys fs.FS
}

// Manager resolves asset paths against directories, zip archives and
// arbitrary fs.FS values. Sources are searched in reverse order
// (last added = highest priority). Manager implements fs.FS so it can
// be handed straight to the tiled loaders.
type Manager struct {
	sources []source
	cache   *Cache
	sizes   map[string]image.Point
	mu      sync.RWMutex
}

// NewManager creates an empty asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
		sizes: make(map[string]image.Point),
	}
}

// AddFS adds a named source.
func (m *Manager) AddFS(name string, fsys fs.FS) {
	m.mu.Lock()
	m.sources = append(m.sources, source{name: name, fsys: fsys})
	m.sizes = make(map[string]image.Point)
	m.mu.Unlock()

	// a new source may shadow anything cached so far
	m.cache.Clear()
	logger.Named("assets").Debug("source added", zap.String("source", name))
}

// AddDir adds a directory on disk as a source.
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding asset dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding asset dir %s: not a directory", dir)
	}
	m.AddFS(dir, os.DirFS(dir))
	return nil
}

// AddArchive adds a zip archive as a source. The archive stays open
// until Close.
func (m *Manager) AddArchive(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	m.AddFS(path, zr)
	return nil
}

// Sources returns the source names in priority order, highest first.
func (m *Manager) Sources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.sources))
	for i := len(m.sources) - 1; i >= 0; i-- {
		names = append(names, m.sources[i].name)
	}
	return names
}

// Open implements fs.FS.
func (m *Manager) Open(name string) (fs.File, error) {
	p, ok := clean(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.sources) - 1; i >= 0; i-- {
		f, err := m.sources[i].fsys.Open(p)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Load reads a file, serving repeated reads from the cache.
func (m *Manager) Load(name string) ([]byte, error) {
	p, ok := clean(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	if data, ok := m.cache.Get(p); ok {
		return data, nil
	}

	f, err := m.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	m.cache.Set(p, data)
	return data, nil
}

// Stat returns file info for name from the highest priority source that has it.
func (m *Manager) Stat(name string) (fs.FileInfo, error) {
	f, err := m.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Stat()
}

// Exists reports whether name resolves to a regular file.
func (m *Manager) Exists(name string) bool {
	info, err := m.Stat(name)
	return err == nil && !info.IsDir()
}

// Cache returns the byte cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Close closes every source that holds resources and clears the caches.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for _, s := range m.sources {
		if c, ok := s.fsys.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	m.sources = nil
	m.sizes = make(map[string]image.Point)
	m.cache.Clear()
	return err
}

package assets

import (
	"fmt"
	"image"
	_ "image/gif" // sprite formats accepted by the game's loader
	_ "image/jpeg"
	_ "image/png"
	"io/fs"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/tdr2024/internal/logger"
)

// ImageSize returns the pixel dimensions of an image asset. Only the
// header is decoded. Results are cached per normalised path.
func (m *Manager) ImageSize(name string) (image.Point, error) {
	p, ok := clean(name)
	if !ok {
		return image.Point{}, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	m.mu.RLock()
	size, ok := m.sizes[p]
	m.mu.RUnlock()
	if ok {
		return size, nil
	}

	f, err := m.Open(p)
	if err != nil {
		return image.Point{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, fmt.Errorf("decoding image header %s: %w", name, err)
	}
	size = image.Pt(cfg.Width, cfg.Height)

	m.mu.Lock()
	m.sizes[p] = size
	m.mu.Unlock()

	logger.Named("assets").Debug("probed image",
		zap.String("path", p),
		zap.String("format", format),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height))
	return size, nil
}

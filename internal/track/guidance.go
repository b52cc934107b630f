// Package track derives the steering guidance field and time penalties from
// a level's track layer.
package track

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/Faultbox/tdr2024/internal/logger"
	"github.com/Faultbox/tdr2024/pkg/math"
	"github.com/Faultbox/tdr2024/pkg/tiled"
)

// Sentinel errors.
var (
	ErrNoTrackLayer  = errors.New("track: map has no track tile layer")
	ErrInvalidParams = errors.New("track: invalid guidance parameters")
)

// OnTrack is the value of track pixels in the unblurred field.
const OnTrack = 255

// Params controls how the guidance field is built.
type Params struct {
	// PreScale is the nearest-neighbour upscale applied before blurring.
	PreScale int
	// BlurSigma is the gaussian blur applied at PreScale resolution.
	BlurSigma float64
	// Scale is the final number of field pixels per tile.
	Scale int
}

// DefaultParams returns the parameters the game uses: one field pixel per
// world unit for 128px tiles.
func DefaultParams() Params {
	return Params{PreScale: 8, BlurSigma: 8, Scale: 128}
}

func (p Params) validate() error {
	if p.PreScale < 1 || p.Scale < p.PreScale {
		return fmt.Errorf("%w: pre-scale %d, scale %d", ErrInvalidParams, p.PreScale, p.Scale)
	}
	if p.BlurSigma < 0 {
		return fmt.Errorf("%w: blur sigma %g", ErrInvalidParams, p.BlurSigma)
	}
	return nil
}

// TrackLayer returns the layer holding the track: the second layer if the map
// has one, otherwise the first. It must be a tile layer.
func TrackLayer(m *tiled.Map) (*tiled.TileLayer, error) {
	l := m.Layer(1)
	if l == nil {
		l = m.Layer(0)
	}
	tl, ok := l.(*tiled.TileLayer)
	if !ok || tl == nil {
		return nil, ErrNoTrackLayer
	}
	return tl, nil
}

// GuidanceField is a grayscale image of the track, bright on the racing line
// and fading off it. AI racers steer by sampling it and off-track drag is
// derived from it.
type GuidanceField struct {
	img *image.Gray
}

// NewGuidanceField renders the guidance field for m's track layer.
func NewGuidanceField(m *tiled.Map, p Params) (*GuidanceField, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	layer, err := TrackLayer(m)
	if err != nil {
		return nil, err
	}
	w, h := layer.Width, layer.Height

	micro := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if _, ok := layer.Tile(x, y); ok {
				micro.SetGray(x, y, color.Gray{Y: OnTrack})
			}
		}
	}

	// Blurring at full resolution is slow for a sigma of a whole tile, so
	// blur a small upscale and smooth-scale the result.
	mini := image.NewGray(image.Rect(0, 0, w*p.PreScale, h*p.PreScale))
	draw.NearestNeighbor.Scale(mini, mini.Bounds(), micro, micro.Bounds(), draw.Src, nil)
	mini = gaussianBlur(mini, p.BlurSigma)

	field := image.NewGray(image.Rect(0, 0, w*p.Scale, h*p.Scale))
	draw.CatmullRom.Scale(field, field.Bounds(), mini, mini.Bounds(), draw.Src, nil)

	logger.Named("track").Debug("guidance field built",
		zap.String("layer", layer.Name),
		zap.Int("width", field.Rect.Dx()),
		zap.Int("height", field.Rect.Dy()))

	return &GuidanceField{img: field}, nil
}

// At samples the field at a world position. The world origin is the centre
// of the map and y grows upwards. Positions off the field read as 0.
func (g *GuidanceField) At(pos math.Vec2) int {
	w, h := g.img.Rect.Dx(), g.img.Rect.Dy()
	px := float32(w)*0.5 + pos.X
	py := float32(h)*0.5 + pos.Y

	row := saturate(py)
	if row >= h {
		return 0
	}
	x, y := saturate(px), h-row
	if x >= w || y >= h {
		return 0
	}
	return int(g.img.GrayAt(x, y).Y)
}

// saturate truncates toward zero, clamping negatives (and NaN) to 0.
func saturate(f float32) int {
	switch {
	case !(f > 0):
		return 0
	case f >= maxSample:
		return maxSample
	}
	return int(f)
}

// maxSample is far beyond any field dimension.
const maxSample = 1 << 30

// Image returns the underlying field image.
func (g *GuidanceField) Image() *image.Gray {
	return g.img
}

// Size returns the field dimensions in pixels.
func (g *GuidanceField) Size() (int, int) {
	return g.img.Rect.Dx(), g.img.Rect.Dy()
}

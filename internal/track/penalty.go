package track

import (
	"github.com/Faultbox/tdr2024/pkg/math"
	"github.com/Faultbox/tdr2024/pkg/tiled"
)

// Trace is the per-racer state used to detect corner cutting.
type Trace struct {
	last math.Vec2
	seen bool
}

// Last returns the last on-track tile position, if any.
func (t *Trace) Last() (math.Vec2, bool) {
	return t.last, t.seen
}

// PenaltyTracker adds a time penalty whenever a racer re-enters the track
// more than one tile away from where it was last seen on it.
type PenaltyTracker struct {
	layer                 *tiled.TileLayer
	mapWidth, mapHeight   float32
	tileWidth, tileHeight float32
}

// NewPenaltyTracker creates a tracker for m's track layer.
func NewPenaltyTracker(m *tiled.Map) (*PenaltyTracker, error) {
	layer, err := TrackLayer(m)
	if err != nil {
		return nil, err
	}
	if m.TileWidth <= 0 || m.TileHeight <= 0 {
		return nil, tiled.ErrInvalidDimensions
	}
	return &PenaltyTracker{
		layer:      layer,
		mapWidth:   float32(m.Width),
		mapHeight:  float32(m.Height),
		tileWidth:  float32(m.TileWidth),
		tileHeight: float32(m.TileHeight),
	}, nil
}

// TilePos converts a world position into fractional tile coordinates.
// Tile rows count downwards from the top of the map.
func (p *PenaltyTracker) TilePos(pos math.Vec2) math.Vec2 {
	return math.Vec2{
		X: pos.X/p.tileWidth + p.mapWidth/2,
		Y: -pos.Y/p.tileHeight + p.mapHeight/2,
	}
}

// OnTrack reports whether the tile under a world position is part of the track.
func (p *PenaltyTracker) OnTrack(pos math.Vec2) bool {
	return p.onTrack(p.TilePos(pos))
}

func (p *PenaltyTracker) onTrack(tp math.Vec2) bool {
	_, ok := p.layer.Tile(int(tp.X), int(tp.Y))
	return ok
}

// Observe records a sample for a racer and returns the penalty incurred,
// measured in tiles skipped.
func (p *PenaltyTracker) Observe(t *Trace, pos math.Vec2) float32 {
	now := p.TilePos(pos)
	if !p.onTrack(now) {
		return 0
	}

	var penalty float32
	if t.seen {
		if d := now.Distance(t.last); d > 1 {
			penalty = d
		}
	}
	t.last, t.seen = now, true
	return penalty
}

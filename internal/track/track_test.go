package track

import (
	"errors"
	"image"
	"testing"

	"github.com/Faultbox/tdr2024/pkg/math"
	"github.com/Faultbox/tdr2024/pkg/tiled"
)

// testMap builds a map whose second layer has track tiles wherever rows has '#'.
func testMap(rows ...string) *tiled.Map {
	h, w := len(rows), len(rows[0])
	grass := &tiled.TileLayer{ID: 1, Name: "Grass", Width: w, Height: h, GIDs: make([]tiled.GID, w*h)}
	track := &tiled.TileLayer{ID: 2, Name: "Track", Width: w, Height: h, GIDs: make([]tiled.GID, w*h)}
	for y, row := range rows {
		for x, c := range row {
			grass.GIDs[y*w+x] = 1
			if c == '#' {
				track.GIDs[y*w+x] = 2
			}
		}
	}
	return &tiled.Map{
		Width: w, Height: h, TileWidth: 128, TileHeight: 128,
		Layers: []tiled.Layer{grass, track},
	}
}

func TestTrackLayer(t *testing.T) {
	m := testMap("#.", ".#")
	l, err := TrackLayer(m)
	if err != nil {
		t.Fatalf("TrackLayer failed: %v", err)
	}
	if l.Name != "Track" {
		t.Errorf("expected Track layer, got %s", l.Name)
	}

	single := &tiled.Map{Layers: m.Layers[:1]}
	if l, err := TrackLayer(single); err != nil || l.Name != "Grass" {
		t.Errorf("expected fallback to first layer, got %v, %v", l, err)
	}

	objects := &tiled.Map{Layers: []tiled.Layer{m.Layers[0], &tiled.ObjectGroup{Name: "Objects"}}}
	if _, err := TrackLayer(objects); !errors.Is(err, ErrNoTrackLayer) {
		t.Errorf("expected ErrNoTrackLayer for object group, got %v", err)
	}

	if _, err := TrackLayer(&tiled.Map{}); !errors.Is(err, ErrNoTrackLayer) {
		t.Errorf("expected ErrNoTrackLayer for empty map, got %v", err)
	}
}

func TestNewGuidanceField_Size(t *testing.T) {
	g, err := NewGuidanceField(testMap("###", "#.#"), DefaultParams())
	if err != nil {
		t.Fatalf("NewGuidanceField failed: %v", err)
	}
	if w, h := g.Size(); w != 384 || h != 256 {
		t.Errorf("expected 384x256, got %dx%d", w, h)
	}
	if g.Image().Bounds() != image.Rect(0, 0, 384, 256) {
		t.Errorf("unexpected image bounds %v", g.Image().Bounds())
	}
}

func TestNewGuidanceField_InvalidParams(t *testing.T) {
	tests := []Params{
		{PreScale: 0, BlurSigma: 8, Scale: 128},
		{PreScale: 16, BlurSigma: 8, Scale: 8},
		{PreScale: 8, BlurSigma: -1, Scale: 128},
	}
	for _, p := range tests {
		if _, err := NewGuidanceField(testMap("#"), p); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("params %+v: expected ErrInvalidParams, got %v", p, err)
		}
	}
}

func TestGuidanceField_At(t *testing.T) {
	// 3x2 tiles at 2 pixels per tile without blur: a 6x4 field whose
	// left column of tiles is track.
	g, err := NewGuidanceField(testMap("#..", "#.."), Params{PreScale: 2, Scale: 2})
	if err != nil {
		t.Fatalf("NewGuidanceField failed: %v", err)
	}

	bright := func(v int) bool { return v >= 250 }
	dark := func(v int) bool { return v <= 5 }

	tests := []struct {
		name string
		pos  math.Vec2
		want func(int) bool
	}{
		{"track", math.V2(-2, 0), bright},
		{"off track", math.V2(0, 0), dark},
		{"negative x saturates onto the left edge", math.V2(-10, 0), bright},
		{"past right edge", math.V2(10, 0), dark},
		{"above the top", math.V2(-2, 2), dark},
		{"bottom row reads outside", math.V2(-2, -2), dark},
		{"below the bottom saturates", math.V2(-2, -10), dark},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.At(tc.pos); !tc.want(got) {
				t.Errorf("At(%v) = %d", tc.pos, got)
			}
		})
	}
}

func TestGuidanceField_Blurred(t *testing.T) {
	g, err := NewGuidanceField(testMap("...", ".#.", "..."), Params{PreScale: 4, BlurSigma: 1, Scale: 16})
	if err != nil {
		t.Fatalf("NewGuidanceField failed: %v", err)
	}

	centre := g.At(math.V2(0, 0))
	edge := g.At(math.V2(12, 0))
	far := g.At(math.V2(22, 22))

	if !(centre > edge && edge > far) {
		t.Errorf("expected field to fade away from the track: centre %d, edge %d, far %d", centre, edge, far)
	}
	if centre < 200 {
		t.Errorf("expected bright centre, got %d", centre)
	}
}

func TestGaussianKernel(t *testing.T) {
	k := gaussianKernel(2)
	if len(k) != 13 {
		t.Fatalf("expected 13 taps, got %d", len(k))
	}
	var sum float32
	for i := range k {
		sum += k[i]
		if k[i] != k[len(k)-1-i] {
			t.Errorf("kernel not symmetric at %d", i)
		}
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("expected weights to sum to 1, got %f", sum)
	}
}

func TestGaussianBlur(t *testing.T) {
	flat := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range flat.Pix {
		flat.Pix[i] = 100
	}
	out := gaussianBlur(flat, 3)
	for i, v := range out.Pix {
		if v != 100 {
			t.Fatalf("flat image changed at %d: %d", i, v)
		}
	}

	line := image.NewGray(image.Rect(0, 0, 9, 1))
	line.Pix[4] = 255
	out = gaussianBlur(line, 1)
	if !(out.Pix[4] > out.Pix[3] && out.Pix[3] > out.Pix[2] && out.Pix[3] == out.Pix[5]) {
		t.Errorf("expected symmetric falloff, got %v", out.Pix)
	}

	same := gaussianBlur(line, 0)
	if same.Pix[4] != 255 || same.Pix[3] != 0 {
		t.Errorf("sigma 0 should copy, got %v", same.Pix)
	}
}

func TestPenaltyTracker(t *testing.T) {
	m := testMap(
		"....",
		"####",
		"....",
	)
	p, err := NewPenaltyTracker(m)
	if err != nil {
		t.Fatalf("NewPenaltyTracker failed: %v", err)
	}

	if tp := p.TilePos(math.V2(0, 0)); tp != math.V2(2, 1.5) {
		t.Errorf("expected tile pos (2, 1.5), got %v", tp)
	}

	var tr Trace
	steps := []struct {
		pos  math.Vec2
		want float32
	}{
		{math.V2(0, 0), 0},      // first sample on track
		{math.V2(128, 0), 0},    // one tile along
		{math.V2(0, 128), 0},    // off track, ignored
		{math.V2(-256, 0), 3},   // skipped three tiles
		{math.V2(-200, -20), 0}, // small move
	}
	for i, s := range steps {
		if got := p.Observe(&tr, s.pos); got != s.want {
			t.Errorf("step %d: expected penalty %v, got %v", i, s.want, got)
		}
	}

	last, ok := tr.Last()
	if !ok || last != p.TilePos(math.V2(-200, -20)) {
		t.Errorf("unexpected last tile %v (%v)", last, ok)
	}

	if p.OnTrack(math.V2(0, 128)) {
		t.Error("expected top row to be off track")
	}
}

func TestNewPenaltyTracker_Errors(t *testing.T) {
	if _, err := NewPenaltyTracker(&tiled.Map{}); !errors.Is(err, ErrNoTrackLayer) {
		t.Errorf("expected ErrNoTrackLayer, got %v", err)
	}

	m := testMap("#")
	m.TileWidth = 0
	if _, err := NewPenaltyTracker(m); !errors.Is(err, tiled.ErrInvalidDimensions) {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}

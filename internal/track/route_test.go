package track

import (
	"errors"
	"image"
	"testing"

	"github.com/Faultbox/tdr2024/pkg/tiled"
)

func TestRouter_FindPath_Simple(t *testing.T) {
	r, err := NewRouter(testMap(
		"#####",
		"#####",
		"#####",
		"#####",
		"#####",
	))
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	path := r.FindPath(image.Pt(0, 0), image.Pt(4, 4))
	if path == nil {
		t.Fatal("expected path, got nil")
	}
	if path[0] != image.Pt(0, 0) {
		t.Errorf("path should start at (0,0), got %v", path[0])
	}
	if last := path[len(path)-1]; last != image.Pt(4, 4) {
		t.Errorf("path should end at (4,4), got %v", last)
	}
	if len(path) != 5 {
		t.Errorf("expected diagonal path of 5 tiles, got %d: %v", len(path), path)
	}
}

func TestRouter_FindPath_AroundInfield(t *testing.T) {
	r, err := NewRouter(testMap(
		"#####",
		"#...#",
		"#...#",
		"#...#",
		"#####",
	))
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	path := r.FindPath(image.Pt(0, 2), image.Pt(4, 2))
	if path == nil {
		t.Fatal("expected path around the infield, got nil")
	}
	for _, p := range path {
		if !r.OnTrack(p) {
			t.Errorf("path left the track at %v", p)
		}
	}
	// Down the left side, along the bottom and up the right side.
	if len(path) != 9 {
		t.Errorf("expected 9 tiles, got %d: %v", len(path), path)
	}
}

func TestRouter_FindPath_NoCornerCutting(t *testing.T) {
	r, err := NewRouter(testMap(
		"#.",
		".#",
	))
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	if path := r.FindPath(image.Pt(0, 0), image.Pt(1, 1)); path != nil {
		t.Errorf("expected no path across an off-track corner, got %v", path)
	}
}

func TestRouter_FindPath_Unreachable(t *testing.T) {
	r, err := NewRouter(testMap(
		"##.##",
		"##.##",
	))
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	tests := []struct {
		name        string
		start, goal image.Point
	}{
		{"disconnected", image.Pt(0, 0), image.Pt(4, 0)},
		{"goal off track", image.Pt(0, 0), image.Pt(2, 0)},
		{"start out of bounds", image.Pt(-1, 0), image.Pt(1, 1)},
		{"goal out of bounds", image.Pt(0, 0), image.Pt(10, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if path := r.FindPath(tt.start, tt.goal); path != nil {
				t.Errorf("expected nil, got %v", path)
			}
		})
	}
}

func TestRouter_FindPath_SameStartGoal(t *testing.T) {
	r, err := NewRouter(testMap("###"))
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	path := r.FindPath(image.Pt(1, 0), image.Pt(1, 0))
	if len(path) != 1 {
		t.Errorf("expected path length 1, got %v", path)
	}
}

func TestRouter_Reachable(t *testing.T) {
	r, err := NewRouter(testMap(
		"###.#",
		"#.#.#",
		"###..",
	))
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	if n := r.Reachable(image.Pt(0, 0)); n != 8 {
		t.Errorf("expected 8 tiles in the loop, got %d", n)
	}
	if n := r.Reachable(image.Pt(4, 0)); n != 2 {
		t.Errorf("expected 2 tiles in the spur, got %d", n)
	}
	if n := r.Reachable(image.Pt(1, 1)); n != 0 {
		t.Errorf("expected 0 from an off-track tile, got %d", n)
	}
}

func TestRouter_NoTrack(t *testing.T) {
	if _, err := NewRouter(&tiled.Map{}); !errors.Is(err, ErrNoTrackLayer) {
		t.Errorf("expected ErrNoTrackLayer, got %v", err)
	}
}

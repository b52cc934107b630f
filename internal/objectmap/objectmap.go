// Package objectmap places the scenery objects of a level in world space.
package objectmap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/tdr2024/pkg/math"
	"github.com/Faultbox/tdr2024/pkg/tiled"
)

// LayerName is the object group scenery is read from.
const LayerName = "Objects"

// Depth is the draw order of scenery, above the track and below the cars.
const Depth = 5

// Sentinel errors.
var (
	ErrNoTileData   = errors.New("objectmap: object has no tile data")
	ErrUnknownTile  = errors.New("objectmap: tile id missing from tileset")
	ErrMissingImage = errors.New("objectmap: tile has no image")
)

// Collider is the kind of obstacle an object is.
type Collider int

const (
	Block Collider = iota
	Tree
)

func (c Collider) String() string {
	if c == Tree {
		return "tree"
	}
	return "block"
}

// Placement is a scenery object resolved to its sprite and world position.
type Placement struct {
	ObjectID int
	Name     string
	// Position is the sprite centre. The world origin is the centre of the
	// map and y grows upwards.
	Position math.Vec2
	Z        float32
	Image    tiled.Image
	// ImagePath is the image source resolved against the tileset directory.
	ImagePath string
	Collider  Collider
}

// Size returns the sprite size in pixels.
func (p Placement) Size() math.Vec2 {
	return math.V2(float32(p.Image.Width), float32(p.Image.Height))
}

// Place resolves every object in m's "Objects" group. Objects that cannot be
// resolved are skipped and reported in errs.
func Place(m *tiled.Map) (placed []Placement, errs []error) {
	og := m.ObjectGroup(LayerName)
	if og == nil {
		return nil, nil
	}

	w, h := m.PixelSize()
	for _, obj := range og.Objects {
		p, err := place(m, &obj, float32(w), float32(h))
		if err != nil {
			errs = append(errs, fmt.Errorf("object %d: %w", obj.ID, err))
			continue
		}
		placed = append(placed, p)
	}
	return placed, errs
}

func place(m *tiled.Map, obj *tiled.Object, w, h float32) (Placement, error) {
	if !obj.IsTile() {
		return Placement{}, ErrNoTileData
	}
	mt, id, ok := m.TilesetForGID(obj.GID)
	if !ok || mt.Tileset == nil {
		return Placement{}, fmt.Errorf("%w: gid %d", ErrNoTileData, obj.GID.ID())
	}
	tile := mt.Tile(id)
	if tile == nil {
		return Placement{}, fmt.Errorf("%w: %d in %s", ErrUnknownTile, id, mt.Name)
	}
	if tile.Image == nil {
		return Placement{}, fmt.Errorf("%w: %d in %s", ErrMissingImage, id, mt.Name)
	}

	img := *tile.Image
	iw, ih := float32(img.Width), float32(img.Height)
	return Placement{
		ObjectID: obj.ID,
		Name:     obj.Name,
		Position: math.V2(
			float32(obj.X)-(w-iw)/2,
			-float32(obj.Y)+(h+ih)/2,
		),
		Z:         Depth,
		Image:     img,
		ImagePath: mt.ImagePath(&img),
		Collider:  colliderFor(img.Source),
	}, nil
}

func colliderFor(source string) Collider {
	if strings.Contains(source, "tree") {
		return Tree
	}
	return Block
}

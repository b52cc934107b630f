package objectmap

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/Faultbox/tdr2024/pkg/math"
	"github.com/Faultbox/tdr2024/pkg/tiled"
)

const objectsTSX = `<?xml version="1.0" encoding="UTF-8"?>
<tileset version="1.10" name="objects" tilewidth="128" tileheight="128" tilecount="3" columns="0">
 <tile id="0"><image width="106" height="108" source="PNG/Objects/tree_large.png"/></tile>
 <tile id="1"><image width="28" height="44" source="PNG/Objects/barrel_red.png"/></tile>
 <tile id="2"/>
</tileset>
`

const objectsTMX = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" width="4" height="2" tilewidth="128" tileheight="128">
 <tileset firstgid="1" source="tiles/objects.tsx"/>
 <layer id="1" name="Track" width="4" height="2">
  <data encoding="csv">0,0,0,0,0,0,0,0</data>
 </layer>
 <objectgroup id="2" name="Objects">
  <object id="1" name="oak" gid="1" x="100" y="200" width="106" height="108"/>
  <object id="2" gid="2147483650" x="0" y="256" width="28" height="44"/>
  <object id="3" gid="3" x="5" y="5" width="10" height="10"/>
  <object id="4" x="5" y="5" width="10" height="10"/>
  <object id="5" gid="7" x="5" y="5" width="10" height="10"/>
 </objectgroup>
</map>
`

func loadObjects(t *testing.T) *tiled.Map {
	t.Helper()
	fsys := fstest.MapFS{
		"levels/tiles/objects.tsx": {Data: []byte(objectsTSX)},
		"levels/level1.tmx":        {Data: []byte(objectsTMX)},
	}
	m, err := tiled.LoadMap(fsys, "levels/level1.tmx")
	if err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}
	return m
}

func TestPlace(t *testing.T) {
	placed, errs := Place(loadObjects(t))

	// map is 512x256 pixels
	want := []Placement{
		{
			ObjectID:  1,
			Name:      "oak",
			Position:  math.V2(100-(512-106)/2.0, -200+(256+108)/2.0),
			Z:         Depth,
			Image:     tiled.Image{Source: "PNG/Objects/tree_large.png", Width: 106, Height: 108},
			ImagePath: "levels/tiles/PNG/Objects/tree_large.png",
			Collider:  Tree,
		},
		{
			ObjectID:  2,
			Position:  math.V2(0-(512-28)/2.0, -256+(256+44)/2.0),
			Z:         Depth,
			Image:     tiled.Image{Source: "PNG/Objects/barrel_red.png", Width: 28, Height: 44},
			ImagePath: "levels/tiles/PNG/Objects/barrel_red.png",
			Collider:  Block,
		},
	}
	if diff := cmp.Diff(want, placed); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}

	wantErrs := []error{ErrMissingImage, ErrNoTileData, ErrUnknownTile}
	if len(errs) != len(wantErrs) {
		t.Fatalf("expected %d errors, got %d: %v", len(wantErrs), len(errs), errs)
	}
	for i, want := range wantErrs {
		if !errors.Is(errs[i], want) {
			t.Errorf("error %d: expected %v, got %v", i, want, errs[i])
		}
	}
}

func TestPlace_NoObjectLayer(t *testing.T) {
	m := &tiled.Map{Width: 1, Height: 1, TileWidth: 128, TileHeight: 128}
	placed, errs := Place(m)
	if placed != nil || errs != nil {
		t.Errorf("expected nothing, got %v, %v", placed, errs)
	}
}

func TestPlacementSize(t *testing.T) {
	p := Placement{Image: tiled.Image{Width: 70, Height: 121}}
	if p.Size() != math.V2(70, 121) {
		t.Errorf("unexpected size %v", p.Size())
	}
}

func TestColliderString(t *testing.T) {
	if Tree.String() != "tree" || Block.String() != "block" {
		t.Errorf("unexpected collider names %s, %s", Tree, Block)
	}
}

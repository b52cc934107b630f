package integrity

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/Faultbox/tdr2024/internal/assets"
	"github.com/Faultbox/tdr2024/pkg/tiled"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func testAssets(t *testing.T) *assets.Manager {
	t.Helper()
	m := assets.NewManager()
	m.AddFS("test", fstest.MapFS{
		"PNG/grass.png":     {Data: pngBytes(t, 128, 128)},
		"PNG/road.png":      {Data: pngBytes(t, 128, 128)},
		"PNG/car_red_5.png": {Data: pngBytes(t, 70, 121)},
		"PNG/broken.png":    {Data: []byte("garbage")},
		"atlas.png":         {Data: pngBytes(t, 260, 260)},
	})
	return m
}

const tdrTSX = `<?xml version="1.0" encoding="UTF-8"?>
<tileset version="1.10" name="tdr2024" tilewidth="128" tileheight="128" tilecount="3" columns="0">
 <tile id="0"><image width="128" height="128" source="PNG/grass.png"/></tile>
 <tile id="1"><image width="128" height="128" source="PNG/road.png"/></tile>
 <tile id="2"><image width="70" height="121" source="PNG/car_red_5.png"/></tile>
</tileset>
`

func collection(count int, tiles ...tiled.Tile) *tiled.Tileset {
	return &tiled.Tileset{Name: "t", TileWidth: 128, TileHeight: 128, TileCount: count, Tiles: tiles}
}

func tile(id int, src string, w, h int) tiled.Tile {
	return tiled.Tile{ID: id, Image: &tiled.Image{Source: src, Width: w, Height: h}}
}

type finding struct {
	Severity Severity
	Rule     string
	TileID   int
}

func findings(r *Report) []finding {
	var out []finding
	for _, d := range r.Diagnostics {
		out = append(out, finding{d.Severity, d.Rule, d.TileID})
	}
	return out
}

func TestCheckTileset_Clean(t *testing.T) {
	ts, err := tiled.ParseTileset([]byte(tdrTSX))
	if err != nil {
		t.Fatalf("ParseTileset failed: %v", err)
	}

	r, err := CheckTileset(context.Background(), ts, testAssets(t), DefaultOptions())
	if err != nil {
		t.Fatalf("CheckTileset failed: %v", err)
	}
	if !r.OK() || len(r.Diagnostics) != 0 {
		t.Errorf("expected clean report, got %v", r.Diagnostics)
	}
	if r.Err() != nil {
		t.Errorf("expected nil Err, got %v", r.Err())
	}
}

func TestCheckTileset_IDs(t *testing.T) {
	grass := func(id int) tiled.Tile { return tile(id, "PNG/grass.png", 128, 128) }

	tests := []struct {
		name string
		ts   *tiled.Tileset
		opts Options
		want []finding
	}{
		{
			name: "duplicate id",
			ts:   collection(2, grass(0), grass(1), grass(1)),
			opts: DefaultOptions(),
			want: []finding{
				{SeverityWarning, RuleTileCount, NoTile},
				{SeverityError, RuleUniqueID, 1},
			},
		},
		{
			name: "id out of range",
			ts:   collection(2, grass(0), grass(1), grass(2)),
			opts: DefaultOptions(),
			want: []finding{
				{SeverityWarning, RuleTileCount, NoTile},
				{SeverityError, RuleIDRange, 2},
			},
		},
		{
			name: "negative id",
			ts:   collection(2, grass(-1), grass(0)),
			opts: DefaultOptions(),
			want: []finding{
				{SeverityError, RuleIDRange, -1},
			},
		},
		{
			name: "gap is an error",
			ts:   collection(3, grass(0), grass(2)),
			opts: DefaultOptions(),
			want: []finding{
				{SeverityError, RuleContiguous, NoTile},
				{SeverityWarning, RuleTileCount, NoTile},
			},
		},
		{
			name: "gap is a warning when allowed",
			ts:   collection(3, grass(0), grass(2)),
			opts: Options{CheckImages: true, Workers: 2},
			want: []finding{
				{SeverityWarning, RuleContiguous, NoTile},
				{SeverityWarning, RuleTileCount, NoTile},
			},
		},
		{
			name: "tile without image",
			ts:   collection(2, grass(0), tiled.Tile{ID: 1}),
			opts: DefaultOptions(),
			want: []finding{
				{SeverityError, RuleTileImage, 1},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := CheckTileset(context.Background(), tc.ts, testAssets(t), tc.opts)
			if err != nil {
				t.Fatalf("CheckTileset failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, findings(r)); diff != "" {
				t.Errorf("findings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheckTileset_Images(t *testing.T) {
	ts := collection(4,
		tile(0, "PNG/grass.png", 128, 128),
		tile(1, "PNG/missing.png", 128, 128),
		tile(2, "PNG/car_red_5.png", 71, 121),
		tile(3, "PNG/broken.png", 128, 128),
	)

	r, err := CheckTileset(context.Background(), ts, testAssets(t), DefaultOptions())
	if err != nil {
		t.Fatalf("CheckTileset failed: %v", err)
	}

	want := []finding{
		{SeverityError, RuleImageExists, 1},
		{SeverityError, RuleImageSize, 2},
		{SeverityError, RuleImageReadable, 3},
	}
	if diff := cmp.Diff(want, findings(r)); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
	if r.OK() {
		t.Error("expected report with errors")
	}

	wantMsg := "declared 71x121 but PNG/car_red_5.png is 70x121"
	if got := r.Errors()[1].Message; got != wantMsg {
		t.Errorf("expected message %q, got %q", wantMsg, got)
	}
}

func TestCheckTileset_ImagesRelativeToDir(t *testing.T) {
	m := assets.NewManager()
	m.AddFS("test", fstest.MapFS{
		"levels/PNG/grass.png": {Data: pngBytes(t, 128, 128)},
	})

	ts := collection(1, tile(0, "PNG/grass.png", 128, 128))
	ts.Dir = "levels"

	r, err := CheckTileset(context.Background(), ts, m, DefaultOptions())
	if err != nil {
		t.Fatalf("CheckTileset failed: %v", err)
	}
	if len(r.Diagnostics) != 0 {
		t.Errorf("expected clean report, got %v", r.Diagnostics)
	}
}

func TestCheckTileset_SkipImages(t *testing.T) {
	ts := collection(1, tile(0, "PNG/missing.png", 128, 128))

	opts := DefaultOptions()
	opts.CheckImages = false
	r, err := CheckTileset(context.Background(), ts, testAssets(t), opts)
	if err != nil {
		t.Fatalf("CheckTileset failed: %v", err)
	}
	if len(r.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics with image checks off, got %v", r.Diagnostics)
	}

	if r, _ := CheckTileset(context.Background(), ts, nil, DefaultOptions()); len(r.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics without a source, got %v", r.Diagnostics)
	}
}

func TestCheckTileset_Atlas(t *testing.T) {
	tests := []struct {
		name string
		ts   *tiled.Tileset
		want []finding
	}{
		{
			name: "fits",
			ts: &tiled.Tileset{
				Name: "atlas", TileWidth: 128, TileHeight: 128, Spacing: 2, Margin: 1,
				TileCount: 4, Columns: 2,
				Image: &tiled.Image{Source: "atlas.png", Width: 260, Height: 260},
			},
		},
		{
			name: "too many tiles",
			ts: &tiled.Tileset{
				Name: "atlas", TileWidth: 128, TileHeight: 128, Spacing: 2, Margin: 1,
				TileCount: 5, Columns: 3,
				Image: &tiled.Image{Source: "atlas.png", Width: 260, Height: 260},
			},
			want: []finding{
				{SeverityError, RuleAtlasCapacity, NoTile},
				{SeverityWarning, RuleAtlasColumns, NoTile},
			},
		},
		{
			name: "declared atlas size wrong",
			ts: &tiled.Tileset{
				Name: "atlas", TileWidth: 128, TileHeight: 128,
				TileCount: 1, Columns: 1,
				Image: &tiled.Image{Source: "atlas.png", Width: 128, Height: 128},
			},
			want: []finding{
				{SeverityError, RuleImageSize, NoTile},
			},
		},
		{
			name: "undeclared size uses the image",
			ts: &tiled.Tileset{
				Name: "atlas", TileWidth: 64, TileHeight: 64,
				TileCount: 16, Columns: 4,
				Image: &tiled.Image{Source: "atlas.png"},
			},
		},
		{
			name: "undeclared size over capacity",
			ts: &tiled.Tileset{
				Name: "atlas", TileWidth: 64, TileHeight: 64,
				TileCount: 17, Columns: 4,
				Image: &tiled.Image{Source: "atlas.png"},
			},
			want: []finding{
				{SeverityError, RuleAtlasCapacity, NoTile},
			},
		},
		{
			name: "undeclared size and missing image",
			ts: &tiled.Tileset{
				Name: "atlas", TileWidth: 64, TileHeight: 64,
				TileCount: 4, Columns: 2,
				Image: &tiled.Image{Source: "sheet.png"},
			},
			want: []finding{
				{SeverityError, RuleImageExists, NoTile},
			},
		},
		{
			name: "atlas gaps are fine",
			ts: &tiled.Tileset{
				Name: "atlas", TileWidth: 128, TileHeight: 128, Spacing: 2, Margin: 1,
				TileCount: 4, Columns: 2,
				Image: &tiled.Image{Source: "atlas.png", Width: 260, Height: 260},
				Tiles: []tiled.Tile{{ID: 3}},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := CheckTileset(context.Background(), tc.ts, testAssets(t), DefaultOptions())
			if err != nil {
				t.Fatalf("CheckTileset failed: %v", err)
			}
			if diff := cmp.Diff(tc.want, findings(r)); diff != "" {
				t.Errorf("findings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type staticSource struct{}

func (staticSource) ImageSize(string) (image.Point, error) {
	return image.Point{}, nil
}

func TestCheckTileset_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ts := collection(1, tile(0, "PNG/grass.png", 128, 128))
	if _, err := CheckTileset(ctx, ts, staticSource{}, DefaultOptions()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestReportErr(t *testing.T) {
	r := &Report{}
	r.add(SeverityWarning, RuleTileCount, "tileset t", NoTile, "just a warning")
	if r.Err() != nil {
		t.Errorf("warnings alone should not produce an error, got %v", r.Err())
	}

	r.add(SeverityError, RuleUniqueID, "tileset t", 4, "duplicate tile id")
	r.add(SeverityError, RuleImageExists, "tileset t", 5, "image x.png not found")

	err := r.Err()
	if err == nil {
		t.Fatal("expected combined error")
	}
	want := "tileset t: tile 4: duplicate tile id [unique-id]; tileset t: tile 5: image x.png not found [image-exists]"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	var d Diagnostic
	if !errors.As(err, &d) || d.Rule != RuleUniqueID {
		t.Errorf("expected to unwrap the first diagnostic, got %+v", d)
	}
	if len(r.Warnings()) != 1 || len(r.Errors()) != 2 {
		t.Errorf("expected 1 warning and 2 errors, got %d and %d", len(r.Warnings()), len(r.Errors()))
	}
}

func TestSeverityString(t *testing.T) {
	if SeverityError.String() != "error" || SeverityWarning.String() != "warning" {
		t.Errorf("unexpected severity names %s, %s", SeverityError, SeverityWarning)
	}
}

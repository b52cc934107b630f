package integrity

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/tdr2024/internal/logger"
	"github.com/Faultbox/tdr2024/pkg/tiled"
)

// ImageSource reports the pixel size of image assets.
// Missing files must yield an error matching fs.ErrNotExist.
type ImageSource interface {
	ImageSize(name string) (image.Point, error)
}

// Options controls which checks run.
type Options struct {
	// CheckImages enables the image existence and size checks.
	CheckImages bool
	// RequireContiguous makes gaps in tile ids an error rather than a warning.
	RequireContiguous bool
	// Workers bounds concurrent image probes.
	Workers int
}

// DefaultOptions returns the strictest options.
func DefaultOptions() Options {
	return Options{
		CheckImages:       true,
		RequireContiguous: true,
		Workers:           8,
	}
}

// maxListed caps how many ids a single diagnostic message lists.
const maxListed = 8

type probe struct {
	tileID int
	path   string
	want   image.Point
	got    image.Point
	err    error
}

// CheckTileset verifies tile ids and, when a source is given, the images
// the tileset references. The error is non-nil only if ctx is cancelled.
func CheckTileset(ctx context.Context, ts *tiled.Tileset, src ImageSource, opts Options) (*Report, error) {
	r := &Report{}
	subject := TilesetSubject(ts)

	checkIDs(r, ts, subject, opts)

	if ts.IsCollection() {
		for _, t := range ts.Tiles {
			if t.Image == nil {
				r.add(SeverityError, RuleTileImage, subject, t.ID, "no image in an image collection tileset")
			}
		}
		if len(ts.Tiles) != ts.TileCount {
			r.add(SeverityWarning, RuleTileCount, subject, NoTile,
				"tilecount is %d but %d tiles are defined", ts.TileCount, len(ts.Tiles))
		}
	}

	var atlas image.Point
	if opts.CheckImages && src != nil {
		var err error
		if atlas, err = checkImages(ctx, r, ts, subject, src, opts.Workers); err != nil {
			return nil, err
		}
	}
	if !ts.IsCollection() {
		if ts.Image.Width > 0 && ts.Image.Height > 0 {
			atlas = image.Pt(ts.Image.Width, ts.Image.Height)
		}
		// an undeclared size that could not be probed has no grid to check
		if atlas.X > 0 && atlas.Y > 0 {
			checkAtlas(r, ts, subject, atlas)
		}
	}

	r.sort()
	return r, nil
}

// TilesetSubject returns the subject used for diagnostics about ts.
func TilesetSubject(ts *tiled.Tileset) string {
	if ts.Name != "" {
		return "tileset " + ts.Name
	}
	if ts.Source != "" {
		return "tileset " + ts.Source
	}
	return "tileset"
}

func checkIDs(r *Report, ts *tiled.Tileset, subject string, opts Options) {
	seen := make(map[int]bool, len(ts.Tiles))
	for _, t := range ts.Tiles {
		if seen[t.ID] {
			r.add(SeverityError, RuleUniqueID, subject, t.ID, "duplicate tile id")
			continue
		}
		seen[t.ID] = true

		if t.ID < 0 || t.ID >= ts.TileCount {
			r.add(SeverityError, RuleIDRange, subject, t.ID, "id outside [0, %d)", ts.TileCount)
		}
	}

	// Atlas tilesets only list tiles that carry extra data, gaps are normal there.
	if !ts.IsCollection() || len(seen) == 0 {
		return
	}

	maxID := -1
	for id := range seen {
		maxID = max(maxID, id)
	}
	var missing []int
	for id := 0; id <= maxID; id++ {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return
	}

	sev := SeverityError
	if !opts.RequireContiguous {
		sev = SeverityWarning
	}
	r.add(sev, RuleContiguous, subject, NoTile, "ids are not contiguous from 0, missing %s", listInts(missing))
}

// checkAtlas compares the tile grid of an atlas of the given size against
// the declared columns and tile count.
func checkAtlas(r *Report, ts *tiled.Tileset, subject string, size image.Point) {
	grid, img := *ts, *ts.Image
	img.Width, img.Height = size.X, size.Y
	grid.Image = &img
	cols, rows := grid.AtlasColumns(), grid.AtlasRows()
	if ts.Columns != 0 && ts.Columns != cols {
		r.add(SeverityWarning, RuleAtlasColumns, subject, NoTile,
			"columns is %d but the atlas fits %d", ts.Columns, cols)
	}
	if capacity := cols * rows; ts.TileCount > capacity {
		r.add(SeverityError, RuleAtlasCapacity, subject, NoTile,
			"tilecount %d exceeds the %dx%d atlas grid", ts.TileCount, cols, rows)
	}
}

// checkImages probes every image of ts and returns the size of the atlas
// image, zero when there is none or it could not be read.
func checkImages(ctx context.Context, r *Report, ts *tiled.Tileset, subject string, src ImageSource, workers int) (image.Point, error) {
	var probes []*probe
	if ts.Image != nil {
		probes = append(probes, newProbe(ts, NoTile, ts.Image))
	}
	for _, t := range ts.Tiles {
		if t.Image != nil {
			probes = append(probes, newProbe(ts, t.ID, t.Image))
		}
	}
	if len(probes) == 0 {
		return image.Point{}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, p := range probes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.got, p.err = src.ImageSize(p.path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return image.Point{}, fmt.Errorf("checking images of %s: %w", subject, err)
	}

	logger.Named("integrity").Debug("probed images",
		zap.String("subject", subject),
		zap.Int("count", len(probes)))

	for _, p := range probes {
		switch {
		case errors.Is(p.err, fs.ErrNotExist):
			r.add(SeverityError, RuleImageExists, subject, p.tileID, "image %s not found", p.path)
		case p.err != nil:
			r.add(SeverityError, RuleImageReadable, subject, p.tileID, "image %s: %v", p.path, p.err)
		case p.want != (image.Point{}) && p.want != p.got:
			r.add(SeverityError, RuleImageSize, subject, p.tileID,
				"declared %dx%d but %s is %dx%d", p.want.X, p.want.Y, p.path, p.got.X, p.got.Y)
		}
	}

	if atlas := probes[0]; ts.Image != nil && atlas.err == nil {
		return atlas.got, nil
	}
	return image.Point{}, nil
}

func newProbe(ts *tiled.Tileset, id int, img *tiled.Image) *probe {
	return &probe{
		tileID: id,
		path:   ts.ImagePath(img),
		want:   image.Pt(img.Width, img.Height),
	}
}

func listInts(ids []int) string {
	slices.Sort(ids)
	n := min(len(ids), maxListed)
	parts := make([]string, n)
	for i := range n {
		parts[i] = fmt.Sprint(ids[i])
	}
	s := strings.Join(parts, ", ")
	if len(ids) > n {
		s += fmt.Sprintf(" and %d more", len(ids)-n)
	}
	return s
}

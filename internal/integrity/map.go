package integrity

import (
	"context"
	"maps"
	"slices"

	"github.com/Faultbox/tdr2024/pkg/tiled"
)

// CheckMap checks every tileset of m, the GID ranges they occupy, and every
// GID placed in tile layers and tile objects.
func CheckMap(ctx context.Context, m *tiled.Map, src ImageSource, opts Options) (*Report, error) {
	r := &Report{}

	for _, mt := range m.Tilesets {
		if mt.Tileset == nil {
			continue
		}
		tr, err := CheckTileset(ctx, mt.Tileset, src, opts)
		if err != nil {
			return nil, err
		}
		r.Diagnostics = append(r.Diagnostics, tr.Diagnostics...)
	}
	checkGIDRanges(r, m)

	for _, l := range m.Layers {
		switch l := l.(type) {
		case *tiled.TileLayer:
			checkTileLayer(r, m, l)
		case *tiled.ObjectGroup:
			checkObjectGroup(r, m, l)
		}
	}

	r.sort()
	return r, nil
}

// checkGIDRanges reports tilesets whose GID range runs into the next one.
// Tilesets are sorted by first GID on parse.
func checkGIDRanges(r *Report, m *tiled.Map) {
	for i := 0; i+1 < len(m.Tilesets); i++ {
		cur, next := m.Tilesets[i], m.Tilesets[i+1]
		if cur.Tileset == nil || next.Tileset == nil {
			continue
		}
		end := cur.FirstGID + uint32(max(cur.TileCount, 0))
		if end > next.FirstGID {
			r.add(SeverityError, RuleGIDRange, TilesetSubject(cur.Tileset), NoTile,
				"gids %d-%d overlap %s starting at %d",
				cur.FirstGID, end-1, TilesetSubject(next.Tileset), next.FirstGID)
		}
	}
}

func checkTileLayer(r *Report, m *tiled.Map, l *tiled.TileLayer) {
	subject := "layer " + l.Name
	if l.Width != m.Width || l.Height != m.Height {
		r.add(SeverityError, RuleLayerSize, subject, NoTile,
			"layer is %dx%d but the map is %dx%d", l.Width, l.Height, m.Width, m.Height)
	}

	// one diagnostic per distinct bad gid
	bad := make(map[uint32]int)
	for _, gid := range l.GIDs {
		if !gid.Empty() && !resolves(m, gid) {
			bad[gid.ID()]++
		}
	}
	for _, id := range slices.Sorted(maps.Keys(bad)) {
		r.add(SeverityError, RuleUnknownGID, subject, NoTile,
			"gid %d used %d times does not resolve to a tile", id, bad[id])
	}
}

func checkObjectGroup(r *Report, m *tiled.Map, g *tiled.ObjectGroup) {
	subject := "objects " + g.Name
	for _, o := range g.Objects {
		if o.IsTile() && !resolves(m, o.GID) {
			r.add(SeverityError, RuleUnknownGID, subject, NoTile,
				"object %d: gid %d does not resolve to a tile", o.ID, o.GID.ID())
		}
	}
}

func resolves(m *tiled.Map, gid tiled.GID) bool {
	mt, local, ok := m.TilesetForGID(gid)
	if !ok || mt.Tileset == nil || local >= mt.TileCount {
		return false
	}
	if mt.IsCollection() {
		return mt.Tile(local) != nil
	}
	return true
}

// Package browser implements an interactive terminal browser for tilesets
// and the integrity diagnostics attached to their tiles.
package browser

import (
	"fmt"
	"path"
	"strings"

	"github.com/Faultbox/tdr2024/internal/integrity"
	"github.com/Faultbox/tdr2024/pkg/tiled"
)

// Entry is one row in the browser: a tile, or with TileID integrity.NoTile
// a whole tileset or map subject.
type Entry struct {
	Tileset     string
	TileID      int
	Kind        string
	ImagePath   string // empty for atlas tiles without their own image
	Width       int
	Height      int
	Diagnostics []integrity.Diagnostic
}

// Path returns the string searches match against.
func (e Entry) Path() string {
	switch {
	case e.ImagePath != "":
		return e.ImagePath
	case e.TileID == integrity.NoTile:
		return e.Tileset
	}
	return fmt.Sprintf("%s#%d", e.Tileset, e.TileID)
}

// HasErrors reports whether any attached diagnostic is an error.
func (e Entry) HasErrors() bool {
	for _, d := range e.Diagnostics {
		if d.Severity == integrity.SeverityError {
			return true
		}
	}
	return false
}

// Entries builds browser rows for every tile of the given tilesets, attaching
// the diagnostics report carries for each tile. Atlas tilesets get a row per
// tile id. Diagnostics not about a single tile land on a row for their
// subject. report may be nil.
func Entries(report *integrity.Report, tilesets ...*tiled.Tileset) []Entry {
	var out []Entry
	seen := make(map[string]bool)
	for _, ts := range tilesets {
		if ts == nil {
			continue
		}
		subject := integrity.TilesetSubject(ts)
		seen[subject] = true

		for _, t := range tiles(ts) {
			e := Entry{Tileset: ts.Name, TileID: t.ID, Kind: t.Kind()}
			if t.Image != nil {
				e.ImagePath = ts.ImagePath(t.Image)
				e.Width, e.Height = t.Image.Width, t.Image.Height
			}
			if report != nil {
				e.Diagnostics = report.ForTile(subject, t.ID)
			}
			out = append(out, e)
		}

		e := Entry{Tileset: ts.Name, TileID: integrity.NoTile, Kind: "tileset"}
		if e.Tileset == "" {
			e.Tileset = subject
		}
		if ts.Image != nil {
			e.ImagePath = ts.ImagePath(ts.Image)
			e.Width, e.Height = ts.Image.Width, ts.Image.Height
		}
		if report != nil {
			e.Diagnostics = report.ForTile(subject, integrity.NoTile)
		}
		if e.ImagePath != "" || len(e.Diagnostics) > 0 {
			out = append(out, e)
		}
	}

	if report == nil {
		return out
	}
	// map level findings, one row per subject
	var subjects []string
	for _, d := range report.Diagnostics {
		if !seen[d.Subject] {
			seen[d.Subject] = true
			subjects = append(subjects, d.Subject)
		}
	}
	for _, subject := range subjects {
		var diags []integrity.Diagnostic
		for _, d := range report.Diagnostics {
			if d.Subject == subject {
				diags = append(diags, d)
			}
		}
		out = append(out, Entry{Tileset: subject, TileID: integrity.NoTile, Kind: "map", Diagnostics: diags})
	}
	return out
}

// tiles lists the tiles of ts. For an atlas every id below the tile count is
// listed, using the <tile> entry where one exists.
func tiles(ts *tiled.Tileset) []tiled.Tile {
	if ts.IsCollection() {
		return ts.Tiles
	}
	out := make([]tiled.Tile, 0, max(ts.TileCount, len(ts.Tiles)))
	for id := range ts.TileCount {
		if t := ts.Tile(id); t != nil {
			out = append(out, *t)
		} else {
			out = append(out, tiled.Tile{ID: id})
		}
	}
	for _, t := range ts.Tiles {
		if t.ID < 0 || t.ID >= ts.TileCount {
			out = append(out, t)
		}
	}
	return out
}

// matchesSearch checks if an entry matches the search pattern.
// Patterns with wildcards are globbed against the file name and then the
// whole path; anything else is a case-insensitive substring search.
func matchesSearch(e Entry, search string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	p := strings.ToLower(e.Path())

	if strings.ContainsAny(search, "*?[") {
		if ok, _ := path.Match(search, path.Base(p)); ok {
			return true
		}
		ok, _ := path.Match(search, p)
		return ok
	}
	return strings.Contains(p, search) || strings.Contains(strings.ToLower(e.Kind), search)
}

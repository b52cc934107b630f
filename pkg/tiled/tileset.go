package tiled

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Image references an image file with its declared pixel size.
type Image struct {
	Source string `xml:"source,attr"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
	Trans  string `xml:"trans,attr"` // transparent colour, hex without '#'
}

// TileOffset is the drawing offset applied to every tile of a tileset.
type TileOffset struct {
	X int `xml:"x,attr"`
	Y int `xml:"y,attr"`
}

// Grid describes how tiles are laid out in the editor's tile grid.
type Grid struct {
	Orientation string `xml:"orientation,attr"`
	Width       int    `xml:"width,attr"`
	Height      int    `xml:"height,attr"`
}

// Frame is a single step of a tile animation.
type Frame struct {
	TileID   int `xml:"tileid,attr"`
	Duration int `xml:"duration,attr"` // milliseconds
}

// Tile is one entry in a tileset.
type Tile struct {
	ID          int        `xml:"id,attr"`
	Type        string     `xml:"type,attr"`
	Class       string     `xml:"class,attr"`
	Probability float64    `xml:"probability,attr"`
	Properties  Properties `xml:"properties>property"`
	Image       *Image     `xml:"image"`
	Animation   []Frame    `xml:"animation>frame"`
}

// Kind returns the tile's class, falling back to the pre-1.9 type attribute.
func (t *Tile) Kind() string {
	if t.Class != "" {
		return t.Class
	}
	return t.Type
}

// Tileset is a named collection of tile definitions.
//
// A tileset is either an atlas (a single Image cut into a grid) or an image
// collection where every Tile carries its own Image.
type Tileset struct {
	Version      string      `xml:"version,attr"`
	TiledVersion string      `xml:"tiledversion,attr"`
	Name         string      `xml:"name,attr"`
	Class        string      `xml:"class,attr"`
	TileWidth    int         `xml:"tilewidth,attr"`
	TileHeight   int         `xml:"tileheight,attr"`
	Spacing      int         `xml:"spacing,attr"`
	Margin       int         `xml:"margin,attr"`
	TileCount    int         `xml:"tilecount,attr"`
	Columns      int         `xml:"columns,attr"`
	TileOffset   *TileOffset `xml:"tileoffset"`
	Grid         *Grid       `xml:"grid"`
	Properties   Properties  `xml:"properties>property"`
	Image        *Image      `xml:"image"`
	Tiles        []Tile      `xml:"tile"`

	// Source is the path the tileset was loaded from, empty when embedded in a map.
	Source string `xml:"-"`
	// Dir is the directory image sources are relative to.
	Dir string `xml:"-"`
}

// IsCollection returns true if the tileset is an image collection.
func (ts *Tileset) IsCollection() bool {
	return ts.Image == nil
}

// Tile returns the tile entry with the given id, or nil.
// Atlas tilesets only have entries for tiles carrying properties or animations.
func (ts *Tileset) Tile(id int) *Tile {
	for i := range ts.Tiles {
		if ts.Tiles[i].ID == id {
			return &ts.Tiles[i]
		}
	}
	return nil
}

// AtlasRows returns the number of tile rows in an atlas tileset.
func (ts *Tileset) AtlasRows() int {
	if ts.Image == nil || ts.TileHeight <= 0 {
		return 0
	}
	usable := ts.Image.Height - 2*ts.Margin + ts.Spacing
	if usable <= 0 {
		return 0
	}
	return usable / (ts.TileHeight + ts.Spacing)
}

// AtlasColumns returns the number of tile columns the atlas image can hold.
func (ts *Tileset) AtlasColumns() int {
	if ts.Image == nil || ts.TileWidth <= 0 {
		return 0
	}
	usable := ts.Image.Width - 2*ts.Margin + ts.Spacing
	if usable <= 0 {
		return 0
	}
	return usable / (ts.TileWidth + ts.Spacing)
}

// ImagePath joins an image source with the tileset directory.
// The result uses forward slashes.
func (ts *Tileset) ImagePath(img *Image) string {
	if img == nil {
		return ""
	}
	src := filepath.ToSlash(img.Source)
	if ts.Dir == "" || path.IsAbs(src) {
		return path.Clean(src)
	}
	return path.Join(filepath.ToSlash(ts.Dir), src)
}

func (ts *Tileset) validate() error {
	if ts.TileWidth <= 0 || ts.TileHeight <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, ts.TileWidth, ts.TileHeight)
	}
	if ts.TileCount < 0 || ts.Columns < 0 {
		return fmt.Errorf("%w: tilecount=%d columns=%d", ErrInvalidTileset, ts.TileCount, ts.Columns)
	}
	return nil
}

// ParseTileset parses a TSX tileset from raw bytes.
func ParseTileset(data []byte) (*Tileset, error) {
	var doc struct {
		XMLName xml.Name
		Tileset
	}
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTileset, err)
	}
	if doc.XMLName.Local != "tileset" {
		return nil, fmt.Errorf("%w: unexpected root element <%s>", ErrInvalidTileset, doc.XMLName.Local)
	}

	ts := doc.Tileset
	if err := ts.validate(); err != nil {
		return nil, err
	}
	return &ts, nil
}

// LoadTileset reads and parses a tileset from a file system.
// Image paths resolve relative to the tileset's directory within fsys.
func LoadTileset(fsys fs.FS, name string) (*Tileset, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading tileset: %w", err)
	}
	ts, err := ParseTileset(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	ts.Source = name
	ts.Dir = path.Dir(name)
	return ts, nil
}

// ParseTilesetFile parses a tileset from disk.
func ParseTilesetFile(p string) (*Tileset, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading tileset: %w", err)
	}
	ts, err := ParseTileset(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	ts.Source = p
	ts.Dir = filepath.Dir(p)
	return ts, nil
}

package tiled

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// Layer is implemented by *TileLayer and *ObjectGroup.
type Layer interface {
	LayerID() int
	LayerName() string
}

// TileLayer is a grid of GIDs in row-major order.
type TileLayer struct {
	ID         int
	Name       string
	Width      int
	Height     int
	Visible    bool
	Opacity    float64
	Properties Properties
	GIDs       []GID
}

// LayerID implements Layer.
func (l *TileLayer) LayerID() int { return l.ID }

// LayerName implements Layer.
func (l *TileLayer) LayerName() string { return l.Name }

// Tile returns the GID at (x, y). The second result is false for empty or
// out-of-bounds cells.
func (l *TileLayer) Tile(x, y int) (GID, bool) {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return 0, false
	}
	g := l.GIDs[y*l.Width+x]
	if g.Empty() {
		return 0, false
	}
	return g, true
}

// Count returns the number of non-empty cells.
func (l *TileLayer) Count() int {
	n := 0
	for _, g := range l.GIDs {
		if !g.Empty() {
			n++
		}
	}
	return n
}

// Object is a placed object from an object group.
type Object struct {
	ID          int        `xml:"id,attr"`
	Name        string     `xml:"name,attr"`
	Type        string     `xml:"type,attr"`
	Class       string     `xml:"class,attr"`
	X           float64    `xml:"x,attr"`
	Y           float64    `xml:"y,attr"`
	Width       float64    `xml:"width,attr"`
	Height      float64    `xml:"height,attr"`
	Rotation    float64    `xml:"rotation,attr"`
	GID         GID        `xml:"gid,attr"`
	VisibleAttr string     `xml:"visible,attr"`
	Properties  Properties `xml:"properties>property"`
}

// Visible returns false only when the object is explicitly hidden.
func (o *Object) Visible() bool {
	return o.VisibleAttr != "0"
}

// IsTile returns true if the object is a tile object.
func (o *Object) IsTile() bool {
	return !o.GID.Empty()
}

// ObjectGroup is an object layer.
type ObjectGroup struct {
	ID         int
	Name       string
	Visible    bool
	Properties Properties
	Objects    []Object
}

// LayerID implements Layer.
func (g *ObjectGroup) LayerID() int { return g.ID }

// LayerName implements Layer.
func (g *ObjectGroup) LayerName() string { return g.Name }

// MapTileset binds a tileset to the first GID it occupies in a map.
type MapTileset struct {
	FirstGID uint32
	// Source is the external TSX reference, empty for embedded tilesets.
	Source string
	*Tileset
}

// Map is a parsed TMX map.
type Map struct {
	Version      string
	TiledVersion string
	Orientation  string
	RenderOrder  string
	Width        int
	Height       int
	TileWidth    int
	TileHeight   int
	Properties   Properties
	Tilesets     []*MapTileset
	// Layers holds tile layers and object groups in document order.
	// Group layers are flattened.
	Layers []Layer

	// Dir is the directory the map was loaded from.
	Dir string
}

// Layer returns the layer at index i, or nil.
func (m *Map) Layer(i int) Layer {
	if i < 0 || i >= len(m.Layers) {
		return nil
	}
	return m.Layers[i]
}

// LayerByName returns the first layer with the given name, or nil.
func (m *Map) LayerByName(name string) Layer {
	for _, l := range m.Layers {
		if l.LayerName() == name {
			return l
		}
	}
	return nil
}

// TileLayers returns all tile layers in document order.
func (m *Map) TileLayers() []*TileLayer {
	var out []*TileLayer
	for _, l := range m.Layers {
		if tl, ok := l.(*TileLayer); ok {
			out = append(out, tl)
		}
	}
	return out
}

// ObjectGroup returns the first object group with the given name, or nil.
func (m *Map) ObjectGroup(name string) *ObjectGroup {
	for _, l := range m.Layers {
		if og, ok := l.(*ObjectGroup); ok && og.Name == name {
			return og
		}
	}
	return nil
}

// TilesetForGID returns the tileset owning gid and the local tile id.
func (m *Map) TilesetForGID(gid GID) (*MapTileset, int, bool) {
	id := gid.ID()
	if id == 0 {
		return nil, 0, false
	}
	var best *MapTileset
	for _, ts := range m.Tilesets {
		if ts.FirstGID <= id && (best == nil || ts.FirstGID > best.FirstGID) {
			best = ts
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, int(id - best.FirstGID), true
}

// PixelSize returns the map size in pixels.
func (m *Map) PixelSize() (int, int) {
	return m.Width * m.TileWidth, m.Height * m.TileHeight
}

// Raw XML shapes for map children.
type mapTilesetXML struct {
	FirstGID uint32 `xml:"firstgid,attr"`
	Source   string `xml:"source,attr"`
	Tileset
}

type tileLayerXML struct {
	ID         int        `xml:"id,attr"`
	Name       string     `xml:"name,attr"`
	Width      int        `xml:"width,attr"`
	Height     int        `xml:"height,attr"`
	Visible    string     `xml:"visible,attr"`
	Opacity    *float64   `xml:"opacity,attr"`
	Properties Properties `xml:"properties>property"`
	Data       layerData  `xml:"data"`
}

type objectGroupXML struct {
	ID         int        `xml:"id,attr"`
	Name       string     `xml:"name,attr"`
	Visible    string     `xml:"visible,attr"`
	Properties Properties `xml:"properties>property"`
	Objects    []Object   `xml:"object"`
}

// ParseMap parses a TMX map from raw bytes. External tilesets are left
// unresolved (Tileset is nil); use LoadMap or ParseMapFile to resolve them.
func ParseMap(data []byte) (*Map, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	root, err := firstStart(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	if root.Name.Local != "map" {
		return nil, fmt.Errorf("%w: unexpected root element <%s>", ErrInvalidMap, root.Name.Local)
	}

	m, err := parseMapHeader(attrs(root.Attr))
	if err != nil {
		return nil, err
	}

	if err := m.decodeChildren(d, "map"); err != nil {
		return nil, err
	}

	sort.SliceStable(m.Tilesets, func(i, j int) bool {
		return m.Tilesets[i].FirstGID < m.Tilesets[j].FirstGID
	})

	return m, nil
}

func firstStart(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, errors.New("no root element")
			}
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func parseMapHeader(a attrs) (*Map, error) {
	m := &Map{
		Version:      a.str("version"),
		TiledVersion: a.str("tiledversion"),
		Orientation:  a.str("orientation"),
		RenderOrder:  a.str("renderorder"),
	}
	var err error
	if m.Width, err = a.int("width"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	if m.Height, err = a.int("height"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	if m.TileWidth, err = a.int("tilewidth"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	if m.TileHeight, err = a.int("tileheight"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	if a.str("infinite") == "1" {
		return nil, ErrInfiniteMap
	}
	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("%w: map size %dx%d", ErrInvalidMap, m.Width, m.Height)
	}
	if m.TileWidth <= 0 || m.TileHeight <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, m.TileWidth, m.TileHeight)
	}
	return m, nil
}

// decodeChildren reads children of the current element until its end tag.
// Group layers recurse so their children land in m.Layers in order.
func (m *Map) decodeChildren(d *xml.Decoder, parent string) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return fmt.Errorf("%w: reading <%s>: %v", ErrInvalidMap, parent, err)
		}

		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if err := m.decodeChild(d, t, parent); err != nil {
				return err
			}
		}
	}
}

func (m *Map) decodeChild(d *xml.Decoder, se xml.StartElement, parent string) error {
	switch se.Name.Local {
	case "properties":
		if parent != "map" {
			return d.Skip()
		}
		var props struct {
			Items Properties `xml:"property"`
		}
		if err := d.DecodeElement(&props, &se); err != nil {
			return fmt.Errorf("%w: properties: %v", ErrInvalidMap, err)
		}
		m.Properties = props.Items

	case "tileset":
		var raw mapTilesetXML
		if err := d.DecodeElement(&raw, &se); err != nil {
			return fmt.Errorf("%w: tileset: %v", ErrInvalidMap, err)
		}
		if raw.FirstGID == 0 {
			return fmt.Errorf("%w: tileset without firstgid", ErrInvalidMap)
		}
		mt := &MapTileset{FirstGID: raw.FirstGID, Source: raw.Source}
		if raw.Source == "" {
			ts := raw.Tileset
			if err := ts.validate(); err != nil {
				return fmt.Errorf("embedded tileset %q: %w", ts.Name, err)
			}
			mt.Tileset = &ts
		}
		m.Tilesets = append(m.Tilesets, mt)

	case "layer":
		var raw tileLayerXML
		if err := d.DecodeElement(&raw, &se); err != nil {
			return fmt.Errorf("%w: layer: %v", ErrInvalidMap, err)
		}
		layer, err := raw.build()
		if err != nil {
			return fmt.Errorf("layer %q: %w", raw.Name, err)
		}
		m.Layers = append(m.Layers, layer)

	case "objectgroup":
		var raw objectGroupXML
		if err := d.DecodeElement(&raw, &se); err != nil {
			return fmt.Errorf("%w: objectgroup: %v", ErrInvalidMap, err)
		}
		m.Layers = append(m.Layers, &ObjectGroup{
			ID:         raw.ID,
			Name:       raw.Name,
			Visible:    raw.Visible != "0",
			Properties: raw.Properties,
			Objects:    raw.Objects,
		})

	case "group":
		return m.decodeChildren(d, "group")

	default:
		// imagelayer, editorsettings and friends carry nothing we use
		return d.Skip()
	}
	return nil
}

func (raw *tileLayerXML) build() (*TileLayer, error) {
	gids, err := raw.Data.decode(raw.Width, raw.Height)
	if err != nil {
		return nil, err
	}
	opacity := 1.0
	if raw.Opacity != nil {
		opacity = *raw.Opacity
	}
	return &TileLayer{
		ID:         raw.ID,
		Name:       raw.Name,
		Width:      raw.Width,
		Height:     raw.Height,
		Visible:    raw.Visible != "0",
		Opacity:    opacity,
		Properties: raw.Properties,
		GIDs:       gids,
	}, nil
}

// fileOps abstracts the slash-path (fs.FS) and OS-path flavours of loading.
type fileOps struct {
	read func(string) ([]byte, error)
	join func(...string) string
	dir  func(string) string
}

// resolveTilesets loads external tilesets relative to the map directory.
func (m *Map) resolveTilesets(ops fileOps) error {
	for _, mt := range m.Tilesets {
		if mt.Source == "" {
			mt.Tileset.Dir = m.Dir
			continue
		}
		p := ops.join(m.Dir, mt.Source)
		data, err := ops.read(p)
		if err != nil {
			return fmt.Errorf("reading tileset %s: %w", mt.Source, err)
		}
		ts, err := ParseTileset(data)
		if err != nil {
			return fmt.Errorf("%s: %w", mt.Source, err)
		}
		ts.Source = p
		ts.Dir = ops.dir(p)
		mt.Tileset = ts
	}
	return nil
}

// LoadMap reads a map from a file system and resolves its external tilesets
// relative to the map's directory.
func LoadMap(fsys fs.FS, name string) (*Map, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading map: %w", err)
	}
	m, err := ParseMap(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	m.Dir = path.Dir(name)

	ops := fileOps{
		read: func(p string) ([]byte, error) { return fs.ReadFile(fsys, p) },
		join: path.Join,
		dir:  path.Dir,
	}
	if err := m.resolveTilesets(ops); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

// ParseMapFile parses a map from disk and resolves its external tilesets.
func ParseMapFile(p string) (*Map, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading map: %w", err)
	}
	m, err := ParseMap(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	m.Dir = filepath.Dir(p)

	ops := fileOps{read: os.ReadFile, join: filepath.Join, dir: filepath.Dir}
	if err := m.resolveTilesets(ops); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return m, nil
}

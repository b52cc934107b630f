// Package tiled provides parsers for Tiled map editor files (TSX tilesets and TMX maps).
package tiled

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
)

// Tiled format errors.
var (
	ErrInvalidTileset      = errors.New("invalid tileset")
	ErrInvalidMap          = errors.New("invalid map")
	ErrInvalidDimensions   = errors.New("invalid tile dimensions")
	ErrUnsupportedEncoding = errors.New("unsupported layer encoding")
	ErrLayerDataSize       = errors.New("layer data size mismatch")
	ErrInfiniteMap         = errors.New("infinite maps are not supported")
)

// GID is a global tile identifier as stored in map layers and tile objects.
// The top bits carry flip flags; the rest is the tile id offset by the
// owning tileset's first GID.
type GID uint32

// GID flag bits.
const (
	FlipHorizontal GID = 0x80000000
	FlipVertical   GID = 0x40000000
	FlipDiagonal   GID = 0x20000000
	RotateHex120   GID = 0x10000000

	flagMask = FlipHorizontal | FlipVertical | FlipDiagonal | RotateHex120
)

// ID returns the GID with all flag bits cleared.
func (g GID) ID() uint32 {
	return uint32(g &^ flagMask)
}

// Empty returns true if the GID refers to no tile.
func (g GID) Empty() bool {
	return g.ID() == 0
}

// FlippedHorizontally reports whether the horizontal flip flag is set.
func (g GID) FlippedHorizontally() bool { return g&FlipHorizontal != 0 }

// FlippedVertically reports whether the vertical flip flag is set.
func (g GID) FlippedVertically() bool { return g&FlipVertical != 0 }

// FlippedDiagonally reports whether the diagonal flip flag is set.
func (g GID) FlippedDiagonally() bool { return g&FlipDiagonal != 0 }

// String returns the id followed by any flip flags, e.g. "35+H".
func (g GID) String() string {
	s := strconv.FormatUint(uint64(g.ID()), 10)
	if g.FlippedHorizontally() {
		s += "+H"
	}
	if g.FlippedVertically() {
		s += "+V"
	}
	if g.FlippedDiagonally() {
		s += "+D"
	}
	return s
}

// Property is a single custom property.
type Property struct {
	Name  string `xml:"name,attr"`
	Type  string `xml:"type,attr"`
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"` // multi-line string values
}

// Properties is an ordered list of custom properties.
type Properties []Property

// Get returns the raw value of the named property.
func (p Properties) Get(name string) (string, bool) {
	for _, prop := range p {
		if prop.Name != name {
			continue
		}
		if prop.Value == "" && prop.Text != "" {
			return prop.Text, true
		}
		return prop.Value, true
	}
	return "", false
}

// Bool returns the named property as a bool. Missing or malformed values are false.
func (p Properties) Bool(name string) bool {
	v, ok := p.Get(name)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// Int returns the named property as an int.
func (p Properties) Int(name string) (int, bool) {
	v, ok := p.Get(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// attrs is a helper for reading attributes off a raw start element.
type attrs []xml.Attr

func (a attrs) str(name string) string {
	for _, attr := range a {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

func (a attrs) int(name string) (int, error) {
	v := a.str(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %w", name, err)
	}
	return n, nil
}

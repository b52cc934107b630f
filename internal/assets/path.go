package assets

import (
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// EmbeddedPrefix marks paths that point into the game's embedded asset bundle.
const EmbeddedPrefix = "embedded://"

// Normalize converts an asset reference into a slash-separated,
// NFC-normalised relative path. Tilesets authored on Windows or macOS
// may carry backslashes or decomposed Unicode in image sources.
func Normalize(p string) string {
	p = strings.TrimPrefix(p, EmbeddedPrefix)
	p = strings.ReplaceAll(p, "\\", "/")
	p = norm.NFC.String(p)
	p = path.Clean(p)
	return strings.TrimPrefix(p, "/")
}

// clean normalises p and reports whether the result stays inside the sources.
func clean(p string) (string, bool) {
	n := Normalize(p)
	if n == "" {
		n = "."
	}
	return n, fs.ValidPath(n)
}

// Package integrity checks Tiled tilesets and maps against the assets they reference.
package integrity

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/multierr"
)

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Rule identifiers.
const (
	RuleUniqueID      = "unique-id"
	RuleIDRange       = "id-range"
	RuleContiguous    = "contiguous-ids"
	RuleTileImage     = "tile-image"
	RuleTileCount     = "tile-count"
	RuleImageExists   = "image-exists"
	RuleImageReadable = "image-readable"
	RuleImageSize     = "image-size"
	RuleAtlasColumns  = "atlas-columns"
	RuleAtlasCapacity = "atlas-capacity"
	RuleGIDRange      = "gid-range"
	RuleUnknownGID    = "unknown-gid"
	RuleLayerSize     = "layer-size"
)

// NoTile is the TileID of diagnostics that are not about a single tile.
const NoTile = -1

// Diagnostic is a single finding.
type Diagnostic struct {
	Severity Severity
	Rule     string
	Subject  string // tileset or layer the finding belongs to
	TileID   int
	Message  string
}

// Error implements error so diagnostics can be combined and inspected with errors.As.
func (d Diagnostic) Error() string {
	if d.TileID == NoTile {
		return fmt.Sprintf("%s: %s [%s]", d.Subject, d.Message, d.Rule)
	}
	return fmt.Sprintf("%s: tile %d: %s [%s]", d.Subject, d.TileID, d.Message, d.Rule)
}

// Report collects diagnostics from one or more checks.
type Report struct {
	Diagnostics []Diagnostic
}

func (r *Report) add(sev Severity, rule, subject string, tileID int, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Severity: sev,
		Rule:     rule,
		Subject:  subject,
		TileID:   tileID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Merge appends other's diagnostics and re-sorts.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
	r.sort()
}

// Errors returns the error diagnostics.
func (r *Report) Errors() []Diagnostic {
	return r.filter(SeverityError)
}

// Warnings returns the warning diagnostics.
func (r *Report) Warnings() []Diagnostic {
	return r.filter(SeverityWarning)
}

// OK reports whether there are no error diagnostics.
func (r *Report) OK() bool {
	return len(r.Errors()) == 0
}

// Err combines all error diagnostics into one error, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, d := range r.Errors() {
		err = multierr.Append(err, d)
	}
	return err
}

// ForTile returns the diagnostics reported against one tile of subject.
func (r *Report) ForTile(subject string, id int) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Subject == subject && d.TileID == id {
			out = append(out, d)
		}
	}
	return out
}

func (r *Report) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

func (r *Report) sort() {
	slices.SortStableFunc(r.Diagnostics, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Subject, b.Subject),
			cmp.Compare(a.TileID, b.TileID),
			cmp.Compare(a.Rule, b.Rule),
			cmp.Compare(a.Message, b.Message),
		)
	})
}

package integrity

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders the report as a Markdown document with one table row per
// diagnostic.
func (r *Report) Markdown(title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	errs, warns := len(r.Errors()), len(r.Warnings())
	if errs+warns == 0 {
		b.WriteString("No problems found.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d errors, %d warnings.\n\n", errs, warns)

	b.WriteString("| Severity | Subject | Tile | Rule | Message |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, d := range r.Diagnostics {
		tile := "-"
		if d.TileID != NoTile {
			tile = fmt.Sprint(d.TileID)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | `%s` | %s |\n",
			d.Severity, cell(d.Subject), tile, d.Rule, cell(d.Message))
	}
	return b.String()
}

// HTML renders the Markdown report to an HTML fragment.
func (r *Report) HTML(title string) (string, error) {
	var buf bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	if err := md.Convert([]byte(r.Markdown(title)), &buf); err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	return buf.String(), nil
}

// cell escapes text for use inside a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

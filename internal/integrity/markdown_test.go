package integrity

import (
	"strings"
	"testing"
)

func TestReportMarkdown(t *testing.T) {
	r := &Report{}
	r.add(SeverityError, RuleImageExists, "tileset tdr2024", 3, "image cars/a|b.png not found")
	r.add(SeverityWarning, RuleTileCount, "tileset tdr2024", NoTile, "tilecount 5 but 4 tiles")

	md := r.Markdown("level1.tmx")
	for _, want := range []string{
		"# level1.tmx",
		"1 errors, 1 warnings.",
		"| error | tileset tdr2024 | 3 | `image-exists` | image cars/a\\|b.png not found |",
		"| warning | tileset tdr2024 | - | `tile-count` | tilecount 5 but 4 tiles |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}

	clean := (&Report{}).Markdown("ok.tsx")
	if !strings.Contains(clean, "No problems found.") {
		t.Errorf("expected clean report, got %q", clean)
	}
}

func TestReportHTML(t *testing.T) {
	r := &Report{}
	r.add(SeverityError, RuleUniqueID, "tileset tdr2024", 1, "duplicate tile id")

	html, err := r.HTML("tdr2024.tsx")
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	for _, want := range []string{"<h1>tdr2024.tsx</h1>", "<table>", "<code>unique-id</code>", "duplicate tile id"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q:\n%s", want, html)
		}
	}
}

// ABOUTME: Tests for summary export to HTML and DOCX
// ABOUTME: DOCX output is checked as a readable zip with a document part
package export

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harper/datachat/internal/loader"
)

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML("Standup <notes>", "## Decisions\n\n- ship **v2**\n")
	if err != nil {
		t.Fatalf("RenderHTML() failed: %v", err)
	}
	s := string(page)
	for _, want := range []string{
		"<title>Standup &lt;notes&gt;</title>",
		"<h2>Decisions</h2>",
		"<strong>v2</strong>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("page missing %q:\n%s", want, s)
		}
	}
}

func TestHTML_WritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "summary.html")
	if err := HTML("t", "hello", out); err != nil {
		t.Fatalf("HTML() failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<p>hello</p>") {
		t.Errorf("file = %s", data)
	}
}

func TestDOCX_WritesDocument(t *testing.T) {
	out := filepath.Join(t.TempDir(), "summary.docx")
	text := "# Summary\n\nThe team agreed to **ship** on Friday.\n- follow up with design\n"
	if err := DOCX("Standup", text, out); err != nil {
		t.Fatalf("DOCX() failed: %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}
	defer func() { _ = zr.Close() }()

	found := false
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			found = true
		}
	}
	if !found {
		t.Fatal("word/document.xml missing from docx")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	got, err := loader.DOCXText(data)
	if err != nil {
		t.Fatalf("DOCXText() failed: %v", err)
	}
	for _, want := range []string{"Standup", "Summary", "ship", "follow up with design"} {
		if !strings.Contains(got, want) {
			t.Errorf("docx text %q missing %q", got, want)
		}
	}
}

func TestCleanInline(t *testing.T) {
	if got := cleanInline("**a** __b__ `c`"); got != "a b c" {
		t.Errorf("cleanInline() = %q", got)
	}
}

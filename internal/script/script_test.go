package script

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ivlev/slidefix/internal/analyzer"
	"github.com/ivlev/slidefix/internal/brush"
)

func sampleScript() *Script {
	return &Script{
		Version: Version,
		Source:  "deck.pdf",
		DPI:     150,
		Pages: []Page{
			{
				Page: 0,
				Strokes: []brush.Stroke{
					{Mode: brush.ModeAdd, Diameter: 24, Points: []brush.Point{{X: 10, Y: 10}, {X: 200, Y: 10}}},
					{Mode: brush.ModeSubtract, Diameter: 12, Points: []brush.Point{{X: 100, Y: 10}}},
				},
				Regions: []analyzer.Rect{{X: 0, Y: 300, Width: 50, Height: 20}},
			},
			{
				Page: 2,
				Replacements: []Replacement{
					{Rect: analyzer.Rect{X: 40, Y: 40, Width: 300, Height: 60}, Text: "Quarterly results", Color: "#1a1a1a", Erase: true},
				},
			},
		},
	}
}

func TestScriptWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edits.yaml")

	if err := WriteScript(sampleScript(), path); err != nil {
		t.Fatalf("WriteScript failed: %v", err)
	}

	read, err := ReadScript(path)
	if err != nil {
		t.Fatalf("ReadScript failed: %v", err)
	}

	if read.Version != Version || read.DPI != 150 || len(read.Pages) != 2 {
		t.Fatalf("Unexpected script: %+v", read)
	}
	st := read.Pages[0].Strokes[1]
	if st.Mode != brush.ModeSubtract || st.Diameter != 12 || len(st.Points) != 1 {
		t.Errorf("Stroke mismatch: %+v", st)
	}
	rep := read.Pages[1].Replacements[0]
	if rep.Text != "Quarterly results" || !rep.Erase || rep.Rect.Width != 300 {
		t.Errorf("Replacement mismatch: %+v", rep)
	}
}

func TestReadScriptHandWritten(t *testing.T) {
	doc := `version: "1.0"
pages:
  - page: 1
    strokes:
      - mode: add
        diameter: 30
        points: [{x: 5, y: 5}, {x: 90, y: 5}]
    replacements:
      - rect: {x: 10, y: 20, width: 100, height: 30}
        text: "Hello"
        erase: true
`
	path := filepath.Join(t.TempDir(), "hand.yml")
	os.WriteFile(path, []byte(doc), 0644)

	s, err := ReadScript(path)
	if err != nil {
		t.Fatalf("ReadScript failed: %v", err)
	}

	p := s.PageEdits(1)
	if p == nil {
		t.Fatal("Expected edits for page 1")
	}
	if len(p.Strokes[0].Points) != 2 || p.Strokes[0].Points[1].X != 90 {
		t.Errorf("Stroke points mismatch: %+v", p.Strokes[0])
	}
	if p.Replacements[0].Rect != (analyzer.Rect{X: 10, Y: 20, Width: 100, Height: 30}) {
		t.Errorf("Rect mismatch: %+v", p.Replacements[0].Rect)
	}
	if s.PageEdits(0) != nil {
		t.Error("Page 0 has no edits")
	}
}

func TestScriptValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Script)
		errSub string
	}{
		{"valid", func(s *Script) {}, ""},
		{"no version", func(s *Script) { s.Version = "" }, "version"},
		{"negative page", func(s *Script) { s.Pages[0].Page = -1 }, "negative"},
		{"duplicate page", func(s *Script) { s.Pages[1].Page = 0 }, "twice"},
		{"bad stroke", func(s *Script) { s.Pages[0].Strokes[0].Mode = "smudge" }, "stroke 0"},
		{"zero diameter", func(s *Script) { s.Pages[0].Strokes[1].Diameter = 0 }, "stroke 1"},
		{"empty region", func(s *Script) { s.Pages[0].Regions[0].Width = 0 }, "region 0"},
		{"empty replacement", func(s *Script) { s.Pages[1].Replacements[0].Rect.Height = 0 }, "replacement 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleScript()
			tt.mutate(s)
			err := s.Validate()
			if tt.errSub == "" {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("Expected error containing %q, got %v", tt.errSub, err)
			}
		})
	}
}

func TestReadScriptRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("pages: []\n"), 0644)

	if _, err := ReadScript(path); err == nil {
		t.Error("Expected a validation error")
	}
}

func TestGenerateScriptPath(t *testing.T) {
	path := GenerateScriptPath(DefaultDir)

	if filepath.Dir(path) != DefaultDir {
		t.Errorf("Path should be in %s: %s", DefaultDir, path)
	}
	if !strings.HasPrefix(filepath.Base(path), "edits_") || filepath.Ext(path) != ".yaml" {
		t.Errorf("Unexpected file name: %s", path)
	}
}

func TestFindLatestScript(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		filepath.Join(dir, "edits_2026-02-12_10-00-00.yaml"),
		filepath.Join(dir, "edits_2026-02-13_01-00-00.yml"),
		filepath.Join(dir, "edits_2026-02-11_15-30-00.yaml"),
	}
	for i, f := range files {
		os.WriteFile(f, []byte("version: \"1.0\"\n"), 0644)
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(f, modTime, modTime)
	}
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644)

	latest, err := FindLatestScript(dir)
	if err != nil {
		t.Fatalf("FindLatestScript failed: %v", err)
	}
	if latest != files[len(files)-1] {
		t.Errorf("Expected %s, got %s", files[len(files)-1], latest)
	}

	if _, err := FindLatestScript(t.TempDir()); err == nil {
		t.Error("Expected error for an empty directory")
	}
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edits_2026-02-12_10-00-00.yaml")
	os.WriteFile(path, []byte("version: \"1.0\"\n"), 0644)

	got, err := ResolvePath(Latest, dir)
	if err != nil || got != path {
		t.Errorf("ResolvePath(latest) = %q, %v; want %q", got, err, path)
	}

	if got, _ := ResolvePath("my/edits.yaml", dir); got != "my/edits.yaml" {
		t.Errorf("Explicit path changed: %q", got)
	}

	if _, err := ResolvePath(Latest, filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error without a scripts directory")
	}
}

func TestPageFromBlocks(t *testing.T) {
	blocks := []analyzer.Block{
		{Rect: image.Rect(400, 205, 500, 230), Text: "world"},
		{Rect: image.Rect(50, 50, 300, 100), Text: "Title"},
		{Rect: image.Rect(50, 200, 380, 230), Text: "Hello"},
	}

	page := PageFromBlocks(3, blocks)

	if page.Page != 3 || len(page.Replacements) != 3 {
		t.Fatalf("Unexpected page: %+v", page)
	}

	// "Hello" and "world" share a row despite the 5px offset
	want := []string{"Title", "Hello", "world"}
	for i, w := range want {
		r := page.Replacements[i]
		if r.Text != w || r.Original != w || !r.Erase {
			t.Errorf("replacement %d = %+v, want text %q", i, r, w)
		}
	}
	if page.Replacements[0].Rect != (analyzer.Rect{X: 50, Y: 50, Width: 250, Height: 50}) {
		t.Errorf("Rect conversion mismatch: %+v", page.Replacements[0].Rect)
	}
}

package internal

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func exportTutorial(layout MediaLayout) Tutorial {
	t := Tutorial{
		ID:           "tut",
		TranscriptID: "tr",
		Title:        "Ship <it>",
		Introduction: "Intro text",
		Tips:         []string{"tip one"},
		Summary:      "All done",
		Tags:         []string{"go", "ops"},
	}
	clip := ClipFilename(1, 0, 2)
	t.Steps = []Step{
		{Index: 1, Text: "Build", VideoClip: &VideoClip{Start: 0, End: 2, FileURL: layout.ClipURL(t, clip)}},
		{Index: 2, Text: "Deploy"},
	}
	return t
}

func TestWriteZip(t *testing.T) {
	layout := NewMediaLayout(t.TempDir(), "/media")
	tut := exportTutorial(layout)
	if err := os.MkdirAll(layout.ClipsDir(tut), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(layout.ClipPath(tut, ClipFilename(1, 0, 2)), []byte("video-bytes"), 0644); err != nil {
		t.Fatalf("write clip: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteZip(&buf, tut, layout); err != nil {
		t.Fatalf("write zip failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = string(b)
	}

	if len(files) != 2 {
		t.Fatalf("expected index.html and one clip, got %v", len(files))
	}
	if files["clips/"+ClipFilename(1, 0, 2)] != "video-bytes" {
		t.Fatalf("clip content not copied")
	}
	page := files["index.html"]
	if !strings.Contains(page, `src="clips/`+ClipFilename(1, 0, 2)+`"`) {
		t.Fatalf("expected relative clip source in page")
	}
	if !strings.Contains(page, "Ship &lt;it&gt;") {
		t.Fatalf("expected escaped title in page")
	}
}

func TestWriteZipMissingClip(t *testing.T) {
	layout := NewMediaLayout(t.TempDir(), "/media")
	tut := exportTutorial(layout)

	if err := WriteZip(io.Discard, tut, layout); err == nil {
		t.Fatalf("expected missing clip to fail the export")
	}
}

func TestWriteZipRejectsForeignClipURL(t *testing.T) {
	layout := NewMediaLayout(t.TempDir(), "/media")
	tut := exportTutorial(layout)
	tut.Steps[0].VideoClip.FileURL = "/media/tutorials/tr/other/clips/x.mp4"

	if err := WriteZip(io.Discard, tut, layout); err == nil {
		t.Fatalf("expected clip outside the tutorial to be rejected")
	}
}

func TestRenderMarkdownSource(t *testing.T) {
	layout := NewMediaLayout("/srv", "/media")
	md := RenderMarkdownSource(exportTutorial(layout))

	for _, want := range []string{
		"# Ship <it>",
		"**Tags:** go, ops",
		"1. Build",
		"[Video clip: 0s - 2s](/media/tutorials/tr/tut/clips/",
		"2. Deploy",
		"## Tips\n\n- tip one",
		"## Summary\n\nAll done",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected markdown to contain %q, got:\n%s", want, md)
		}
	}
	if strings.Contains(md, "## Examples") {
		t.Fatalf("empty sections should be omitted")
	}
}

package internal

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"time"
)

// ZipFilename is the download name of an exported tutorial
func ZipFilename(t Tutorial) string {
	return fmt.Sprintf("tutorial_%s.zip", t.ID)
}

// WriteZip writes index.html and every referenced clip as clips/<file>.
// Clips are read back through the same MediaLayout that wrote them; a clip
// referenced by a step but missing on disk fails the export.
func WriteZip(w io.Writer, t Tutorial, layout MediaLayout) error {
	page, err := RenderHTML(t)
	if err != nil {
		return err
	}

	type clipEntry struct {
		name string
		path string
	}
	var clips []clipEntry
	seen := make(map[string]bool)
	for _, s := range t.Steps {
		if s.VideoClip == nil || s.VideoClip.FileURL == "" {
			continue
		}
		name, ok := layout.ClipFilenameFromURL(t, s.VideoClip.FileURL)
		if !ok {
			return fmt.Errorf("step %d: clip url %q is outside the tutorial media directory", s.Index, s.VideoClip.FileURL)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		clipPath := layout.ClipPath(t, name)
		if _, err := os.Stat(clipPath); err != nil {
			return fmt.Errorf("step %d: clip %s: %w", s.Index, name, err)
		}
		clips = append(clips, clipEntry{name: name, path: clipPath})
	}

	zw := zip.NewWriter(w)
	modified := t.UpdatedAt
	if modified.IsZero() {
		modified = time.Now()
	}

	if err := writeZipEntry(zw, "index.html", modified, zip.Deflate, func(dst io.Writer) error {
		_, err := dst.Write(page)
		return err
	}); err != nil {
		return err
	}

	for _, c := range clips {
		// mp4 is already compressed
		if err := writeZipEntry(zw, path.Join("clips", c.name), modified, zip.Store, func(dst io.Writer) error {
			f, err := os.Open(c.path)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(dst, f)
			return err
		}); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing zip: %w", err)
	}
	return nil
}

func writeZipEntry(zw *zip.Writer, name string, modified time.Time, method uint16, fill func(io.Writer) error) error {
	hdr := &zip.FileHeader{Name: name, Method: method, Modified: modified}
	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("adding %s to zip: %w", name, err)
	}
	if err := fill(dst); err != nil {
		return fmt.Errorf("writing %s to zip: %w", name, err)
	}
	return nil
}

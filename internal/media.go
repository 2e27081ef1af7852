package internal

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// MediaLayout maps transcripts and tutorials onto the media directory tree.
// Clip writing, the static file server and zip export all go through it, so
// the on-disk layout and the public URLs cannot drift apart.
//
//	<root>/transcripts/<transcriptID>/source.<ext>
//	<root>/tutorials/<transcriptID>/<tutorialID>/clips/<file>
type MediaLayout struct {
	Root    string
	BaseURL string
}

// NewMediaLayout creates a layout rooted at root and served under baseURL
func NewMediaLayout(root, baseURL string) MediaLayout {
	return MediaLayout{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}
}

// TranscriptDir holds the uploaded source video of a transcript
func (m MediaLayout) TranscriptDir(transcriptID string) string {
	return filepath.Join(m.Root, "transcripts", transcriptID)
}

// SourceVideoRel is the media-root-relative path of a transcript's video
func (m MediaLayout) SourceVideoRel(transcriptID, ext string) string {
	return path.Join("transcripts", transcriptID, "source"+strings.ToLower(ext))
}

// Abs resolves a media-root-relative path
func (m MediaLayout) Abs(rel string) string {
	return filepath.Join(m.Root, filepath.FromSlash(rel))
}

// TranscriptTutorialsDir holds every tutorial generated from a transcript
func (m MediaLayout) TranscriptTutorialsDir(transcriptID string) string {
	return filepath.Join(m.Root, "tutorials", transcriptID)
}

// TutorialDir is the per-tutorial media directory
func (m MediaLayout) TutorialDir(t Tutorial) string {
	return filepath.Join(m.Root, "tutorials", t.TranscriptID, t.ID)
}

// ClipsDir is where step clips of a tutorial are written
func (m MediaLayout) ClipsDir(t Tutorial) string {
	return filepath.Join(m.TutorialDir(t), "clips")
}

// ClipPath is the on-disk location of a clip file
func (m MediaLayout) ClipPath(t Tutorial, filename string) string {
	return filepath.Join(m.ClipsDir(t), filename)
}

// ClipURL is the public URL of a clip file
func (m MediaLayout) ClipURL(t Tutorial, filename string) string {
	return m.BaseURL + "/" + path.Join("tutorials", t.TranscriptID, t.ID, "clips", filename)
}

// ClipFilenameFromURL returns the clip filename if url points into the clips
// directory of t, and false for anything else.
func (m MediaLayout) ClipFilenameFromURL(t Tutorial, url string) (string, bool) {
	prefix := m.ClipURL(t, "") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || strings.Contains(name, "/") || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

// ClipFilename names the clip of a step. Identical inputs always produce the
// same name so reruns overwrite rather than accumulate.
func ClipFilename(index int, start, end float64) string {
	return fmt.Sprintf("step_%02d_%.1fs-%.1fs.mp4", index, start, end)
}

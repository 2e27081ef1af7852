package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BuildRequest describes a local transcript (and optional video) to turn
// into a tutorial
type BuildRequest struct {
	TranscriptPath string
	VideoPath      string
	Extract        ExtractOptions
}

// BuildTutorial imports a transcript file and generates a tutorial from it.
// Re-importing an identical file reuses the stored transcript and attaches
// the video when the stored one has none.
func (app *App) BuildTutorial(ctx context.Context, userID string, req BuildRequest) (Tutorial, ClipReport, error) {
	data, err := os.ReadFile(req.TranscriptPath)
	if err != nil {
		return Tutorial{}, ClipReport{}, fmt.Errorf("reading transcript: %w", err)
	}

	upload := TranscriptUpload{Filename: filepath.Base(req.TranscriptPath), Data: data}
	if req.VideoPath != "" {
		f, err := os.Open(req.VideoPath)
		if err != nil {
			return Tutorial{}, ClipReport{}, fmt.Errorf("opening video: %w", err)
		}
		defer f.Close()
		upload.Video = f
		upload.VideoFilename = filepath.Base(req.VideoPath)
	}

	transcript, err := app.CreateTranscript(ctx, userID, upload)
	switch {
	case errors.Is(err, ErrDuplicateTranscript):
		app.ui.Verbose("Transcript already imported as %s\n", transcript.ID)
		if upload.Video == nil {
			break
		}
		if transcript.HasVideo() {
			app.logger.Warn("transcript already has a video, ignoring the new one",
				"transcript_id", transcript.ID, "video", req.VideoPath)
			break
		}
		if transcript, err = app.AttachVideo(ctx, userID, transcript.ID, upload.Video, upload.VideoFilename); err != nil {
			return Tutorial{}, ClipReport{}, err
		}
	case err != nil:
		return Tutorial{}, ClipReport{}, err
	}

	return app.GenerateTutorial(ctx, userID, transcript.ID, req.Extract)
}

// SiblingVideo returns a video next to transcriptPath sharing its base name
func SiblingVideo(transcriptPath string) string {
	base := strings.TrimSuffix(transcriptPath, filepath.Ext(transcriptPath))
	for _, ext := range SupportedVideoExtensions {
		for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

// VideoFetcher downloads a source video into a directory
type VideoFetcher interface {
	Fetch(ctx context.Context, url, dir string) (string, error)
}

// YTDLPFetcher downloads videos with yt-dlp
type YTDLPFetcher struct {
	verbose bool
}

// NewYTDLPFetcher creates a yt-dlp backed fetcher
func NewYTDLPFetcher(verbose bool) *YTDLPFetcher {
	return &YTDLPFetcher{verbose: verbose}
}

// Fetch downloads url as an mp4 into a fresh subdirectory of dir and returns
// the downloaded file
func (f *YTDLPFetcher) Fetch(ctx context.Context, url, dir string) (string, error) {
	target, err := os.MkdirTemp(dir, "fetch-*")
	if err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}

	dl := ytdlp.New().
		Format("bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b"). // prefer mp4 so ffmpeg can cut without remuxing
		MergeOutputFormat("mp4").
		NoPlaylist().
		Output(filepath.Join(target, "source.%(ext)s"))

	result, err := dl.Run(ctx, url)
	if err != nil {
		_ = os.RemoveAll(target)
		if f.verbose && result != nil {
			fmt.Fprintf(os.Stderr, "yt-dlp stderr: %s\n", result.Stderr)
		}
		return "", fmt.Errorf("yt-dlp failed: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(target, "source.*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		if f.verbose {
			fmt.Fprintf(os.Stderr, "Downloaded video to %s\n", m)
		}
		return m, nil
	}

	_ = os.RemoveAll(target)
	return "", fmt.Errorf("yt-dlp finished without producing a video file")
}

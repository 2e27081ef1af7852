package internal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Video handles video file operations using FFmpeg
type Video struct {
	cmdRunner   CommandRunner
	ffmpegPath  string
	ffprobePath string
	videoCodec  string
	audioCodec  string
	verbose     bool
}

// NewVideo creates a new video processor
func NewVideo(cmdRunner CommandRunner, cfg *Config) *Video {
	v := &Video{
		cmdRunner:   cmdRunner,
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		videoCodec:  cfg.VideoCodec,
		audioCodec:  cfg.AudioCodec,
		verbose:     cfg.Verbose,
	}
	if v.ffmpegPath == "" {
		v.ffmpegPath = "ffmpeg"
	}
	if v.ffprobePath == "" {
		v.ffprobePath = "ffprobe"
	}
	if v.videoCodec == "" {
		v.videoCodec = "libx264"
	}
	if v.audioCodec == "" {
		v.audioCodec = "aac"
	}
	return v
}

// Duration returns the media file duration in seconds
func (v *Video) Duration(ctx context.Context, videoFile string) (float64, error) {
	output, err := v.cmdRunner.Run(ctx, v.ffprobePath,
		"-i", videoFile,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0")

	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, string(output))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration: %w", err)
	}

	return duration, nil
}

// Cut re-encodes the [start, end) range of videoFile into output.
// Seeking after -i keeps the cut frame-accurate.
func (v *Video) Cut(ctx context.Context, videoFile string, start, end float64, output string) error {
	cmdOutput, err := v.cmdRunner.Run(ctx, v.ffmpegPath,
		"-v", "error",
		"-i", videoFile,
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-c:v", v.videoCodec,
		"-c:a", v.audioCodec,
		"-movflags", "+faststart",
		"-y", output)

	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, string(cmdOutput))
	}
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

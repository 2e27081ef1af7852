package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ClipReport summarizes one extraction run
type ClipReport struct {
	Extracted int `json:"extracted"`
	Reused    int `json:"reused"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Pruned    int `json:"pruned"`
}

// ExtractOptions tunes a single extraction run
type ExtractOptions struct {
	// Force re-cuts clips whose file already exists
	Force bool
	// NewProgress is called with the number of clips to cut. The returned
	// bar is advanced once per clip and finished by Extract. May be nil.
	NewProgress func(total int) ProgressBar
}

// ClipExtractor cuts per-step clips out of a transcript's source video
type ClipExtractor struct {
	video   *Video
	layout  MediaLayout
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

// NewClipExtractor creates a clip extractor
func NewClipExtractor(video *Video, layout MediaLayout, cfg *Config, logger *slog.Logger) *ClipExtractor {
	workers := cfg.ClipWorkers
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClipExtractor{
		video:   video,
		layout:  layout,
		workers: workers,
		timeout: cfg.ClipTimeout,
		logger:  logger,
	}
}

type clipJob struct {
	filename string
	start    float64
	end      float64
	steps    []int // positions in the step slice sharing this clip
	err      error
	reused   bool
	done     bool
}

// Extract cuts a clip for every step of t that carries a time range and
// returns a copy of the steps with FileURL or Error filled in.
//
// A failing clip only marks its own step. Finished clips are renamed into
// place atomically, so a cancelled run leaves earlier clips intact.
func (e *ClipExtractor) Extract(ctx context.Context, t Tutorial, sourceVideo string, opts ExtractOptions) ([]Step, ClipReport, error) {
	var report ClipReport
	steps := copySteps(t.Steps)

	clipsDir := e.layout.ClipsDir(t)
	if err := EnsureDirs(clipsDir); err != nil {
		return steps, report, fmt.Errorf("creating clips directory: %w", err)
	}

	duration, err := e.video.Duration(ctx, sourceVideo)
	if err != nil {
		// unknown duration only disables clamping against the end of the video
		e.logger.Warn("probing source video failed", "tutorial_id", t.ID, "video", sourceVideo, "err", err)
		duration = 0
	}

	var jobs []*clipJob
	byName := make(map[string]*clipJob)
	for i := range steps {
		clip := steps[i].VideoClip
		if clip == nil {
			report.Skipped++
			continue
		}
		clip.FileURL = ""
		clip.Error = ""

		start, end, err := clampRange(clip.Start, clip.End, duration)
		if err != nil {
			clip.Error = err.Error()
			report.Failed++
			e.logger.Warn("skipping clip", "tutorial_id", t.ID, "step", steps[i].Index, "err", err)
			continue
		}
		clip.Start, clip.End = start, end

		name := ClipFilename(steps[i].Index, start, end)
		if job, ok := byName[name]; ok {
			job.steps = append(job.steps, i)
			continue
		}
		job := &clipJob{filename: name, start: start, end: end, steps: []int{i}}
		byName[name] = job
		jobs = append(jobs, job)
	}

	var finished atomic.Int64
	var progress ProgressBar
	if opts.NewProgress != nil {
		progress = opts.NewProgress(len(jobs))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			job.reused, job.err = e.cutOne(gctx, sourceVideo, clipsDir, job, opts.Force)
			job.done = true
			if progress != nil {
				progress.Set(int(finished.Add(1)))
			}
			return nil
		})
	}
	waitErr := g.Wait()

	for _, job := range jobs {
		for _, pos := range job.steps {
			clip := steps[pos].VideoClip
			switch {
			case !job.done:
				clip.Error = "extraction cancelled"
				report.Failed++
			case job.err != nil:
				clip.Error = job.err.Error()
				report.Failed++
			default:
				clip.FileURL = e.layout.ClipURL(t, job.filename)
				if job.reused {
					report.Reused++
				} else {
					report.Extracted++
				}
			}
		}
		if job.err != nil {
			e.logger.Error("clip extraction failed", "tutorial_id", t.ID, "clip", job.filename, "err", job.err)
		}
	}

	if progress != nil {
		progress.Finish()
	}

	if waitErr != nil {
		return steps, report, waitErr
	}
	if err := ctx.Err(); err != nil {
		return steps, report, err
	}

	report.Pruned = e.prune(clipsDir, steps)

	e.logger.Info("clip extraction finished",
		"tutorial_id", t.ID,
		"extracted", report.Extracted,
		"reused", report.Reused,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"pruned", report.Pruned)

	return steps, report, nil
}

// cutOne writes the clip to a hidden temp file next to its final path and
// renames it into place on success.
func (e *ClipExtractor) cutOne(ctx context.Context, sourceVideo, clipsDir string, job *clipJob, force bool) (bool, error) {
	finalPath := filepath.Join(clipsDir, job.filename)
	if !force {
		if info, err := os.Stat(finalPath); err == nil && info.Size() > 0 {
			return true, nil
		}
	}

	tmp, err := os.CreateTemp(clipsDir, ".clip-*.mp4")
	if err != nil {
		return false, fmt.Errorf("creating temp clip: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return false, fmt.Errorf("closing temp clip: %w", err)
	}
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmpPath)
		}
	}()

	cutCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		cutCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if err := e.video.Cut(cutCtx, sourceVideo, job.start, job.end, tmpPath); err != nil {
		return false, err
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return false, fmt.Errorf("checking clip output: %w", err)
	}
	if info.Size() == 0 {
		return false, errors.New("ffmpeg produced an empty clip")
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return false, fmt.Errorf("moving clip into place: %w", err)
	}
	renamed = true
	return false, nil
}

// prune removes step clips that no step references anymore
func (e *ClipExtractor) prune(clipsDir string, steps []Step) int {
	keep := make(map[string]bool)
	for _, s := range steps {
		if s.VideoClip != nil && s.VideoClip.FileURL != "" {
			keep[path.Base(s.VideoClip.FileURL)] = true
		}
	}

	entries, err := os.ReadDir(clipsDir)
	if err != nil {
		e.logger.Warn("listing clips directory failed", "dir", clipsDir, "err", err)
		return 0
	}

	pruned := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "step_") || !strings.HasSuffix(name, ".mp4") || keep[name] {
			continue
		}
		if err := os.Remove(filepath.Join(clipsDir, name)); err != nil {
			e.logger.Warn("removing stale clip failed", "clip", name, "err", err)
			continue
		}
		pruned++
	}
	return pruned
}

// clampRange validates a clip range against the source duration.
// duration <= 0 means unknown.
func clampRange(start, end, duration float64) (float64, float64, error) {
	if start < 0 {
		start = 0
	}
	if duration > 0 {
		if start >= duration {
			return 0, 0, fmt.Errorf("clip starts at %.1fs, after the end of the video (%.1fs)", start, duration)
		}
		if end > duration {
			end = duration
		}
	}
	if end <= start {
		return 0, 0, fmt.Errorf("invalid clip range %.1fs-%.1fs", start, end)
	}
	return start, end, nil
}

func copySteps(in []Step) []Step {
	out := make([]Step, len(in))
	for i, s := range in {
		if s.VideoClip != nil {
			clip := *s.VideoClip
			s.VideoClip = &clip
		}
		out[i] = s
	}
	return out
}

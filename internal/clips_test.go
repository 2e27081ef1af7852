package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeFFmpeg answers ffprobe with a fixed duration and writes a small file
// for every ffmpeg cut. Cuts starting at failAt return an error.
type fakeFFmpeg struct {
	mu       sync.Mutex
	duration string
	failAt   string
	cuts     int
	afterCut func()
}

func (f *fakeFFmpeg) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if name == "ffprobe" {
		if f.duration == "" {
			return []byte("no such file"), errors.New("exit status 1")
		}
		return []byte(f.duration + "\n"), nil
	}

	for i, a := range args {
		if a == "-ss" && i+1 < len(args) && args[i+1] == f.failAt {
			return []byte("boom"), errors.New("exit status 1")
		}
	}
	f.mu.Lock()
	f.cuts++
	f.mu.Unlock()
	out := args[len(args)-1]
	if err := os.WriteFile(out, []byte("clip"), 0644); err != nil {
		return nil, err
	}
	if f.afterCut != nil {
		f.afterCut()
	}
	return nil, nil
}

type recordingBar struct {
	mu       sync.Mutex
	total    int
	last     int
	finishes int
}

func (b *recordingBar) Set(current int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if current > b.last {
		b.last = current
	}
}

func (b *recordingBar) Describe(string) {}

func (b *recordingBar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finishes++
}

func newTestExtractor(t *testing.T, runner CommandRunner) (*ClipExtractor, MediaLayout) {
	t.Helper()
	cfg := &Config{ClipWorkers: 2}
	layout := NewMediaLayout(t.TempDir(), "/media")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClipExtractor(NewVideo(runner, cfg), layout, cfg, logger), layout
}

func clipTutorial() Tutorial {
	return Tutorial{
		ID:           "tut",
		TranscriptID: "tr",
		Steps: []Step{
			{Index: 1, Text: "intro"},
			{Index: 2, Text: "open", VideoClip: &VideoClip{Start: -1, End: 3}},
			{Index: 3, Text: "run", VideoClip: &VideoClip{Start: 25, End: 40}},
			{Index: 4, Text: "late", VideoClip: &VideoClip{Start: 31, End: 35}},
			{Index: 5, Text: "bad", VideoClip: &VideoClip{Start: 8, End: 8}},
		},
	}
}

func TestExtractClampsAndReportsPerStep(t *testing.T) {
	runner := &fakeFFmpeg{duration: "30.0"}
	e, layout := newTestExtractor(t, runner)
	tut := clipTutorial()

	steps, report, err := e.Extract(context.Background(), tut, "source.mp4", ExtractOptions{})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if report.Extracted != 2 || report.Failed != 2 || report.Skipped != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if steps[1].VideoClip.Start != 0 {
		t.Fatalf("expected negative start clamped to 0, got %v", steps[1].VideoClip.Start)
	}
	if steps[2].VideoClip.End != 30 {
		t.Fatalf("expected end clamped to duration, got %v", steps[2].VideoClip.End)
	}
	if steps[3].VideoClip.Error == "" || steps[4].VideoClip.Error == "" {
		t.Fatalf("expected out-of-range steps to carry an error")
	}
	if tut.Steps[1].VideoClip.Start != -1 {
		t.Fatalf("input tutorial must not be modified")
	}

	name, ok := layout.ClipFilenameFromURL(tut, steps[1].VideoClip.FileURL)
	if !ok {
		t.Fatalf("unexpected clip url %q", steps[1].VideoClip.FileURL)
	}
	if !FileExists(layout.ClipPath(tut, name)) {
		t.Fatalf("expected clip file on disk")
	}
}

func TestExtractReusesAndForces(t *testing.T) {
	runner := &fakeFFmpeg{duration: "30.0"}
	e, _ := newTestExtractor(t, runner)
	tut := clipTutorial()

	if _, _, err := e.Extract(context.Background(), tut, "source.mp4", ExtractOptions{}); err != nil {
		t.Fatalf("first extract failed: %v", err)
	}
	_, report, err := e.Extract(context.Background(), tut, "source.mp4", ExtractOptions{})
	if err != nil {
		t.Fatalf("second extract failed: %v", err)
	}
	if report.Reused != 2 || report.Extracted != 0 {
		t.Fatalf("expected clips reused, got %+v", report)
	}

	_, report, err = e.Extract(context.Background(), tut, "source.mp4", ExtractOptions{Force: true})
	if err != nil {
		t.Fatalf("forced extract failed: %v", err)
	}
	if report.Extracted != 2 || runner.cuts != 4 {
		t.Fatalf("expected forced re-cut, got %+v after %d cuts", report, runner.cuts)
	}
}

func TestExtractDrivesProgress(t *testing.T) {
	e, _ := newTestExtractor(t, &fakeFFmpeg{duration: "30.0"})
	bar := &recordingBar{}

	_, _, err := e.Extract(context.Background(), clipTutorial(), "source.mp4", ExtractOptions{
		NewProgress: func(total int) ProgressBar {
			bar.total = total
			return bar
		},
	})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if bar.total != 2 || bar.last != 2 {
		t.Fatalf("expected progress over 2 clips, got total %d last %d", bar.total, bar.last)
	}
	if bar.finishes != 1 {
		t.Fatalf("expected progress finished once, got %d", bar.finishes)
	}
}

func TestExtractFailureOnlyMarksItsStep(t *testing.T) {
	runner := &fakeFFmpeg{duration: "30.0", failAt: "25.000"}
	e, _ := newTestExtractor(t, runner)

	steps, report, err := e.Extract(context.Background(), clipTutorial(), "source.mp4", ExtractOptions{})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if steps[1].VideoClip.FileURL == "" {
		t.Fatalf("expected step 2 to succeed")
	}
	if steps[2].VideoClip.FileURL != "" || steps[2].VideoClip.Error == "" {
		t.Fatalf("expected step 3 to fail, got %+v", steps[2].VideoClip)
	}
	if report.Extracted != 1 || report.Failed != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestExtractPrunesStaleClips(t *testing.T) {
	runner := &fakeFFmpeg{duration: "30.0"}
	e, layout := newTestExtractor(t, runner)
	tut := clipTutorial()

	dir := layout.ClipsDir(tut)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stale := filepath.Join(dir, "step_09_1.0s-2.0s.mp4")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{stale, other} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	_, report, err := e.Extract(context.Background(), tut, "source.mp4", ExtractOptions{})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if report.Pruned != 1 || FileExists(stale) {
		t.Fatalf("expected stale clip pruned, report %+v", report)
	}
	if !FileExists(other) {
		t.Fatalf("non-clip files must be left alone")
	}
}

func TestExtractCancelledKeepsFinishedClips(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := &fakeFFmpeg{duration: "30.0", afterCut: cancel}
	cfg := &Config{ClipWorkers: 1}
	layout := NewMediaLayout(t.TempDir(), "/media")
	e := NewClipExtractor(NewVideo(runner, cfg), layout, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	tut := clipTutorial()

	dir := layout.ClipsDir(tut)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stale := filepath.Join(dir, "step_09_1.0s-2.0s.mp4")
	if err := os.WriteFile(stale, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	steps, report, err := e.Extract(ctx, tut, "source.mp4", ExtractOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	name, ok := layout.ClipFilenameFromURL(tut, steps[1].VideoClip.FileURL)
	if !ok {
		t.Fatalf("expected first clip to keep its url, got %+v", steps[1].VideoClip)
	}
	b, err := os.ReadFile(layout.ClipPath(tut, name))
	if err != nil || string(b) != "clip" {
		t.Fatalf("expected first clip intact, got %q %v", b, err)
	}
	if steps[2].VideoClip.FileURL != "" || steps[2].VideoClip.Error != "extraction cancelled" {
		t.Fatalf("expected pending clip marked cancelled, got %+v", steps[2].VideoClip)
	}
	if report.Extracted != 1 || report.Pruned != 0 || runner.cuts != 1 {
		t.Fatalf("unexpected report %+v after %d cuts", report, runner.cuts)
	}
	if !FileExists(stale) {
		t.Fatalf("cancelled runs must not prune")
	}
}

func TestExtractWithUnknownDuration(t *testing.T) {
	runner := &fakeFFmpeg{}
	e, _ := newTestExtractor(t, runner)

	steps, report, err := e.Extract(context.Background(), clipTutorial(), "source.mp4", ExtractOptions{})
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if report.Extracted != 3 {
		t.Fatalf("expected no clamping against an unknown duration, got %+v", report)
	}
	if steps[2].VideoClip.End != 40 {
		t.Fatalf("expected end kept, got %v", steps[2].VideoClip.End)
	}
}

func TestClampRange(t *testing.T) {
	tests := []struct {
		name               string
		start, end, length float64
		wantStart, wantEnd float64
		wantErr            bool
	}{
		{"inside", 1, 2, 10, 1, 2, false},
		{"negative start", -3, 2, 10, 0, 2, false},
		{"end past video", 8, 12, 10, 8, 10, false},
		{"start past video", 11, 12, 10, 0, 0, true},
		{"empty", 4, 4, 10, 0, 0, true},
		{"reversed", 5, 2, 0, 0, 0, true},
		{"unknown duration", 50, 60, 0, 50, 60, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := clampRange(tt.start, tt.end, tt.length)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && (start != tt.wantStart || end != tt.wantEnd) {
				t.Fatalf("expected %v-%v, got %v-%v", tt.wantStart, tt.wantEnd, start, end)
			}
		})
	}
}

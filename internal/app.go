package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SupportedVideoExtensions lists the source video containers accepted on upload
var SupportedVideoExtensions = []string{".mp4", ".mov", ".mkv", ".webm", ".m4v", ".avi"}

// App holds the application state and dependencies
type App struct {
	store         Store
	ai            *AI
	promptManager *PromptManager
	cmdRunner     CommandRunner
	video         *Video
	clips         *ClipExtractor
	fetcher       VideoFetcher
	layout        MediaLayout
	config        *Config
	ui            UIManager
	logger        *slog.Logger
	now           func() time.Time

	locksMu sync.Mutex
	locks   map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewApp initializes the application
func NewApp(config *Config, store Store, options ...AppOption) *App {
	app := &App{
		store:         store,
		ai:            NewAIWithKey(config),
		promptManager: NewPromptManager(config.ConfigDir, config.Prompt),
		cmdRunner:     &DefaultCommandRunner{},
		fetcher:       NewYTDLPFetcher(config.Verbose),
		layout:        NewMediaLayout(config.MediaRoot, config.MediaURL),
		config:        config,
		ui:            NewUIManager(config.Verbose, config.Quiet),
		logger:        slog.Default(),
		now:           func() time.Time { return time.Now().UTC() },
		locks:         make(map[string]*keyLock),
	}

	// Apply any custom options
	for _, option := range options {
		option(app)
	}

	app.video = NewVideo(app.cmdRunner, config)
	app.clips = NewClipExtractor(app.video, app.layout, config, app.logger)

	return app
}

// AppOption customizes App creation
type AppOption func(*App)

// WithAI sets a custom AI processor
func WithAI(ai *AI) AppOption {
	return func(a *App) {
		a.ai = ai
	}
}

// WithCommandRunner replaces the runner used for ffmpeg and ffprobe
func WithCommandRunner(runner CommandRunner) AppOption {
	return func(a *App) {
		a.cmdRunner = runner
	}
}

// WithVideoFetcher sets the downloader used for video URLs
func WithVideoFetcher(fetcher VideoFetcher) AppOption {
	return func(a *App) {
		a.fetcher = fetcher
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) AppOption {
	return func(a *App) {
		a.now = now
	}
}

// SetPromptManager sets a new prompt manager
func (app *App) SetPromptManager(pm *PromptManager) {
	app.promptManager = pm
}

// Config returns the application configuration
func (app *App) Config() *Config {
	return app.config
}

// UI returns the terminal UI manager
func (app *App) UI() UIManager {
	return app.ui
}

// Layout returns the media layout
func (app *App) Layout() MediaLayout {
	return app.layout
}

// TranscriptUpload is a transcript document plus an optional source video
type TranscriptUpload struct {
	Filename      string
	Data          []byte
	Video         io.Reader
	VideoFilename string
}

// CreateTranscript parses, deduplicates and stores an uploaded transcript
func (app *App) CreateTranscript(ctx context.Context, userID string, upload TranscriptUpload) (Transcript, error) {
	transcript, err := ParseTranscript(upload.Data)
	if err != nil {
		return Transcript{}, err
	}

	var videoExt string
	if upload.Video != nil {
		videoExt = strings.ToLower(filepath.Ext(upload.VideoFilename))
		if !slices.Contains(SupportedVideoExtensions, videoExt) {
			return Transcript{}, fmt.Errorf("%w: %q", ErrUnsupportedVideo, upload.VideoFilename)
		}
	}

	fingerprint := Fingerprint(upload.Data)
	if existing, err := app.store.Transcripts.FindByFingerprint(ctx, userID, fingerprint); err == nil {
		return existing, fmt.Errorf("%w: %s", ErrDuplicateTranscript, existing.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return Transcript{}, fmt.Errorf("looking up transcript: %w", err)
	}

	transcript.ID = uuid.NewString()
	transcript.UserID = userID
	transcript.Filename = filepath.Base(upload.Filename)
	transcript.Fingerprint = fingerprint
	transcript.CreatedAt = app.now()

	if upload.Video != nil {
		rel := app.layout.SourceVideoRel(transcript.ID, videoExt)
		if err := app.storeVideo(upload.Video, app.layout.Abs(rel)); err != nil {
			_ = os.RemoveAll(app.layout.TranscriptDir(transcript.ID))
			return Transcript{}, err
		}
		transcript.VideoFile = rel
	}

	saved, err := app.store.Transcripts.Save(ctx, transcript)
	if err != nil {
		_ = os.RemoveAll(app.layout.TranscriptDir(transcript.ID))
		return Transcript{}, fmt.Errorf("saving transcript: %w", err)
	}

	app.logger.Info("transcript created",
		"transcript_id", saved.ID,
		"user_id", userID,
		"phrases", len(saved.Phrases),
		"has_video", saved.HasVideo())

	return saved, nil
}

// AttachVideo stores a source video for a transcript that was imported
// without one. A transcript that already has a video is returned unchanged.
func (app *App) AttachVideo(ctx context.Context, userID, id string, video io.Reader, filename string) (Transcript, error) {
	unlock := app.lockTranscript(id)
	defer unlock()

	transcript, err := app.GetTranscript(ctx, userID, id)
	if err != nil {
		return Transcript{}, err
	}
	if transcript.HasVideo() {
		return transcript, nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(SupportedVideoExtensions, ext) {
		return Transcript{}, fmt.Errorf("%w: %q", ErrUnsupportedVideo, filename)
	}

	rel := app.layout.SourceVideoRel(transcript.ID, ext)
	if err := app.storeVideo(video, app.layout.Abs(rel)); err != nil {
		return Transcript{}, err
	}
	transcript.VideoFile = rel

	saved, err := app.store.Transcripts.Save(ctx, transcript)
	if err != nil {
		_ = os.Remove(app.layout.Abs(rel))
		return Transcript{}, fmt.Errorf("saving transcript: %w", err)
	}
	app.logger.Info("video attached", "transcript_id", saved.ID, "video", rel)
	return saved, nil
}

// storeVideo streams r into dest through a temp file in the same directory
func (app *App) storeVideo(r io.Reader, dest string) error {
	dir := filepath.Dir(dest)
	if err := EnsureDirs(dir); err != nil {
		return fmt.Errorf("creating video directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp video: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("writing video: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing video: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("moving video into place: %w", err)
	}
	return nil
}

// FetchVideo downloads a source video from url into the cache directory and
// returns its path. The caller owns the file.
func (app *App) FetchVideo(ctx context.Context, url string) (string, error) {
	dir := filepath.Join(app.config.CacheDir, "videos")
	if err := EnsureDirs(dir); err != nil {
		return "", fmt.Errorf("creating video cache directory: %w", err)
	}

	spinner := app.ui.NewSpinner("Downloading video...")
	defer spinner.Finish()

	file, err := app.fetcher.Fetch(ctx, url, dir)
	if err != nil {
		return "", fmt.Errorf("downloading video: %w", err)
	}
	return file, nil
}

// ListTranscripts returns the transcripts of a user, newest first
func (app *App) ListTranscripts(ctx context.Context, userID string) ([]Transcript, error) {
	transcripts, err := app.store.Transcripts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(transcripts, func(a, b Transcript) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return transcripts, nil
}

// GetTranscript returns a transcript owned by userID
func (app *App) GetTranscript(ctx context.Context, userID, id string) (Transcript, error) {
	transcript, err := app.store.Transcripts.FindByID(ctx, id)
	if err != nil {
		return Transcript{}, err
	}
	if transcript.UserID != userID {
		return Transcript{}, ErrNotFound
	}
	return transcript, nil
}

// DeleteTranscript removes a transcript, its tutorials and all their media.
// Each tutorial is deleted under its own lock, so a running extraction or
// edit finishes before its tutorial goes away.
func (app *App) DeleteTranscript(ctx context.Context, userID, id string) error {
	unlock := app.lockTranscript(id)
	defer unlock()

	transcript, err := app.GetTranscript(ctx, userID, id)
	if err != nil {
		return err
	}

	tutorials, err := app.store.Tutorials.ListByTranscript(ctx, transcript.ID)
	if err != nil {
		return fmt.Errorf("listing tutorials: %w", err)
	}
	for _, t := range tutorials {
		if err := app.deleteTutorialLocked(ctx, t.ID); err != nil {
			return err
		}
	}

	if err := app.store.Transcripts.Delete(ctx, transcript.ID); err != nil {
		return fmt.Errorf("deleting transcript: %w", err)
	}

	for _, dir := range []string{app.layout.TranscriptTutorialsDir(transcript.ID), app.layout.TranscriptDir(transcript.ID)} {
		if err := os.RemoveAll(dir); err != nil {
			app.logger.Warn("removing media directory failed", "dir", dir, "err", err)
		}
	}

	app.logger.Info("transcript deleted", "transcript_id", transcript.ID, "tutorials", len(tutorials))
	return nil
}

// GenerateTutorial asks the model for a tutorial about a transcript, cuts the
// step clips when the transcript has a video and stores the result.
func (app *App) GenerateTutorial(ctx context.Context, userID, transcriptID string, opts ExtractOptions) (Tutorial, ClipReport, error) {
	var report ClipReport

	transcript, err := app.GetTranscript(ctx, userID, transcriptID)
	if err != nil {
		return Tutorial{}, report, err
	}

	prompt, err := app.promptManager.CreatePrompt(transcript)
	if err != nil {
		return Tutorial{}, report, fmt.Errorf("creating prompt: %w", err)
	}

	started := app.now()
	raw, err := app.ai.Complete(ctx, prompt)
	if err != nil {
		return Tutorial{}, report, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	tutorial, err := DecodeTutorialDraft(raw)
	if err != nil {
		return Tutorial{}, report, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	app.logger.Info("tutorial draft generated",
		"transcript_id", transcript.ID,
		"steps", len(tutorial.Steps),
		"elapsed", app.now().Sub(started).String())

	tutorial.ID = uuid.NewString()
	tutorial.TranscriptID = transcript.ID
	tutorial.UserID = userID
	tutorial.CreatedAt = app.now()
	tutorial.UpdatedAt = tutorial.CreatedAt

	if transcript.HasVideo() {
		steps, r, err := app.clips.Extract(ctx, tutorial, app.layout.Abs(transcript.VideoFile), opts)
		report = r
		if err != nil {
			app.removeTutorialMedia(tutorial)
			return Tutorial{}, report, fmt.Errorf("extracting clips: %w", err)
		}
		tutorial.Steps = steps
	}

	saved, err := app.saveNewTutorial(ctx, tutorial)
	if err != nil {
		app.removeTutorialMedia(tutorial)
		return Tutorial{}, report, err
	}

	app.logger.Info("tutorial created", "tutorial_id", saved.ID, "transcript_id", transcript.ID, "user_id", userID)
	return saved, report, nil
}

// saveNewTutorial stores a freshly generated tutorial unless its transcript
// was deleted while the model or ffmpeg were running.
func (app *App) saveNewTutorial(ctx context.Context, t Tutorial) (Tutorial, error) {
	unlock := app.lockTranscript(t.TranscriptID)
	defer unlock()

	if _, err := app.store.Transcripts.FindByID(ctx, t.TranscriptID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Tutorial{}, fmt.Errorf("transcript %s was deleted: %w", t.TranscriptID, ErrNotFound)
		}
		return Tutorial{}, fmt.Errorf("loading transcript: %w", err)
	}
	saved, err := app.store.Tutorials.Save(ctx, t)
	if err != nil {
		return Tutorial{}, fmt.Errorf("saving tutorial: %w", err)
	}
	return saved, nil
}

// ExtractClips cuts the clips of an existing tutorial again
func (app *App) ExtractClips(ctx context.Context, userID, tutorialID string, opts ExtractOptions) (Tutorial, ClipReport, error) {
	unlock := app.lockTutorial(tutorialID)
	defer unlock()

	tutorial, err := app.GetTutorial(ctx, userID, tutorialID)
	if err != nil {
		return Tutorial{}, ClipReport{}, err
	}
	transcript, err := app.GetTranscript(ctx, userID, tutorial.TranscriptID)
	if err != nil {
		return Tutorial{}, ClipReport{}, fmt.Errorf("loading transcript: %w", err)
	}
	if !transcript.HasVideo() {
		return Tutorial{}, ClipReport{}, ErrNoVideo
	}

	steps, report, err := app.clips.Extract(ctx, tutorial, app.layout.Abs(transcript.VideoFile), opts)
	if err != nil {
		return Tutorial{}, report, fmt.Errorf("extracting clips: %w", err)
	}

	tutorial.Steps = steps
	tutorial.UpdatedAt = app.now()
	saved, err := app.store.Tutorials.Save(ctx, tutorial)
	if err != nil {
		return Tutorial{}, report, fmt.Errorf("saving tutorial: %w", err)
	}
	return saved, report, nil
}

// ListTutorials returns the tutorials of a user, most recently updated first
func (app *App) ListTutorials(ctx context.Context, userID string) ([]Tutorial, error) {
	tutorials, err := app.store.Tutorials.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(tutorials, func(a, b Tutorial) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return tutorials, nil
}

// GetTutorial returns a tutorial owned by userID
func (app *App) GetTutorial(ctx context.Context, userID, id string) (Tutorial, error) {
	tutorial, err := app.store.Tutorials.FindByID(ctx, id)
	if err != nil {
		return Tutorial{}, err
	}
	if tutorial.UserID != userID {
		return Tutorial{}, ErrNotFound
	}
	return tutorial, nil
}

// TutorialUpdate holds user edits. Nil fields are left unchanged.
type TutorialUpdate struct {
	Title            *string  `json:"title"`
	Introduction     *string  `json:"introduction"`
	Steps            []Step   `json:"steps"`
	Tips             []string `json:"tips"`
	Examples         []string `json:"examples"`
	Summary          *string  `json:"summary"`
	DurationEstimate *string  `json:"duration_estimate"`
	Tags             []string `json:"tags"`
}

// UpdateTutorial applies user edits. Clip URLs cannot be set by the client;
// they carry over from the stored step with the same index and range.
func (app *App) UpdateTutorial(ctx context.Context, userID, id string, update TutorialUpdate) (Tutorial, error) {
	unlock := app.lockTutorial(id)
	defer unlock()

	tutorial, err := app.GetTutorial(ctx, userID, id)
	if err != nil {
		return Tutorial{}, err
	}

	if update.Title != nil {
		tutorial.Title = strings.TrimSpace(*update.Title)
	}
	if update.Introduction != nil {
		tutorial.Introduction = strings.TrimSpace(*update.Introduction)
	}
	if update.Steps != nil {
		tutorial.Steps = mergeStepAssets(tutorial.Steps, update.Steps)
	}
	if update.Tips != nil {
		tutorial.Tips = cleanStrings(update.Tips)
	}
	if update.Examples != nil {
		tutorial.Examples = cleanStrings(update.Examples)
	}
	if update.Summary != nil {
		tutorial.Summary = strings.TrimSpace(*update.Summary)
	}
	if update.DurationEstimate != nil {
		tutorial.DurationEstimate = strings.TrimSpace(*update.DurationEstimate)
	}
	if update.Tags != nil {
		tutorial.Tags = cleanStrings(update.Tags)
	}

	if err := ValidateTutorial(tutorial); err != nil {
		return Tutorial{}, err
	}

	tutorial.UpdatedAt = app.now()
	saved, err := app.store.Tutorials.Save(ctx, tutorial)
	if err != nil {
		return Tutorial{}, fmt.Errorf("saving tutorial: %w", err)
	}
	return saved, nil
}

// DeleteTutorial removes a tutorial and its clips
func (app *App) DeleteTutorial(ctx context.Context, userID, id string) error {
	unlock := app.lockTutorial(id)
	defer unlock()

	tutorial, err := app.GetTutorial(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := app.store.Tutorials.Delete(ctx, tutorial.ID); err != nil {
		return fmt.Errorf("deleting tutorial: %w", err)
	}
	app.removeTutorialMedia(tutorial)
	return nil
}

// ExportZip writes the zip archive of a tutorial to w
func (app *App) ExportZip(ctx context.Context, userID, id string, w io.Writer) (Tutorial, error) {
	tutorial, err := app.GetTutorial(ctx, userID, id)
	if err != nil {
		return Tutorial{}, err
	}
	if err := WriteZip(w, tutorial, app.layout); err != nil {
		return Tutorial{}, fmt.Errorf("exporting tutorial: %w", err)
	}
	return tutorial, nil
}

// ExportZipFile writes the archive to path via a temp file
func (app *App) ExportZipFile(ctx context.Context, userID, id, path string) error {
	if err := EnsureDirs(filepath.Dir(path)); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.zip")
	if err != nil {
		return fmt.Errorf("creating zip: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := app.ExportZip(ctx, userID, id, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing zip: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// EnsureBootstrapUser makes the configured bootstrap token authenticate as admin
func (app *App) EnsureBootstrapUser(ctx context.Context) error {
	if app.config.BootstrapToken == "" {
		return nil
	}
	user, err := app.EnsureUserToken(ctx, "admin", app.config.BootstrapToken)
	if err != nil {
		return fmt.Errorf("bootstrapping admin user: %w", err)
	}
	app.logger.Info("bootstrap user ready", "user_id", user.ID, "username", user.Username)
	return nil
}

func (app *App) removeTutorialMedia(t Tutorial) {
	dir := app.layout.TutorialDir(t)
	if err := os.RemoveAll(dir); err != nil {
		app.logger.Warn("removing tutorial media failed", "dir", dir, "err", err)
	}
}

// deleteTutorialLocked removes one tutorial and its clips while holding its lock
func (app *App) deleteTutorialLocked(ctx context.Context, id string) error {
	unlock := app.lockTutorial(id)
	defer unlock()

	tutorial, err := app.store.Tutorials.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading tutorial %s: %w", id, err)
	}
	if err := app.store.Tutorials.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("deleting tutorial %s: %w", id, err)
	}
	app.removeTutorialMedia(tutorial)
	return nil
}

// lockTutorial serializes mutations of a single tutorial
func (app *App) lockTutorial(id string) func() {
	return app.lockKey("tutorial:" + id)
}

// lockTranscript serializes deleting a transcript with storing new tutorials for it
func (app *App) lockTranscript(id string) func() {
	return app.lockKey("transcript:" + id)
}

// lockKey takes a reference counted mutex. The entry is dropped once the
// last holder or waiter releases it.
func (app *App) lockKey(key string) func() {
	app.locksMu.Lock()
	l, ok := app.locks[key]
	if !ok {
		l = &keyLock{}
		app.locks[key] = l
	}
	l.refs++
	app.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		app.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(app.locks, key)
		}
		app.locksMu.Unlock()
	}
}

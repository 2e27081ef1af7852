package internal

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrDuplicateTranscript = errors.New("transcript already uploaded")
	ErrInvalidTranscript   = errors.New("invalid transcript")
	ErrInvalidTutorial     = errors.New("invalid tutorial")
	ErrNoVideo             = errors.New("transcript has no video")
	ErrUnsupportedVideo    = errors.New("unsupported video format")
	ErrGeneration          = errors.New("tutorial generation failed")
)

// TicksPerSecond is the resolution of DurationInTicks (100ns ticks)
const TicksPerSecond = 10_000_000

// User owns transcripts and tutorials
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	TokenHash string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Phrase is one recognized utterance of a transcript
type Phrase struct {
	OffsetMilliseconds   int64  `json:"offset_milliseconds"`
	DurationMilliseconds int64  `json:"duration_milliseconds"`
	Display              string `json:"display"`
	Speaker              int    `json:"speaker,omitempty"`
}

// Start returns the phrase offset in seconds
func (p Phrase) Start() float64 {
	return float64(p.OffsetMilliseconds) / 1000
}

// Transcript is an uploaded recording transcript with an optional source video
type Transcript struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Filename        string    `json:"filename"`
	Fingerprint     string    `json:"fingerprint"`
	Timestamp       time.Time `json:"timestamp"`
	DurationInTicks int64     `json:"duration_in_ticks"`
	Phrases         []Phrase  `json:"phrases"`
	VideoFile       string    `json:"video_file,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Duration converts DurationInTicks into a time.Duration
func (t Transcript) Duration() time.Duration {
	return time.Duration(t.DurationInTicks * 100)
}

// HasVideo reports whether a source video was attached
func (t Transcript) HasVideo() bool {
	return t.VideoFile != ""
}

// VideoClip is a time range of the source video, in seconds.
// FileURL is set once the clip has been cut; Error records why it was not.
type VideoClip struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	FileURL string  `json:"file_url,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Step is a single numbered tutorial instruction
type Step struct {
	Index     int        `json:"index"`
	Text      string     `json:"text"`
	VideoClip *VideoClip `json:"video_clip,omitempty"`
}

// Tutorial is the structured document generated from a transcript
type Tutorial struct {
	ID               string    `json:"id"`
	TranscriptID     string    `json:"transcript_id"`
	UserID           string    `json:"user_id"`
	Title            string    `json:"title"`
	Introduction     string    `json:"introduction"`
	Steps            []Step    `json:"steps"`
	Tips             []string  `json:"tips"`
	Examples         []string  `json:"examples"`
	Summary          string    `json:"summary"`
	DurationEstimate string    `json:"duration_estimate"`
	Tags             []string  `json:"tags"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UserRepository abstracts user persistence
type UserRepository interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (User, error)
	Save(ctx context.Context, user User) (User, error)
}

// TranscriptRepository abstracts transcript persistence
type TranscriptRepository interface {
	FindByID(ctx context.Context, id string) (Transcript, error)
	FindByFingerprint(ctx context.Context, userID, fingerprint string) (Transcript, error)
	ListByUser(ctx context.Context, userID string) ([]Transcript, error)
	Save(ctx context.Context, transcript Transcript) (Transcript, error)
	Delete(ctx context.Context, id string) error
}

// TutorialRepository abstracts tutorial persistence
type TutorialRepository interface {
	FindByID(ctx context.Context, id string) (Tutorial, error)
	ListByUser(ctx context.Context, userID string) ([]Tutorial, error)
	ListByTranscript(ctx context.Context, transcriptID string) ([]Tutorial, error)
	Save(ctx context.Context, tutorial Tutorial) (Tutorial, error)
	Delete(ctx context.Context, id string) error
}

// Store groups the repositories the App needs
type Store struct {
	Users       UserRepository
	Transcripts TranscriptRepository
	Tutorials   TutorialRepository
}

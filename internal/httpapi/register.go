package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/rtzll/tutorly/internal"
)

// Service is the application surface the API exposes. *internal.App
// implements it.
type Service interface {
	Authenticate(ctx context.Context, token string) (internal.User, error)

	CreateTranscript(ctx context.Context, userID string, upload internal.TranscriptUpload) (internal.Transcript, error)
	ListTranscripts(ctx context.Context, userID string) ([]internal.Transcript, error)
	GetTranscript(ctx context.Context, userID, id string) (internal.Transcript, error)
	DeleteTranscript(ctx context.Context, userID, id string) error

	GenerateTutorial(ctx context.Context, userID, transcriptID string, opts internal.ExtractOptions) (internal.Tutorial, internal.ClipReport, error)
	ExtractClips(ctx context.Context, userID, tutorialID string, opts internal.ExtractOptions) (internal.Tutorial, internal.ClipReport, error)
	ListTutorials(ctx context.Context, userID string) ([]internal.Tutorial, error)
	GetTutorial(ctx context.Context, userID, id string) (internal.Tutorial, error)
	UpdateTutorial(ctx context.Context, userID, id string, update internal.TutorialUpdate) (internal.Tutorial, error)
	DeleteTutorial(ctx context.Context, userID, id string) error
	ExportZip(ctx context.Context, userID, id string, w io.Writer) (internal.Tutorial, error)
}

var _ Service = (*internal.App)(nil)

// Register attaches API routes to the provided mux.
func Register(mux *http.ServeMux, logger *slog.Logger, cfg *internal.Config, svc Service) {
	auth := requireUser(svc)

	registerAuthRoutes(mux, logger, svc)
	registerTranscriptRoutes(mux, logger, cfg, svc, auth)
	registerTutorialRoutes(mux, logger, svc, auth)
	registerMediaRoutes(mux, logger, cfg)
}

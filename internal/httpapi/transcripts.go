package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rtzll/tutorly/internal"
)

// multipart parts above this size are spooled to disk
const multipartMemory = 32 << 20

type transcriptSummary struct {
	ID              string    `json:"id"`
	Filename        string    `json:"filename"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds float64   `json:"duration_seconds"`
	PhraseCount     int       `json:"phrase_count"`
	HasVideo        bool      `json:"has_video"`
	CreatedAt       time.Time `json:"created_at"`
}

func summarizeTranscript(t internal.Transcript) transcriptSummary {
	return transcriptSummary{
		ID:              t.ID,
		Filename:        t.Filename,
		Timestamp:       t.Timestamp,
		DurationSeconds: t.Duration().Seconds(),
		PhraseCount:     len(t.Phrases),
		HasVideo:        t.HasVideo(),
		CreatedAt:       t.CreatedAt,
	}
}

func registerTranscriptRoutes(mux *http.ServeMux, logger *slog.Logger, cfg *internal.Config, svc Service, auth func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/transcripts", auth(func(w http.ResponseWriter, r *http.Request) {
		transcripts, err := svc.ListTranscripts(r.Context(), userFrom(r.Context()).ID)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}
		out := make([]transcriptSummary, 0, len(transcripts))
		for _, t := range transcripts {
			out = append(out, summarizeTranscript(t))
		}
		respondJSON(w, http.StatusOK, out)
	}))

	mux.HandleFunc("POST /api/transcripts", auth(func(w http.ResponseWriter, r *http.Request) {
		handleTranscriptUpload(w, r, logger, cfg, svc)
	}))

	mux.HandleFunc("GET /api/transcripts/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTranscript(r.Context(), userFrom(r.Context()).ID, r.PathValue("id"))
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}))

	mux.HandleFunc("DELETE /api/transcripts/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteTranscript(r.Context(), userFrom(r.Context()).ID, r.PathValue("id")); err != nil {
			respondServiceError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	mux.HandleFunc("POST /api/transcripts/{id}/generate_tutorial", auth(func(w http.ResponseWriter, r *http.Request) {
		tutorial, report, err := svc.GenerateTutorial(r.Context(), userFrom(r.Context()).ID, r.PathValue("id"), internal.ExtractOptions{})
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{
			"tutorial": tutorial,
			"clips":    report,
		})
	}))
}

func handleTranscriptUpload(w http.ResponseWriter, r *http.Request, logger *slog.Logger, cfg *internal.Config, svc Service) {
	r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		respondError(w, http.StatusBadRequest, "expected multipart/form-data with a json_file part")
		return
	}
	defer r.MultipartForm.RemoveAll()

	jsonFile, jsonHeader, err := r.FormFile("json_file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "json_file is required")
		return
	}
	defer jsonFile.Close()

	data, err := io.ReadAll(jsonFile)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read json_file")
		return
	}

	upload := internal.TranscriptUpload{Filename: jsonHeader.Filename, Data: data}

	videoFile, videoHeader, err := r.FormFile("video_file")
	switch {
	case err == nil:
		defer videoFile.Close()
		upload.Video = videoFile
		upload.VideoFilename = videoHeader.Filename
	case errors.Is(err, http.ErrMissingFile):
	default:
		respondError(w, http.StatusBadRequest, "could not read video_file")
		return
	}

	transcript, err := svc.CreateTranscript(r.Context(), userFrom(r.Context()).ID, upload)
	if err != nil {
		if errors.Is(err, internal.ErrDuplicateTranscript) {
			respondJSON(w, http.StatusConflict, map[string]any{
				"error":         err.Error(),
				"transcript_id": transcript.ID,
			})
			return
		}
		respondServiceError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, summarizeTranscript(transcript))
}

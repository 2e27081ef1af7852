package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rtzll/tutorly/internal"
)

func registerTutorialRoutes(mux *http.ServeMux, logger *slog.Logger, svc Service, auth func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/tutorials", auth(func(w http.ResponseWriter, r *http.Request) {
		tutorials, err := svc.ListTutorials(r.Context(), userFrom(r.Context()).ID)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, tutorials)
	}))

	mux.HandleFunc("GET /api/tutorials/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTutorial(r.Context(), userFrom(r.Context()).ID, r.PathValue("id"))
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}))

	mux.HandleFunc("PATCH /api/tutorials/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		var update internal.TutorialUpdate
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&update); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		t, err := svc.UpdateTutorial(r.Context(), userFrom(r.Context()).ID, r.PathValue("id"), update)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}))

	mux.HandleFunc("DELETE /api/tutorials/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteTutorial(r.Context(), userFrom(r.Context()).ID, r.PathValue("id")); err != nil {
			respondServiceError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	mux.HandleFunc("POST /api/tutorials/{id}/extract_clips", auth(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Force bool `json:"force"`
		}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
				respondError(w, http.StatusBadRequest, "invalid JSON payload")
				return
			}
		}
		t, report, err := svc.ExtractClips(r.Context(), userFrom(r.Context()).ID, r.PathValue("id"), internal.ExtractOptions{Force: payload.Force})
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"tutorial": t,
			"clips":    report,
		})
	}))

	mux.HandleFunc("GET /api/tutorials/{id}/export_zip", auth(func(w http.ResponseWriter, r *http.Request) {
		userID := userFrom(r.Context()).ID
		id := r.PathValue("id")
		lw := &lazyDownload{
			w:           w,
			contentType: "application/zip",
			filename:    internal.ZipFilename(internal.Tutorial{ID: id}),
		}
		if _, err := svc.ExportZip(r.Context(), userID, id, lw); err != nil {
			if lw.started {
				// headers are gone; the client sees a truncated archive
				logger.Error("zip export failed mid-stream", "tutorial_id", id, "err", err)
				return
			}
			if statusFor(err) == http.StatusInternalServerError {
				logger.Error("zip export failed", "tutorial_id", id, "err", err)
				respondError(w, http.StatusInternalServerError, "export failed")
				return
			}
			respondServiceError(w, logger, err)
		}
	}))

	mux.HandleFunc("GET /api/tutorials/{id}/export_html", auth(func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTutorial(r.Context(), userFrom(r.Context()).ID, r.PathValue("id"))
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}
		page, err := internal.RenderHTML(t)
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Query().Get("download") != "" {
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tutorial_%s.html"`, t.ID))
		}
		_, _ = w.Write(page)
	}))

	mux.HandleFunc("GET /api/tutorials/{id}/markdown", auth(func(w http.ResponseWriter, r *http.Request) {
		t, err := svc.GetTutorial(r.Context(), userFrom(r.Context()).ID, r.PathValue("id"))
		if err != nil {
			respondServiceError(w, logger, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, internal.RenderMarkdownSource(t))
	}))
}

// lazyDownload defers the attachment headers until the first byte, so an
// export that fails before writing can still answer with a JSON error.
type lazyDownload struct {
	w           http.ResponseWriter
	contentType string
	filename    string
	started     bool
}

func (l *lazyDownload) Write(p []byte) (int, error) {
	if !l.started {
		l.started = true
		l.w.Header().Set("Content-Type", l.contentType)
		l.w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, l.filename))
		l.w.WriteHeader(http.StatusOK)
	}
	return l.w.Write(p)
}

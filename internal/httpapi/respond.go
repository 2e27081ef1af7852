package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rtzll/tutorly/internal"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("failed to encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto status codes. Unexpected
// errors are logged and hidden from the client.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "err", err)
		respondError(w, status, "internal server error")
		return
	}
	if status == http.StatusBadGateway {
		logger.Warn("tutorial generation failed", "err", err)
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, internal.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, internal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, internal.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, internal.ErrDuplicateTranscript):
		return http.StatusConflict
	case errors.Is(err, internal.ErrInvalidTranscript),
		errors.Is(err, internal.ErrInvalidTutorial),
		errors.Is(err, internal.ErrUnsupportedVideo),
		errors.Is(err, internal.ErrNoVideo):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rtzll/tutorly/internal"
)

type ctxKey struct{}

func withUser(ctx context.Context, u internal.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func userFrom(ctx context.Context) internal.User {
	u, _ := ctx.Value(ctxKey{}).(internal.User)
	return u
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireUser rejects requests without a valid bearer token and stores the
// authenticated user in the request context.
func requireUser(svc Service) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, err := svc.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				if errors.Is(err, internal.ErrUnauthorized) {
					w.Header().Set("WWW-Authenticate", `Bearer realm="tutorly"`)
					respondError(w, http.StatusUnauthorized, "authentication required")
					return
				}
				respondError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			next(w, r.WithContext(withUser(r.Context(), user)))
		}
	}
}

func registerAuthRoutes(mux *http.ServeMux, logger *slog.Logger, svc Service) {
	mux.HandleFunc("GET /api/auth/status", func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			if !errors.Is(err, internal.ErrUnauthorized) {
				logger.Error("auth status lookup failed", "err", err)
			}
			respondJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"user": map[string]any{
				"id":       user.ID,
				"username": user.Username,
				"email":    user.Email,
			},
		})
	})
}

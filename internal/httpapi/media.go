package httpapi

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rtzll/tutorly/internal"
)

// registerMediaRoutes serves clips and source videos from the media root when
// the media URL is a local path. Directory listings are not exposed.
func registerMediaRoutes(mux *http.ServeMux, logger *slog.Logger, cfg *internal.Config) {
	prefix := strings.TrimRight(cfg.MediaURL, "/")
	if !strings.HasPrefix(prefix, "/") || prefix == "" {
		logger.Info("media served externally", "media_url", cfg.MediaURL)
		return
	}
	files := http.FileServer(noDirFS{http.Dir(cfg.MediaRoot)})
	mux.Handle("GET "+prefix+"/", http.StripPrefix(prefix, files))
}

type noDirFS struct {
	fs http.FileSystem
}

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

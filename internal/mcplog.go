package internal

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// NewMCPLogger returns the logger used while serving MCP. stdout carries the
// protocol, so logs go to <cache>/mcp.log when enabled and nowhere otherwise.
// The returned closer releases the log file.
func NewMCPLogger(cfg *Config) (*slog.Logger, io.Closer) {
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	if !cfg.MCPLog {
		return discard, io.NopCloser(nil)
	}

	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		return discard, io.NopCloser(nil)
	}

	logPath := filepath.Join(cfg.CacheDir, "mcp.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return discard, io.NopCloser(nil)
	}

	return NewLogger(cfg.Env, logFile).With("component", "mcp"), logFile
}

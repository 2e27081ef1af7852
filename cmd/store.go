package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rtzll/tutorly/internal"
	"github.com/rtzll/tutorly/internal/storage/memory"
	pgstorage "github.com/rtzll/tutorly/internal/storage/postgres"
)

// openStore builds the repositories selected by data_backend. The returned
// func releases the database connection, if any.
func openStore(ctx context.Context, logger *slog.Logger) (internal.Store, func(), error) {
	switch config.DataBackend {
	case "memory":
		logger.Info("using in-memory repositories (data_backend=memory)")
		return memory.NewStore(), func() {}, nil
	case "postgres":
		db, err := connectDB(ctx, logger)
		if err != nil {
			return internal.Store{}, nil, err
		}
		if err := pgstorage.Migrate(ctx, db, logger); err != nil {
			db.Close()
			return internal.Store{}, nil, fmt.Errorf("database migrations failed: %w", err)
		}
		logger.Info("using postgres repositories (data_backend=postgres)")
		return pgstorage.NewStore(db), func() {
			if cerr := db.Close(); cerr != nil {
				logger.Error("error closing database", "err", cerr)
			}
		}, nil
	default:
		return internal.Store{}, nil, fmt.Errorf("unsupported data backend: %s", config.DataBackend)
	}
}

func connectDB(ctx context.Context, logger *slog.Logger) (*sql.DB, error) {
	db, err := pgstorage.Connect(ctx, pgstorage.OptionsFromConfig(config, logger))
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	return db, nil
}

// cliLogger keeps structured logs out of the way of terminal output unless
// --verbose is set
func cliLogger() *slog.Logger {
	if config.Verbose {
		return internal.NewLogger(config.Env, os.Stderr)
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/tutorly/internal"
	"github.com/rtzll/tutorly/internal/httpapi"
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Example: `  # Serve on the configured address (default :8000)
  tutorly serve

  # Serve on another port with a bootstrap admin token
  TUTORLY_BOOTSTRAP_TOKEN=secret tutorly serve --addr :9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			config.HTTPAddr = addr
		}

		logr := internal.NewLogger(config.Env, os.Stdout)
		ctx := cmd.Context()

		if err := internal.ValidateOpenAIAPIKey(config.OpenAIAPIKey); err != nil {
			logr.Warn("tutorial generation disabled", "err", err)
		}
		if err := internal.EnsureDirs(config.MediaRoot); err != nil {
			return fmt.Errorf("creating media root: %w", err)
		}

		store, closeStore, err := openStore(ctx, logr)
		if err != nil {
			return err
		}
		defer closeStore()

		app := internal.NewApp(config, store, internal.WithLogger(logr))
		if err := app.EnsureBootstrapUser(ctx); err != nil {
			return err
		}

		srv := httpapi.New(config, logr)
		httpapi.Register(srv.Mux(), logr, config, app)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Run()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides http_addr)")
	rootCmd.AddCommand(serveCmd)
}

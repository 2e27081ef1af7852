package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/tutorly/internal"
	pgstorage "github.com/rtzll/tutorly/internal/storage/postgres"
)

// migrateCmd applies the embedded database schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.DataBackend != "postgres" {
			return fmt.Errorf("nothing to migrate for data_backend=%s", config.DataBackend)
		}
		logr := internal.NewLogger(config.Env, os.Stderr)
		db, err := connectDB(cmd.Context(), logr)
		if err != nil {
			return err
		}
		defer db.Close()
		return pgstorage.Migrate(cmd.Context(), db, logr)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

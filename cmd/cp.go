package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/rtzll/tutorly/internal"
)

// cpCmd copies a stored tutorial to the system clipboard as Markdown.
var cpCmd = &cobra.Command{
	Use:   "cp [tutorial ID]",
	Short: "Copy a stored tutorial to the clipboard as Markdown",
	Example: `  # Copy a tutorial generated earlier by build, watch or mcp
  tutorly cp 3f1c2a9e-7d7b-4e43-9d6c-1c0f4f5f2a10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.DataBackend != "postgres" {
			return fmt.Errorf("cp needs a persistent store; set data_backend = \"postgres\"")
		}

		ctx := cmd.Context()
		logr := cliLogger()
		store, closeStore, err := openStore(ctx, logr)
		if err != nil {
			return err
		}
		defer closeStore()

		app := internal.NewApp(config, store, internal.WithLogger(logr))
		user, err := app.LocalUser(ctx)
		if err != nil {
			return err
		}
		tutorial, err := app.GetTutorial(ctx, user.ID, args[0])
		if err != nil {
			return fmt.Errorf("loading tutorial %s: %w", args[0], err)
		}

		if err := clipboard.WriteAll(internal.RenderMarkdownSource(tutorial)); err != nil {
			return fmt.Errorf("copying tutorial to clipboard: %w", err)
		}

		app.UI().Println("Tutorial copied to clipboard")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cpCmd)
}

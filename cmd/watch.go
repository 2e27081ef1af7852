package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtzll/tutorly/internal"
)

// watchCmd builds a tutorial for every transcript dropped into a directory
var watchCmd = &cobra.Command{
	Use:   "watch [inbox]",
	Short: "Build tutorials for transcripts dropped into a directory",
	Long: `Watch a directory for new transcript JSON files. Each file is turned into a
tutorial, using a video with the same base name if one is present, and written
as <name>.zip to the output directory.

Copy the video in before the transcript so it is picked up.`,
	Example: `  # Write archives next to the transcripts
  tutorly watch ~/Recordings

  # Write archives elsewhere, two at a time
  tutorly watch ~/Recordings --out ~/Tutorials --concurrency 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateOpenAIRequirements(cmd, config); err != nil {
			return err
		}

		inbox := args[0]
		outDir, _ := cmd.Flags().GetString("out")
		if outDir == "" {
			outDir = inbox
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		if err := internal.EnsureDirs(outDir, config.MediaRoot); err != nil {
			return err
		}

		ctx := cmd.Context()
		logr := internal.NewLogger(config.Env, cmd.ErrOrStderr())

		store, closeStore, err := openStore(ctx, logr)
		if err != nil {
			return err
		}
		defer closeStore()

		app := internal.NewApp(config, store, internal.WithLogger(logr))
		if err := internal.HandlePromptFlag(cmd, app); err != nil {
			return err
		}
		user, err := app.LocalUser(ctx)
		if err != nil {
			return err
		}

		handler := func(ctx context.Context, transcriptPath string) error {
			tutorial, _, err := app.BuildTutorial(ctx, user.ID, internal.BuildRequest{
				TranscriptPath: transcriptPath,
				VideoPath:      internal.SiblingVideo(transcriptPath),
			})
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(transcriptPath), filepath.Ext(transcriptPath)) + ".zip"
			output := filepath.Join(outDir, name)
			if err := app.ExportZipFile(ctx, user.ID, tutorial.ID, output); err != nil {
				return err
			}
			logr.Info("tutorial written", "tutorial_id", tutorial.ID, "file", output)
			return nil
		}

		watcher, err := internal.NewInboxWatcher(inbox, handler, logr, concurrency)
		if err != nil {
			return fmt.Errorf("watching %s: %w", inbox, err)
		}
		defer watcher.Stop()

		if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	internal.AddOpenAIFlags(watchCmd)
	watchCmd.Flags().String("out", "", "Directory for generated archives (default: the inbox)")
	watchCmd.Flags().Int("concurrency", 1, "Transcripts processed at the same time")
	rootCmd.AddCommand(watchCmd)
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/rtzll/tutorly/internal"
)

// buildCmd generates a tutorial from a local transcript file
var buildCmd = &cobra.Command{
	Use:   "build [transcript.json]",
	Short: "Generate a tutorial from a transcript file",
	Long: `Generate a tutorial from a speech-to-text transcript JSON file.

If a video with the same base name sits next to the transcript (demo.json and
demo.mp4), a clip is cut for every step. Use --video to point at another file,
--video-url to download the recording with yt-dlp, or --no-video to skip clips.

Without -o the tutorial is printed as Markdown.`,
	Example: `  # Print the tutorial as Markdown
  tutorly build demo.json

  # Write index.html plus clips into a zip archive
  tutorly build demo.json --video recording.mov -o demo.zip

  # Copy the Markdown to the clipboard
  tutorly build demo.json --no-video --copy`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.ValidateOpenAIRequirements(cmd, config); err != nil {
			return err
		}

		transcriptPath := args[0]
		if !internal.FileExists(transcriptPath) {
			return fmt.Errorf("transcript not found: %s", transcriptPath)
		}

		// Nothing outlives the process with the memory backend, so keep clips
		// in the temp dir instead of the shared media root.
		if config.DataBackend == "memory" {
			if err := internal.EnsureDirs(config.TempDir); err != nil {
				return err
			}
			mediaRoot, err := os.MkdirTemp(config.TempDir, "build-*")
			if err != nil {
				return fmt.Errorf("creating temp media root: %w", err)
			}
			defer os.RemoveAll(mediaRoot)
			config.MediaRoot = mediaRoot
		}

		ctx := cmd.Context()
		logr := cliLogger()

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

		videoPath, cleanup, err := resolveVideo(cmd, app, transcriptPath)
		if err != nil {
			return err
		}
		defer cleanup()

		ui := app.UI()
		spinner := ui.NewSpinner("Generating tutorial")
		spinning := true
		extract := internal.ExtractOptions{
			NewProgress: func(total int) internal.ProgressBar {
				spinner.Finish()
				spinning = false
				return ui.NewProgressBar(total, "Cutting clips")
			},
		}
		tutorial, report, err := app.BuildTutorial(ctx, user.ID, internal.BuildRequest{
			TranscriptPath: transcriptPath,
			VideoPath:      videoPath,
			Extract:        extract,
		})
		if spinning {
			spinner.Finish()
		}
		if err != nil {
			return err
		}

		if videoPath != "" {
			ui.Printf("Clips: %d extracted, %d reused, %d failed, %d steps without clip\n",
				report.Extracted, report.Reused, report.Failed, report.Skipped)
		}

		markdown := internal.RenderMarkdownSource(tutorial)

		copyFlag, _ := cmd.Flags().GetBool("copy")
		if copyFlag {
			if err := clipboard.WriteAll(markdown); err != nil {
				return fmt.Errorf("copying tutorial to clipboard: %w", err)
			}
			ui.Println("Tutorial copied to clipboard")
		}

		output, _ := cmd.Flags().GetString("output")
		if output != "" {
			if err := app.ExportZipFile(ctx, user.ID, tutorial.ID, output); err != nil {
				return err
			}
			ui.Printf("Wrote %s\n", output)
			return nil
		}

		if copyFlag {
			return nil
		}

		rendered, err := internal.RenderMarkdown(markdown)
		if err != nil {
			fmt.Println(markdown)
			return nil
		}
		fmt.Print(rendered)
		return nil
	},
}

// resolveVideo picks the source video from the flags or a sibling file. The
// returned cleanup removes downloaded files.
func resolveVideo(cmd *cobra.Command, app *internal.App, transcriptPath string) (string, func(), error) {
	noop := func() {}

	if noVideo, _ := cmd.Flags().GetBool("no-video"); noVideo {
		return "", noop, nil
	}

	if url, _ := cmd.Flags().GetString("video-url"); url != "" {
		if !internal.IsRemoteURL(url) {
			return "", noop, fmt.Errorf("--video-url must be an http(s) URL: %s", url)
		}
		file, err := app.FetchVideo(cmd.Context(), url)
		if err != nil {
			return "", noop, err
		}
		return file, func() { os.RemoveAll(filepath.Dir(file)) }, nil
	}

	if video, _ := cmd.Flags().GetString("video"); video != "" {
		if !internal.FileExists(video) {
			return "", noop, fmt.Errorf("video not found: %s", video)
		}
		return video, noop, nil
	}

	if sibling := internal.SiblingVideo(transcriptPath); sibling != "" {
		app.UI().Verbose("Using video %s\n", sibling)
		return sibling, noop, nil
	}
	return "", noop, nil
}

func init() {
	internal.AddOpenAIFlags(buildCmd)
	internal.AddVideoFlags(buildCmd)
	buildCmd.Flags().StringP("output", "o", "", "Write the tutorial as a zip archive (index.html plus clips)")
	buildCmd.Flags().Bool("copy", false, "Copy the Markdown to the clipboard")
	rootCmd.AddCommand(buildCmd)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rtzll/tutorly/internal"
)

var (
	config *internal.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tutorly",
	Short: "Turn recorded walkthroughs into step-by-step tutorials",
	Long: `Tutorly turns a speech-to-text transcript of a recorded walkthrough into a
structured tutorial using OpenAI's language models.

When the recording itself is available, a short video clip is cut with ffmpeg
for every step. Tutorials can be exported as a self-contained zip archive
(index.html plus clips) or as Markdown.

Run "tutorly serve" for the HTTP API or "tutorly build" for one-off use.`,
	Example: `  # Build a tutorial from a transcript and the recording next to it
  tutorly build demo.json -o demo.zip

  # Serve the HTTP API
  tutorly serve

  # Watch a directory for new transcripts
  tutorly watch ~/Recordings --out ~/Tutorials`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

// loadConfig reads configuration once flags are parsed so --config is honoured
func loadConfig(cmd *cobra.Command) error {
	configFile, _ := cmd.Flags().GetString("config")
	config = internal.InitConfig(configFile)

	if cmd.Flags().Changed("verbose") {
		config.Verbose, _ = cmd.Flags().GetBool("verbose")
	}
	if cmd.Flags().Changed("quiet") {
		config.Quiet, _ = cmd.Flags().GetBool("quiet")
	}

	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
		return fmt.Errorf("creating XDG directories: %w", err)
	}

	if err := internal.EnsureDefaultConfig(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default config: %v\n", err)
	}

	if err := internal.EnsureDefaultPrompt(config.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to ensure default prompt: %v\n", err)
	}

	return config.Validate()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal cancels running work; a second one exits immediately.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal. Finishing up...")
		cancel()
		<-sigCh
		fmt.Fprintln(os.Stderr, "Forced exit")
		os.Exit(1)
	}()

	rootCmd.SetContext(ctx)
	err := rootCmd.Execute()

	if config != nil {
		if cerr := internal.CleanupTempDir(config.TempDir); cerr != nil {
			fmt.Fprintf(os.Stderr, "Error cleaning up temporary files: %v\n", cerr)
		}
	}

	return err
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is $XDG_CONFIG_HOME/tutorly/config.toml)")
}

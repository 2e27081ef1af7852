package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AddOpenAIFlags adds flags related to OpenAI API functionality
func AddOpenAIFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "OpenAI model to use for tutorial generation")
	cmd.Flags().StringP("prompt", "p", "", "Custom prompt template (string or file path)")
}

// AddVideoFlags adds flags selecting the source video of a build
func AddVideoFlags(cmd *cobra.Command) {
	cmd.Flags().String("video", "", "Recording the transcript belongs to (defaults to a sibling file with the same name)")
	cmd.Flags().String("video-url", "", "Download the recording with yt-dlp instead")
	cmd.Flags().Bool("no-video", false, "Do not cut clips even if a sibling video exists")
	cmd.MarkFlagsMutuallyExclusive("video", "video-url", "no-video")
}

// HandlePromptFlag processes the --prompt flag to set custom prompt
func HandlePromptFlag(cmd *cobra.Command, app *App) error {
	promptFlag := cmd.Flags().Lookup("prompt")
	if promptFlag == nil || !promptFlag.Changed {
		return nil
	}

	prompt, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return fmt.Errorf("failed to get prompt flag: %w", err)
	}

	if prompt == "" {
		return nil
	}

	app.SetPromptManager(NewPromptManager(app.config.ConfigDir, prompt))

	if IsLikelyFilePath(prompt) && FileExists(prompt) {
		app.ui.Verbose("Using custom prompt file: %s\n", prompt)
	} else {
		app.ui.Verbose("Using custom prompt string\n")
	}

	return nil
}

// ValidateOpenAIRequirements validates OpenAI API key and model from command flags and config
func ValidateOpenAIRequirements(cmd *cobra.Command, config *Config) error {
	if err := ValidateOpenAIAPIKey(config.OpenAIAPIKey); err != nil {
		return err
	}

	modelFlag, _ := cmd.Flags().GetString("model")
	if modelFlag != "" {
		if err := ValidateModel(modelFlag); err != nil {
			return err
		}
		config.Model = modelFlag
	} else if err := ValidateModel(config.Model); err != nil {
		return fmt.Errorf("invalid model in config: %w", err)
	}

	return nil
}

package internal

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

// DefaultSystemPrompt describes the JSON document the model must return
const DefaultSystemPrompt = `You write concise, practical software tutorials from recorded sessions.
Answer with a single JSON object and nothing else, using exactly these keys:
{
  "title": string,
  "introduction": string,
  "steps": [{"index": number, "text": string, "video_clip": {"start": number, "end": number}}],
  "tips": [string],
  "examples": [string],
  "summary": string,
  "duration_estimate": string,
  "tags": [string]
}
Step indexes start at 1. video_clip values are seconds into the recording and
video_clip may be omitted when a step has no matching moment.`

// PromptData for template injection
type PromptData struct {
	Filename   string
	Duration   string
	Transcript string
}

// PromptManager handles loading and processing prompt templates
type PromptManager struct {
	promptFile   string
	promptString string
	configDir    string
}

// NewPromptManager creates a new prompt manager
func NewPromptManager(configDir, promptSetting string) *PromptManager {
	pm := &PromptManager{
		configDir: configDir,
	}

	if promptSetting != "" {
		if IsLikelyFilePath(promptSetting) && FileExists(promptSetting) {
			pm.promptFile = promptSetting
		} else {
			pm.promptString = promptSetting
		}
	}

	return pm
}

// CreatePrompt builds the user prompt for a transcript
func (pm *PromptManager) CreatePrompt(transcript Transcript) (string, error) {
	var tmplContent string

	switch {
	case pm.promptString != "":
		tmplContent = pm.promptString
	case pm.promptFile != "":
		content, err := os.ReadFile(pm.promptFile)
		if err != nil {
			return "", fmt.Errorf("reading prompt template: %w", err)
		}
		tmplContent = string(content)
	default:
		// prompt.txt in the config dir, falling back to the embedded copy
		content, err := os.ReadFile(filepath.Join(pm.configDir, "prompt.txt"))
		if err != nil {
			content, err = defaultFS.ReadFile("prompt.txt")
			if err != nil {
				return "", fmt.Errorf("reading prompt template: %w", err)
			}
		}
		tmplContent = string(content)
	}

	return pm.buildPromptFromTemplate(tmplContent, transcript)
}

// buildPromptFromTemplate builds the AI prompt from template content
func (pm *PromptManager) buildPromptFromTemplate(templateContent string, transcript Transcript) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateContent)
	if err != nil {
		return "", fmt.Errorf("parsing prompt template: %w", err)
	}

	data := PromptData{
		Filename:   transcript.Filename,
		Duration:   transcript.Duration().Round(time.Second).String(),
		Transcript: TranscriptLines(transcript),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}

	return buf.String(), nil
}

// IsLikelyFilePath uses heuristics to determine if a string is likely a file path
func IsLikelyFilePath(s string) bool {
	if strings.Contains(s, "/") || strings.Contains(s, "\\") {
		return true
	}

	if strings.Contains(s, ".txt") || strings.Contains(s, ".md") ||
		strings.Contains(s, ".template") || strings.Contains(s, ".tmpl") {
		return true
	}

	if len(s) > 200 {
		return false
	}

	return !strings.Contains(s, " ") && !strings.Contains(s, "\n")
}

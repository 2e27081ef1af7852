package internal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// tutorialDraft mirrors the JSON object requested from the model. Steps are
// kept raw because models sometimes return plain strings instead of objects.
type tutorialDraft struct {
	Title            string            `json:"title"`
	Introduction     string            `json:"introduction"`
	Steps            []json.RawMessage `json:"steps"`
	Tips             []string          `json:"tips"`
	Examples         []string          `json:"examples"`
	Summary          string            `json:"summary"`
	DurationEstimate string            `json:"duration_estimate"`
	Tags             []string          `json:"tags"`
}

type draftStep struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	VideoClip *struct {
		Start *float64 `json:"start"`
		End   *float64 `json:"end"`
	} `json:"video_clip"`
}

// DecodeTutorialDraft parses the model answer into a Tutorial without IDs
func DecodeTutorialDraft(raw string) (Tutorial, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return Tutorial{}, fmt.Errorf("%w: no JSON object in model response", ErrInvalidTutorial)
	}

	var draft tutorialDraft
	if err := json.Unmarshal([]byte(body), &draft); err != nil {
		return Tutorial{}, fmt.Errorf("%w: %v", ErrInvalidTutorial, err)
	}

	tutorial := Tutorial{
		Title:            strings.TrimSpace(draft.Title),
		Introduction:     strings.TrimSpace(draft.Introduction),
		Tips:             cleanStrings(draft.Tips),
		Examples:         cleanStrings(draft.Examples),
		Summary:          strings.TrimSpace(draft.Summary),
		DurationEstimate: strings.TrimSpace(draft.DurationEstimate),
		Tags:             cleanStrings(draft.Tags),
	}

	for i, rawStep := range draft.Steps {
		step, ok := normalizeStep(rawStep, i+1)
		if ok {
			tutorial.Steps = append(tutorial.Steps, step)
		}
	}

	if err := ValidateTutorial(tutorial); err != nil {
		return Tutorial{}, err
	}
	return tutorial, nil
}

// ValidateTutorial checks the fields a tutorial cannot be rendered without
func ValidateTutorial(t Tutorial) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTutorial)
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", ErrInvalidTutorial)
	}
	for _, s := range t.Steps {
		if strings.TrimSpace(s.Text) == "" {
			return fmt.Errorf("%w: step %d has no text", ErrInvalidTutorial, s.Index)
		}
	}
	return nil
}

// normalizeStep accepts either a bare string or a step object
func normalizeStep(raw json.RawMessage, fallbackIndex int) (Step, bool) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.TrimSpace(text)
		return Step{Index: fallbackIndex, Text: text}, text != ""
	}

	var ds draftStep
	if err := json.Unmarshal(raw, &ds); err != nil {
		return Step{}, false
	}

	step := Step{Index: ds.Index, Text: strings.TrimSpace(ds.Text)}
	if step.Index <= 0 {
		step.Index = fallbackIndex
	}
	if step.Text == "" {
		return Step{}, false
	}
	if ds.VideoClip != nil && ds.VideoClip.Start != nil && ds.VideoClip.End != nil {
		step.VideoClip = &VideoClip{Start: *ds.VideoClip.Start, End: *ds.VideoClip.End}
	}
	return step, true
}

// extractJSONObject strips code fences and prose around the first {...} block
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// mergeStepAssets copies cut clip URLs from stored steps into edited steps
// when the edited step keeps the same index and time range.
func mergeStepAssets(stored, edited []Step) []Step {
	byIndex := make(map[int]*VideoClip, len(stored))
	for _, s := range stored {
		if s.VideoClip != nil {
			byIndex[s.Index] = s.VideoClip
		}
	}

	merged := make([]Step, len(edited))
	for i, s := range edited {
		if s.Index <= 0 {
			s.Index = i + 1
		}
		s.Text = strings.TrimSpace(s.Text)
		if s.VideoClip != nil {
			clip := *s.VideoClip
			if prev, ok := byIndex[s.Index]; ok && prev.Start == clip.Start && prev.End == clip.End {
				clip.FileURL = prev.FileURL
				clip.Error = prev.Error
			} else {
				clip.FileURL = ""
				clip.Error = ""
			}
			s.VideoClip = &clip
		}
		merged[i] = s
	}
	return merged
}

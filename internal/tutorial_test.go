package internal

import (
	"errors"
	"testing"
)

func TestDecodeTutorialDraft(t *testing.T) {
	raw := "```json\n" + `{
		"title": " Deploying ",
		"introduction": "intro",
		"steps": [
			{"index": 1, "text": "Build it", "video_clip": {"start": 1.5, "end": 4}},
			"Push it",
			{"text": "Check it", "video_clip": {"start": 6}},
			{"index": 4, "text": "   "}
		],
		"tips": ["", "watch logs"],
		"summary": "done",
		"tags": ["ops"]
	}` + "\n```"

	tut, err := DecodeTutorialDraft(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if tut.Title != "Deploying" {
		t.Fatalf("expected trimmed title, got %q", tut.Title)
	}
	if len(tut.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(tut.Steps))
	}
	if tut.Steps[0].VideoClip == nil || tut.Steps[0].VideoClip.Start != 1.5 || tut.Steps[0].VideoClip.End != 4 {
		t.Fatalf("unexpected clip on step 1: %+v", tut.Steps[0].VideoClip)
	}
	if tut.Steps[1].Index != 2 || tut.Steps[1].Text != "Push it" {
		t.Fatalf("expected string step to get index 2, got %+v", tut.Steps[1])
	}
	if tut.Steps[2].VideoClip != nil {
		t.Fatalf("expected clip without end to be dropped")
	}
	if len(tut.Tips) != 1 || tut.Tips[0] != "watch logs" {
		t.Fatalf("expected empty tips removed, got %v", tut.Tips)
	}
}

func TestDecodeTutorialDraftErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no json", "Sorry, I cannot help with that."},
		{"bad json", `{"title": }`},
		{"no title", `{"steps": ["a"]}`},
		{"no steps", `{"title": "x", "steps": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTutorialDraft(tt.raw); !errors.Is(err, ErrInvalidTutorial) {
				t.Fatalf("expected ErrInvalidTutorial, got %v", err)
			}
		})
	}
}

func TestMergeStepAssets(t *testing.T) {
	stored := []Step{
		{Index: 1, Text: "a", VideoClip: &VideoClip{Start: 0, End: 2, FileURL: "/media/one.mp4"}},
		{Index: 2, Text: "b", VideoClip: &VideoClip{Start: 3, End: 5, FileURL: "/media/two.mp4"}},
	}
	edited := []Step{
		{Index: 1, Text: " a edited ", VideoClip: &VideoClip{Start: 0, End: 2, FileURL: "/evil.mp4"}},
		{Index: 2, Text: "b", VideoClip: &VideoClip{Start: 3, End: 6}},
		{Text: "new"},
	}

	merged := mergeStepAssets(stored, edited)

	if merged[0].Text != "a edited" || merged[0].VideoClip.FileURL != "/media/one.mp4" {
		t.Fatalf("expected unchanged range to keep stored url, got %+v", merged[0].VideoClip)
	}
	if merged[1].VideoClip.FileURL != "" {
		t.Fatalf("expected changed range to drop url, got %q", merged[1].VideoClip.FileURL)
	}
	if merged[2].Index != 3 {
		t.Fatalf("expected missing index to be positional, got %d", merged[2].Index)
	}
	if stored[0].VideoClip.FileURL != "/media/one.mp4" {
		t.Fatalf("stored steps must not be modified")
	}
}

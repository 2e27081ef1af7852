package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ParseTranscript decodes an uploaded transcript document.
//
// Both the batch speech-to-text layout (recognizedPhrases with nBest
// alternatives and tick offsets) and the flat layout (phrases with display
// text and millisecond offsets) are accepted.
func ParseTranscript(data []byte) (Transcript, error) {
	if !gjson.ValidBytes(data) {
		return Transcript{}, fmt.Errorf("%w: malformed JSON", ErrInvalidTranscript)
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Transcript{}, fmt.Errorf("%w: expected a JSON object", ErrInvalidTranscript)
	}

	phrasesResult := firstExisting(doc, "phrases", "recognizedPhrases", "recognized_phrases")
	if !phrasesResult.IsArray() {
		return Transcript{}, fmt.Errorf("%w: phrases array is required", ErrInvalidTranscript)
	}

	var phrases []Phrase
	for _, raw := range phrasesResult.Array() {
		phrase := Phrase{
			OffsetMilliseconds:   milliseconds(raw, "offsetMilliseconds", "offset_milliseconds", "offsetInTicks", "offset_in_ticks"),
			DurationMilliseconds: milliseconds(raw, "durationMilliseconds", "duration_milliseconds", "durationInTicks", "duration_in_ticks"),
			Display:              strings.TrimSpace(firstExisting(raw, "display", "text", "nBest.0.display", "nBest.0.lexical").String()),
			Speaker:              int(raw.Get("speaker").Int()),
		}
		if phrase.OffsetMilliseconds < 0 {
			phrase.OffsetMilliseconds = 0
		}
		phrases = append(phrases, phrase)
	}

	hasText := false
	for _, p := range phrases {
		if p.Display != "" {
			hasText = true
			break
		}
	}
	if !hasText {
		return Transcript{}, fmt.Errorf("%w: no phrase carries any text", ErrInvalidTranscript)
	}

	sort.SliceStable(phrases, func(i, j int) bool {
		return phrases[i].OffsetMilliseconds < phrases[j].OffsetMilliseconds
	})

	transcript := Transcript{Phrases: phrases}

	if ts := doc.Get("timestamp"); ts.Exists() {
		parsed, err := time.Parse(time.RFC3339Nano, ts.String())
		if err != nil {
			return Transcript{}, fmt.Errorf("%w: timestamp: %v", ErrInvalidTranscript, err)
		}
		transcript.Timestamp = parsed.UTC()
	}

	switch {
	case doc.Get("durationInTicks").Exists():
		transcript.DurationInTicks = doc.Get("durationInTicks").Int()
	case doc.Get("duration_in_ticks").Exists():
		transcript.DurationInTicks = doc.Get("duration_in_ticks").Int()
	case doc.Get("durationMilliseconds").Exists():
		transcript.DurationInTicks = doc.Get("durationMilliseconds").Int() * (TicksPerSecond / 1000)
	default:
		last := phrases[len(phrases)-1]
		transcript.DurationInTicks = (last.OffsetMilliseconds + last.DurationMilliseconds) * (TicksPerSecond / 1000)
	}
	if transcript.DurationInTicks < 0 {
		return Transcript{}, fmt.Errorf("%w: negative duration", ErrInvalidTranscript)
	}

	return transcript, nil
}

// Fingerprint returns the hex SHA-256 of the raw upload
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// TranscriptLines renders phrases prefixed with their offset in seconds,
// which is what lets the model align steps with the recording.
func TranscriptLines(t Transcript) string {
	var sb strings.Builder
	for _, p := range t.Phrases {
		if p.Display == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%.1fs] %s", p.Start(), p.Display)
	}
	return sb.String()
}

func firstExisting(r gjson.Result, paths ...string) gjson.Result {
	for _, path := range paths {
		if v := r.Get(path); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// milliseconds reads the first present key; keys ending in "Ticks"/"ticks"
// are converted from 100ns ticks.
func milliseconds(r gjson.Result, keys ...string) int64 {
	for _, key := range keys {
		v := r.Get(key)
		if !v.Exists() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(key), "ticks") {
			return v.Int() / (TicksPerSecond / 1000)
		}
		return v.Int()
	}
	return 0
}

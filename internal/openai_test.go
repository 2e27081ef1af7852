package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

func TestBuildChatParamsTemperature(t *testing.T) {
	tests := []struct {
		model    string
		wantTemp bool
	}{
		{"gpt-4o-mini", true},
		{"gpt-4.1", true},
		{"o4-mini", false},
		{"o3", false},
		{"omni-custom", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			params := buildChatParams(ChatRequest{
				Model:        tt.model,
				SystemPrompt: "system",
				UserPrompt:   "user",
				Temperature:  0.7,
				MaxTokens:    100,
			})
			body, err := json.Marshal(params)
			if err != nil {
				t.Fatalf("marshal params: %v", err)
			}
			got := gjson.GetBytes(body, "temperature")
			if got.Exists() != tt.wantTemp {
				t.Fatalf("temperature present = %v, want %v (%s)", got.Exists(), tt.wantTemp, body)
			}
			if tt.wantTemp && got.Float() != 0.7 {
				t.Fatalf("expected temperature 0.7, got %v", got.Float())
			}
			if gjson.GetBytes(body, "max_completion_tokens").Int() != 100 {
				t.Fatalf("expected max tokens in %s", body)
			}
		})
	}
}

func TestCompleteInitializesClientOnce(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":0,"model":"gpt-4o-mini",` +
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	ai := NewAIWithKey(&Config{Model: "gpt-4o-mini", OpenAIAPIKey: "test", OpenAIBaseURL: srv.URL + "/"})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content, err := ai.Complete(context.Background(), "prompt")
			if err == nil && content != `{"ok":true}` {
				t.Errorf("unexpected content %q", content)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("complete failed: %v", err)
		}
	}
	if calls != 8 {
		t.Fatalf("expected 8 requests, got %d", calls)
	}
}

func TestCompleteWithoutAPIKey(t *testing.T) {
	ai := NewAIWithKey(&Config{Model: "gpt-4o-mini"})
	for range 2 {
		if _, err := ai.Complete(context.Background(), "prompt"); err == nil {
			t.Fatalf("expected missing key error")
		}
	}
}

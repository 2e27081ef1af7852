package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// ChatRequest is a single system+user exchange expecting a JSON object back
type ChatRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int64
}

// OpenAIClientInterface defines the interface for OpenAI client operations
type OpenAIClientInterface interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (string, error)
}

// OpenAIClient wraps the official OpenAI Go SDK
type OpenAIClient struct {
	client *openai.Client
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client}
}

// CreateChatCompletion implements the chat completion method
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, buildChatParams(req))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// buildChatParams maps a request onto SDK params. Reasoning models only
// accept their default temperature, so none is sent for them.
func buildChatParams(req ChatRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}
	if !isReasoningModel(req.Model) {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}
	return params
}

// isReasoningModel reports whether model belongs to the o-series
func isReasoningModel(model string) bool {
	return len(model) > 1 && model[0] == 'o' && model[1] >= '0' && model[1] <= '9'
}

// AI handles OpenAI API interactions for tutorial generation
type AI struct {
	client       OpenAIClientInterface
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int64
	timeout      time.Duration
	apiKey       string
	baseURL      string
	clientOnce   sync.Once
	clientErr    error
}

// NewAI creates a new AI processor around an existing client
func NewAI(client OpenAIClientInterface, cfg *Config) *AI {
	ai := newAI(cfg)
	ai.client = client
	return ai
}

// NewAIWithKey creates a new AI processor with lazy client initialization
func NewAIWithKey(cfg *Config) *AI {
	return newAI(cfg)
}

func newAI(cfg *Config) *AI {
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &AI{
		model:        cfg.Model,
		systemPrompt: systemPrompt,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		timeout:      cfg.GenerateTimeout,
		apiKey:       cfg.OpenAIAPIKey,
		baseURL:      cfg.OpenAIBaseURL,
	}
}

// ensureClient initializes the OpenAI client if needed. The check and the
// assignment both run inside the Once so concurrent requests never race on
// ai.client.
func (ai *AI) ensureClient() error {
	ai.clientOnce.Do(func() {
		if ai.client != nil {
			return
		}
		if err := ValidateOpenAIAPIKey(ai.apiKey); err != nil {
			ai.clientErr = err
			return
		}
		ai.client = NewOpenAIClient(ai.apiKey, ai.baseURL)
	})
	return ai.clientErr
}

// Complete sends a prepared prompt and returns the raw JSON answer
func (ai *AI) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ai.ensureClient(); err != nil {
		return "", err
	}

	if ai.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ai.timeout)
		defer cancel()
	}

	content, err := ai.client.CreateChatCompletion(ctx, ChatRequest{
		Model:        ai.model,
		SystemPrompt: ai.systemPrompt,
		UserPrompt:   prompt,
		Temperature:  ai.temperature,
		MaxTokens:    ai.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}

	return content, nil
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "mistralai/mistral-7b-instruct"

	// Hard wall-clock timeout per attempt, distinct from the retry
	// backoff delays.
	attemptTimeout = 30 * time.Second
)

// OpenRouter calls the OpenRouter chat-completions endpoint. It is the
// default provider.
type OpenRouter struct {
	apiKey  string
	model   string
	baseURL string
	referer string
	http    *http.Client
}

type OpenRouterOption func(*OpenRouter)

func WithOpenRouterModel(model string) OpenRouterOption {
	return func(o *OpenRouter) {
		if model != "" {
			o.model = model
		}
	}
}

func WithOpenRouterBaseURL(url string) OpenRouterOption {
	return func(o *OpenRouter) {
		if url != "" {
			o.baseURL = url
		}
	}
}

func WithOpenRouterReferer(referer string) OpenRouterOption {
	return func(o *OpenRouter) { o.referer = referer }
}

func NewOpenRouter(apiKey string, opts ...OpenRouterOption) (*OpenRouter, error) {
	if apiKey == "" {
		return nil, errors.New("openrouter: api key is required")
	}

	o := &OpenRouter{
		apiKey:  apiKey,
		model:   defaultOpenRouterModel,
		baseURL: defaultOpenRouterBaseURL,
		http:    &http.Client{Timeout: attemptTimeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	Stream      bool      `json:"stream"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (o *OpenRouter) Complete(ctx context.Context, messages []Message) (string, string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   500,
		Temperature: 0.7,
		TopP:        0.9,
	})
	if err != nil {
		return "", "", fmt.Errorf("openrouter: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("openrouter: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if o.referer != "" {
		req.Header.Set("HTTP-Referer", o.referer)
	}
	req.Header.Set("X-Title", "Plant Monitoring AI Assistant")

	resp, err := o.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("openrouter: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", fmt.Errorf("openrouter: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", "", &APIError{Status: resp.StatusCode, Message: string(raw)}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", "", &APIError{Status: resp.StatusCode, Message: "unparseable completion: " + err.Error()}
	}
	if parsed.Error != nil {
		return "", "", &APIError{Status: resp.StatusCode, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", "", &APIError{Status: resp.StatusCode, Message: "empty completion"}
	}

	model := parsed.Model
	if model == "" {
		model = o.model
	}
	return parsed.Choices[0].Message.Content, model, nil
}

// Healthy probes the models listing endpoint without spending tokens.
func (o *OpenRouter) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: "models probe failed"}
	}
	return nil
}

func (o *OpenRouter) Close() error { return nil }

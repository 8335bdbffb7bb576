// Package llm wraps the remote completion endpoints behind a single
// Provider interface and adds the domain layer on top: scope filtering,
// prompt assembly, bounded retry with backoff, and response
// post-processing.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/greenmate/plantcare/internal/enhance"
	"github.com/greenmate/plantcare/internal/health"
	"github.com/greenmate/plantcare/internal/models"
	"github.com/greenmate/plantcare/internal/scope"
)

// Message is one chat turn sent to the completion endpoint.
type Message struct {
	Role    string `json:"role"` // system|user|assistant
	Content string `json:"content"`
}

// Completion is the processed result handed back to the orchestrator.
type Completion struct {
	Text         string
	Model        string
	Confidence   float64
	Filtered     bool
	FilterReason string
}

// Provider performs one raw completion call. Implementations classify
// remote failures via APIError so the retry policy can tell transient
// from permanent errors.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (text string, model string, err error)
	Healthy(ctx context.Context) error
	Close() error
}

// APIError carries the HTTP-equivalent status class of a remote
// failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error: status %d: %s", e.Status, e.Message)
}

// defaultConfidence is reported when the remote endpoint returns a
// usable completion; the API itself gives no confidence signal.
const defaultConfidence = 0.8

// Client drives a Provider with retry and reports every attempt
// outcome to the health registry.
type Client struct {
	provider Provider
	registry *health.Registry
	log      *logrus.Logger

	maxRetries int
	baseDelay  time.Duration
	sleep      func(time.Duration) // overridable in tests
}

func NewClient(provider Provider, registry *health.Registry, log *logrus.Logger) *Client {
	return &Client{
		provider:   provider,
		registry:   registry,
		log:        log,
		maxRetries: 3,
		baseDelay:  time.Second,
		sleep:      time.Sleep,
	}
}

// isRetryable reports whether a failed attempt is worth repeating:
// network-level failures, server errors, and rate limiting are; every
// other class fails immediately.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == 429
	}

	// No status at all means the request never reached the service.
	return true
}

// Generate classifies the message, assembles the prompt, invokes the
// provider with bounded retry, and post-processes the answer. Filtered
// messages never reach the remote endpoint.
func (c *Client) Generate(ctx context.Context, message string, pc *models.PlantContext) (*Completion, error) {
	decision := scope.Classify(message)
	if !decision.Valid {
		return &Completion{
			Text:         decision.Suggestion,
			Confidence:   1.0,
			Filtered:     true,
			FilterReason: decision.Reason,
		}, nil
	}

	messages := BuildMessages(message, pc)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Doubles each attempt: 1s, 2s, 4s by default.
			delay := c.baseDelay << (attempt - 1)
			c.log.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay.String(),
			}).Info("retrying inference call")
			c.sleep(delay)
		}

		text, model, err := c.provider.Complete(ctx, messages)
		if err == nil {
			c.registry.Success(health.DepInference)
			return &Completion{
				Text:       enhance.WithSuggestions(text, message),
				Model:      model,
				Confidence: defaultConfidence,
			}, nil
		}

		lastErr = err
		c.registry.Failure(health.DepInference, err)
		if !isRetryable(err) {
			c.log.WithError(err).Error("inference call failed with non-retryable error")
			return nil, err
		}
		c.log.WithError(err).WithField("attempt", attempt+1).Warn("inference call failed")
	}

	return nil, fmt.Errorf("inference failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// Healthy probes the underlying provider.
func (c *Client) Healthy(ctx context.Context) error {
	return c.provider.Healthy(ctx)
}

func (c *Client) Close() error { return c.provider.Close() }

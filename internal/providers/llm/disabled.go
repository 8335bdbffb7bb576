package llm

import "context"

// disabled stands in when no inference backend is configured. Every
// call fails with a service-unavailable class error, so the health
// registry gates the dependency off after a few requests and the
// degradation path takes over entirely.
type disabled struct{}

func NewDisabled() Provider { return disabled{} }

func (disabled) Complete(context.Context, []Message) (string, string, error) {
	return "", "", &APIError{Status: 503, Message: "no inference provider configured"}
}

func (disabled) Healthy(context.Context) error {
	return &APIError{Status: 503, Message: "no inference provider configured"}
}

func (disabled) Close() error { return nil }

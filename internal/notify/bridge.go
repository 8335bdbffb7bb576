// Package notify delivers live chat events (typing indicator, final
// answer) to subscribed clients over MQTT. Publishes are best-effort:
// a broker failure never fails the user-facing request.
package notify

import (
	"context"
	"errors"

	"github.com/greenmate/plantcare/internal/models"
)

// AnswerEvent is the payload published when an answer is ready.
type AnswerEvent struct {
	Response     string        `json:"response"`
	SessionID    string        `json:"session_id"`
	PlantContext *models.Plant `json:"plant_context"`
	Confidence   float64       `json:"confidence"`
	Fallback     bool          `json:"fallback"`
}

// TypingEvent is the payload published on the typing topic.
type TypingEvent struct {
	IsTyping bool `json:"is_typing"`
}

// Bridge is the capability the orchestrator depends on. Real and null
// implementations are interchangeable so the orchestration logic is
// identical with or without a configured broker.
type Bridge interface {
	PublishTyping(ctx context.Context, userID string, isTyping bool) error
	PublishAnswer(ctx context.Context, userID string, ev AnswerEvent) error
	HealthCheck(ctx context.Context) error
	Connected() bool
	Disconnect(ctx context.Context) error
}

// NullBridge satisfies Bridge with no-op publishes that still resolve
// successfully. It is substituted when no broker is configured.
// HealthCheck fails so the status report shows the broker as down
// rather than pretending one exists.
type NullBridge struct{}

func (NullBridge) PublishTyping(context.Context, string, bool) error { return nil }

func (NullBridge) PublishAnswer(context.Context, string, AnswerEvent) error { return nil }

func (NullBridge) HealthCheck(context.Context) error {
	return errors.New("mqtt broker not configured")
}

func (NullBridge) Connected() bool { return false }

func (NullBridge) Disconnect(context.Context) error { return nil }

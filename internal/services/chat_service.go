package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/greenmate/plantcare/internal/fallback"
	"github.com/greenmate/plantcare/internal/health"
	"github.com/greenmate/plantcare/internal/models"
	"github.com/greenmate/plantcare/internal/notify"
	"github.com/greenmate/plantcare/internal/providers/llm"
	pgrepo "github.com/greenmate/plantcare/internal/repositories/postgres"
	"github.com/greenmate/plantcare/internal/utils"
)

// Generator is the inference capability the orchestrator depends on;
// *llm.Client is the production implementation.
type Generator interface {
	Generate(ctx context.Context, message string, pc *models.PlantContext) (*llm.Completion, error)
	Healthy(ctx context.Context) error
}

// ChatRequest is the validated inbound message.
type ChatRequest struct {
	Message   string
	UserID    string
	PlantID   int
	Language  string
	SessionID string
}

// ChatResult is what every processed message resolves to. Processing
// only fails outright on malformed input; every other failure is
// absorbed into a degraded but usable result.
type ChatResult struct {
	Response     string
	SessionID    string
	ResponseTime time.Duration
	Confidence   float64
	Fallback     bool
	Filtered     bool
	FilterReason string
	Context      *models.PlantContext
}

// ServiceStatus is the report behind GET /chatbot/status.
type ServiceStatus struct {
	Status    string                   `json:"status"` // healthy|degraded
	Services  map[string]health.Record `json:"services"`
	Broker    bool                     `json:"broker_connected"`
	Timestamp time.Time                `json:"timestamp"`
}

// ValidationError marks malformed input; it is the only error class
// that surfaces to the HTTP layer as a 400.
type ValidationError struct {
	Field       string
	Requirement string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Requirement)
}

type ChatService interface {
	HandleMessage(ctx context.Context, req ChatRequest) (*ChatResult, error)
	History(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error)
	Sessions(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error)
	DeleteSession(ctx context.Context, sessionID string) (int64, error)
	Status(ctx context.Context) ServiceStatus
}

type chatService struct {
	gen      Generator
	contexts ContextService
	turns    pgrepo.TurnRepo
	bridge   notify.Bridge
	registry *health.Registry
	log      *logrus.Logger
}

func NewChatService(gen Generator, contexts ContextService, turns pgrepo.TurnRepo, bridge notify.Bridge, registry *health.Registry, log *logrus.Logger) ChatService {
	return &chatService{
		gen:      gen,
		contexts: contexts,
		turns:    turns,
		bridge:   bridge,
		registry: registry,
		log:      log,
	}
}

const sessionSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// newSessionID builds a grouping key with a time-based prefix and a
// random suffix: session_<unix-ms>_<9 lowercase alnum>.
func newSessionID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = sessionSuffixAlphabet[rand.IntN(len(sessionSuffixAlphabet))]
	}
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), suffix)
}

// attempt runs a best-effort side effect: the outcome is reported to
// the health registry and logged, and a failure never propagates.
func (s *chatService) attempt(dep, name string, fn func() error) {
	if err := fn(); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"dependency": dep,
			"effect":     name,
		}).Warn("best-effort effect failed")
		s.registry.Degraded(dep, err)
		return
	}
	s.registry.Success(dep)
}

// HandleMessage runs one message through the full pipeline: validate,
// health gate, typing-start, context gathering, inference with retry,
// degradation on failure, typing-stop, best-effort persistence and
// answer publication. Each request walks the sequence exactly once.
func (s *chatService) HandleMessage(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	started := time.Now()

	if strings.TrimSpace(req.Message) == "" {
		return nil, &ValidationError{Field: "message", Requirement: "Message cannot be empty"}
	}
	if req.UserID == "" {
		return nil, &ValidationError{Field: "userId", Requirement: "User ID is required"}
	}
	if req.PlantID <= 0 {
		req.PlantID = 1
	}
	if req.Language == "" {
		req.Language = "vi"
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = newSessionID()
	}

	log := s.log.WithFields(logrus.Fields{
		"user_id":    req.UserID,
		"plant_id":   req.PlantID,
		"session_id": sessionID,
	})
	log.WithField("message_len", len(req.Message)).Info("chatbot message received")

	// Known-dead inference path: answer from the degradation manager
	// without touching context, notifications, or persistence.
	if !s.registry.Available(health.DepInference) {
		log.Warn("inference unavailable, short-circuiting to fallback")
		fb := fallback.Respond(req.Message)
		return &ChatResult{
			Response:     fb.Text,
			SessionID:    sessionID,
			ResponseTime: time.Since(started),
			Confidence:   fb.Confidence,
			Fallback:     true,
			Filtered:     fb.Filtered,
			FilterReason: fb.FilterReason,
		}, nil
	}

	s.attempt(health.DepNotification, "typing-start", func() error {
		return s.bridge.PublishTyping(ctx, req.UserID, true)
	})

	pc := s.contexts.Gather(ctx, req.PlantID, sessionID)

	result := &ChatResult{SessionID: sessionID, Context: pc}
	comp, err := s.gen.Generate(ctx, req.Message, pc)
	if err != nil {
		// Attempt outcomes were already reported by the client; here we
		// only substitute the answer.
		log.WithError(err).Error("inference failed, using fallback response")
		fb := fallback.Respond(req.Message)
		result.Response = fb.Text
		result.Confidence = fb.Confidence
		result.Fallback = true
		result.Filtered = fb.Filtered
		result.FilterReason = fb.FilterReason
	} else {
		result.Response = comp.Text
		result.Confidence = comp.Confidence
		result.Filtered = comp.Filtered
		result.FilterReason = comp.FilterReason
	}

	s.attempt(health.DepNotification, "typing-stop", func() error {
		return s.bridge.PublishTyping(ctx, req.UserID, false)
	})

	s.attempt(health.DepPersistence, "append-turn", func() error {
		turn := &models.ConversationTurn{
			UserID:      req.UserID,
			PlantID:     req.PlantID,
			SessionID:   sessionID,
			UserMessage: req.Message,
			AIResponse:  result.Response,
			Language:    req.Language,
			Confidence:  result.Confidence,
			Fallback:    result.Fallback,
			CreatedAt:   time.Now().UTC(),
		}
		if pc != nil && !pc.Empty() {
			if raw, err := json.Marshal(pc); err == nil {
				turn.ContextData = datatypes.JSON(raw)
			}
		}
		return s.turns.Insert(ctx, turn)
	})

	s.attempt(health.DepNotification, "publish-answer", func() error {
		ev := notify.AnswerEvent{
			Response:   result.Response,
			SessionID:  sessionID,
			Confidence: result.Confidence,
			Fallback:   result.Fallback,
		}
		if pc != nil {
			ev.PlantContext = pc.PlantInfo
		}
		return s.bridge.PublishAnswer(ctx, req.UserID, ev)
	})

	result.ResponseTime = time.Since(started)
	log.WithFields(logrus.Fields{
		"response_time": result.ResponseTime.Milliseconds(),
		"confidence":    result.Confidence,
		"fallback":      result.Fallback,
		"filtered":      result.Filtered,
	}).Info("chatbot message completed")

	return result, nil
}

func (s *chatService) History(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error) {
	const op = "ChatService.History"

	if sessionID == "" {
		return nil, &ValidationError{Field: "sessionId", Requirement: "Session ID is required"}
	}
	if !s.registry.Available(health.DepPersistence) {
		return nil, utils.E(utils.CodeUnavailable, op, "conversation store is unavailable", nil)
	}

	rows, err := s.turns.ListBySession(ctx, sessionID, limit)
	if err != nil {
		s.registry.Failure(health.DepPersistence, err)
		return nil, utils.E(utils.CodeInternal, op, "failed to read chat history", err)
	}
	s.registry.Success(health.DepPersistence)
	return rows, nil
}

func (s *chatService) Sessions(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error) {
	const op = "ChatService.Sessions"

	if userID == "" {
		return nil, &ValidationError{Field: "userId", Requirement: "User ID is required"}
	}
	if !s.registry.Available(health.DepPersistence) {
		return nil, utils.E(utils.CodeUnavailable, op, "conversation store is unavailable", nil)
	}

	rows, err := s.turns.SessionsByUser(ctx, userID, limit)
	if err != nil {
		s.registry.Failure(health.DepPersistence, err)
		return nil, utils.E(utils.CodeInternal, op, "failed to read sessions", err)
	}
	s.registry.Success(health.DepPersistence)
	return rows, nil
}

func (s *chatService) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	const op = "ChatService.DeleteSession"

	if sessionID == "" {
		return 0, &ValidationError{Field: "sessionId", Requirement: "Session ID is required"}
	}
	if !s.registry.Available(health.DepPersistence) {
		return 0, utils.E(utils.CodeUnavailable, op, "conversation store is unavailable", nil)
	}

	count, err := s.turns.DeleteBySession(ctx, sessionID)
	if err != nil {
		s.registry.Failure(health.DepPersistence, err)
		return 0, utils.E(utils.CodeInternal, op, "failed to delete session", err)
	}
	s.registry.Success(health.DepPersistence)
	return count, nil
}

// Status reports overall health from the registry plus a live broker
// probe. Healthy means every tracked dependency is fully available.
func (s *chatService) Status(ctx context.Context) ServiceStatus {
	snapshot := s.registry.Snapshot()

	overall := "healthy"
	for _, rec := range snapshot {
		if rec.Status != health.StatusAvailable {
			overall = "degraded"
			break
		}
	}

	broker := s.bridge.HealthCheck(ctx) == nil
	if !broker && overall == "healthy" {
		overall = "degraded"
	}

	return ServiceStatus{
		Status:    overall,
		Services:  snapshot,
		Broker:    broker,
		Timestamp: time.Now().UTC(),
	}
}

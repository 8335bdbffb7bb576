package services

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmate/plantcare/internal/health"
	"github.com/greenmate/plantcare/internal/models"
	"github.com/greenmate/plantcare/internal/notify"
	"github.com/greenmate/plantcare/internal/providers/llm"
	"github.com/greenmate/plantcare/internal/scope"
	"github.com/greenmate/plantcare/internal/utils"
)

type fakeGenerator struct {
	comp  *llm.Completion
	err   error
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, message string, pc *models.PlantContext) (*llm.Completion, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.comp, nil
}

func (g *fakeGenerator) Healthy(context.Context) error { return nil }

type fakeContexts struct {
	pc    *models.PlantContext
	calls int
}

func (c *fakeContexts) Gather(ctx context.Context, plantID int, sessionID string) *models.PlantContext {
	c.calls++
	if c.pc != nil {
		return c.pc
	}
	return &models.PlantContext{}
}

type fakeTurns struct {
	inserted  []*models.ConversationTurn
	insertErr error

	rows    []models.ConversationTurn
	listErr error

	summaries []models.SessionSummary
	listUsers int

	deleted int64
	delErr  error
}

func (r *fakeTurns) Insert(ctx context.Context, turn *models.ConversationTurn) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, turn)
	return nil
}

func (r *fakeTurns) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error) {
	return r.rows, r.listErr
}

func (r *fakeTurns) SessionsByUser(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error) {
	r.listUsers++
	return r.summaries, r.listErr
}

func (r *fakeTurns) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	return r.deleted, r.delErr
}

type fakeBridge struct {
	typing    []bool
	answers   []notify.AnswerEvent
	typingErr error
	answerErr error
	healthErr error
}

func (b *fakeBridge) PublishTyping(ctx context.Context, userID string, isTyping bool) error {
	if b.typingErr != nil {
		return b.typingErr
	}
	b.typing = append(b.typing, isTyping)
	return nil
}

func (b *fakeBridge) PublishAnswer(ctx context.Context, userID string, ev notify.AnswerEvent) error {
	if b.answerErr != nil {
		return b.answerErr
	}
	b.answers = append(b.answers, ev)
	return nil
}

func (b *fakeBridge) HealthCheck(ctx context.Context) error { return b.healthErr }
func (b *fakeBridge) Connected() bool                       { return b.healthErr == nil }
func (b *fakeBridge) Disconnect(ctx context.Context) error  { return nil }

type chatFixture struct {
	svc      ChatService
	gen      *fakeGenerator
	contexts *fakeContexts
	turns    *fakeTurns
	bridge   *fakeBridge
	registry *health.Registry
}

func newChatFixture() *chatFixture {
	l := logrus.New()
	l.SetOutput(io.Discard)

	f := &chatFixture{
		gen:      &fakeGenerator{comp: &llm.Completion{Text: "Cây của bạn cần tưới mỗi sáng.", Confidence: 0.8}},
		contexts: &fakeContexts{},
		turns:    &fakeTurns{},
		bridge:   &fakeBridge{},
		registry: health.NewRegistry(l),
	}
	f.svc = NewChatService(f.gen, f.contexts, f.turns, f.bridge, f.registry, l)
	return f
}

var sessionIDPattern = regexp.MustCompile(`^session_\d+_[a-z0-9]{9}$`)

func TestHandleMessageHappyPath(t *testing.T) {
	f := newChatFixture()

	res, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		Message: "Cây của tôi bị vàng lá",
		UserID:  "user-1",
		PlantID: 7,
	})
	require.NoError(t, err)

	assert.Equal(t, "Cây của bạn cần tưới mỗi sáng.", res.Response)
	assert.Equal(t, 0.8, res.Confidence)
	assert.False(t, res.Fallback)
	assert.False(t, res.Filtered)
	assert.Regexp(t, sessionIDPattern, res.SessionID)

	assert.Equal(t, 1, f.gen.calls)
	assert.Equal(t, 1, f.contexts.calls)
	assert.Equal(t, []bool{true, false}, f.bridge.typing)

	require.Len(t, f.turns.inserted, 1)
	turn := f.turns.inserted[0]
	assert.Equal(t, "user-1", turn.UserID)
	assert.Equal(t, 7, turn.PlantID)
	assert.Equal(t, res.SessionID, turn.SessionID)
	assert.Equal(t, "vi", turn.Language)
	assert.Equal(t, 0.8, turn.Confidence)
	assert.False(t, turn.Fallback)

	require.Len(t, f.bridge.answers, 1)
	assert.Equal(t, res.Response, f.bridge.answers[0].Response)
	assert.Equal(t, res.SessionID, f.bridge.answers[0].SessionID)
}

func TestHandleMessageKeepsProvidedSessionID(t *testing.T) {
	f := newChatFixture()

	res, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		Message:   "tưới nước thế nào",
		UserID:    "user-1",
		SessionID: "session_123_abcdefghi",
	})
	require.NoError(t, err)
	assert.Equal(t, "session_123_abcdefghi", res.SessionID)
}

func TestHandleMessageDefaults(t *testing.T) {
	f := newChatFixture()

	_, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		Message: "tưới nước thế nào",
		UserID:  "user-1",
		PlantID: -4,
	})
	require.NoError(t, err)

	require.Len(t, f.turns.inserted, 1)
	assert.Equal(t, 1, f.turns.inserted[0].PlantID)
	assert.Equal(t, "vi", f.turns.inserted[0].Language)
}

func TestHandleMessageValidation(t *testing.T) {
	f := newChatFixture()

	cases := []struct {
		name  string
		req   ChatRequest
		field string
	}{
		{"empty message", ChatRequest{Message: "   ", UserID: "u"}, "message"},
		{"missing user", ChatRequest{Message: "cây bị bệnh"}, "userId"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.HandleMessage(context.Background(), tc.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
	assert.Zero(t, f.gen.calls)
}

func TestHandleMessageInferenceFailureFallsBack(t *testing.T) {
	f := newChatFixture()
	f.gen.err = errors.New("provider exploded")

	res, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		Message: "cây bị vàng lá phải làm sao",
		UserID:  "user-1",
	})
	require.NoError(t, err, "inference failure must not fail the request")

	assert.True(t, res.Fallback)
	assert.Zero(t, res.Confidence)
	assert.NotEmpty(t, res.Response)

	// Degraded answers still complete the side effects.
	assert.Equal(t, []bool{true, false}, f.bridge.typing)
	require.Len(t, f.turns.inserted, 1)
	assert.True(t, f.turns.inserted[0].Fallback)
	require.Len(t, f.bridge.answers, 1)
	assert.True(t, f.bridge.answers[0].Fallback)
}

func TestHandleMessageInferenceUnavailableShortCircuits(t *testing.T) {
	f := newChatFixture()
	err := errors.New("down")
	for i := 0; i < 3; i++ {
		f.registry.Failure(health.DepInference, err)
	}
	require.False(t, f.registry.Available(health.DepInference))

	res, herr := f.svc.HandleMessage(context.Background(), ChatRequest{
		Message: "cây bị vàng lá phải làm sao",
		UserID:  "user-1",
	})
	require.NoError(t, herr)

	assert.True(t, res.Fallback)
	assert.NotEmpty(t, res.Response)
	assert.Regexp(t, sessionIDPattern, res.SessionID)

	assert.Zero(t, f.gen.calls)
	assert.Zero(t, f.contexts.calls)
	assert.Empty(t, f.bridge.typing)
	assert.Empty(t, f.turns.inserted)
	assert.Empty(t, f.bridge.answers)
}

func TestHandleMessageUnavailableStillFilters(t *testing.T) {
	f := newChatFixture()
	for i := 0; i < 3; i++ {
		f.registry.Failure(health.DepInference, errors.New("down"))
	}

	res, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		Message: "Thời tiết hôm nay thế nào?",
		UserID:  "user-1",
	})
	require.NoError(t, err)

	assert.True(t, res.Filtered)
	assert.Equal(t, scope.ReasonForbiddenTopic, res.FilterReason)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestHandleMessagePersistenceFailureIsNonFatal(t *testing.T) {
	f := newChatFixture()
	f.turns.insertErr = errors.New("pg down")

	res, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		Message: "tưới nước thế nào",
		UserID:  "user-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Fallback)

	// A best-effort write failure degrades but never disables.
	assert.Equal(t, health.StatusDegraded, f.registry.Status(health.DepPersistence))
	assert.True(t, f.registry.Available(health.DepPersistence))
	require.Len(t, f.bridge.answers, 1)
}

func TestHandleMessageNotifyFailureIsNonFatal(t *testing.T) {
	f := newChatFixture()
	f.bridge.typingErr = errors.New("broker gone")
	f.bridge.answerErr = errors.New("broker gone")

	res, err := f.svc.HandleMessage(context.Background(), ChatRequest{
		Message: "tưới nước thế nào",
		UserID:  "user-1",
	})
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	require.Len(t, f.turns.inserted, 1)
	assert.Equal(t, health.StatusDegraded, f.registry.Status(health.DepNotification))
}

func TestHistoryGatesOnPersistence(t *testing.T) {
	f := newChatFixture()
	for i := 0; i < 3; i++ {
		f.registry.Failure(health.DepPersistence, errors.New("down"))
	}

	_, err := f.svc.History(context.Background(), "session_1_aaaaaaaaa", 20)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}

func TestHistoryValidatesSessionID(t *testing.T) {
	f := newChatFixture()

	_, err := f.svc.History(context.Background(), "", 20)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "sessionId", verr.Field)
}

func TestHistoryRepoFailureReportsAndWraps(t *testing.T) {
	f := newChatFixture()
	f.turns.listErr = errors.New("pg timeout")

	_, err := f.svc.History(context.Background(), "session_1_aaaaaaaaa", 20)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeInternal))
	assert.Equal(t, health.StatusDegraded, f.registry.Status(health.DepPersistence))
}

func TestSessionsAndDelete(t *testing.T) {
	f := newChatFixture()
	f.turns.summaries = []models.SessionSummary{{SessionID: "session_1_aaaaaaaaa", MessageCount: 4}}
	f.turns.deleted = 4

	sessions, err := f.svc.Sessions(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(4), sessions[0].MessageCount)

	count, err := f.svc.DeleteSession(context.Background(), "session_1_aaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	_, err = f.svc.Sessions(context.Background(), "", 10)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestStatusReflectsRegistryAndBroker(t *testing.T) {
	f := newChatFixture()

	st := f.svc.Status(context.Background())
	assert.Equal(t, "healthy", st.Status)
	assert.True(t, st.Broker)

	f.bridge.healthErr = errors.New("not connected")
	st = f.svc.Status(context.Background())
	assert.Equal(t, "degraded", st.Status)
	assert.False(t, st.Broker)

	f.bridge.healthErr = nil
	f.registry.Degraded(health.DepTelemetry, errors.New("mongo slow"))
	st = f.svc.Status(context.Background())
	assert.Equal(t, "degraded", st.Status)
}

func TestStatusWithoutBrokerReportsDisconnected(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)

	f := newChatFixture()
	svc := NewChatService(f.gen, f.contexts, f.turns, notify.NullBridge{}, f.registry, l)

	st := svc.Status(context.Background())
	assert.False(t, st.Broker, "no configured broker must not report as connected")
	assert.Equal(t, "degraded", st.Status)
}

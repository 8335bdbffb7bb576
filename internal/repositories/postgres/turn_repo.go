package postgres

import (
	"context"

	"github.com/greenmate/plantcare/internal/models"
	"gorm.io/gorm"
)

type TurnRepo interface {
	Insert(ctx context.Context, turn *models.ConversationTurn) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error)
	SessionsByUser(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
}

type turnRepo struct {
	db *gorm.DB
}

func NewTurnRepo(db *gorm.DB) TurnRepo {
	return &turnRepo{db: db}
}

func (r *turnRepo) Insert(ctx context.Context, turn *models.ConversationTurn) error {
	return r.db.WithContext(ctx).Create(turn).Error
}

// ListBySession returns turns most-recent first.
func (r *turnRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []models.ConversationTurn
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// SessionsByUser groups the user's turns into session summaries,
// most recently active first.
func (r *turnRepo) SessionsByUser(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []models.SessionSummary
	err := r.db.WithContext(ctx).
		Model(&models.ConversationTurn{}).
		Select("session_id, COUNT(*) AS message_count, MAX(created_at) AS last_message_at").
		Where("user_id = ?", userID).
		Group("session_id").
		Order("last_message_at DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *turnRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.ConversationTurn{})
	return res.RowsAffected, res.Error
}

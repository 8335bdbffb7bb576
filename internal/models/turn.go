package models

import (
	"time"

	"gorm.io/datatypes"
)

// ConversationTurn is one user message and the assistant answer produced
// for it. Rows are append-only; a session is just the grouping key.
type ConversationTurn struct {
	ID          uint           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID      string         `gorm:"column:user_id;type:text;index" json:"user_id"`
	PlantID     int            `gorm:"column:plant_id" json:"plant_id"`
	SessionID   string         `gorm:"column:session_id;type:text;index" json:"session_id"`
	UserMessage string         `gorm:"column:user_message;type:text" json:"user_message"`
	AIResponse  string         `gorm:"column:ai_response;type:text" json:"ai_response"`
	Language    string         `gorm:"column:language;type:text" json:"language"`
	Confidence  float64        `gorm:"column:confidence" json:"confidence"`
	Fallback    bool           `gorm:"column:fallback" json:"fallback"`
	ContextData datatypes.JSON `gorm:"column:context_data;type:jsonb" json:"context_data,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (ConversationTurn) TableName() string { return "chatbot_logs" }

// SessionSummary is the grouped view returned by "sessions by user".
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	MessageCount  int64     `json:"message_count"`
	LastMessageAt time.Time `json:"last_message_at"`
}

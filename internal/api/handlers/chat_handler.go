package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/greenmate/plantcare/internal/fallback"
	"github.com/greenmate/plantcare/internal/services"
)

type ChatHandler struct {
	svc services.ChatService
	log *logrus.Logger
}

func NewChatHandler(svc services.ChatService, log *logrus.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

type messageRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"userId"`
	PlantID   int    `json:"plantId"`
	Language  string `json:"language"`
	SessionID string `json:"sessionId"`
}

type contextPayload struct {
	PlantInfo       any `json:"plantInfo"`
	SensorData      any `json:"sensorData"`
	WateringHistory any `json:"wateringHistory"`
}

// Message handles POST /chatbot/message. Filtered and degraded answers
// are still 200s; only malformed input is a 400 and only an unexpected
// internal failure is a 500, and even the 500 carries usable fallback
// text.
func (h *ChatHandler) Message(c *gin.Context) {
	started := time.Now()

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeValidationError(c, &services.ValidationError{
			Field:       "body",
			Requirement: "Request body must be valid JSON",
		})
		return
	}

	result, err := h.svc.HandleMessage(c.Request.Context(), services.ChatRequest{
		Message:   req.Message,
		UserID:    req.UserID,
		PlantID:   req.PlantID,
		Language:  req.Language,
		SessionID: req.SessionID,
	})
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			writeValidationError(c, ve)
			return
		}

		// Anything else escaping the orchestrator is critical, but the
		// user still gets an answer.
		h.log.WithError(err).Error("critical error handling chatbot message")
		fb := fallback.Respond(req.Message)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":        false,
			"response":       fb.Text,
			"sessionId":      req.SessionID,
			"processingTime": time.Since(started).Milliseconds(),
			"error": gin.H{
				"code":      "AI_002",
				"message":   "Đã xảy ra lỗi khi xử lý tin nhắn",
				"retryable": true,
			},
		})
		return
	}

	ctxPayload := contextPayload{}
	if pc := result.Context; pc != nil {
		if pc.PlantInfo != nil {
			ctxPayload.PlantInfo = pc.PlantInfo
		}
		if pc.SensorData != nil {
			ctxPayload.SensorData = pc.SensorData
		}
		if len(pc.WateringHistory) > 0 {
			ctxPayload.WateringHistory = pc.WateringHistory
		}
	}

	resp := gin.H{
		"success":      true,
		"response":     result.Response,
		"sessionId":    result.SessionID,
		"responseTime": result.ResponseTime.Milliseconds(),
		"confidence":   result.Confidence,
		"fallback":     result.Fallback,
		"context":      ctxPayload,
	}
	if result.Filtered {
		resp["filtered"] = true
		resp["filterReason"] = result.FilterReason
	}

	c.JSON(http.StatusOK, resp)
}

// History handles GET /chatbot/history/:sessionId.
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Param("sessionId")
	limit := queryLimit(c, 20, 200)

	rows, err := h.svc.History(c.Request.Context(), sessionID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": sessionID,
		"count":     len(rows),
		"history":   rows,
	})
}

// Sessions handles GET /chatbot/sessions/:userId.
func (h *ChatHandler) Sessions(c *gin.Context) {
	userID := c.Param("userId")
	limit := queryLimit(c, 10, 100)

	rows, err := h.svc.Sessions(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"userId":   userID,
		"count":    len(rows),
		"sessions": rows,
	})
}

// DeleteSession handles DELETE /chatbot/session/:sessionId.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("sessionId")

	count, err := h.svc.DeleteSession(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"sessionId":    sessionID,
		"deletedCount": count,
		"message":      fmt.Sprintf("Deleted %d messages from session", count),
	})
}

// Status handles GET /chatbot/status.
func (h *ChatHandler) Status(c *gin.Context) {
	st := h.svc.Status(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"status":    st.Status,
		"services":  st.Services,
		"broker":    st.Broker,
		"timestamp": st.Timestamp,
	})
}

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/greenmate/plantcare/internal/api/handlers"
)

type Deps struct {
	Chat *handlers.ChatHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	chat := r.Group("/chatbot")

	chat.POST("/message", d.Chat.Message)
	chat.GET("/history/:sessionId", d.Chat.History)
	chat.GET("/sessions/:userId", d.Chat.Sessions)
	chat.DELETE("/session/:sessionId", d.Chat.DeleteSession)
	chat.GET("/status", d.Chat.Status)
}

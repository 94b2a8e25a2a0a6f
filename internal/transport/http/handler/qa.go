package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/transport/http/response"
)

type QAHandler struct {
	qa *app.QAService
}

type QueryRequest struct {
	Query   string        `json:"query" binding:"required,max=8000"`
	History []HistoryTurn `json:"history" binding:"max=50,dive"`
}

type HistoryTurn struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content"`
}

func NewQAHandler(qa *app.QAService) *QAHandler {
	return &QAHandler{qa: qa}
}

// Query answers a stateless question; the caller may pass prior turns for continuity.
func (h *QAHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	history := make([]ai.ChatMessage, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, ai.ChatMessage{Role: turn.Role, Content: turn.Content})
	}

	answer, err := h.qa.Ask(c.Request.Context(), app.AskInput{Query: req.Query, History: history})
	if err != nil {
		writeServiceError(c, err, "query failed")
		return
	}

	response.OK(c, answer)
}

package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

type askResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type turnResponse struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

type historyResponse struct {
	Turns []turnResponse `json:"turns"`
}

// Ask godoc
// @Summary Ask a question about the session's documents
// @Tags chat
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body askRequest true "Question"
// @Success 200 {object} askResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/chat [post]
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	turn, err := h.chatService.Ask(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, askResponse{
		Question: turn.Question,
		Answer:   turn.Answer,
	})
}

// GetHistory godoc
// @Summary Get the session's conversation history
// @Tags chat
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} historyResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	turns, err := h.chatService.History(c.Param("id"))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	resp := historyResponse{Turns: make([]turnResponse, 0, len(turns))}
	for _, t := range turns {
		resp.Turns = append(resp.Turns, turnResponse{
			Question:  t.Question,
			Answer:    t.Answer,
			CreatedAt: t.CreatedAt,
		})
	}

	sendJSON(c, http.StatusOK, resp)
}

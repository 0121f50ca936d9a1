package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const greeting = "Hello! Ask me anything about your documents."

// CreateSession godoc
// @Summary Create a new chat session
// @Tags sessions
// @Produce json
// @Success 201 {object} map[string]string
// @Router /sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	session := h.chatService.CreateSession()
	sendJSON(c, http.StatusCreated, gin.H{
		"id":       session.ID,
		"state":    session.State(),
		"greeting": greeting,
	})
}

type setCredentialRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// SetCredential godoc
// @Summary Store the API credential for a session
// @Tags sessions
// @Accept json
// @Param id path string true "Session ID"
// @Param body body setCredentialRequest true "Credential"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/credential [put]
func (h *Handler) SetCredential(c *gin.Context) {
	var req setCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("credential is required: %w", err))
		return
	}

	if err := h.chatService.SetCredential(c.Param("id"), req.Credential); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteSession godoc
// @Summary Destroy a session and its index
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.chatService.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	c.Status(http.StatusNoContent)
}

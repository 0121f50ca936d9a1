package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CheckHealth godoc
// @Summary Report service health and LLM backend reachability
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) CheckHealth(c *gin.Context) {
	status := http.StatusOK
	llmStatus := "ok"
	if _, err := h.llmClient.Models(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		llmStatus = err.Error()
	}

	body := gin.H{
		"llm":      llmStatus,
		"sessions": h.chatService.SessionCount(),
	}
	if h.indexPinger != nil {
		indexStatus := "ok"
		if err := h.indexPinger.Ping(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			indexStatus = err.Error()
		}
		body["index"] = indexStatus
	}
	body["status"] = http.StatusText(status)

	c.JSON(status, body)
}

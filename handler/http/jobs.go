package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/src/infrastructure/job"
)

type enqueueReindexRequest struct {
	DocumentID int64 `json:"document_id" binding:"required"`
}

// EnqueueReindex godoc
// @Summary Enqueue a background re-index of an archived document
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body enqueueReindexRequest true "Document to re-index"
// @Success 202 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /jobs/reindex [post]
func (h *Handler) EnqueueReindex(c *gin.Context) {
	var req enqueueReindexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("document_id is required: %w", err))
		return
	}

	payload, err := json.Marshal(job.ReindexPayload{DocumentID: req.DocumentID})
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	queued, err := h.jobService.EnqueueJob(c.Request.Context(), job.TaskTypeReindex, payload)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusAccepted, gin.H{
		"job_id": queued.ID,
		"status": queued.Status,
	})
}

package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/src/core/chat"
	"docchat/src/infrastructure/integrations/ollama"
	"docchat/src/infrastructure/job"
)

// IndexPinger reports reachability of an external index backend.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	chatService *chat.Service
	llmClient   *ollama.Client
	jobService  *job.JobService // nil unless archiving is enabled
	indexPinger IndexPinger     // nil for the in-memory backend
}

func NewHandler(chatService *chat.Service, llmClient *ollama.Client, jobService *job.JobService, indexPinger IndexPinger) *Handler {
	return &Handler{
		chatService: chatService,
		llmClient:   llmClient,
		jobService:  jobService,
		indexPinger: indexPinger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")

	// Session routes
	api.POST("/sessions", h.CreateSession)
	api.PUT("/sessions/:id/credential", h.SetCredential)
	api.DELETE("/sessions/:id", h.DeleteSession)

	// Document routes
	api.POST("/sessions/:id/documents", h.UploadDocuments)

	// Chat routes
	api.POST("/sessions/:id/chat", h.Ask)
	api.GET("/sessions/:id/history", h.GetHistory)

	// System routes
	api.GET("/health", h.CheckHealth)

	// Job routes
	if h.jobService != nil {
		api.POST("/jobs/reindex", h.EnqueueReindex)
	}
}

// Common error response structure
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sendError(c *gin.Context, status int, err error) {
	var code string
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		code = "SESSION_NOT_FOUND"
		status = http.StatusNotFound
	case errors.Is(err, chat.ErrMissingCredential):
		code = "MISSING_CREDENTIAL"
		status = http.StatusBadRequest
	case errors.Is(err, chat.ErrAwaitingDocuments):
		code = "AWAITING_DOCUMENTS"
		status = http.StatusConflict
	case errors.Is(err, chat.ErrNoContentIndexed):
		code = "NO_CONTENT_INDEXED"
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ollama.ErrUnauthorized):
		code = "UNAUTHORIZED"
		status = http.StatusUnauthorized
	case errors.Is(err, ollama.ErrRateLimited):
		code = "RATE_LIMITED"
		status = http.StatusTooManyRequests
	default:
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code = "INTERNAL_ERROR"
		if status == http.StatusBadRequest {
			code = "INVALID_REQUEST"
		}
	}

	c.JSON(status, ErrorResponse{
		Code:    code,
		Message: err.Error(),
	})
}

func sendJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat/src/core/chat"
)

// UploadDocuments godoc
// @Summary Upload documents and build the session index
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param files formData file true "Documents (repeatable)"
// @Success 200 {object} chat.UploadResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /sessions/{id}/documents [post]
func (h *Handler) UploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		sendError(c, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		sendError(c, http.StatusBadRequest, fmt.Errorf("no files uploaded"))
		return
	}

	files := make([]chat.UploadFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			sendError(c, http.StatusBadRequest, fmt.Errorf("failed to open upload %s: %w", header.Filename, err))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			sendError(c, http.StatusBadRequest, fmt.Errorf("failed to read upload %s: %w", header.Filename, err))
			return
		}
		files = append(files, chat.UploadFile{
			Filename: header.Filename,
			Content:  content,
		})
	}

	result, err := h.chatService.UploadDocuments(c.Request.Context(), c.Param("id"), files)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, result)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/k-kitchen/internal/domain"
	"github.com/tbourn/k-kitchen/internal/services"
)

// AnalyzeRequest carries a base64 photo, optionally as a data URI.
type AnalyzeRequest struct {
	Image string `json:"image" binding:"required"`
}

// AnalyzeResponse lists the tags found on the photo.
type AnalyzeResponse struct {
	Tags []domain.Tag `json:"tags"`
}

// AnalyzePhoto handles POST /analyze.
func (h *Handlers) AnalyzePhoto(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image required")
		return
	}
	if h.analyze == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeAnalyzeUnavailable, "image analysis is not configured")
		return
	}

	tags, err := h.analyze.Analyze(c.Request.Context(), req.Image)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrEmptyImageInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image required")
		return
	case errors.Is(err, services.ErrAnalyzeUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeAnalyzeUnavailable, "image analysis is not configured")
		return
	default:
		fail(c, http.StatusBadGateway, ErrCodeAnalyzeFailed, err.Error())
		return
	}
	if tags == nil {
		tags = []domain.Tag{}
	}
	ok(c, http.StatusOK, AnalyzeResponse{Tags: tags})
}

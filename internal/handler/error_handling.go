package handler

import (
	"errors"
	"net/http"

	"story-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const payloadErrorText = "Payload Error"

// generateOutcome classifies a generate failure for logs and metrics.
func generateOutcome(err error) string {
	switch {
	case errors.Is(err, models.ErrMissingField),
		errors.Is(err, models.ErrMissingTemplateVariable),
		errors.Is(err, models.ErrMalformedTemplate):
		return "bad_payload"
	case errors.Is(err, models.ErrConfigNotFound),
		errors.Is(err, models.ErrPromptNotFound),
		errors.Is(err, models.ErrSecretNotFound),
		errors.Is(err, models.ErrInvalidDocument),
		errors.Is(err, models.ErrUnknownProvider):
		return "bad_config"
	case errors.Is(err, models.ErrAIGenerationFailed):
		return "provider_error"
	default:
		return "internal_error"
	}
}

// handleGenerateError answers a failed generation with 500 and the error
// text as a JSON string.
func (h *StoryHandler) handleGenerateError(c *gin.Context, mode string, err error) {
	outcome := generateOutcome(err)
	generateRequestsTotal.WithLabelValues(mode, outcome).Inc()

	log := h.logger.With(zap.String("mode", mode), zap.String("outcome", outcome), zap.Error(err))
	if outcome == "bad_payload" {
		log.Warn("Generate request rejected")
	} else {
		log.Error("Generate request failed")
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, err.Error())
}

// handleStoryError answers save/delete failures. Validation failures get the
// plain-text payload error; anything else is a storage failure.
func (h *StoryHandler) handleStoryError(c *gin.Context, operation string, err error) {
	if errors.Is(err, models.ErrInvalidPayload) {
		storyOperationsTotal.WithLabelValues(operation, "invalid").Inc()
		h.logger.Warn("Invalid story payload", zap.String("operation", operation), zap.Error(err))
		c.String(http.StatusBadRequest, payloadErrorText)
		c.Abort()
		return
	}

	storyOperationsTotal.WithLabelValues(operation, "error").Inc()
	h.logger.Error("Story operation failed", zap.String("operation", operation), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
}

// handleDocumentError answers a failed read of a catalog or reference document.
func (h *StoryHandler) handleDocumentError(c *gin.Context, document string, err error) {
	h.logger.Error("Failed to read document", zap.String("document", document), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
}

package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/trendscope/internal/logging"
	"github.com/soltixdb/trendscope/internal/models"
	"github.com/soltixdb/trendscope/internal/services"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger          *logging.Logger
	analysisService *services.AnalysisService
	startedAt       time.Time
}

// New creates a new handler instance
func New(logger *logging.Logger, analysisService *services.AnalysisService) *Handler {
	return &Handler{
		logger:          logger,
		analysisService: analysisService,
		startedAt:       time.Now(),
	}
}

// statusForCode maps service error codes to HTTP statuses
func statusForCode(code string) int {
	switch code {
	case services.CodeInvalidRequest, services.CodeInvalidMethod:
		return fiber.StatusBadRequest
	case services.CodeInvalidParams, services.CodeMisalignedSeries, services.CodeTrendFailed:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as an ErrorResponse
func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		return c.Status(statusForCode(svcErr.Code)).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    svcErr.Code,
				Message: svcErr.Message,
				Path:    c.Path(),
				Details: svcErr.Details,
			},
		})
	}

	h.logger.Error("Unhandled analysis error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    services.CodeAnalysisFailed,
			Message: err.Error(),
			Path:    c.Path(),
		},
	})
}

// invalidJSON reports a body that could not be decoded
func invalidJSON(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INVALID_JSON",
			Message: "Failed to parse JSON body",
			Path:    c.Path(),
			Details: map[string]interface{}{"error": err.Error()},
		},
	})
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/trendscope/internal/models"
	"github.com/soltixdb/trendscope/internal/utils"
)

// Health reports liveness together with the detectors this build can run
func (h *Handler) Health(c *fiber.Ctx) error {
	now := time.Now()
	return c.JSON(models.HealthResponse{
		Status:        "healthy",
		Timestamp:     now.Format(time.RFC3339),
		Version:       utils.Version,
		UptimeSeconds: int64(now.Sub(h.startedAt).Seconds()),
		Detectors:     h.analysisService.Detectors(),
	})
}

// NotFound answers every unmatched route
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
			Details: map[string]interface{}{"method": c.Method()},
		},
	})
}

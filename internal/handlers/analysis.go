package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soltixdb/trendscope/internal/models"
)

// Analyze runs every detector and the trend fit over the request series
// POST /v1/analyze
func (h *Handler) Analyze(c *fiber.Ctx) error {
	var req models.AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}

	resp, err := h.analysisService.Execute(c.UserContext(), &req)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(resp)
}

// Detect runs a single detector over one series
// POST /v1/detect/:method
func (h *Handler) Detect(c *fiber.Ctx) error {
	var req models.DetectRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}

	resp, err := h.analysisService.Detect(c.UserContext(), c.Params("method"), &req)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(resp)
}

// Trend fits a polynomial trend to one series
// POST /v1/trend
func (h *Handler) Trend(c *fiber.Ctx) error {
	var req models.TrendRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c, err)
	}

	resp, err := h.analysisService.Trend(c.UserContext(), &req)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(resp)
}

// Detectors lists the registered detectors
// GET /v1/detectors
func (h *Handler) Detectors(c *fiber.Ctx) error {
	return c.JSON(models.DetectorsResponse{Detectors: h.analysisService.Detectors()})
}

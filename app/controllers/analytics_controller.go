package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/toolpress/toolpress/internal/pkg/analytics"
	"github.com/toolpress/toolpress/internal/pkg/apperr"
)

// AnalyticsController exposes the daily rollups and derived reports.
type AnalyticsController struct {
	svc *analytics.Service
}

func NewAnalyticsController(svc *analytics.Service) *AnalyticsController {
	return &AnalyticsController{svc: svc}
}

type rollupRequest struct {
	Date string `json:"date"`
}

// HandleRollup handles POST /api/v1/analytics/rollup. Without a date it
// rolls up today; a date that is already rolled up returns the stored row.
func (ctrl *AnalyticsController) HandleRollup(c *fiber.Ctx) error {
	var req rollupRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, apperr.Validation("Invalid request body"))
		}
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return respondError(c, apperr.Validation("Date must be formatted YYYY-MM-DD"))
		}
		date = parsed
	}

	rec, created, err := ctrl.svc.RecordDailyMetrics(date)
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(rec)
}

// HandleMetrics handles GET /api/v1/analytics/metrics?start=...&end=...
func (ctrl *AnalyticsController) HandleMetrics(c *fiber.Ctx) error {
	end := time.Now().UTC()
	start := end.Add(-30 * 24 * time.Hour)

	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return respondError(c, apperr.Validation("start must be formatted YYYY-MM-DD"))
		}
		start = parsed
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return respondError(c, apperr.Validation("end must be formatted YYYY-MM-DD"))
		}
		end = parsed
	}
	if end.Before(start) {
		return respondError(c, apperr.Validation("end must not be before start"))
	}

	recs, err := ctrl.svc.MetricsRange(start, end)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"metrics": recs})
}

// HandleProjection handles GET /api/v1/analytics/projection
func (ctrl *AnalyticsController) HandleProjection(c *fiber.Ctx) error {
	proj, err := ctrl.svc.RevenueProjection()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(proj)
}

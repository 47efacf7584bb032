package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/toolpress/toolpress/internal/pkg/affiliate"
)

// AffiliateController exposes click tracking and conversion recording.
type AffiliateController struct {
	svc *affiliate.Service
}

func NewAffiliateController(svc *affiliate.Service) *AffiliateController {
	return &AffiliateController{svc: svc}
}

type trackClickRequest struct {
	PostID      uint   `json:"post_id" validate:"required"`
	ToolName    string `json:"tool_name" validate:"required,max=150"`
	Network     string `json:"network" validate:"required,max=50"`
	AffiliateID string `json:"affiliate_id" validate:"max=191"`
	Referrer    string `json:"referrer" validate:"max=500"`
	UTMSource   string `json:"utm_source" validate:"max=100"`
	UTMMedium   string `json:"utm_medium" validate:"max=100"`
	UTMCampaign string `json:"utm_campaign" validate:"max=100"`
}

// HandleTrackClick handles POST /api/v1/affiliate/clicks
func (ctrl *AffiliateController) HandleTrackClick(c *fiber.Ctx) error {
	var req trackClickRequest
	if err := parseAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	click, created, err := ctrl.svc.TrackClick(affiliate.TrackClickParams{
		PostID:      req.PostID,
		ToolName:    req.ToolName,
		Network:     req.Network,
		AffiliateID: req.AffiliateID,
		IP:          c.IP(),
		UserAgent:   c.Get(fiber.HeaderUserAgent),
		Referrer:    req.Referrer,
		UTMSource:   req.UTMSource,
		UTMMedium:   req.UTMMedium,
		UTMCampaign: req.UTMCampaign,
	})
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(click)
}

type convertClickRequest struct {
	Value float64 `json:"value" validate:"gte=0"`
}

// HandleConvert handles POST /api/v1/affiliate/clicks/:id/convert
func (ctrl *AffiliateController) HandleConvert(c *fiber.Ctx) error {
	clickID := c.Params("id")

	var req convertClickRequest
	if err := parseAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	click, err := ctrl.svc.RecordConversion(clickID, req.Value)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(click)
}

// HandleStats handles GET /api/v1/affiliate/stats/:userId
func (ctrl *AffiliateController) HandleStats(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("userId")
	if err != nil || userID <= 0 {
		return respondError(c, errInvalidID)
	}

	start := parseDateQuery(c, "start")
	end := parseDateQuery(c, "end")

	stats, err := ctrl.svc.StatsForUser(uint(userID), start, end)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// HandleTopTools handles GET /api/v1/affiliate/top-tools/:userId
func (ctrl *AffiliateController) HandleTopTools(c *fiber.Ctx) error {
	userID, err := c.ParamsInt("userId")
	if err != nil || userID <= 0 {
		return respondError(c, errInvalidID)
	}

	tools, err := ctrl.svc.TopTools(uint(userID), c.QueryInt("limit", 10))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tools": tools})
}

func parseDateQuery(c *fiber.Ctx, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}

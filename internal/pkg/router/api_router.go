package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
	ctrls Controllers
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		// Webhook bursts from payment providers must not be rate limited
		// into redelivery loops.
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/v1/webhooks/stripe" || c.Path() == "/api/v1/webhooks/paddle"
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")

	v1.Post("/users", h.ctrls.User.HandleRegister)
	v1.Get("/users/:id", h.ctrls.User.HandleGet)
	v1.Get("/users/:id/subscriptions", h.ctrls.Subscription.HandleListByUser)

	v1.Post("/subscriptions", h.ctrls.Subscription.HandleCreate)
	v1.Get("/subscriptions/stats/plans", h.ctrls.Subscription.HandlePlanCounts)
	v1.Get("/subscriptions/:id", h.ctrls.Subscription.HandleGet)
	v1.Patch("/subscriptions/:id", h.ctrls.Subscription.HandleChangePlan)
	v1.Delete("/subscriptions/:id", h.ctrls.Subscription.HandleCancel)

	v1.Post("/webhooks/:provider", h.ctrls.Subscription.HandleWebhook)

	v1.Post("/affiliate/clicks", h.ctrls.Affiliate.HandleTrackClick)
	v1.Post("/affiliate/clicks/:id/convert", h.ctrls.Affiliate.HandleConvert)
	v1.Get("/affiliate/stats/:userId", h.ctrls.Affiliate.HandleStats)
	v1.Get("/affiliate/top-tools/:userId", h.ctrls.Affiliate.HandleTopTools)

	v1.Post("/analytics/rollup", h.ctrls.Analytics.HandleRollup)
	v1.Get("/analytics/metrics", h.ctrls.Analytics.HandleMetrics)
	v1.Get("/analytics/projection", h.ctrls.Analytics.HandleProjection)
}

func NewApiRouter(ctrls Controllers) *ApiRouter {
	return &ApiRouter{ctrls: ctrls}
}

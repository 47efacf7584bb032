package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/toolpress/toolpress/internal/pkg/subscription"
)

// SubscriptionController exposes the subscription lifecycle over HTTP.
type SubscriptionController struct {
	svc *subscription.Service
}

func NewSubscriptionController(svc *subscription.Service) *SubscriptionController {
	return &SubscriptionController{svc: svc}
}

type createSubscriptionRequest struct {
	UserID          uint   `json:"user_id" validate:"required"`
	Plan            string `json:"plan" validate:"required"`
	Provider        string `json:"provider" validate:"required,oneof=stripe paddle"`
	PaymentMethodID string `json:"payment_method_id"`
	Country         string `json:"country"`
}

// HandleCreate handles POST /api/v1/subscriptions
func (ctrl *SubscriptionController) HandleCreate(c *fiber.Ctx) error {
	var req createSubscriptionRequest
	if err := parseAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	sub, err := ctrl.svc.Create(c.Context(), subscription.CreateParams{
		UserID:           req.UserID,
		Plan:             req.Plan,
		Provider:         req.Provider,
		PaymentMethodRef: req.PaymentMethodID,
		Country:          req.Country,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// HandleGet handles GET /api/v1/subscriptions/:id
func (ctrl *SubscriptionController) HandleGet(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondError(c, errInvalidID)
	}

	sub, err := ctrl.svc.GetByID(uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

type changePlanRequest struct {
	Plan string `json:"plan" validate:"required"`
}

// HandleChangePlan handles PATCH /api/v1/subscriptions/:id
func (ctrl *SubscriptionController) HandleChangePlan(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondError(c, errInvalidID)
	}

	var req changePlanRequest
	if err := parseAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	sub, err := ctrl.svc.ChangePlan(c.Context(), uint(id), req.Plan)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

// HandleCancel handles DELETE /api/v1/subscriptions/:id
func (ctrl *SubscriptionController) HandleCancel(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondError(c, errInvalidID)
	}

	sub, err := ctrl.svc.Cancel(c.Context(), uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sub)
}

// HandleListByUser handles GET /api/v1/users/:id/subscriptions
func (ctrl *SubscriptionController) HandleListByUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondError(c, errInvalidID)
	}

	subs, err := ctrl.svc.ListByUser(uint(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"subscriptions": subs})
}

// HandlePlanCounts handles GET /api/v1/subscriptions/stats/plans
func (ctrl *SubscriptionController) HandlePlanCounts(c *fiber.Ctx) error {
	counts, err := ctrl.svc.ActiveCountsByPlan()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"plans": counts})
}

// HandleWebhook handles POST /api/v1/webhooks/:provider. A non-2xx response
// tells the provider to redeliver, so only reconcile failures return errors;
// unknown subscriptions and unhandled event types acknowledge with 200.
func (ctrl *SubscriptionController) HandleWebhook(c *fiber.Ctx) error {
	provider := c.Params("provider")

	if err := ctrl.svc.HandleWebhook(provider, c.Body()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"received": true})
}

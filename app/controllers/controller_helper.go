package controllers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/toolpress/toolpress/internal/pkg/apperr"
	"github.com/toolpress/toolpress/internal/pkg/payment"
)

var validate = validator.New()

var errInvalidID = apperr.Validation("Invalid id")

// parseAndValidate decodes the JSON body into dest and runs struct
// validation on it.
func parseAndValidate(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return apperr.Validation("Invalid request body")
	}
	if err := validate.Struct(dest); err != nil {
		return apperr.Validation(err.Error())
	}
	return nil
}

// respondError maps service errors to JSON error responses. Provider
// failures surface as 502 with a stable code; anything without a known code
// collapses to SERVER_ERROR so internals never leak.
func respondError(c *fiber.Ctx, err error) error {
	var pe *payment.ProviderError
	if errors.As(err, &pe) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   apperr.CodeProvider,
			"message": pe.Message,
		})
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		return c.Status(ae.Status).JSON(fiber.Map{
			"error":   ae.Code,
			"message": ae.Message,
		})
	}

	log.Printf("[API] unexpected error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   apperr.CodeServer,
		"message": "Internal server error",
	})
}

package handlers

import (
	"fmt"

	"taskpool/internal/apperrors"
	"taskpool/internal/middleware"
	"taskpool/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// respondError maps a service error to the single HTTP status and
// machine-readable code the API contract promises. Internal detail never
// reaches the caller.
func respondError(c *fiber.Ctx, err error) error {
	return c.Status(apperrors.Status(err)).JSON(fiber.Map{
		"error": apperrors.Message(err),
		"code":  apperrors.Code(err),
	})
}

// respondValidation renders validator errors as a 400 with per-field detail.
func respondValidation(c *fiber.Ctx, err error) error {
	errorMessages := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "validation failed",
		"code":   "validation",
		"fields": errorMessages,
	})
}

// currentUser returns the caller resolved by the auth middleware.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(middleware.UserKey).(*models.User)
	return user
}

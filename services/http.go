package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apperrors "luco-sms-platform/pkg/errors"
	"luco-sms-platform/models"
)

// principalFromCtx reads the Principal the auth middleware attached.
func principalFromCtx(c *fiber.Ctx) (models.Principal, bool) {
	p, ok := c.Locals("principal").(models.Principal)
	return p, ok
}

// httpStatus maps business errors onto HTTP statuses. Anything without a
// known code is a 500.
func httpStatus(err error) int {
	var def apperrors.Definition
	if !errors.As(err, &def) {
		return fiber.StatusInternalServerError
	}
	switch def.Code {
	case apperrors.NotFound.Code:
		return fiber.StatusNotFound
	case apperrors.Unauthorized.Code:
		return fiber.StatusUnauthorized
	case apperrors.SendFailure.Code:
		return fiber.StatusBadGateway
	case apperrors.InsufficientFunds.Code,
		apperrors.InvalidState.Code,
		apperrors.NoRecipients.Code,
		apperrors.ValidationError.Code,
		apperrors.Conflict.Code:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(httpStatus(err)).JSON(fiber.Map{"error": err.Error()})
}

func failUnauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authentication context"})
}

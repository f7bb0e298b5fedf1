package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"luco-sms-platform/models"
	"luco-sms-platform/pkg/logger"
	"luco-sms-platform/services"
)

// SessionAuth verifies a Bearer session token with the identity provider and
// attaches the resolved Principal. The first verified session for an email
// creates the local account lazily; the platform has no signup endpoint.
func SessionAuth(db *gorm.DB, identity *services.IdentityClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or malformed Authorization header",
			})
		}
		token := strings.TrimPrefix(header, "Bearer ")

		verified, err := identity.VerifySession(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired session",
			})
		}

		user, err := resolveOrCreateUser(db, verified)
		if err != nil {
			logger.Logger.Error("Failed to resolve local user",
				zap.String("email", verified.Email),
				zap.Error(err),
			)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve account",
			})
		}

		c.Locals("principal", models.Principal{UserID: user.ID})
		return c.Next()
	}
}

// resolveOrCreateUser matches by email, creating the local record on first
// contact. A concurrent first request can lose the unique-index race; the
// loser re-reads the winner's row.
func resolveOrCreateUser(db *gorm.DB, identity *services.Identity) (*models.User, error) {
	var user models.User
	err := db.First(&user, "email = ?", identity.Email).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		ID:             uuid.NewString(),
		Username:       identity.Username,
		Email:          identity.Email,
		ExternalUserID: identity.ExternalUserID,
		WalletBalance:  0,
	}
	if err := db.Create(&user).Error; err != nil {
		var existing models.User
		if retryErr := db.First(&existing, "email = ?", identity.Email).Error; retryErr == nil {
			return &existing, nil
		}
		return nil, err
	}

	logger.Logger.Info("Local account created",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
	)
	return &user, nil
}

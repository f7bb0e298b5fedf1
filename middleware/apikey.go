package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"luco-sms-platform/models"
	"luco-sms-platform/pkg/logger"
)

// APIKeyAuth authenticates the developer surface from the X-API-Key header.
// Inactive or unknown keys are rejected; a successful lookup stamps last_used.
func APIKeyAuth(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-API-Key header",
			})
		}

		var apiKey models.APIKey
		err := db.First(&apiKey, "key = ? AND is_active = ?", key, true).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid API key",
				})
			}
			logger.Logger.Error("API key lookup failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "authentication failed",
			})
		}

		now := time.Now()
		if err := db.Model(&apiKey).Update("last_used", now).Error; err != nil {
			logger.Logger.Warn("Failed to stamp API key usage",
				zap.Uint("key_id", apiKey.ID),
				zap.Error(err),
			)
		}

		c.Locals("principal", models.Principal{UserID: apiKey.UserID})
		return c.Next()
	}
}

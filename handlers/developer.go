package handlers

import (
	"github.com/gofiber/fiber/v2"

	"luco-sms-platform/services"
)

// SetupDeveloperRoutes wires the API-key authenticated client surface.
func SetupDeveloperRoutes(router fiber.Router, smsService *services.SMSService, apiKeyAuth fiber.Handler) {
	client := router.Group("/client", apiKeyAuth)
	client.Post("/send-sms", smsService.DeveloperSend)
}

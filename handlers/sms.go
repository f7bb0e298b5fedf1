package handlers

import (
	"github.com/gofiber/fiber/v2"

	"luco-sms-platform/services"
)

// SetupSMSRoutes wires immediate sends and message reporting under the
// account surface.
func SetupSMSRoutes(router fiber.Router, smsService *services.SMSService, sessionAuth fiber.Handler) {
	account := router.Group("/account", sessionAuth)
	account.Post("/sms/send", smsService.SendSMS)
	account.Post("/sms/send-bulk", smsService.SendBulkSMS)
	account.Get("/sms/messages", smsService.ListMessages)
	account.Get("/sms/messages/summary", smsService.MessageSummary)
	account.Get("/sms/messages/:id", smsService.GetMessage)
	account.Get("/sms/spending", smsService.SpendingReport)
}

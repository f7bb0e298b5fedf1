package handlers

import (
	"github.com/gofiber/fiber/v2"

	"luco-sms-platform/services"
)

// SetupAccountRoutes wires the wallet, ledger and API-key management surface.
// All routes require a verified session.
func SetupAccountRoutes(router fiber.Router, wallet *services.WalletService, apiKeys *services.APIKeyService, sessionAuth fiber.Handler) {
	account := router.Group("/account", sessionAuth)

	account.Get("/wallet", wallet.GetWallet)
	account.Post("/wallet/topup", wallet.Topup)
	account.Get("/transactions", wallet.ListTransactions)

	keys := router.Group("/api_key", sessionAuth)
	keys.Post("/generate", apiKeys.GenerateKey)
	keys.Get("/", apiKeys.ListKeys)
	keys.Patch("/:id/deactivate", apiKeys.DeactivateKey)
	keys.Delete("/:id", apiKeys.DeleteKey)
}

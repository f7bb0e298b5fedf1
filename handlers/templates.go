package handlers

import (
	"github.com/gofiber/fiber/v2"

	"luco-sms-platform/services"
)

// SetupTemplateRoutes wires the reusable message template surface.
func SetupTemplateRoutes(router fiber.Router, templates *services.TemplateService, sessionAuth fiber.Handler) {
	t := router.Group("/templates", sessionAuth)
	t.Post("/", templates.CreateTemplate)
	t.Post("/bulk", templates.CreateTemplatesBulk)
	t.Get("/", templates.ListTemplates)
	t.Get("/:id", templates.GetTemplate)
	t.Patch("/:id", templates.UpdateTemplate)
	t.Delete("/:id", templates.DeleteTemplate)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"luco-sms-platform/services"
)

// SetupScheduleRoutes wires the scheduled-send surface plus the engine's
// status/trigger endpoints.
func SetupScheduleRoutes(router fiber.Router, schedules *services.ScheduleService, scheduler *services.Scheduler, sessionAuth fiber.Handler) {
	s := router.Group("/schedule", sessionAuth)
	s.Post("/", schedules.ScheduleSMS)
	s.Post("/bulk", schedules.ScheduleBulkSMS)
	s.Get("/", schedules.ListScheduled)
	s.Get("/scheduler-status", scheduler.Status)
	s.Post("/process-due", scheduler.TriggerScan)
	s.Get("/:id", schedules.GetScheduled)
	s.Patch("/:id", schedules.UpdateScheduled)
	s.Delete("/:id", schedules.CancelScheduled)
}

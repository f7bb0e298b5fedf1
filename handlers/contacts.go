package handlers

import (
	"github.com/gofiber/fiber/v2"

	"luco-sms-platform/services"
)

// SetupContactRoutes wires contacts, groups and membership management.
func SetupContactRoutes(router fiber.Router, contacts *services.ContactService, sessionAuth fiber.Handler) {
	c := router.Group("/contacts", sessionAuth)
	c.Post("/", contacts.CreateContact)
	c.Post("/bulk", contacts.CreateContactsBulk)
	c.Get("/", contacts.ListContacts)
	c.Get("/:id", contacts.GetContact)
	c.Patch("/:id", contacts.UpdateContact)
	c.Delete("/:id", contacts.DeleteContact)

	g := router.Group("/groups", sessionAuth)
	g.Post("/", contacts.CreateGroup)
	g.Get("/", contacts.ListGroups)
	g.Get("/:id", contacts.GetGroup)
	g.Patch("/:id", contacts.UpdateGroup)
	g.Delete("/:id", contacts.DeleteGroup)
	g.Get("/:id/contacts", contacts.ListGroupContacts)
	g.Post("/:id/members", contacts.AddGroupMembers)
	g.Delete("/:id/members/:contact_id", contacts.RemoveGroupMember)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"clearlot/internal/services"
	"clearlot/internal/validate"
)

type NotificationHandler struct {
	Notify *services.NotifyService
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	u := currentUser(c)
	items, err := h.Notify.List(u.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"notifications": items})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid notification id")
	}
	if err := h.Notify.MarkRead(id, u.ID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "clearlot/internal/log"
	"clearlot/internal/services"
	"clearlot/internal/validate"
)

type TicketHandler struct {
	Support *services.SupportService
}

type openTicketReq struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *TicketHandler) Open(c *fiber.Ctx) error {
	u := currentUser(c)
	var req openTicketReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	subject, ok := validate.Text(req.Subject, 120)
	if !ok {
		return badRequest(c, "subject required (max 120 chars)")
	}
	body, ok := validate.Text(req.Body, 4000)
	if !ok {
		return badRequest(c, "ticket body required (max 4000 chars)")
	}
	t, err := h.Support.Open(u.ID, subject, body)
	if err != nil {
		applog.Error(c, "ticket.open.fail", err, nil)
		return fail(c, err)
	}
	applog.Info(c, "ticket.open", map[string]any{"ticket_id": t.ID})
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *TicketHandler) List(c *fiber.Ctx) error {
	u := currentUser(c)
	tickets, err := h.Support.ListFor(u.ID, u.Role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"tickets": tickets})
}

func (h *TicketHandler) View(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	t, replies, err := h.Support.Get(id, u.ID, u.Role)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ticket": t, "replies": replies})
}

type ticketReplyReq struct {
	Body string `json:"body"`
}

func (h *TicketHandler) Reply(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	var req ticketReplyReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	body, ok := validate.Text(req.Body, 4000)
	if !ok {
		return badRequest(c, "reply body required (max 4000 chars)")
	}
	rep, err := h.Support.Reply(id, u.ID, u.Role, body)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rep)
}

func (h *TicketHandler) Close(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	if err := h.Support.Close(id, u.ID, u.Role); err != nil {
		return fail(c, err)
	}
	applog.Info(c, "ticket.close", map[string]any{"ticket_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"clearlot/internal/domain"
	applog "clearlot/internal/log"
	"clearlot/internal/repos"
	"clearlot/internal/services"
	"clearlot/internal/validate"
)

type MessageHandler struct {
	Repo   *repos.MessageRepo
	Users  *repos.UserRepo
	Notify *services.NotifyService
}

type sendMessageReq struct {
	RecipientID string `json:"recipient_id"`
	ProductID   string `json:"product_id"`
	OrderID     string `json:"order_id"`
	Body        string `json:"body"`
}

func (h *MessageHandler) Send(c *fiber.Ctx) error {
	u := currentUser(c)
	var req sendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	recipientID, ok := validate.ID(req.RecipientID)
	if !ok {
		return badRequest(c, "invalid recipient")
	}
	body, ok := validate.Text(req.Body, 4000)
	if !ok {
		return badRequest(c, "message body required (max 4000 chars)")
	}
	if recipientID == u.ID {
		return badRequest(c, "cannot message yourself")
	}
	if _, err := h.Users.ByID(recipientID); err != nil {
		return fail(c, err)
	}

	m := domain.Message{
		ID:          uuid.NewString(),
		SenderID:    u.ID,
		RecipientID: recipientID,
		ProductID:   req.ProductID,
		OrderID:     req.OrderID,
		Body:        body,
	}
	if err := h.Repo.Create(m); err != nil {
		applog.Error(c, "message.send.fail", err, nil)
		return fail(c, err)
	}
	h.Notify.Message(recipientID, "New message from "+u.Name, m.ID)
	applog.Info(c, "message.send", map[string]any{"to": recipientID})
	return c.Status(fiber.StatusCreated).JSON(m)
}

// List returns either the thread with ?with=<user> or the conversation
// index when no counterparty is given.
func (h *MessageHandler) List(c *fiber.Ctx) error {
	u := currentUser(c)
	withID := c.Query("with")
	if withID == "" {
		convs, err := h.Repo.Conversations(u.ID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"conversations": convs})
	}
	id, ok := validate.ID(withID)
	if !ok {
		return badRequest(c, "invalid user id")
	}
	msgs, err := h.Repo.Thread(u.ID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

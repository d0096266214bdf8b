package handlers

import (
	"github.com/gofiber/fiber/v2"

	"clearlot/internal/repos"
	"clearlot/internal/validate"
)

// WatchlistHandler lets buyers track lots they are not ready to bid on.
// The list is session-scoped so it works before login too.
type WatchlistHandler struct {
	Repo  *repos.WatchlistRepo
	Prods *repos.ProductRepo
}

func (h *WatchlistHandler) List(c *fiber.Ctx) error {
	wid, err := h.Repo.Ensure(ensureSID(c))
	if err != nil {
		return fail(c, err)
	}
	rows, err := h.Repo.List(wid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"items": rows})
}

func (h *WatchlistHandler) Add(c *fiber.Ctx) error {
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	pid, ok := validate.ID(req.ProductID)
	if !ok {
		return badRequest(c, "invalid product id")
	}
	if _, err := h.Prods.Get(pid); err != nil {
		return fail(c, err)
	}
	wid, err := h.Repo.Ensure(ensureSID(c))
	if err != nil {
		return fail(c, err)
	}
	if err := h.Repo.Add(wid, pid); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
}

func (h *WatchlistHandler) Remove(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	wid, err := h.Repo.Ensure(ensureSID(c))
	if err != nil {
		return fail(c, err)
	}
	if err := h.Repo.Remove(wid, pid); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

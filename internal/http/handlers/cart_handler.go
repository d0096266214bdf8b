package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	applog "clearlot/internal/log"
	"clearlot/internal/services"
	"clearlot/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

// expectVersion reads the optional If-Match header used for cross-tab
// conflict detection; absent means last-write-wins.
func expectVersion(c *fiber.Ctx) *int {
	if raw := c.Get("If-Match"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return &v
		}
	}
	return nil
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	sid := ensureSID(c)
	cv, err := h.Cart.View(sid)
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(cv)
}

type cartAddReq struct {
	ProductID    string `json:"product_id"`
	VariationKey string `json:"variation_key"`
	Qty          int    `json:"qty"`
}

func (h *CartHandler) Add(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var req cartAddReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if _, ok := validate.ID(req.ProductID); !ok {
		return badRequest(c, "invalid product id")
	}
	varKey, ok := validate.VarKey(req.VariationKey)
	if !ok {
		return badRequest(c, "invalid variation key")
	}

	err := h.Cart.Add(services.AddInput{
		SessionID:     sid,
		ProductID:     req.ProductID,
		VariationKey:  varKey,
		Qty:           req.Qty,
		Role:          currentRole(c),
		ExpectVersion: expectVersion(c),
	})
	if err != nil {
		return fail(c, err)
	}
	applog.Info(c, "cart.add", map[string]any{"product_id": req.ProductID, "qty": req.Qty})
	return h.View(c)
}

type cartUpdateReq struct {
	ProductID    string `json:"product_id"`
	VariationKey string `json:"variation_key"`
	OfferID      string `json:"offer_id"`
	Qty          int    `json:"qty"`
}

func (h *CartHandler) UpdateQty(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var req cartUpdateReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if _, ok := validate.ID(req.ProductID); !ok {
		return badRequest(c, "invalid product id")
	}
	err := h.Cart.UpdateQuantity(sid, req.ProductID, req.VariationKey, req.OfferID, req.Qty, expectVersion(c))
	if err != nil {
		return fail(c, err)
	}
	return h.View(c)
}

func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var req cartUpdateReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if _, ok := validate.ID(req.ProductID); !ok {
		return badRequest(c, "invalid product id")
	}
	err := h.Cart.Remove(sid, req.ProductID, req.VariationKey, req.OfferID, expectVersion(c))
	if err != nil {
		return fail(c, err)
	}
	return h.View(c)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"clearlot/internal/domain"
	applog "clearlot/internal/log"
	"clearlot/internal/metrics"
	"clearlot/internal/repos"
	"clearlot/internal/services"
	"clearlot/internal/validate"
)

type OfferHandler struct {
	Offers *services.OfferService
	Repo   *repos.OfferRepo
}

type offerReq struct {
	ProductID string  `json:"product_id"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
}

// Create opens a buyer offer on a lot.
func (h *OfferHandler) Create(c *fiber.Ctx) error {
	u := currentUser(c)
	var req offerReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if _, ok := validate.ID(req.ProductID); !ok {
		return badRequest(c, "invalid product id")
	}
	if req.Qty < 1 || req.UnitPrice < 0 {
		return badRequest(c, "invalid quantity or price")
	}
	o, err := h.Offers.Create(u.ID, req.ProductID, req.Qty, req.UnitPrice)
	if err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offers.create", map[string]any{"offer_id": o.ID, "product_id": req.ProductID})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// List returns the caller's offers, buyer- or seller-side.
func (h *OfferHandler) List(c *fiber.Ctx) error {
	u := currentUser(c)
	var (
		offers []domain.Offer
		err    error
	)
	if u.Role == domain.RoleSeller {
		offers, err = h.Repo.ListBySeller(u.ID)
	} else {
		offers, err = h.Repo.ListByBuyer(u.ID)
	}
	if err != nil {
		applog.Error(c, "offers.list.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(offers)
}

func (h *OfferHandler) Get(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	o, err := h.Repo.Get(id)
	if err != nil {
		return fail(c, err)
	}
	if o.BuyerID != u.ID && o.SellerID != u.ID && u.Role != domain.RoleAdmin {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "offer not found"})
	}
	return c.JSON(o)
}

type counterReq struct {
	UnitPrice float64 `json:"unit_price"`
	Qty       int     `json:"qty"`
}

func (h *OfferHandler) SellerAccept(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	o, err := h.Offers.SellerAccept(u.ID, id)
	if err != nil {
		return fail(c, err)
	}
	metrics.OffersAccepted.Inc()
	applog.Audit(c, "offers.accept", map[string]any{"offer_id": id})
	return c.JSON(o)
}

func (h *OfferHandler) SellerReject(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	if err := h.Offers.SellerReject(u.ID, id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offers.reject", map[string]any{"offer_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *OfferHandler) SellerCounter(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	var req counterReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Qty < 1 || req.UnitPrice < 0 {
		return badRequest(c, "invalid quantity or price")
	}
	if err := h.Offers.SellerCounter(u.ID, id, req.UnitPrice, req.Qty); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offers.counter.seller", map[string]any{"offer_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *OfferHandler) BuyerAccept(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	o, err := h.Offers.BuyerAccept(u.ID, id)
	if err != nil {
		return fail(c, err)
	}
	metrics.OffersAccepted.Inc()
	applog.Audit(c, "offers.accept.buyer", map[string]any{"offer_id": id})
	return c.JSON(o)
}

func (h *OfferHandler) BuyerReject(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	if err := h.Offers.BuyerReject(u.ID, id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offers.reject.buyer", map[string]any{"offer_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *OfferHandler) BuyerCounter(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	var req counterReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Qty < 1 || req.UnitPrice < 0 {
		return badRequest(c, "invalid quantity or price")
	}
	if err := h.Offers.BuyerCounter(u.ID, id, req.UnitPrice, req.Qty); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offers.counter.buyer", map[string]any{"offer_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

// AddToCart redeems an accepted offer into the session cart.
func (h *OfferHandler) AddToCart(c *fiber.Ctx) error {
	u := currentUser(c)
	sid := ensureSID(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid offer id")
	}
	if err := h.Offers.AddToCart(u.ID, sid, u.Role, id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "offers.add_to_cart", map[string]any{"offer_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

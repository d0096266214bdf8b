package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"clearlot/internal/domain"
	applog "clearlot/internal/log"
	"clearlot/internal/metrics"
	"clearlot/internal/repos"
	"clearlot/internal/services"
	"clearlot/internal/validate"
)

// AdminHandler is the billing and moderation surface: wire confirmation,
// seller payouts, the platform fee rate, user removal.
type AdminHandler struct {
	Order    *services.OrderService
	Orders   *repos.OrderRepo
	Users    *repos.UserRepo
	Settings *repos.SettingsRepo
}

func (h *AdminHandler) Orders(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	orders, err := h.Orders.ListLatest(limit)
	if err != nil {
		return fail(c, err)
	}
	// Annotate payout state so the billing screen needs one call.
	type row struct {
		domain.Order
		PayoutDue    bool    `json:"payout_due"`
		PayoutAmount float64 `json:"payout_amount"`
	}
	out := make([]row, 0, len(orders))
	for _, o := range orders {
		r := row{Order: o}
		if h.Order.PayoutDue(o) {
			r.PayoutDue = true
			r.PayoutAmount = h.Order.PayoutAmount(o)
		}
		out = append(out, r)
	}
	return c.JSON(fiber.Map{"orders": out})
}

// ConfirmWire records the incoming wire for an order: AWAITING_WIRE -> ORDERED.
func (h *AdminHandler) ConfirmWire(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid order id")
	}
	if err := h.Order.ConfirmWire(id); err != nil {
		return fail(c, err)
	}
	metrics.WireConfirmed.Inc()
	applog.Audit(c, "admin.wire.confirm", map[string]any{"order_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

// MarkPaid releases a seller payout once the hold window has elapsed.
func (h *AdminHandler) MarkPaid(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid order id")
	}
	amount, err := h.Order.MarkSellerPaid(id)
	if err != nil {
		return fail(c, err)
	}
	metrics.PayoutsReleased.Inc()
	applog.Audit(c, "admin.payout.release", map[string]any{"order_id": id, "amount": amount})
	return c.JSON(fiber.Map{"ok": true, "payout_amount": amount})
}

func (h *AdminHandler) FeeRate(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"service_fee_rate": h.Settings.ServiceFeeRate()})
}

func (h *AdminHandler) SetFeeRate(c *fiber.Ctx) error {
	var req struct {
		ServiceFeeRate float64 `json:"service_fee_rate"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ServiceFeeRate < 0 || req.ServiceFeeRate >= 1 {
		return badRequest(c, "fee rate must be in [0, 1)")
	}
	if err := h.Settings.SetServiceFeeRate(req.ServiceFeeRate); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.feerate.set", map[string]any{"rate": req.ServiceFeeRate})
	return c.JSON(fiber.Map{"ok": true, "service_fee_rate": req.ServiceFeeRate})
}

func (h *AdminHandler) Users(c *fiber.Ctx) error {
	users, err := h.Users.List(domain.RoleAdmin)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// DeleteUser removes the account and its open activity; completed orders
// are retained for the books.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid user id")
	}
	u, err := h.Users.ByID(id)
	if err != nil {
		return fail(c, err)
	}
	if u.Role == domain.RoleAdmin {
		return badRequest(c, "cannot delete an admin account")
	}
	if err := h.Users.DeleteUserCascade(id); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "admin.user.delete", map[string]any{"user_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

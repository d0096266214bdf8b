package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"clearlot/internal/config"
	"clearlot/internal/domain"
	"clearlot/internal/invoice"
	applog "clearlot/internal/log"
	"clearlot/internal/metrics"
	"clearlot/internal/repos"
	"clearlot/internal/services"
	"clearlot/internal/shipping"
	"clearlot/internal/validate"
)

type OrderHandler struct {
	Order    *services.OrderService
	Repo     *repos.OrderRepo
	Users    *repos.UserRepo
	Shipping shipping.Client
	Cfg      config.Config
}

type checkoutReq struct {
	ShippingChoice string            `json:"shipping_choice"`
	RateID         string            `json:"rate_id"`
	Package        *shipping.Package `json:"package"`
}

// Checkout creates one order per seller from the session cart. A buyer
// shipping choice quotes the parcel first; the quoted amount lands in
// the order total.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	u := currentUser(c)
	sid := ensureSID(c)

	var req checkoutReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ShippingChoice == "" {
		req.ShippingChoice = domain.ShippingBuyer
	}

	shippingCost := 0.0
	pkgJSON := ""
	if req.ShippingChoice == domain.ShippingBuyer {
		if req.Package == nil {
			return badRequest(c, "package dimensions required for buyer shipping")
		}
		ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
		defer cancel()
		rates, err := h.Shipping.Rates(ctx, *req.Package)
		if err != nil {
			applog.Error(c, "checkout.rates.fail", err, nil)
			return fail(c, err)
		}
		if len(rates) == 0 {
			return badRequest(c, "no shipping rates available for this package")
		}
		chosen := rates[0]
		for _, r := range rates {
			if req.RateID != "" && r.RateID == req.RateID {
				chosen = r
			}
		}
		shippingCost = chosen.Amount
		b, _ := json.Marshal(req.Package)
		pkgJSON = string(b)
	}

	ids, err := h.Order.Checkout(services.CheckoutInput{
		SessionID:      sid,
		BuyerID:        u.ID,
		ShippingChoice: req.ShippingChoice,
		ShippingCost:   shippingCost,
		PackageJSON:    pkgJSON,
	})
	if err != nil {
		applog.Security(c, "checkout.fail", map[string]any{"error": err.Error()})
		return fail(c, err)
	}
	metrics.OrdersPlaced.Add(float64(len(ids)))
	applog.Audit(c, "order.place", map[string]any{"order_ids": ids, "shipping_cost": shippingCost})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"order_ids": ids})
}

// List is role-scoped: buyers see purchases, sellers see sales.
func (h *OrderHandler) List(c *fiber.Ctx) error {
	u := currentUser(c)
	var (
		orders []domain.Order
		err    error
	)
	if u.Role == domain.RoleSeller {
		orders, err = h.Repo.ListBySeller(u.ID)
	} else {
		orders, err = h.Repo.ListByBuyer(u.ID)
	}
	if err != nil {
		applog.Error(c, "orders.list.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(orders)
}

func (h *OrderHandler) load(c *fiber.Ctx) (domain.Order, []repos.OrderItemView, bool, error) {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return domain.Order{}, nil, false, badRequest(c, "invalid order id")
	}
	o, items, err := h.Repo.Get(id)
	if err != nil {
		return domain.Order{}, nil, false, fail(c, err)
	}
	u := currentUser(c)
	if u == nil || (o.BuyerID != u.ID && o.SellerID != u.ID && u.Role != domain.RoleAdmin) {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": id})
		return domain.Order{}, nil, false, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order not found"})
	}
	return o, items, true, nil
}

func (h *OrderHandler) View(c *fiber.Ctx) error {
	o, items, ok, err := h.load(c)
	if !ok {
		return err
	}
	resp := fiber.Map{"order": o, "items": items}
	if t, perr := time.Parse(time.RFC3339, o.CreatedAt); perr == nil {
		resp["milestones"] = services.EstimatedMilestones(t)
	} else if t, perr := time.Parse("2006-01-02 15:04:05", o.CreatedAt); perr == nil {
		resp["milestones"] = services.EstimatedMilestones(t)
	}
	return c.JSON(resp)
}

// WirePage renders the printable wire-transfer instructions while the
// order awaits payment.
func (h *OrderHandler) WirePage(c *fiber.Ctx) error {
	o, _, ok, err := h.load(c)
	if !ok {
		return err
	}
	if o.Status != domain.OrderAwaitingWire {
		return c.Status(fiber.StatusNotFound).Render("error", fiber.Map{"Message": "This order is not awaiting payment"})
	}
	return render(c, "wire", fiber.Map{
		"Order":    o,
		"Bank":     h.Cfg.BankWireDetails,
		"Deadline": o.WireDeadline,
	})
}

// InvoicePDF streams the order invoice.
func (h *OrderHandler) InvoicePDF(c *fiber.Ctx) error {
	o, items, ok, err := h.load(c)
	if !ok {
		return err
	}
	buyerName, sellerName := o.BuyerID, o.SellerID
	if b, err := h.Users.ByID(o.BuyerID); err == nil {
		buyerName = b.Name
	}
	if s, err := h.Users.ByID(o.SellerID); err == nil {
		sellerName = s.Name
	}
	pdf := invoice.Invoice{Order: o, Items: items, BuyerName: buyerName, SellerName: sellerName}.PDF()
	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", `inline; filename="invoice-`+o.ID+`.pdf"`)
	return c.Send(pdf)
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	o, _, ok, err := h.load(c)
	if !ok {
		return err
	}
	if err := h.Order.Cancel(o.ID); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.cancel", map[string]any{"order_id": o.ID})
	return c.JSON(fiber.Map{"ok": true})
}

type shipReq struct {
	TrackingNumber string `json:"tracking_number"`
	BuyLabel       bool   `json:"buy_label"`
	RateID         string `json:"rate_id"`
}

// Ship moves the order to SHIPPED, optionally purchasing a label first.
func (h *OrderHandler) Ship(c *fiber.Ctx) error {
	u := currentUser(c)
	o, _, ok, err := h.load(c)
	if !ok {
		return err
	}
	var req shipReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	labelURL, tracking := "", req.TrackingNumber
	if req.BuyLabel {
		ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
		defer cancel()
		label, err := h.Shipping.BuyLabel(ctx, req.RateID)
		if err != nil {
			applog.Error(c, "order.ship.label.fail", err, map[string]any{"order_id": o.ID})
			return fail(c, err)
		}
		labelURL, tracking = label.LabelURL, label.TrackingNumber
		metrics.LabelsPurchased.Inc()
	}
	if tracking == "" {
		return badRequest(c, "tracking number or label purchase required")
	}

	if err := h.Order.Ship(u.ID, o.ID, labelURL, tracking); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.ship", map[string]any{"order_id": o.ID, "tracking": tracking})
	return c.JSON(fiber.Map{"ok": true, "label_url": labelURL, "tracking_number": tracking})
}

// Advance steps SHIPPED -> OUT_FOR_DELIVERY -> DELIVERED.
func (h *OrderHandler) Advance(c *fiber.Ctx) error {
	u := currentUser(c)
	o, _, ok, err := h.load(c)
	if !ok {
		return err
	}
	if o.SellerID != u.ID && u.Role != domain.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
	}
	if err := h.Order.Advance(o.ID); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "order.advance", map[string]any{"order_id": o.ID})
	return c.JSON(fiber.Map{"ok": true})
}

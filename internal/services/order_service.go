package services

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"clearlot/internal/domain"
	"clearlot/internal/fees"
	"clearlot/internal/repos"
)

var (
	ErrCartEmpty         = errors.New("cart is empty")
	ErrNotCancellable    = errors.New("order can no longer be cancelled")
	ErrNotYourOrder      = errors.New("order does not belong to you")
	ErrPayoutNotDue      = errors.New("payout is not due yet")
	ErrBadShippingChoice = errors.New("shipping choice must be buyer or seller_free")
)

// payoutHoldDays is how long after delivery the platform holds funds
// before the seller payout is released.
const payoutHoldDays = 7

type OrderService struct {
	Carts    *repos.CartRepo
	Cart     *CartService
	Prods    *repos.ProductRepo
	Orders   *repos.OrderRepo
	Offers   *repos.OfferRepo
	Settings *repos.SettingsRepo
	Notify   *NotifyService

	WireDeadline time.Duration

	now func() time.Time
}

func NewOrderService(carts *repos.CartRepo, cart *CartService, prods *repos.ProductRepo,
	orders *repos.OrderRepo, offers *repos.OfferRepo, settings *repos.SettingsRepo,
	notify *NotifyService, wireDeadline time.Duration) *OrderService {
	return &OrderService{
		Carts: carts, Cart: cart, Prods: prods, Orders: orders, Offers: offers,
		Settings: settings, Notify: notify,
		WireDeadline: wireDeadline,
		now:          time.Now,
	}
}

type CheckoutInput struct {
	SessionID      string
	BuyerID        string
	ShippingChoice string  // buyer | seller_free
	ShippingCost   float64 // quoted rate; ignored for seller_free
	PackageJSON    string
}

// Checkout turns the session cart into orders, one per seller, verifying
// and decrementing stock inside a single transaction. Totals are
// fee-inclusive; lines stored fee-exclusive (seller view) get the fee
// applied here so the platform always collects.
func (s *OrderService) Checkout(in CheckoutInput) ([]string, error) {
	if in.ShippingChoice != domain.ShippingBuyer && in.ShippingChoice != domain.ShippingSellerFree {
		return nil, ErrBadShippingChoice
	}

	cartID, err := s.Carts.EnsureCart(in.SessionID)
	if err != nil {
		return nil, err
	}
	lines, err := s.Carts.Lines(cartID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrCartEmpty
	}

	rate := s.Settings.ServiceFeeRate()

	// Group cart lines per seller; each seller ships separately.
	type group struct {
		sellerID string
		lines    []repos.CartLine
	}
	bySeller := map[string]*group{}
	order := []*group{}
	products := map[string]domain.Product{}
	for _, l := range lines {
		p, err := s.Prods.Get(l.ProductID)
		if err != nil {
			return nil, err
		}
		products[l.ProductID] = p
		g, ok := bySeller[p.SellerID]
		if !ok {
			g = &group{sellerID: p.SellerID}
			bySeller[p.SellerID] = g
			order = append(order, g)
		}
		g.lines = append(g.lines, l)
	}

	shippingCost := in.ShippingCost
	if in.ShippingChoice == domain.ShippingSellerFree {
		shippingCost = 0
	}

	tx, err := s.Orders.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	deadline := s.now().Add(s.WireDeadline).UTC().Format(time.RFC3339)
	var orderIDs []string
	for _, g := range order {
		total := shippingCost
		o := domain.Order{
			ID:             uuid.NewString(),
			BuyerID:        in.BuyerID,
			SellerID:       g.sellerID,
			SessionID:      in.SessionID,
			Status:         domain.OrderAwaitingWire,
			ShippingChoice: in.ShippingChoice,
			ShippingCost:   shippingCost,
			PackageJSON:    in.PackageJSON,
			WireDeadline:   deadline,
		}

		items := make([]domain.OrderItem, 0, len(g.lines))
		for _, l := range g.lines {
			unit := l.UnitPrice
			if !l.PriceIncludesFee {
				unit = fees.AddServiceFee(unit, rate)
			}
			if err := s.Prods.AdjustStock(tx, l.ProductID, l.VariationKey, -l.Qty); err != nil {
				return nil, err
			}
			lineTotal := unit * float64(l.Qty)
			total += lineTotal
			items = append(items, domain.OrderItem{
				OrderID:      o.ID,
				ProductID:    l.ProductID,
				VariationKey: l.VariationKey,
				Qty:          l.Qty,
				UnitPrice:    unit,
				TotalPrice:   lineTotal,
			})
		}
		o.Total = total

		if err := s.Orders.Create(tx, o); err != nil {
			return nil, err
		}
		for _, it := range items {
			if err := s.Orders.InsertItem(tx, it); err != nil {
				return nil, err
			}
		}
		orderIDs = append(orderIDs, o.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	_ = s.Cart.Clear(in.SessionID)
	// Redeemed offers are spent: a purchased offer cannot be re-added.
	for _, l := range lines {
		if l.OfferID != "" {
			_ = s.Offers.Transition(l.OfferID, domain.OfferAccepted, domain.OfferExpired)
		}
	}
	for _, g := range order {
		s.Notify.Order(g.sellerID, "order.placed", "You have a new order awaiting wire payment", "")
	}
	return orderIDs, nil
}

// ConfirmWire records the buyer's wire arriving: AWAITING_WIRE -> ORDERED.
func (s *OrderService) ConfirmWire(orderID string) error {
	if err := s.Orders.Transition(orderID, domain.OrderAwaitingWire, domain.OrderOrdered); err != nil {
		return err
	}
	o, _, err := s.Orders.Get(orderID)
	if err == nil {
		s.Notify.Order(o.BuyerID, "order.paid", "Wire payment confirmed", orderID)
		s.Notify.Order(o.SellerID, "order.paid", "Wire confirmed; ship when ready", orderID)
	}
	return nil
}

// Ship moves ORDERED -> SHIPPED with label/tracking details.
func (s *OrderService) Ship(sellerID, orderID, labelURL, tracking string) error {
	o, _, err := s.Orders.Get(orderID)
	if err != nil {
		return err
	}
	if o.SellerID != sellerID {
		return ErrNotYourOrder
	}
	if err := s.Orders.MarkShipped(orderID, labelURL, tracking); err != nil {
		return err
	}
	s.Notify.Order(o.BuyerID, "order.shipped", "Your order shipped", orderID)
	return nil
}

// Advance moves an in-transit order one step down the linear lifecycle:
// SHIPPED -> OUT_FOR_DELIVERY -> DELIVERED.
func (s *OrderService) Advance(orderID string) error {
	o, _, err := s.Orders.Get(orderID)
	if err != nil {
		return err
	}
	switch o.Status {
	case domain.OrderShipped:
		if err := s.Orders.Transition(orderID, domain.OrderShipped, domain.OrderOutForDelivery); err != nil {
			return err
		}
		s.Notify.Order(o.BuyerID, "order.out_for_delivery", "Your order is out for delivery", orderID)
		return nil
	case domain.OrderOutForDelivery:
		if err := s.Orders.MarkDelivered(orderID, s.now()); err != nil {
			return err
		}
		s.Notify.Order(o.BuyerID, "order.delivered", "Your order was delivered", orderID)
		return nil
	default:
		return repos.ErrStatusConflict
	}
}

// Cancel is allowed only from AWAITING_WIRE or ORDERED and puts the
// units back into stock.
func (s *OrderService) Cancel(orderID string) error {
	o, _, err := s.Orders.Get(orderID)
	if err != nil {
		return err
	}
	if o.Status != domain.OrderAwaitingWire && o.Status != domain.OrderOrdered {
		return ErrNotCancellable
	}
	if err := s.Orders.Transition(orderID, o.Status, domain.OrderCancelled); err != nil {
		return err
	}
	if err := s.restock(orderID); err != nil {
		return err
	}
	s.Notify.Order(o.BuyerID, "order.cancelled", "Order cancelled", orderID)
	s.Notify.Order(o.SellerID, "order.cancelled", "Order cancelled", orderID)
	return nil
}

// CancelWireExpired is the sweeper entry point: unpaid orders whose 48h
// wire window lapsed are cancelled and restocked.
func (s *OrderService) CancelWireExpired() (int, error) {
	due, err := s.Orders.ListWireExpired(s.now())
	if err != nil {
		return 0, err
	}
	n := 0
	for _, o := range due {
		if err := s.Orders.Transition(o.ID, domain.OrderAwaitingWire, domain.OrderCancelled); err != nil {
			continue // raced with a manual cancel or a wire confirmation
		}
		if err := s.restock(o.ID); err != nil {
			return n, err
		}
		s.Notify.Order(o.BuyerID, "order.expired", "Order cancelled: wire payment window passed", o.ID)
		n++
	}
	return n, nil
}

func (s *OrderService) restock(orderID string) error {
	items, err := s.Orders.Items(orderID)
	if err != nil {
		return err
	}
	tx, err := s.Orders.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, it := range items {
		if err := s.Prods.AdjustStock(tx, it.ProductID, it.VariationKey, it.Qty); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PayoutAmount is what the seller receives for a delivered order:
// the goods total (order total minus shipping) less the service fee,
// with ordinary rounding.
func (s *OrderService) PayoutAmount(o domain.Order) float64 {
	return fees.SubtractServiceFee(o.Total-o.ShippingCost, s.Settings.ServiceFeeRate())
}

// PayoutDue reports whether the hold window after delivery has elapsed.
func (s *OrderService) PayoutDue(o domain.Order) bool {
	if o.Status != domain.OrderDelivered || o.SellerPaid || o.DeliveredAt == "" {
		return false
	}
	delivered, err := time.Parse(time.RFC3339, o.DeliveredAt)
	if err != nil {
		return false
	}
	return !s.now().Before(delivered.AddDate(0, 0, payoutHoldDays))
}

// MarkSellerPaid releases the payout once due.
func (s *OrderService) MarkSellerPaid(orderID string) (float64, error) {
	o, _, err := s.Orders.Get(orderID)
	if err != nil {
		return 0, err
	}
	if !s.PayoutDue(o) {
		return 0, ErrPayoutNotDue
	}
	if err := s.Orders.MarkSellerPaid(orderID); err != nil {
		return 0, err
	}
	amount := s.PayoutAmount(o)
	s.Notify.Order(o.SellerID, "order.payout", "Your payout was released", orderID)
	return amount, nil
}

// Milestones are display estimates only, derived from the order's
// creation time; the authoritative state is the stored status.
type Milestones struct {
	EstShipped        time.Time `json:"est_shipped"`
	EstOutForDelivery time.Time `json:"est_out_for_delivery"`
	EstDelivered      time.Time `json:"est_delivered"`
}

func EstimatedMilestones(createdAt time.Time) Milestones {
	return Milestones{
		EstShipped:        createdAt.AddDate(0, 0, 1),
		EstOutForDelivery: createdAt.AddDate(0, 0, 3),
		EstDelivered:      createdAt.AddDate(0, 0, 5),
	}
}

package services_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"clearlot/internal/domain"
	"clearlot/internal/repos"
	"clearlot/internal/services"
)

// secondSeller adds another seller with their own lot so checkout has two
// sellers to split across.
func secondSeller(t *testing.T, f *fixture) {
	t.Helper()
	_, err := f.db.Exec(`
	  INSERT INTO users(id,email,name,password_hash,role)
	  VALUES('u-seller2','seller2@clearlot.test','Sal Seller','x','SELLER')`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.db.Exec(`
	  INSERT INTO products(id,seller_id,category_id,title,description,price,
	    total_units,available_units,min_order_qty,order_multiple,
	    variation_stocks_json,variation_prices_json,images_json)
	  VALUES('lot-shoes-b2','u-seller2','apparel','Overstock Sneakers','',18.00,
	    1000,1000,100,50,'','','[]')`)
	if err != nil {
		t.Fatal(err)
	}
}

func checkoutOne(t *testing.T, f *fixture, sid string) string {
	t.Helper()
	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, Qty: 100, Role: "BUYER"}); err != nil {
		t.Fatal(err)
	}
	ids, err := f.order.Checkout(services.CheckoutInput{
		SessionID: sid, BuyerID: "u-buyer", ShippingChoice: domain.ShippingSellerFree,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Fatalf("want one order, got %v", ids)
	}
	return ids[0]
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.order.Checkout(services.CheckoutInput{
		SessionID: "s-empty", BuyerID: "u-buyer", ShippingChoice: domain.ShippingSellerFree,
	})
	if !errors.Is(err, services.ErrCartEmpty) {
		t.Fatalf("want ErrCartEmpty, got %v", err)
	}
}

func TestCheckout_SplitsPerSellerAndDecrementsStock(t *testing.T) {
	f := newFixture(t)
	secondSeller(t, f)
	sid := "s-split"

	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, VariationKey: "color:black", Qty: 100, Role: "BUYER"}); err != nil {
		t.Fatal(err)
	}
	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: "lot-shoes-b2", Qty: 200, Role: "BUYER"}); err != nil {
		t.Fatal(err)
	}

	ids, err := f.order.Checkout(services.CheckoutInput{
		SessionID: sid, BuyerID: "u-buyer", ShippingChoice: domain.ShippingSellerFree,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("want one order per seller, got %v", ids)
	}

	sellers := map[string]bool{}
	for _, id := range ids {
		o, _, err := f.orders.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		if o.Status != domain.OrderAwaitingWire || o.WireDeadline == "" {
			t.Fatalf("new order must await wire with a deadline: %+v", o)
		}
		sellers[o.SellerID] = true
	}
	if !sellers["u-seller"] || !sellers["u-seller2"] {
		t.Fatalf("orders not split across sellers: %v", sellers)
	}

	// Product-level stock decremented.
	if got := f.availableUnits(t, testLot); got != 400 {
		t.Fatalf("want 400 tablets left, got %d", got)
	}
	if got := f.availableUnits(t, "lot-shoes-b2"); got != 800 {
		t.Fatalf("want 800 sneakers left, got %d", got)
	}
	// Variation pool decremented too.
	p, _ := f.prods.Get(testLot)
	if got := p.StockFor("color:black"); got != 200 {
		t.Fatalf("want black pool at 200, got %d", got)
	}

	// Cart is spent.
	cv, _ := f.cart.View(sid)
	if len(cv.Lines) != 0 {
		t.Fatalf("cart must be cleared after checkout: %+v", cv.Lines)
	}
}

func TestCheckout_TotalIsFeeInclusive(t *testing.T) {
	f := newFixture(t)
	id := checkoutOne(t, f, "s-total")

	o, items, err := f.orders.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	// 42.50 with fee is 43.99; 100 units, free shipping.
	if math.Abs(o.Total-4399.00) > 0.001 {
		t.Fatalf("want total 4399.00, got %v", o.Total)
	}
	if len(items) != 1 || items[0].UnitPrice != 43.99 {
		t.Fatalf("bad order items: %+v", items)
	}
}

func TestCheckout_ConsumesRedeemedOffer(t *testing.T) {
	f := newFixture(t)
	sid := "s-consume"

	o, err := f.offer.Create("u-buyer", testLot, 100, 38.00)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.offer.SellerAccept("u-seller", o.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.offer.AddToCart("u-buyer", sid, "BUYER", o.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.order.Checkout(services.CheckoutInput{
		SessionID: sid, BuyerID: "u-buyer", ShippingChoice: domain.ShippingSellerFree,
	}); err != nil {
		t.Fatal(err)
	}

	cur, _ := f.offers.Get(o.ID)
	if cur.Status != domain.OfferExpired {
		t.Fatalf("purchased offer must be spent, got %s", cur.Status)
	}
}

func TestOrderLifecycle_AdvanceAndCAS(t *testing.T) {
	f := newFixture(t)
	id := checkoutOne(t, f, "s-life")

	// Shipping before the wire clears is refused.
	if err := f.order.Ship("u-seller", id, "", "TRK1"); !errors.Is(err, repos.ErrStatusConflict) {
		t.Fatalf("want ErrStatusConflict, got %v", err)
	}

	if err := f.order.ConfirmWire(id); err != nil {
		t.Fatal(err)
	}
	// Second confirmation lost the race.
	if err := f.order.ConfirmWire(id); !errors.Is(err, repos.ErrStatusConflict) {
		t.Fatalf("want ErrStatusConflict, got %v", err)
	}

	if err := f.order.Ship("u-seller2x", id, "", "TRK1"); !errors.Is(err, services.ErrNotYourOrder) {
		t.Fatalf("want ErrNotYourOrder, got %v", err)
	}
	if err := f.order.Ship("u-seller", id, "https://labels.test/a.pdf", "TRK1"); err != nil {
		t.Fatal(err)
	}

	if err := f.order.Advance(id); err != nil { // -> OUT_FOR_DELIVERY
		t.Fatal(err)
	}
	if err := f.order.Advance(id); err != nil { // -> DELIVERED
		t.Fatal(err)
	}
	o, _, _ := f.orders.Get(id)
	if o.Status != domain.OrderDelivered || o.DeliveredAt == "" {
		t.Fatalf("want DELIVERED with timestamp, got %+v", o)
	}
	// The lifecycle is linear; there is no step after delivery.
	if err := f.order.Advance(id); !errors.Is(err, repos.ErrStatusConflict) {
		t.Fatalf("want ErrStatusConflict, got %v", err)
	}
}

func TestOrderCancel_RestoresStock(t *testing.T) {
	f := newFixture(t)
	id := checkoutOne(t, f, "s-cancel")

	if got := f.availableUnits(t, testLot); got != 400 {
		t.Fatalf("want 400 after checkout, got %d", got)
	}
	if err := f.order.Cancel(id); err != nil {
		t.Fatal(err)
	}
	if got := f.availableUnits(t, testLot); got != 500 {
		t.Fatalf("want stock restored to 500, got %d", got)
	}

	o, _, _ := f.orders.Get(id)
	if o.Status != domain.OrderCancelled {
		t.Fatalf("want CANCELLED, got %s", o.Status)
	}
	// Delivered or cancelled orders cannot be cancelled (again).
	if err := f.order.Cancel(id); !errors.Is(err, services.ErrNotCancellable) {
		t.Fatalf("want ErrNotCancellable, got %v", err)
	}
}

func TestPayout_GateAndAmount(t *testing.T) {
	f := newFixture(t)
	id := checkoutOne(t, f, "s-payout")

	if err := f.order.ConfirmWire(id); err != nil {
		t.Fatal(err)
	}
	if err := f.order.Ship("u-seller", id, "", "TRK9"); err != nil {
		t.Fatal(err)
	}
	if err := f.order.Advance(id); err != nil {
		t.Fatal(err)
	}
	if err := f.order.Advance(id); err != nil {
		t.Fatal(err)
	}

	// Freshly delivered: the hold window still runs.
	if _, err := f.order.MarkSellerPaid(id); !errors.Is(err, services.ErrPayoutNotDue) {
		t.Fatalf("want ErrPayoutNotDue, got %v", err)
	}

	eightDaysAgo := time.Now().AddDate(0, 0, -8).UTC().Format(time.RFC3339)
	if _, err := f.db.Exec(`UPDATE orders SET delivered_at=? WHERE id=?`, eightDaysAgo, id); err != nil {
		t.Fatal(err)
	}

	amount, err := f.order.MarkSellerPaid(id)
	if err != nil {
		t.Fatal(err)
	}
	// 4399.00 less the 3.5% service fee, ordinary rounding.
	if amount != 4245.04 {
		t.Fatalf("want payout 4245.04, got %v", amount)
	}

	// Releasing twice is refused by the paid flag.
	if _, err := f.order.MarkSellerPaid(id); !errors.Is(err, services.ErrPayoutNotDue) {
		t.Fatalf("want ErrPayoutNotDue, got %v", err)
	}
}

func TestSweep_CancelsWireExpiredOrders(t *testing.T) {
	f := newFixture(t)
	id := checkoutOne(t, f, "s-sweep")

	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	if _, err := f.db.Exec(`UPDATE orders SET wire_deadline=? WHERE id=?`, past, id); err != nil {
		t.Fatal(err)
	}

	n, err := f.order.CancelWireExpired()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("want 1 cancelled order, got %d", n)
	}
	o, _, _ := f.orders.Get(id)
	if o.Status != domain.OrderCancelled {
		t.Fatalf("want CANCELLED, got %s", o.Status)
	}
	if got := f.availableUnits(t, testLot); got != 500 {
		t.Fatalf("want stock restored, got %d", got)
	}
}

func TestEstimatedMilestones(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := services.EstimatedMilestones(created)
	if m.EstShipped.Day() != 2 || m.EstOutForDelivery.Day() != 4 || m.EstDelivered.Day() != 6 {
		t.Fatalf("want +1/+3/+5 days, got %+v", m)
	}
}

package services_test

import (
	"errors"
	"testing"
	"time"

	"clearlot/internal/domain"
	"clearlot/internal/repos"
	"clearlot/internal/services"
)

func TestOfferCreate_ValidatesLotRules(t *testing.T) {
	f := newFixture(t)

	// Offer quantity has to survive a later redemption, so the lot rules
	// apply at creation time.
	if _, err := f.offer.Create("u-buyer", testLot, 25, 38.00); !errors.Is(err, services.ErrBelowMinimum) {
		t.Fatalf("want ErrBelowMinimum, got %v", err)
	}
	if _, err := f.offer.Create("u-buyer", testLot, 60, 38.00); !errors.Is(err, services.ErrNotMultiple) {
		t.Fatalf("want ErrNotMultiple, got %v", err)
	}
	if _, err := f.offer.Create("u-buyer", testLot, 1000, 38.00); !errors.Is(err, services.ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}
	if _, err := f.offer.Create("u-seller", testLot, 100, 38.00); !errors.Is(err, services.ErrOwnLot) {
		t.Fatalf("want ErrOwnLot, got %v", err)
	}

	o, err := f.offer.Create("u-buyer", testLot, 100, 38.00)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != domain.OfferPending {
		t.Fatalf("new offer must be PENDING, got %s", o.Status)
	}
}

func TestOfferAccept_StampsRedemptionWindow(t *testing.T) {
	f := newFixture(t)
	o, err := f.offer.Create("u-buyer", testLot, 100, 38.00)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.offer.SellerAccept("u-somebody", o.ID); !errors.Is(err, services.ErrNotYourOffer) {
		t.Fatalf("want ErrNotYourOffer, got %v", err)
	}

	accepted, err := f.offer.SellerAccept("u-seller", o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if accepted.Status != domain.OfferAccepted || accepted.ExpiresAt == "" {
		t.Fatalf("want ACCEPTED with deadline, got %+v", accepted)
	}

	// Accepting twice has no state to act on.
	if _, err := f.offer.SellerAccept("u-seller", o.ID); !errors.Is(err, services.ErrOfferNotActionable) {
		t.Fatalf("want ErrOfferNotActionable, got %v", err)
	}
	// And the row-level guard reports the lost race directly.
	if err := f.offers.Transition(o.ID, domain.OfferPending, domain.OfferRejected); !errors.Is(err, repos.ErrStatusConflict) {
		t.Fatalf("want ErrStatusConflict, got %v", err)
	}
}

func TestOfferCounter_PingPong(t *testing.T) {
	f := newFixture(t)
	o, err := f.offer.Create("u-buyer", testLot, 100, 35.00)
	if err != nil {
		t.Fatal(err)
	}

	// Buyer cannot act before the seller counters.
	if _, err := f.offer.BuyerAccept("u-buyer", o.ID); !errors.Is(err, services.ErrOfferNotActionable) {
		t.Fatalf("want ErrOfferNotActionable, got %v", err)
	}

	if err := f.offer.SellerCounter("u-seller", o.ID, 40.00, 100); err != nil {
		t.Fatal(err)
	}
	cur, _ := f.offers.Get(o.ID)
	if cur.Status != domain.OfferCountered || cur.CounteredBy != "seller" || cur.Price != 40.00 {
		t.Fatalf("bad counter state: %+v", cur)
	}

	// Seller cannot counter their own counter.
	if err := f.offer.SellerCounter("u-seller", o.ID, 41.00, 100); !errors.Is(err, services.ErrOfferNotActionable) {
		t.Fatalf("want ErrOfferNotActionable, got %v", err)
	}

	if err := f.offer.BuyerCounter("u-buyer", o.ID, 37.00, 100); err != nil {
		t.Fatal(err)
	}
	cur, _ = f.offers.Get(o.ID)
	if cur.CounteredBy != "buyer" || cur.Rounds != 2 {
		t.Fatalf("bad buyer counter state: %+v", cur)
	}

	// A buyer counter-back is seller-acceptable and adopts its terms.
	accepted, err := f.offer.SellerAccept("u-seller", o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if accepted.Price != 37.00 {
		t.Fatalf("accepted terms should be the buyer's counter, got %v", accepted.Price)
	}
}

func TestOfferCounter_RoundCap(t *testing.T) {
	f := newFixture(t)
	o, err := f.offer.Create("u-buyer", testLot, 100, 35.00)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.db.Exec(`UPDATE offers SET status='COUNTERED', countered_by='seller', rounds=10 WHERE id=?`, o.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.offer.BuyerCounter("u-buyer", o.ID, 36.00, 100); !errors.Is(err, services.ErrTooManyRounds) {
		t.Fatalf("want ErrTooManyRounds, got %v", err)
	}
}

func TestOfferReject_IsTerminal(t *testing.T) {
	f := newFixture(t)
	o, err := f.offer.Create("u-buyer", testLot, 100, 35.00)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.offer.SellerReject("u-seller", o.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.offer.SellerCounter("u-seller", o.ID, 40.00, 100); !errors.Is(err, services.ErrOfferTerminal) {
		t.Fatalf("want ErrOfferTerminal, got %v", err)
	}
}

func TestOfferAddToCart_RedeemsOnce(t *testing.T) {
	f := newFixture(t)
	sid := "s-redeem"
	o, err := f.offer.Create("u-buyer", testLot, 100, 38.00)
	if err != nil {
		t.Fatal(err)
	}

	// Only accepted offers redeem.
	if err := f.offer.AddToCart("u-buyer", sid, "BUYER", o.ID); !errors.Is(err, services.ErrOfferNotActionable) {
		t.Fatalf("want ErrOfferNotActionable, got %v", err)
	}
	if _, err := f.offer.SellerAccept("u-seller", o.ID); err != nil {
		t.Fatal(err)
	}

	if err := f.offer.AddToCart("u-buyer", sid, "BUYER", o.ID); err != nil {
		t.Fatal(err)
	}
	cv, _ := f.cart.View(sid)
	if len(cv.Lines) != 1 || cv.Lines[0].Qty != 100 || cv.Lines[0].OfferID != o.ID {
		t.Fatalf("bad redeemed line: %+v", cv.Lines)
	}
	// Buyer view carries the fee on the negotiated price: 38.00 * 1.035.
	if got := cv.Lines[0].UnitPrice; got != 39.33 {
		t.Fatalf("want 39.33, got %v", got)
	}

	// Redeeming again merges into the same capped line.
	if err := f.offer.AddToCart("u-buyer", sid, "BUYER", o.ID); err != nil {
		t.Fatal(err)
	}
	cv, _ = f.cart.View(sid)
	if len(cv.Lines) != 1 || cv.Lines[0].Qty != 100 {
		t.Fatalf("re-redeem must be a no-op, got %+v", cv.Lines)
	}
}

func TestOfferAddToCart_ExpiredWindow(t *testing.T) {
	f := newFixture(t)
	o, err := f.offer.Create("u-buyer", testLot, 100, 38.00)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.offer.SellerAccept("u-seller", o.ID); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	if _, err := f.db.Exec(`UPDATE offers SET expires_at=? WHERE id=?`, past, o.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.offer.AddToCart("u-buyer", "s-late", "BUYER", o.ID); !errors.Is(err, services.ErrOfferExpired) {
		t.Fatalf("want ErrOfferExpired, got %v", err)
	}
}

func TestOfferSweep_ExpiresPastDeadline(t *testing.T) {
	f := newFixture(t)
	o, err := f.offer.Create("u-buyer", testLot, 100, 38.00)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.offer.SellerAccept("u-seller", o.ID); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	if _, err := f.db.Exec(`UPDATE offers SET expires_at=? WHERE id=?`, past, o.ID); err != nil {
		t.Fatal(err)
	}

	n, err := f.offer.ExpireDue(14 * 24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("want 1 expired offer, got %d", n)
	}
	cur, _ := f.offers.Get(o.ID)
	if cur.Status != domain.OfferExpired {
		t.Fatalf("want EXPIRED, got %s", cur.Status)
	}
}

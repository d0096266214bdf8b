package services_test

import (
	"errors"
	"testing"
	"time"

	"clearlot/internal/services"
)

const (
	testLot  = "lot-tablets-a1"
	testHour = time.Hour
)

func TestCartAdd_MinimumAndMultiple(t *testing.T) {
	f := newFixture(t)
	sid := "s-rules"

	// Below the 50-unit minimum.
	err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, Qty: 25})
	if !errors.Is(err, services.ErrBelowMinimum) {
		t.Fatalf("want ErrBelowMinimum, got %v", err)
	}
	// Meets the minimum but breaks the multiple of 25.
	err = f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, Qty: 60})
	if !errors.Is(err, services.ErrNotMultiple) {
		t.Fatalf("want ErrNotMultiple, got %v", err)
	}
	// Nothing was added by the rejections.
	cv, err := f.cart.View(sid)
	if err != nil {
		t.Fatal(err)
	}
	if len(cv.Lines) != 0 {
		t.Fatalf("rejected adds must not mutate the cart: %+v", cv.Lines)
	}

	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, Qty: 75}); err != nil {
		t.Fatal(err)
	}
	cv, _ = f.cart.View(sid)
	if cv.ItemCount != 75 {
		t.Fatalf("want 75 units, got %d", cv.ItemCount)
	}
}

func TestCartAdd_AnonymousSeesFeeInclusivePrice(t *testing.T) {
	f := newFixture(t)
	sid := "s-anon"

	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, Qty: 75}); err != nil {
		t.Fatal(err)
	}
	cv, _ := f.cart.View(sid)
	// 42.50 * 1.035 = 43.9875, fee rounding always favors the platform.
	if got := cv.Lines[0].UnitPrice; got != 43.99 {
		t.Fatalf("want fee-inclusive 43.99, got %v", got)
	}
	if !cv.Lines[0].PriceIncludesFee {
		t.Fatal("line should be tagged fee-inclusive")
	}
}

func TestCartAdd_SellerSeesListPrice(t *testing.T) {
	f := newFixture(t)
	sid := "s-seller"

	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, Qty: 75, Role: "SELLER"}); err != nil {
		t.Fatal(err)
	}
	cv, _ := f.cart.View(sid)
	if got := cv.Lines[0].UnitPrice; got != 42.50 {
		t.Fatalf("want list price 42.50, got %v", got)
	}
	if cv.Lines[0].PriceIncludesFee {
		t.Fatal("seller line must not carry the fee")
	}
}

func TestCartAdd_VariationStockAndPrice(t *testing.T) {
	f := newFixture(t)
	sid := "s-var"

	// Silver pool holds 200 units.
	err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, VariationKey: "color:silver", Qty: 250})
	if !errors.Is(err, services.ErrInsufficientStock) {
		t.Fatalf("want ErrInsufficientStock, got %v", err)
	}
	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, VariationKey: "color:silver", Qty: 200, Role: "SELLER"}); err != nil {
		t.Fatal(err)
	}
	cv, _ := f.cart.View(sid)
	// Silver has its own unit price.
	if got := cv.Lines[0].UnitPrice; got != 44.00 {
		t.Fatalf("want variation price 44.00, got %v", got)
	}
}

func TestCartAdd_MergesSameLine(t *testing.T) {
	f := newFixture(t)
	sid := "s-merge"

	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, Qty: 50}); err != nil {
		t.Fatal(err)
	}
	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, Qty: 25}); err != nil {
		t.Fatal(err)
	}
	cv, _ := f.cart.View(sid)
	if len(cv.Lines) != 1 || cv.Lines[0].Qty != 75 {
		t.Fatalf("want one merged line of 75, got %+v", cv.Lines)
	}
}

func TestCartAdd_OfferQuantityClampsNotRejects(t *testing.T) {
	f := newFixture(t)
	sid := "s-clamp"
	price := 38.00

	in := services.AddInput{
		SessionID: sid, ProductID: testLot, Qty: 150, Role: "SELLER",
		PriceOverride: &price, OfferID: "off-1", OfferQty: 100,
	}
	if err := f.cart.Add(in); err != nil {
		t.Fatal(err)
	}
	cv, _ := f.cart.View(sid)
	if cv.Lines[0].Qty != 100 {
		t.Fatalf("want clamp to offer qty 100, got %d", cv.Lines[0].Qty)
	}
	if cv.Lines[0].UnitPrice != 38.00 {
		t.Fatalf("want negotiated price 38.00, got %v", cv.Lines[0].UnitPrice)
	}

	// Re-adding the same offer merges and re-clamps: still 100.
	if err := f.cart.Add(in); err != nil {
		t.Fatal(err)
	}
	cv, _ = f.cart.View(sid)
	if len(cv.Lines) != 1 || cv.Lines[0].Qty != 100 {
		t.Fatalf("offer re-add must be a no-op, got %+v", cv.Lines)
	}
}

func TestCartUpdate_OfferLinesImmutable(t *testing.T) {
	f := newFixture(t)
	sid := "s-immutable"
	price := 38.00

	if err := f.cart.Add(services.AddInput{
		SessionID: sid, ProductID: testLot, Qty: 100, Role: "SELLER",
		PriceOverride: &price, OfferID: "off-2", OfferQty: 100,
	}); err != nil {
		t.Fatal(err)
	}
	err := f.cart.UpdateQuantity(sid, testLot, "", "off-2", 50, nil)
	if !errors.Is(err, services.ErrOfferLineImmutable) {
		t.Fatalf("want ErrOfferLineImmutable, got %v", err)
	}
	cv, _ := f.cart.View(sid)
	if cv.Lines[0].Qty != 100 {
		t.Fatalf("quantity must be unchanged, got %d", cv.Lines[0].Qty)
	}
}

func TestCartRemove_ExactTupleOnly(t *testing.T) {
	f := newFixture(t)
	sid := "s-remove"
	price := 38.00

	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, Qty: 50}); err != nil {
		t.Fatal(err)
	}
	if err := f.cart.Add(services.AddInput{
		SessionID: sid, ProductID: testLot, Qty: 100,
		PriceOverride: &price, OfferID: "off-3", OfferQty: 100,
	}); err != nil {
		t.Fatal(err)
	}

	// Omitted offer id removes only the plain line.
	if err := f.cart.Remove(sid, testLot, "", "", nil); err != nil {
		t.Fatal(err)
	}
	cv, _ := f.cart.View(sid)
	if len(cv.Lines) != 1 || cv.Lines[0].OfferID != "off-3" {
		t.Fatalf("negotiated line must survive, got %+v", cv.Lines)
	}

	// Removing a line that is gone reports not-found.
	if err := f.cart.Remove(sid, testLot, "", "", nil); !errors.Is(err, services.ErrLineNotFound) {
		t.Fatalf("want ErrLineNotFound, got %v", err)
	}
}

func TestCartVersionConflict(t *testing.T) {
	f := newFixture(t)
	sid := "s-version"

	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, Qty: 50}); err != nil {
		t.Fatal(err)
	}
	cv, _ := f.cart.View(sid)
	stale := cv.Version - 1
	err := f.cart.UpdateQuantity(sid, testLot, "", "", 75, &stale)
	if !errors.Is(err, services.ErrCartVersionConflict) {
		t.Fatalf("want ErrCartVersionConflict, got %v", err)
	}
	// The current version is accepted.
	if err := f.cart.UpdateQuantity(sid, testLot, "", "", 75, &cv.Version); err != nil {
		t.Fatal(err)
	}
}

func TestCartRepriceForRole(t *testing.T) {
	f := newFixture(t)
	sid := "s-reprice"

	// Anonymous add: fee-inclusive 43.99.
	if err := f.cart.Add(services.AddInput{SessionID: sid, ProductID: testLot, Qty: 50}); err != nil {
		t.Fatal(err)
	}

	// Logging in as a seller strips the fee back to the list price.
	if err := f.cart.RepriceForRole(sid, "SELLER"); err != nil {
		t.Fatal(err)
	}
	cv, _ := f.cart.View(sid)
	if got := cv.Lines[0].UnitPrice; got != 42.50 {
		t.Fatalf("want fee stripped to 42.50, got %v", got)
	}

	// And logging out restores the buyer view.
	if err := f.cart.RepriceForRole(sid, ""); err != nil {
		t.Fatal(err)
	}
	cv, _ = f.cart.View(sid)
	if got := cv.Lines[0].UnitPrice; got != 43.99 {
		t.Fatalf("want fee re-applied to 43.99, got %v", got)
	}
}

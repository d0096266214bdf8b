package invoice

import (
	"bytes"
	"testing"

	"clearlot/internal/domain"
	"clearlot/internal/repos"
)

func TestPDF_WellFormed(t *testing.T) {
	inv := Invoice{
		Order: domain.Order{
			ID: "ord-123", Status: domain.OrderAwaitingWire,
			Total: 2220.38, ShippingCost: 85.00,
			CreatedAt: "2026-02-10T12:00:00Z", WireDeadline: "2026-02-12T12:00:00Z",
		},
		Items: []repos.OrderItemView{
			{ProductID: "lot-1", Title: "Customer Return Tablets (grade A)", Qty: 50, UnitPrice: 42.70, TotalPrice: 2135.38},
		},
		BuyerName:  "Dana Buyer",
		SellerName: "Sam Seller",
	}

	b := inv.PDF()
	if !bytes.HasPrefix(b, []byte("%PDF-1.4")) {
		t.Fatalf("missing PDF header: %q", b[:16])
	}
	if !bytes.HasSuffix(bytes.TrimRight(b, "\n"), []byte("%%EOF")) {
		t.Fatal("missing EOF marker")
	}
	for _, want := range []string{"ord-123", "Dana Buyer", "2220.38", "xref", "trailer", "/Helvetica"} {
		if !bytes.Contains(b, []byte(want)) {
			t.Fatalf("output missing %q", want)
		}
	}
	// escaped parentheses must not break the content stream
	if bytes.Contains(b, []byte("(grade A)")) {
		t.Fatal("unescaped parentheses in text")
	}
}

// Package invoice emits single-page PDF invoices for orders. The writer
// builds the five objects a minimal viewer needs (catalog, page tree,
// page, Helvetica font, content stream) and a correct xref table; no
// compression, no embedded fonts.
package invoice

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"clearlot/internal/domain"
	"clearlot/internal/repos"
)

type Invoice struct {
	Order      domain.Order
	Items      []repos.OrderItemView
	BuyerName  string
	SellerName string
}

// PDF renders the invoice as a complete PDF byte stream.
func (inv Invoice) PDF() []byte {
	content := inv.contentStream()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func (inv Invoice) contentStream() string {
	var b strings.Builder
	y := 742.0
	line := func(size float64, text string) {
		fmt.Fprintf(&b, "BT /F1 %.0f Tf 56 %.0f Td (%s) Tj ET\n", size, y, escape(text))
		y -= size + 8
	}

	line(18, "CLEARLOT  -  Wholesale Invoice")
	line(10, "Order "+inv.Order.ID)
	created := inv.Order.CreatedAt
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		created = t.Format("January 2, 2006")
	}
	line(10, "Date: "+created)
	line(10, "Buyer: "+inv.BuyerName)
	line(10, "Seller: "+inv.SellerName)
	line(10, "Status: "+inv.Order.Status)
	y -= 10

	line(10, fmt.Sprintf("%-40s %8s %12s %12s", "Item", "Qty", "Unit", "Total"))
	for _, it := range inv.Items {
		title := it.Title
		if it.VariationKey != "" {
			title += " (" + it.VariationKey + ")"
		}
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		line(10, fmt.Sprintf("%-40s %8d %12.2f %12.2f", title, it.Qty, it.UnitPrice, it.TotalPrice))
	}
	y -= 6
	if inv.Order.ShippingCost > 0 {
		line(10, fmt.Sprintf("Shipping: %.2f", inv.Order.ShippingCost))
	}
	line(12, fmt.Sprintf("Total due by wire: USD %.2f", inv.Order.Total))
	if inv.Order.WireDeadline != "" {
		line(9, "Wire deadline: "+inv.Order.WireDeadline)
	}
	return b.String()
}

// escape protects the PDF string delimiters.
func escape(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "(", "\\(", ")", "\\)")
	return r.Replace(s)
}

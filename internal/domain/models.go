package domain

import "encoding/json"

type Category struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

// Product is a closeout lot listed by a seller. Price is the seller's
// fee-exclusive unit price; buyers see it with the service fee applied.
type Product struct {
	ID              string  `db:"id"`
	SellerID        string  `db:"seller_id"`
	CategoryID      string  `db:"category_id"`
	Title           string  `db:"title"`
	Description     string  `db:"description"`
	Price           float64 `db:"price"`
	TotalUnits      int     `db:"total_units"`
	AvailableUnits  int     `db:"available_units"`
	MinOrderQty     int     `db:"min_order_qty"`
	OrderMultiple   int     `db:"order_multiple"`
	VariationStocks string  `db:"variation_stocks_json"` // varKey -> units
	VariationPrices string  `db:"variation_prices_json"` // varKey -> unit price
	ImagesJSON      string  `db:"images_json"`
	Active          bool    `db:"active"`
	CreatedAt       string  `db:"created_at"`
	UpdatedAt       string  `db:"updated_at"`
}

// StockFor returns the sellable units for a variation key, falling back to
// the product-level pool when the lot has no per-variation stock.
func (p Product) StockFor(varKey string) int {
	if p.VariationStocks != "" && varKey != "" {
		var m map[string]int
		if err := json.Unmarshal([]byte(p.VariationStocks), &m); err == nil {
			if q, ok := m[varKey]; ok {
				return q
			}
		}
	}
	return p.AvailableUnits
}

// PriceFor returns the fee-exclusive unit price for a variation key,
// honoring per-variation overrides.
func (p Product) PriceFor(varKey string) float64 {
	if p.VariationPrices != "" && varKey != "" {
		var m map[string]float64
		if err := json.Unmarshal([]byte(p.VariationPrices), &m); err == nil {
			if v, ok := m[varKey]; ok {
				return v
			}
		}
	}
	return p.Price
}

// Offer statuses. Accepted, rejected and expired are terminal.
const (
	OfferPending   = "PENDING"
	OfferCountered = "COUNTERED"
	OfferAccepted  = "ACCEPTED"
	OfferRejected  = "REJECTED"
	OfferExpired   = "EXPIRED"
)

type Offer struct {
	ID          string  `db:"id"`
	BuyerID     string  `db:"buyer_id"`
	SellerID    string  `db:"seller_id"`
	ProductID   string  `db:"product_id"`
	Quantity    int     `db:"quantity"`
	Price       float64 `db:"price"` // negotiated fee-exclusive unit price
	Status      string  `db:"status"`
	CounteredBy string  `db:"countered_by"` // '' | seller | buyer
	Rounds      int     `db:"rounds"`
	ExpiresAt   string  `db:"expires_at"` // redemption deadline, set on acceptance
	CreatedAt   string  `db:"created_at"`
	UpdatedAt   string  `db:"updated_at"`
}

func (o Offer) Terminal() bool {
	return o.Status == OfferRejected || o.Status == OfferExpired
}

// Order statuses. Progression is linear; cancellation is only reachable
// from AwaitingWire or Ordered.
const (
	OrderAwaitingWire   = "AWAITING_WIRE"
	OrderOrdered        = "ORDERED"
	OrderShipped        = "SHIPPED"
	OrderOutForDelivery = "OUT_FOR_DELIVERY"
	OrderDelivered      = "DELIVERED"
	OrderCancelled      = "CANCELLED"
)

const (
	ShippingBuyer      = "buyer"
	ShippingSellerFree = "seller_free"
)

type Order struct {
	ID             string  `db:"id"`
	BuyerID        string  `db:"buyer_id"`
	SellerID       string  `db:"seller_id"`
	SessionID      string  `db:"session_id"`
	Status         string  `db:"status"`
	Total          float64 `db:"total"` // fee-inclusive, includes shipping
	ShippingChoice string  `db:"shipping_choice"`
	ShippingCost   float64 `db:"shipping_cost"`
	PackageJSON    string  `db:"shipping_package_json"`
	LabelURL       string  `db:"label_url"`
	TrackingNumber string  `db:"tracking_number"`
	WireDeadline   string  `db:"wire_deadline"`
	SellerPaid     bool    `db:"seller_paid"`
	DeliveredAt    string  `db:"delivered_at"`
	CreatedAt      string  `db:"created_at"`
}

type OrderItem struct {
	OrderID      string  `db:"order_id"`
	ProductID    string  `db:"product_id"`
	VariationKey string  `db:"variation_key"`
	Qty          int     `db:"qty"`
	UnitPrice    float64 `db:"unit_price"` // fee-inclusive
	TotalPrice   float64 `db:"total_price"`
}

type Message struct {
	ID          string `db:"id"`
	SenderID    string `db:"sender_id"`
	RecipientID string `db:"recipient_id"`
	ProductID   string `db:"product_id"`
	OrderID     string `db:"order_id"`
	Body        string `db:"body"`
	Read        bool   `db:"read"`
	CreatedAt   string `db:"created_at"`
}

type Notification struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Kind      string `db:"kind"`
	Body      string `db:"body"`
	RefID     string `db:"ref_id"`
	Read      bool   `db:"read"`
	CreatedAt string `db:"created_at"`
}

const (
	TicketOpen   = "OPEN"
	TicketClosed = "CLOSED"
)

type Ticket struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Subject   string `db:"subject"`
	Body      string `db:"body"`
	Status    string `db:"status"`
	CreatedAt string `db:"created_at"`
}

type TicketReply struct {
	ID        string `db:"id"`
	TicketID  string `db:"ticket_id"`
	AuthorID  string `db:"author_id"`
	Body      string `db:"body"`
	CreatedAt string `db:"created_at"`
}

package repos

import (
	"time"

	"github.com/jmoiron/sqlx"

	"clearlot/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderCols = `
    id, buyer_id, seller_id, COALESCE(session_id,'') AS session_id, status, total,
    shipping_choice, shipping_cost, shipping_package_json, label_url,
    tracking_number, wire_deadline, seller_paid, delivered_at, created_at`

// OrderItemView joins product titles for display.
type OrderItemView struct {
	ProductID    string  `db:"product_id"`
	Title        string  `db:"title"`
	VariationKey string  `db:"variation_key"`
	Qty          int     `db:"qty"`
	UnitPrice    float64 `db:"unit_price"`
	TotalPrice   float64 `db:"total_price"`
}

func (r *OrderRepo) Create(tx *sqlx.Tx, o domain.Order) error {
	_, err := tx.Exec(`
	  INSERT INTO orders(
	    id, buyer_id, seller_id, session_id, status, total,
	    shipping_choice, shipping_cost, shipping_package_json,
	    wire_deadline, created_at
	  ) VALUES (?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
	`, o.ID, o.BuyerID, o.SellerID, o.SessionID, o.Status, o.Total,
		o.ShippingChoice, o.ShippingCost, o.PackageJSON, o.WireDeadline)
	return err
}

func (r *OrderRepo) InsertItem(tx *sqlx.Tx, it domain.OrderItem) error {
	_, err := tx.Exec(`
	  INSERT INTO order_items(order_id, product_id, variation_key, qty, unit_price, total_price)
	  VALUES(?,?,?,?,?,?)
	`, it.OrderID, it.ProductID, it.VariationKey, it.Qty, it.UnitPrice, it.TotalPrice)
	return err
}

func (r *OrderRepo) Begin() (*sqlx.Tx, error) { return r.db.Beginx() }

func (r *OrderRepo) Get(orderID string) (domain.Order, []OrderItemView, error) {
	var o domain.Order
	if err := r.db.Get(&o, `SELECT`+orderCols+` FROM orders WHERE id = ?`, orderID); err != nil {
		return domain.Order{}, nil, err
	}
	var items []OrderItemView
	if err := r.db.Select(&items, `
	  SELECT oi.product_id, p.title, oi.variation_key, oi.qty, oi.unit_price, oi.total_price
	  FROM order_items oi
	  JOIN products p ON p.id = oi.product_id
	  WHERE oi.order_id = ?
	  ORDER BY p.title, oi.variation_key
	`, orderID); err != nil {
		return domain.Order{}, nil, err
	}
	return o, items, nil
}

func (r *OrderRepo) Items(orderID string) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := r.db.Select(&items, `
	  SELECT order_id, product_id, variation_key, qty, unit_price, total_price
	  FROM order_items WHERE order_id = ?
	`, orderID)
	return items, err
}

func (r *OrderRepo) ListByBuyer(buyerID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `SELECT`+orderCols+` FROM orders WHERE buyer_id=? ORDER BY datetime(created_at) DESC`, buyerID)
	return out, err
}

func (r *OrderRepo) ListBySeller(sellerID string) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `SELECT`+orderCols+` FROM orders WHERE seller_id=? ORDER BY datetime(created_at) DESC`, sellerID)
	return out, err
}

func (r *OrderRepo) ListLatest(limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Order
	err := r.db.Select(&out, `SELECT`+orderCols+` FROM orders ORDER BY datetime(created_at) DESC LIMIT ?`, limit)
	return out, err
}

// Transition is a compare-and-swap on order status (same discipline as
// OfferRepo.Transition).
func (r *OrderRepo) Transition(id, fromStatus, toStatus string) error {
	res, err := r.db.Exec(`UPDATE orders SET status=? WHERE id=? AND status=?`, toStatus, id, fromStatus)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// MarkShipped attaches the label/tracking in the same guarded update that
// moves ORDERED to SHIPPED.
func (r *OrderRepo) MarkShipped(id, labelURL, tracking string) error {
	res, err := r.db.Exec(`
	  UPDATE orders SET status=?, label_url=?, tracking_number=?
	  WHERE id=? AND status=?
	`, domain.OrderShipped, labelURL, tracking, id, domain.OrderOrdered)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *OrderRepo) MarkDelivered(id string, at time.Time) error {
	res, err := r.db.Exec(`
	  UPDATE orders SET status=?, delivered_at=?
	  WHERE id=? AND status=?
	`, domain.OrderDelivered, at.UTC().Format(time.RFC3339), id, domain.OrderOutForDelivery)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *OrderRepo) MarkSellerPaid(id string) error {
	res, err := r.db.Exec(`
	  UPDATE orders SET seller_paid=1
	  WHERE id=? AND status=? AND seller_paid=0
	`, id, domain.OrderDelivered)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// ListWireExpired returns AWAITING_WIRE orders whose wire deadline has
// passed; the sweeper cancels them.
func (r *OrderRepo) ListWireExpired(now time.Time) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Select(&out, `
	  SELECT`+orderCols+` FROM orders
	  WHERE status='AWAITING_WIRE' AND wire_deadline != '' AND wire_deadline < ?
	`, now.UTC().Format(time.RFC3339))
	return out, err
}

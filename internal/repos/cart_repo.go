package repos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

// CartLine is a stored cart line. Lines are keyed by (cart, product,
// variation, offer); an offer-backed line carries the offer's quantity
// cap and is quantity-immutable.
type CartLine struct {
	CartID           string  `db:"cart_id"`
	ProductID        string  `db:"product_id"`
	VariationKey     string  `db:"variation_key"`
	OfferID          string  `db:"offer_id"`
	Qty              int     `db:"qty"`
	UnitPrice        float64 `db:"unit_price"`
	PriceIncludesFee bool    `db:"price_includes_fee"`
	OfferQty         int     `db:"offer_qty"`
}

func (r *CartRepo) EnsureCart(sessionID string) (string, error) {
	var cartID string
	if err := r.db.Get(&cartID, `SELECT id FROM carts WHERE session_id = ?`, sessionID); err == nil {
		return cartID, nil
	}
	_, err := r.db.Exec(`INSERT INTO carts(id,session_id,version,updated_at) VALUES(?,?,0,?)`,
		sessionID, sessionID, time.Now().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (r *CartRepo) Version(cartID string) (int, error) {
	var v int
	err := r.db.Get(&v, `SELECT version FROM carts WHERE id = ?`, cartID)
	return v, err
}

// bump advances the cart version; every successful mutation goes through
// here so concurrent tabs can detect each other.
func (r *CartRepo) bump(cartID string) error {
	_, err := r.db.Exec(`UPDATE carts SET version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, cartID)
	return err
}

func (r *CartRepo) Lines(cartID string) ([]CartLine, error) {
	lines := []CartLine{}
	err := r.db.Select(&lines, `
	  SELECT cart_id, product_id, variation_key, offer_id, qty, unit_price, price_includes_fee, offer_qty
	  FROM cart_items
	  WHERE cart_id = ?
	  ORDER BY created_at, product_id, variation_key
	`, cartID)
	return lines, err
}

func (r *CartRepo) Line(cartID, productID, varKey, offerID string) (*CartLine, error) {
	var l CartLine
	err := r.db.Get(&l, `
	  SELECT cart_id, product_id, variation_key, offer_id, qty, unit_price, price_includes_fee, offer_qty
	  FROM cart_items
	  WHERE cart_id=? AND product_id=? AND variation_key=? AND offer_id=?
	`, cartID, productID, varKey, offerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *CartRepo) InsertLine(l CartLine) error {
	_, err := r.db.Exec(`
	  INSERT INTO cart_items(cart_id,product_id,variation_key,offer_id,qty,unit_price,price_includes_fee,offer_qty,created_at)
	  VALUES(?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
	`, l.CartID, l.ProductID, l.VariationKey, l.OfferID, l.Qty, l.UnitPrice, l.PriceIncludesFee, l.OfferQty)
	if err != nil {
		return err
	}
	return r.bump(l.CartID)
}

func (r *CartRepo) SetQty(cartID, productID, varKey, offerID string, qty int) error {
	_, err := r.db.Exec(`
	  UPDATE cart_items SET qty=?, updated_at=CURRENT_TIMESTAMP
	  WHERE cart_id=? AND product_id=? AND variation_key=? AND offer_id=?
	`, qty, cartID, productID, varKey, offerID)
	if err != nil {
		return err
	}
	return r.bump(cartID)
}

func (r *CartRepo) SetPrice(cartID, productID, varKey, offerID string, price float64, includesFee bool) error {
	_, err := r.db.Exec(`
	  UPDATE cart_items SET unit_price=?, price_includes_fee=?, updated_at=CURRENT_TIMESTAMP
	  WHERE cart_id=? AND product_id=? AND variation_key=? AND offer_id=?
	`, price, includesFee, cartID, productID, varKey, offerID)
	return err
}

func (r *CartRepo) DeleteLine(cartID, productID, varKey, offerID string) (bool, error) {
	res, err := r.db.Exec(`
	  DELETE FROM cart_items
	  WHERE cart_id=? AND product_id=? AND variation_key=? AND offer_id=?
	`, cartID, productID, varKey, offerID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	return true, r.bump(cartID)
}

func (r *CartRepo) Clear(cartID string) error {
	if _, err := r.db.Exec(`DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return err
	}
	return r.bump(cartID)
}

// MergeForLogin folds an anonymous session cart into the user's cart when
// they log in. Offer-backed lines keep their fixed quantity (the offer
// cap wins over summed quantities).
func (r *CartRepo) MergeForLogin(userID, sid string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// The cart follows the session id, so after BindSession the same cart
	// serves the logged-in user; all that is needed here is linking the
	// session row.
	_, _ = tx.Exec(`UPDATE sessions SET user_id=?, last_seen=CURRENT_TIMESTAMP WHERE id=?`, userID, sid)
	return tx.Commit()
}

package repos

import (
	"time"

	"github.com/jmoiron/sqlx"
)

type WatchlistRepo struct{ db *sqlx.DB }

func NewWatchlistRepo(db *sqlx.DB) *WatchlistRepo { return &WatchlistRepo{db: db} }

func (r *WatchlistRepo) Ensure(sessionID string) (string, error) {
	var id string
	if err := r.db.Get(&id, `SELECT id FROM watchlists WHERE session_id=?`, sessionID); err == nil {
		return id, nil
	}
	_, err := r.db.Exec(`INSERT INTO watchlists(id,session_id,updated_at) VALUES(?,?,?)`,
		sessionID, sessionID, time.Now().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (r *WatchlistRepo) Add(watchlistID, productID string) error {
	_, err := r.db.Exec(`
	  INSERT INTO watchlist_items(watchlist_id, product_id, created_at)
	  VALUES(?, ?, CURRENT_TIMESTAMP)
	  ON CONFLICT(watchlist_id, product_id) DO NOTHING
	`, watchlistID, productID)
	return err
}

func (r *WatchlistRepo) Remove(watchlistID, productID string) error {
	_, err := r.db.Exec(`DELETE FROM watchlist_items WHERE watchlist_id=? AND product_id=?`, watchlistID, productID)
	return err
}

type WatchlistRow struct {
	ProductID      string  `db:"product_id"`
	Title          string  `db:"title"`
	Price          float64 `db:"price"`
	AvailableUnits int     `db:"available_units"`
	MinOrderQty    int     `db:"min_order_qty"`
	Active         bool    `db:"active"`
}

func (r *WatchlistRepo) List(watchlistID string) ([]WatchlistRow, error) {
	var out []WatchlistRow
	err := r.db.Select(&out, `
	  SELECT p.id AS product_id, p.title, p.price, p.available_units, p.min_order_qty, p.active
	  FROM watchlist_items wi
	  JOIN products p ON p.id = wi.product_id
	  WHERE wi.watchlist_id = ?
	  ORDER BY p.title
	`, watchlistID)
	return out, err
}

package repos

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"clearlot/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productCols = `
    id, seller_id, category_id, title, description, price,
    total_units, available_units, min_order_qty, order_multiple,
    variation_stocks_json, variation_prices_json, images_json, active,
    created_at, COALESCE(updated_at,'') AS updated_at`

func (r *ProductRepo) Get(id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `SELECT`+productCols+` FROM products WHERE id = ?`, id)
	return p, err
}

func (r *ProductRepo) ListByCategory(catID string, limit, offset int) ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT`+productCols+`
	  FROM products
	  WHERE category_id = ? AND active = 1
	  ORDER BY created_at DESC
	  LIMIT ? OFFSET ?
	`, catID, limit, offset)
	return out, err
}

func (r *ProductRepo) ListBySeller(sellerID string, limit, offset int) ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT`+productCols+`
	  FROM products
	  WHERE seller_id = ?
	  ORDER BY created_at DESC
	  LIMIT ? OFFSET ?
	`, sellerID, limit, offset)
	return out, err
}

func (r *ProductRepo) Search(q, catID, sellerID string, limit, offset int) ([]domain.Product, error) {
	where := `active = 1`
	args := []any{}
	if q != "" {
		where += ` AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ?)`
		args = append(args, "%"+q+"%", "%"+q+"%")
	}
	if catID != "" {
		where += ` AND category_id = ?`
		args = append(args, catID)
	}
	if sellerID != "" {
		where += ` AND seller_id = ?`
		args = append(args, sellerID)
	}

	query := `SELECT` + productCols + ` FROM products WHERE ` + where + `
	  ORDER BY created_at DESC
	  LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	var out []domain.Product
	err := r.db.Select(&out, query, args...)
	return out, err
}

func (r *ProductRepo) Create(p domain.Product) error {
	_, err := r.db.Exec(`
	  INSERT INTO products(
	    id, seller_id, category_id, title, description, price,
	    total_units, available_units, min_order_qty, order_multiple,
	    variation_stocks_json, variation_prices_json, images_json, active, created_at
	  ) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
	`, p.ID, p.SellerID, p.CategoryID, p.Title, p.Description, p.Price,
		p.TotalUnits, p.AvailableUnits, p.MinOrderQty, p.OrderMultiple,
		p.VariationStocks, p.VariationPrices, p.ImagesJSON, p.Active)
	return err
}

func (r *ProductRepo) Update(p domain.Product) error {
	_, err := r.db.Exec(`
	  UPDATE products SET
	    title=?, description=?, price=?, total_units=?, available_units=?,
	    min_order_qty=?, order_multiple=?, variation_stocks_json=?,
	    variation_prices_json=?, images_json=?, updated_at=CURRENT_TIMESTAMP
	  WHERE id=?
	`, p.Title, p.Description, p.Price, p.TotalUnits, p.AvailableUnits,
		p.MinOrderQty, p.OrderMultiple, p.VariationStocks, p.VariationPrices,
		p.ImagesJSON, p.ID)
	return err
}

func (r *ProductRepo) SetActive(id string, active bool) error {
	_, err := r.db.Exec(`UPDATE products SET active=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, active, id)
	return err
}

// AdjustStock moves available units by delta (negative at checkout,
// positive on cancellation), keeping the per-variation pool in step when
// the line names a variation. The product-level guard is in SQL so two
// concurrent checkouts cannot oversell.
func (r *ProductRepo) AdjustStock(tx *sqlx.Tx, productID, varKey string, delta int) error {
	res, err := tx.Exec(`
	  UPDATE products
	  SET available_units = available_units + ?, updated_at = CURRENT_TIMESTAMP
	  WHERE id = ? AND available_units + ? >= 0
	`, delta, productID, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("insufficient stock for %s", productID)
	}
	if varKey == "" {
		return nil
	}

	var stocksJSON string
	if err := tx.Get(&stocksJSON, `SELECT variation_stocks_json FROM products WHERE id=?`, productID); err != nil {
		return err
	}
	if stocksJSON == "" {
		return nil // lot has no per-variation pools
	}
	var stocks map[string]int
	if err := json.Unmarshal([]byte(stocksJSON), &stocks); err != nil {
		return fmt.Errorf("bad variation stocks for %s: %w", productID, err)
	}
	cur, ok := stocks[varKey]
	if !ok {
		return nil
	}
	if cur+delta < 0 {
		return fmt.Errorf("insufficient stock for %s variation %s", productID, varKey)
	}
	stocks[varKey] = cur + delta
	b, err := json.Marshal(stocks)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`UPDATE products SET variation_stocks_json=? WHERE id=?`, string(b), productID)
	return err
}

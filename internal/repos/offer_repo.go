package repos

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"clearlot/internal/domain"
)

// ErrStatusConflict is returned when a guarded status transition matched
// no row: either the id is unknown or another request moved the status
// first. Callers map it to HTTP 409.
var ErrStatusConflict = errors.New("status changed concurrently")

type OfferRepo struct{ db *sqlx.DB }

func NewOfferRepo(db *sqlx.DB) *OfferRepo { return &OfferRepo{db: db} }

const offerCols = `
    id, buyer_id, seller_id, product_id, quantity, price, status,
    countered_by, rounds, expires_at, created_at, COALESCE(updated_at,'') AS updated_at`

func (r *OfferRepo) Create(o domain.Offer) error {
	_, err := r.db.Exec(`
	  INSERT INTO offers(id,buyer_id,seller_id,product_id,quantity,price,status,countered_by,rounds,expires_at,created_at)
	  VALUES(?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
	`, o.ID, o.BuyerID, o.SellerID, o.ProductID, o.Quantity, o.Price, o.Status, o.CounteredBy, o.Rounds, o.ExpiresAt)
	return err
}

func (r *OfferRepo) Get(id string) (domain.Offer, error) {
	var o domain.Offer
	err := r.db.Get(&o, `SELECT`+offerCols+` FROM offers WHERE id = ?`, id)
	return o, err
}

func (r *OfferRepo) ListByBuyer(buyerID string) ([]domain.Offer, error) {
	var out []domain.Offer
	err := r.db.Select(&out, `SELECT`+offerCols+` FROM offers WHERE buyer_id=? ORDER BY datetime(created_at) DESC`, buyerID)
	return out, err
}

func (r *OfferRepo) ListBySeller(sellerID string) ([]domain.Offer, error) {
	var out []domain.Offer
	err := r.db.Select(&out, `SELECT`+offerCols+` FROM offers WHERE seller_id=? ORDER BY datetime(created_at) DESC`, sellerID)
	return out, err
}

// Transition is a compare-and-swap on status: the update applies only if
// the offer is still in fromStatus. Terms (price/quantity) change only on
// counters, so they ride along optionally.
func (r *OfferRepo) Transition(id, fromStatus, toStatus string) error {
	res, err := r.db.Exec(`
	  UPDATE offers SET status=?, updated_at=CURRENT_TIMESTAMP
	  WHERE id=? AND status=?
	`, toStatus, id, fromStatus)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// Accept moves the offer to ACCEPTED and stamps the redemption deadline
// in the same guarded update.
func (r *OfferRepo) Accept(id, fromStatus string, expiresAt time.Time) error {
	res, err := r.db.Exec(`
	  UPDATE offers SET status=?, expires_at=?, updated_at=CURRENT_TIMESTAMP
	  WHERE id=? AND status=?
	`, domain.OfferAccepted, expiresAt.UTC().Format(time.RFC3339), id, fromStatus)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// Counter replaces the proposed terms and re-enters COUNTERED, bumping
// the negotiation round counter. Guarded on the expected current status.
func (r *OfferRepo) Counter(id, fromStatus, counteredBy string, price float64, quantity int) error {
	res, err := r.db.Exec(`
	  UPDATE offers SET status=?, countered_by=?, price=?, quantity=?, rounds=rounds+1, updated_at=CURRENT_TIMESTAMP
	  WHERE id=? AND status=?
	`, domain.OfferCountered, counteredBy, price, quantity, id, fromStatus)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStatusConflict
	}
	return nil
}

// ExpireDue marks offers past their deadline as EXPIRED: accepted offers
// whose redemption window lapsed, and negotiations idle past the cutoff.
// Returns the ids it expired so callers can notify.
func (r *OfferRepo) ExpireDue(now time.Time, negotiationCutoff time.Time) ([]string, error) {
	nowS := now.UTC().Format(time.RFC3339)
	cutS := negotiationCutoff.UTC().Format(time.RFC3339)

	var ids []string
	err := r.db.Select(&ids, `
	  SELECT id FROM offers
	  WHERE (status='ACCEPTED' AND expires_at != '' AND expires_at < ?)
	     OR (status IN ('PENDING','COUNTERED') AND datetime(created_at) < datetime(?))
	`, nowS, cutS)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`UPDATE offers SET status='EXPIRED', updated_at=CURRENT_TIMESTAMP WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.Exec(query, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

package repos

import (
	"database/sql"
	"strconv"

	"github.com/jmoiron/sqlx"
)

const keyServiceFeeRate = "service_fee_rate"

// SettingsRepo holds admin-editable platform settings. The service fee
// rate lives here, not in a process global: reads happen per request, so
// a rate change affects only subsequently computed prices.
type SettingsRepo struct {
	db          *sqlx.DB
	defaultRate float64
}

func NewSettingsRepo(db *sqlx.DB, defaultRate float64) *SettingsRepo {
	return &SettingsRepo{db: db, defaultRate: defaultRate}
}

func (r *SettingsRepo) ServiceFeeRate() float64 {
	var v string
	err := r.db.Get(&v, `SELECT value FROM settings WHERE key=?`, keyServiceFeeRate)
	if err == sql.ErrNoRows {
		return r.defaultRate
	}
	if err != nil {
		return r.defaultRate
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f >= 1 {
		return r.defaultRate
	}
	return f
}

func (r *SettingsRepo) SetServiceFeeRate(rate float64) error {
	_, err := r.db.Exec(`
	  INSERT INTO settings(key,value,updated_at) VALUES(?,?,CURRENT_TIMESTAMP)
	  ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP
	`, keyServiceFeeRate, strconv.FormatFloat(rate, 'f', -1, 64))
	return err
}

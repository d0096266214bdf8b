package services_test

import (
	"testing"

	"github.com/jmoiron/sqlx"

	"clearlot/internal/repos"
	"clearlot/internal/services"
)

// memdb opens a fresh in-memory store with the full schema and demo
// seed: lot 'lot-tablets-a1' (price 42.50, 500 units, MOQ 50, multiple
// 25, variation pools black=300/silver=200) owned by 'u-seller', plus
// 'u-buyer' and 'u-admin'.
func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixture struct {
	db       *sqlx.DB
	carts    *repos.CartRepo
	prods    *repos.ProductRepo
	offers   *repos.OfferRepo
	orders   *repos.OrderRepo
	settings *repos.SettingsRepo

	cart  *services.CartService
	offer *services.OfferService
	order *services.OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memdb(t)
	f := &fixture{
		db:       db,
		carts:    repos.NewCartRepo(db),
		prods:    repos.NewProductRepo(db),
		offers:   repos.NewOfferRepo(db),
		orders:   repos.NewOrderRepo(db),
		settings: repos.NewSettingsRepo(db, 0.035),
	}
	notify := services.NewNotifyService(repos.NewNotificationRepo(db))
	f.cart = services.NewCartService(f.carts, f.prods, f.settings)
	f.offer = services.NewOfferService(f.offers, f.prods, f.cart, notify, 72*testHour)
	f.order = services.NewOrderService(f.carts, f.cart, f.prods, f.orders, f.offers, f.settings, notify, 48*testHour)
	return f
}

func (f *fixture) availableUnits(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.prods.Get(productID)
	if err != nil {
		t.Fatal(err)
	}
	return p.AvailableUnits
}

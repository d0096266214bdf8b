package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline data if DB is empty (idempotent; safe to run every start)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('BUYER','SELLER','ADMIN')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

-- Lot categories
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_nocase ON categories(LOWER(name));

-- Products (closeout lots)
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
  category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  title TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL CHECK (price >= 0),          -- fee-exclusive
  total_units INTEGER NOT NULL CHECK (total_units >= 0),
  available_units INTEGER NOT NULL CHECK (available_units >= 0),
  min_order_qty INTEGER NOT NULL DEFAULT 1 CHECK (min_order_qty >= 1),
  order_multiple INTEGER NOT NULL DEFAULT 1 CHECK (order_multiple >= 1),
  variation_stocks_json TEXT NOT NULL DEFAULT '',
  variation_prices_json TEXT NOT NULL DEFAULT '',
  images_json TEXT NOT NULL DEFAULT '[]',
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_seller   ON products(seller_id);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_products_title    ON products(LOWER(title));

-- Offers
CREATE TABLE IF NOT EXISTS offers(
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL REFERENCES users(id),
  seller_id TEXT NOT NULL REFERENCES users(id),
  product_id TEXT NOT NULL REFERENCES products(id),
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  price NUMERIC NOT NULL CHECK (price >= 0),          -- fee-exclusive unit price
  status TEXT NOT NULL DEFAULT 'PENDING'
    CHECK (status IN ('PENDING','COUNTERED','ACCEPTED','REJECTED','EXPIRED')),
  countered_by TEXT NOT NULL DEFAULT '',
  rounds INTEGER NOT NULL DEFAULT 0,
  expires_at TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_offers_buyer   ON offers(buyer_id);
CREATE INDEX IF NOT EXISTS idx_offers_seller  ON offers(seller_id);
CREATE INDEX IF NOT EXISTS idx_offers_status  ON offers(status);

-- Carts (session-backed, versioned for conflict detection)
CREATE TABLE IF NOT EXISTS carts(
  id TEXT PRIMARY KEY,
  session_id TEXT UNIQUE NOT NULL,
  version INTEGER NOT NULL DEFAULT 0,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS cart_items(
  cart_id    TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
  variation_key TEXT NOT NULL DEFAULT '',
  offer_id   TEXT NOT NULL DEFAULT '',
  qty INTEGER NOT NULL CHECK (qty >= 1),
  unit_price NUMERIC NOT NULL,
  price_includes_fee INTEGER NOT NULL DEFAULT 0,
  offer_qty INTEGER NOT NULL DEFAULT 0,   -- 0 = uncapped
  created_at TEXT,
  updated_at TEXT,
  PRIMARY KEY (cart_id, product_id, variation_key, offer_id)
);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL REFERENCES users(id),
  seller_id TEXT NOT NULL REFERENCES users(id),
  session_id TEXT,
  status TEXT NOT NULL DEFAULT 'AWAITING_WIRE'
    CHECK (status IN ('AWAITING_WIRE','ORDERED','SHIPPED','OUT_FOR_DELIVERY','DELIVERED','CANCELLED')),
  total NUMERIC NOT NULL,                 -- fee-inclusive, includes shipping
  shipping_choice TEXT NOT NULL DEFAULT 'buyer' CHECK (shipping_choice IN ('buyer','seller_free')),
  shipping_cost NUMERIC NOT NULL DEFAULT 0,
  shipping_package_json TEXT NOT NULL DEFAULT '',
  label_url TEXT NOT NULL DEFAULT '',
  tracking_number TEXT NOT NULL DEFAULT '',
  wire_deadline TEXT NOT NULL DEFAULT '',
  seller_paid INTEGER NOT NULL DEFAULT 0,
  delivered_at TEXT NOT NULL DEFAULT '',
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_orders_buyer   ON orders(buyer_id);
CREATE INDEX IF NOT EXISTS idx_orders_seller  ON orders(seller_id);
CREATE INDEX IF NOT EXISTS idx_orders_status  ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id  TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id),
  variation_key TEXT NOT NULL DEFAULT '',
  qty INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,            -- fee-inclusive
  total_price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, product_id, variation_key)
);

-- Messaging
CREATE TABLE IF NOT EXISTS messages(
  id TEXT PRIMARY KEY,
  sender_id TEXT NOT NULL REFERENCES users(id),
  recipient_id TEXT NOT NULL REFERENCES users(id),
  product_id TEXT NOT NULL DEFAULT '',
  order_id TEXT NOT NULL DEFAULT '',
  body TEXT NOT NULL,
  read INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient_id);

-- In-app notifications
CREATE TABLE IF NOT EXISTS notifications(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  body TEXT NOT NULL,
  ref_id TEXT NOT NULL DEFAULT '',
  read INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);

-- Support tickets
CREATE TABLE IF NOT EXISTS tickets(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  subject TEXT NOT NULL,
  body TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'OPEN' CHECK (status IN ('OPEN','CLOSED')),
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS ticket_replies(
  id TEXT PRIMARY KEY,
  ticket_id TEXT NOT NULL REFERENCES tickets(id) ON DELETE CASCADE,
  author_id TEXT NOT NULL REFERENCES users(id),
  body TEXT NOT NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);

-- Watchlists (buyers saving lots)
CREATE TABLE IF NOT EXISTS watchlists(
  id TEXT PRIMARY KEY,
  session_id TEXT UNIQUE NOT NULL,
  updated_at TEXT
);
CREATE TABLE IF NOT EXISTS watchlist_items(
  watchlist_id TEXT NOT NULL REFERENCES watchlists(id) ON DELETE CASCADE,
  product_id   TEXT NOT NULL REFERENCES products(id) ON DELETE RESTRICT,
  created_at   TEXT,
  PRIMARY KEY (watchlist_id, product_id)
);

-- Platform settings (service fee rate etc.)
CREATE TABLE IF NOT EXISTS settings(
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT
);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo categories/lots")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO categories(id,name) VALUES
	  ('electronics','Consumer Electronics'),
	  ('apparel','Apparel & Footwear'),
	  ('home-goods','Home Goods'),
	  ('mixed-lots','Mixed Lots')`)

	return tx.Commit()
}

// seedUsers ensures demo accounts exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) u {
		h, _ := bcrypt.GenerateFromPassword([]byte(raw), 12)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}
	}

	users := []u{
		mk("u-buyer", "buyer@clearlot.test", "Dana Buyer", "BUYER", "Passw0rd!"),
		mk("u-seller", "seller@clearlot.test", "Sam Seller", "SELLER", "Passw0rd!"),
		mk("u-admin", "admin@clearlot.test", "Admin", "ADMIN", "Passw0rd!"),
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	// Demo lot owned by the seeded seller (idempotent)
	_, _ = tx.Exec(`
		INSERT INTO products(
			id, seller_id, category_id, title, description, price,
			total_units, available_units, min_order_qty, order_multiple,
			variation_stocks_json, variation_prices_json, images_json
		)
		SELECT
			'lot-tablets-a1', 'u-seller', 'electronics',
			'Customer Return Tablets - Grade A', 'Pallet of tested grade-A tablet returns.',
			42.50, 500, 500, 50, 25,
			'{"color:black":300,"color:silver":200}', '{"color:silver":44.00}', '[]'
		WHERE NOT EXISTS (SELECT 1 FROM products WHERE id='lot-tablets-a1')
	`)

	return tx.Commit()
}

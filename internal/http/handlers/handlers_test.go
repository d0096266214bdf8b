package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"clearlot/internal/config"
	"clearlot/internal/http/handlers"
	"clearlot/internal/repos"
)

func testApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{ServiceFeeRate: 0.035, WireDeadline: 48 * time.Hour, RedemptionWin: 72 * time.Hour}
	deps := handlers.NewDeps(db, cfg)
	authSvc := deps.Auth

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := authSvc.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})

	api := app.Group("/api/v1")
	api.Post("/auth/login", deps.AuthHandler.Login)
	api.Get("/auth/me", deps.AuthHandler.Me)
	api.Get("/products/:id", deps.ProductHandler.Detail)
	api.Get("/cart", deps.CartHandler.View)
	api.Post("/cart/items", deps.CartHandler.Add)
	api.Post("/orders", handlers.RequireRole(authSvc, "BUYER"), deps.OrderHandler.Checkout)
	api.Post("/offers", handlers.RequireRole(authSvc, "BUYER"), deps.OfferHandler.Create)
	return app
}

// client carries the session cookie across app.Test calls.
type client struct {
	t   *testing.T
	app *fiber.App
	sid string
}

func (c *client) do(method, path, body string) (*http.Response, map[string]any) {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: c.sid})
	}
	resp, err := c.app.Test(req, -1)
	if err != nil {
		c.t.Fatal(err)
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == "sid" && ck.Value != "" {
			c.sid = ck.Value
		}
	}
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func TestCartFlow_RulesOverHTTP(t *testing.T) {
	c := &client{t: t, app: testApp(t)}

	// Anonymous browsing shows the fee-inclusive display price.
	resp, body := c.do("GET", "/api/v1/products/lot-tablets-a1", "")
	if resp.StatusCode != 200 {
		t.Fatalf("want 200, got %d (%v)", resp.StatusCode, body)
	}

	// Order-multiple violation surfaces as a 422 toast, cart untouched.
	resp, body = c.do("POST", "/api/v1/cart/items", `{"product_id":"lot-tablets-a1","qty":60}`)
	if resp.StatusCode != 422 {
		t.Fatalf("want 422, got %d (%v)", resp.StatusCode, body)
	}
	resp, body = c.do("GET", "/api/v1/cart", "")
	if resp.StatusCode != 200 {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	if lines, ok := body["lines"].([]any); ok && len(lines) != 0 {
		t.Fatalf("rejected add must not mutate: %v", body)
	}

	resp, body = c.do("POST", "/api/v1/cart/items", `{"product_id":"lot-tablets-a1","qty":75}`)
	if resp.StatusCode != 200 {
		t.Fatalf("want 200, got %d (%v)", resp.StatusCode, body)
	}
	if body["item_count"].(float64) != 75 {
		t.Fatalf("want 75 units, got %v", body["item_count"])
	}
}

func TestCheckout_RequiresLogin(t *testing.T) {
	c := &client{t: t, app: testApp(t)}

	resp, _ := c.do("POST", "/api/v1/orders", `{"shipping_choice":"seller_free"}`)
	if resp.StatusCode != 401 {
		t.Fatalf("want 401 for anonymous checkout, got %d", resp.StatusCode)
	}

	// Seeded demo buyer.
	resp, body := c.do("POST", "/api/v1/auth/login", `{"email":"buyer@clearlot.test","password":"Passw0rd!"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("login failed: %d (%v)", resp.StatusCode, body)
	}

	// Logged in but empty cart: business rejection, not auth failure.
	resp, body = c.do("POST", "/api/v1/orders", `{"shipping_choice":"seller_free"}`)
	if resp.StatusCode != 422 {
		t.Fatalf("want 422 for empty cart, got %d (%v)", resp.StatusCode, body)
	}

	if _, b := c.do("POST", "/api/v1/cart/items", `{"product_id":"lot-tablets-a1","qty":100}`); b["item_count"].(float64) != 100 {
		t.Fatalf("cart add failed: %v", b)
	}
	resp, body = c.do("POST", "/api/v1/orders", `{"shipping_choice":"seller_free"}`)
	if resp.StatusCode != 201 {
		t.Fatalf("want 201, got %d (%v)", resp.StatusCode, body)
	}
	if len(body["order_ids"].([]any)) != 1 {
		t.Fatalf("want one order id, got %v", body["order_ids"])
	}
}

func TestOffers_SellerCannotBid(t *testing.T) {
	c := &client{t: t, app: testApp(t)}

	resp, body := c.do("POST", "/api/v1/auth/login", `{"email":"seller@clearlot.test","password":"Passw0rd!"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("login failed: %d (%v)", resp.StatusCode, body)
	}
	resp, _ = c.do("POST", "/api/v1/offers", `{"product_id":"lot-tablets-a1","qty":100,"unit_price":38.00}`)
	if resp.StatusCode != 403 {
		t.Fatalf("want 403 for seller-placed offer, got %d", resp.StatusCode)
	}
}

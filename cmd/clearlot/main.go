package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clearlot/internal/config"
	"clearlot/internal/http/handlers"
	applog "clearlot/internal/log"
	"clearlot/internal/poller"
	"clearlot/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	deps := handlers.NewDeps(db, cfg)
	authSvc := deps.Auth

	// Templates & app
	engine := html.New("./web/templates", ".html")

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			if strings.HasPrefix(c.Path(), "/api/") {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "something went wrong, please try again"})
			}
			if rerr := c.Status(fiber.StatusInternalServerError).Render("error", fiber.Map{
				"Message": "Something went wrong. Please try again.",
			}); rerr != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Something went wrong. Please try again.")
			}
			return nil
		},
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	// Attach user to context if logged in
	app.Use(func(c *fiber.Ctx) error {
		if sid := c.Cookies("sid"); sid != "" {
			if u, err := authSvc.CurrentUser(sid); err == nil && u != nil {
				c.Locals("user", u)
			}
		}
		return c.Next()
	})
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return p == "/healthz" || p == "/metrics"
		},
	}))
	// CSRF covers the server-rendered pages only; the JSON API relies on
	// SameSite cookies.
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   false, // set true behind HTTPS
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("error", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))

	// ---------- Routes ----------
	api := app.Group("/api/v1")

	loginLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many attempts, try again later"})
		},
	})
	offerLimiter := limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.offers.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})

	// Auth
	api.Post("/auth/register", deps.AuthHandler.Register)
	api.Post("/auth/login", loginLimiter, deps.AuthHandler.Login)
	api.Post("/auth/logout", deps.AuthHandler.Logout)
	api.Get("/auth/me", deps.AuthHandler.Me)

	// Catalog
	api.Get("/categories", deps.CategoryHandler.List)
	api.Get("/products", deps.ProductHandler.List)
	api.Get("/products/:id", deps.ProductHandler.Detail)
	api.Get("/products/:id/availability", deps.ProductHandler.Availability)
	api.Post("/products", handlers.RequireRole(authSvc, "SELLER"), deps.ProductHandler.Create)
	api.Patch("/products/:id", handlers.RequireRole(authSvc, "SELLER"), deps.ProductHandler.Update)
	api.Post("/products/:id/deactivate", handlers.RequireUser(authSvc), deps.ProductHandler.Deactivate)

	// Offers
	api.Post("/offers", handlers.RequireRole(authSvc, "BUYER"), offerLimiter, deps.OfferHandler.Create)
	api.Get("/offers", handlers.RequireUser(authSvc), deps.OfferHandler.List)
	api.Get("/offers/:id", handlers.RequireUser(authSvc), deps.OfferHandler.Get)
	api.Post("/offers/:id/accept", handlers.RequireRole(authSvc, "SELLER"), deps.OfferHandler.SellerAccept)
	api.Post("/offers/:id/reject", handlers.RequireRole(authSvc, "SELLER"), deps.OfferHandler.SellerReject)
	api.Post("/offers/:id/counter", handlers.RequireRole(authSvc, "SELLER"), deps.OfferHandler.SellerCounter)
	api.Post("/offers/:id/buyer-accept", handlers.RequireRole(authSvc, "BUYER"), deps.OfferHandler.BuyerAccept)
	api.Post("/offers/:id/buyer-reject", handlers.RequireRole(authSvc, "BUYER"), deps.OfferHandler.BuyerReject)
	api.Post("/offers/:id/buyer-counter", handlers.RequireRole(authSvc, "BUYER"), deps.OfferHandler.BuyerCounter)
	api.Post("/offers/:id/add-to-cart", handlers.RequireRole(authSvc, "BUYER"), deps.OfferHandler.AddToCart)

	// Cart
	api.Get("/cart", deps.CartHandler.View)
	api.Post("/cart/items", deps.CartHandler.Add)
	api.Patch("/cart/items", deps.CartHandler.UpdateQty)
	api.Delete("/cart/items", deps.CartHandler.Remove)

	// Orders
	api.Post("/orders", handlers.RequireRole(authSvc, "BUYER"), deps.OrderHandler.Checkout)
	api.Get("/orders", handlers.RequireUser(authSvc), deps.OrderHandler.List)
	api.Get("/orders/:id", handlers.RequireUser(authSvc), deps.OrderHandler.View)
	api.Get("/orders/:id/invoice.pdf", handlers.RequireUser(authSvc), deps.OrderHandler.InvoicePDF)
	api.Post("/orders/:id/cancel", handlers.RequireUser(authSvc), deps.OrderHandler.Cancel)
	api.Post("/orders/:id/ship", handlers.RequireRole(authSvc, "SELLER"), deps.OrderHandler.Ship)
	api.Post("/orders/:id/advance", handlers.RequireRole(authSvc, "SELLER"), deps.OrderHandler.Advance)

	// Shipping quotes
	api.Post("/shipping/rates", handlers.RequireUser(authSvc), deps.ShippingHandler.Rates)

	// Messaging, notifications, tickets
	api.Get("/messages", handlers.RequireUser(authSvc), deps.MessageHandler.List)
	api.Post("/messages", handlers.RequireUser(authSvc), deps.MessageHandler.Send)
	api.Get("/notifications", handlers.RequireUser(authSvc), deps.NotificationHandler.List)
	api.Post("/notifications/:id/read", handlers.RequireUser(authSvc), deps.NotificationHandler.MarkRead)
	api.Post("/tickets", handlers.RequireUser(authSvc), deps.TicketHandler.Open)
	api.Get("/tickets", handlers.RequireUser(authSvc), deps.TicketHandler.List)
	api.Get("/tickets/:id", handlers.RequireUser(authSvc), deps.TicketHandler.View)
	api.Post("/tickets/:id/replies", handlers.RequireUser(authSvc), deps.TicketHandler.Reply)
	api.Post("/tickets/:id/close", handlers.RequireUser(authSvc), deps.TicketHandler.Close)

	// Watchlist (session-scoped, no login required)
	api.Get("/watchlist", deps.WatchlistHandler.List)
	api.Post("/watchlist", deps.WatchlistHandler.Add)
	api.Delete("/watchlist/:id", deps.WatchlistHandler.Remove)

	// Admin billing & moderation
	admin := api.Group("/admin", handlers.RequireAdmin(authSvc))
	admin.Get("/orders", deps.AdminHandler.Orders)
	admin.Post("/orders/:id/confirm-wire", deps.AdminHandler.ConfirmWire)
	admin.Post("/orders/:id/mark-paid", deps.AdminHandler.MarkPaid)
	admin.Get("/settings/fee-rate", deps.AdminHandler.FeeRate)
	admin.Put("/settings/fee-rate", deps.AdminHandler.SetFeeRate)
	admin.Get("/users", deps.AdminHandler.Users)
	admin.Post("/users/:id/delete", deps.AdminHandler.DeleteUser)
	admin.Get("/tickets", deps.TicketHandler.List)

	// Printable wire instructions
	app.Get("/order/:id/wire", handlers.RequireUser(authSvc), deps.OrderHandler.WirePage)

	// Ops
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// 404
	app.Use(func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/api/") {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}
		return c.Status(fiber.StatusNotFound).Render("error", fiber.Map{"Message": "Page not found"})
	})

	// Background expiry sweep
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	sweeper := poller.New(deps.Offers, deps.Orders, cfg.SweepInterval, cfg.NegotiationTTL)
	go sweeper.Run(ctx)

	go func() {
		<-ctx.Done()
		_ = app.Shutdown()
	}()

	log.Fatal(app.Listen(":" + cfg.Port))
}

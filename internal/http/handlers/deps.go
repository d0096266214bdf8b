package handlers

import (
	"github.com/jmoiron/sqlx"

	"clearlot/internal/config"
	"clearlot/internal/repos"
	"clearlot/internal/services"
	"clearlot/internal/shipping"
)

type Deps struct {
	Auth         *services.AuthService
	Offers       *services.OfferService
	Orders       *services.OrderService

	AuthHandler         *AuthHandler
	CategoryHandler     *CategoryHandler
	ProductHandler      *ProductHandler
	CartHandler         *CartHandler
	OfferHandler        *OfferHandler
	OrderHandler        *OrderHandler
	ShippingHandler     *ShippingHandler
	MessageHandler      *MessageHandler
	NotificationHandler *NotificationHandler
	TicketHandler       *TicketHandler
	WatchlistHandler    *WatchlistHandler
	AdminHandler        *AdminHandler
}

// NewDeps wires repos -> services -> handlers. The shipping client is the
// real provider when a base URL is configured, the static dev fallback
// otherwise.
func NewDeps(db *sqlx.DB, cfg config.Config) *Deps {
	userRepo := repos.NewUserRepo(db)
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	cartRepo := repos.NewCartRepo(db)
	offerRepo := repos.NewOfferRepo(db)
	orderRepo := repos.NewOrderRepo(db)
	msgRepo := repos.NewMessageRepo(db)
	notifRepo := repos.NewNotificationRepo(db)
	ticketRepo := repos.NewTicketRepo(db)
	watchRepo := repos.NewWatchlistRepo(db)
	settingsRepo := repos.NewSettingsRepo(db, cfg.ServiceFeeRate)

	var ship shipping.Client = shipping.StaticClient{}
	if cfg.ShippingAPIURL != "" {
		ship = shipping.NewHTTPClient(cfg.ShippingAPIURL, cfg.ShippingAPIKey)
	}

	notifySvc := services.NewNotifyService(notifRepo)
	cartSvc := services.NewCartService(cartRepo, prodRepo, settingsRepo)
	catalogSvc := services.NewCatalogService(catRepo, prodRepo, settingsRepo)
	offerSvc := services.NewOfferService(offerRepo, prodRepo, cartSvc, notifySvc, cfg.RedemptionWin)
	orderSvc := services.NewOrderService(cartRepo, cartSvc, prodRepo, orderRepo, offerRepo, settingsRepo, notifySvc, cfg.WireDeadline)
	supportSvc := services.NewSupportService(ticketRepo, notifySvc)
	authSvc := &services.AuthService{Users: userRepo, Carts: cartRepo, Cart: cartSvc}

	return &Deps{
		Auth:   authSvc,
		Offers: offerSvc,
		Orders: orderSvc,

		AuthHandler:         &AuthHandler{Auth: authSvc},
		CategoryHandler:     &CategoryHandler{Catalog: catalogSvc},
		ProductHandler:      &ProductHandler{Catalog: catalogSvc, Prods: prodRepo},
		CartHandler:         &CartHandler{Cart: cartSvc},
		OfferHandler:        &OfferHandler{Offers: offerSvc, Repo: offerRepo},
		OrderHandler:        &OrderHandler{Order: orderSvc, Repo: orderRepo, Users: userRepo, Shipping: ship, Cfg: cfg},
		ShippingHandler:     &ShippingHandler{Client: ship},
		MessageHandler:      &MessageHandler{Repo: msgRepo, Users: userRepo, Notify: notifySvc},
		NotificationHandler: &NotificationHandler{Notify: notifySvc},
		TicketHandler:       &TicketHandler{Support: supportSvc},
		WatchlistHandler:    &WatchlistHandler{Repo: watchRepo, Prods: prodRepo},
		AdminHandler:        &AdminHandler{Order: orderSvc, Orders: orderRepo, Users: userRepo, Settings: settingsRepo},
	}
}

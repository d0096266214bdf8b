package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"clearlot/internal/domain"
	applog "clearlot/internal/log"
	"clearlot/internal/repos"
	"clearlot/internal/services"
	"clearlot/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
	Prods   *repos.ProductRepo
}

// List handles GET /api/v1/products with optional q, category, seller
// and page filters; prices are adjusted for the viewer's role.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	q := ""
	if raw := c.Query("q"); raw != "" {
		var ok bool
		if q, ok = validate.Q(raw); !ok {
			return badRequest(c, "invalid search query")
		}
	}
	category := c.Query("category")
	seller := c.Query("seller")
	page := c.QueryInt("page", 1)

	prods, err := h.Catalog.Search(q, category, seller, currentRole(c), page, c.QueryInt("page_size", 12))
	if err != nil {
		applog.Error(c, "products.list.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(prods)
}

func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	p, err := h.Catalog.GetProduct(id, currentRole(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

// Availability is the stock probe the product page polls per variation.
func (h *ProductHandler) Availability(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	varKey, ok := validate.VarKey(c.Query("variation"))
	if !ok {
		return badRequest(c, "invalid variation key")
	}
	a, err := h.Catalog.CheckAvailability(id, varKey)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(a)
}

type productReq struct {
	CategoryID      string             `json:"category_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Price           float64            `json:"price"`
	TotalUnits      int                `json:"total_units"`
	MinOrderQty     int                `json:"min_order_qty"`
	OrderMultiple   int                `json:"order_multiple"`
	VariationStocks map[string]int     `json:"variation_stocks"`
	VariationPrices map[string]float64 `json:"variation_prices"`
	Images          []string           `json:"images"`
}

func (r productReq) validate() (string, bool) {
	if _, ok := validate.ID(r.CategoryID); !ok {
		return "invalid category", false
	}
	if r.Title == "" || len(r.Title) > 140 {
		return "title must be 1-140 characters", false
	}
	if r.Price < 0 || r.TotalUnits < 0 {
		return "price and units must be non-negative", false
	}
	if r.MinOrderQty < 1 || r.OrderMultiple < 1 {
		return "min order quantity and order multiple must be at least 1", false
	}
	return "", true
}

func (r productReq) apply(p *domain.Product) {
	p.CategoryID = r.CategoryID
	p.Title = r.Title
	p.Description = r.Description
	p.Price = r.Price
	p.TotalUnits = r.TotalUnits
	p.MinOrderQty = r.MinOrderQty
	p.OrderMultiple = r.OrderMultiple
	if r.VariationStocks != nil {
		b, _ := json.Marshal(r.VariationStocks)
		p.VariationStocks = string(b)
	}
	if r.VariationPrices != nil {
		b, _ := json.Marshal(r.VariationPrices)
		p.VariationPrices = string(b)
	}
	if r.Images != nil {
		b, _ := json.Marshal(r.Images)
		p.ImagesJSON = string(b)
	}
}

// Create lists a new lot for the selling user.
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	u := currentUser(c)
	var req productReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if msg, ok := req.validate(); !ok {
		return badRequest(c, msg)
	}

	p := domain.Product{
		ID:         uuid.NewString(),
		SellerID:   u.ID,
		ImagesJSON: "[]",
		Active:     true,
	}
	req.apply(&p)
	p.AvailableUnits = p.TotalUnits

	if err := h.Prods.Create(p); err != nil {
		applog.Error(c, "products.create.fail", err, nil)
		return fail(c, err)
	}
	applog.Audit(c, "products.create", map[string]any{"product_id": p.ID})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": p.ID})
}

// Update edits a lot the seller owns. Available units follow the total
// adjustment so an edit cannot strand sold stock.
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	p, err := h.Prods.Get(id)
	if err != nil {
		return fail(c, err)
	}
	if p.SellerID != u.ID && u.Role != domain.RoleAdmin {
		applog.Security(c, "products.update.denied", map[string]any{"product_id": id})
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not your lot"})
	}

	var req productReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if msg, ok := req.validate(); !ok {
		return badRequest(c, msg)
	}
	sold := p.TotalUnits - p.AvailableUnits
	req.apply(&p)
	if p.TotalUnits < sold {
		return badRequest(c, "total units cannot drop below units already sold")
	}
	p.AvailableUnits = p.TotalUnits - sold

	if err := h.Prods.Update(p); err != nil {
		applog.Error(c, "products.update.fail", err, map[string]any{"product_id": id})
		return fail(c, err)
	}
	applog.Audit(c, "products.update", map[string]any{"product_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

// Deactivate pulls a lot from the marketplace (seller or moderation).
func (h *ProductHandler) Deactivate(c *fiber.Ctx) error {
	u := currentUser(c)
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "invalid product id")
	}
	p, err := h.Prods.Get(id)
	if err != nil {
		return fail(c, err)
	}
	if p.SellerID != u.ID && u.Role != domain.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not your lot"})
	}
	if err := h.Prods.SetActive(id, false); err != nil {
		return fail(c, err)
	}
	applog.Audit(c, "products.deactivate", map[string]any{"product_id": id})
	return c.JSON(fiber.Map{"ok": true})
}

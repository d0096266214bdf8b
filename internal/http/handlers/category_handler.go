package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "clearlot/internal/log"
	"clearlot/internal/services"
)

type CategoryHandler struct {
	Catalog *services.CatalogService
}

func (h *CategoryHandler) List(c *fiber.Ctx) error {
	cats, err := h.Catalog.ListCategories()
	if err != nil {
		applog.Error(c, "categories.list.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(cats)
}

package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	applog "clearlot/internal/log"
	"clearlot/internal/shipping"
)

type ShippingHandler struct {
	Client shipping.Client
}

// Rates quotes a parcel without creating anything.
func (h *ShippingHandler) Rates(c *fiber.Ctx) error {
	var pkg shipping.Package
	if err := c.BodyParser(&pkg); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()
	rates, err := h.Client.Rates(ctx, pkg)
	if err != nil {
		applog.Error(c, "shipping.rates.fail", err, nil)
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"rates": rates})
}

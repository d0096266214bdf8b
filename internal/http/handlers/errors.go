package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	"clearlot/internal/repos"
	"clearlot/internal/services"
	"clearlot/internal/shipping"
)

// fail translates service errors into the JSON the frontend turns into
// toasts. Business rejections are 422, ownership misses 403, races 409.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		status = fiber.StatusNotFound
	case errors.Is(err, repos.ErrStatusConflict),
		errors.Is(err, services.ErrCartVersionConflict):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrNotYourOffer),
		errors.Is(err, services.ErrNotYourOrder),
		errors.Is(err, services.ErrNotYourTicket):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrBelowMinimum),
		errors.Is(err, services.ErrNotMultiple),
		errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrOfferLineImmutable),
		errors.Is(err, services.ErrLineNotFound),
		errors.Is(err, services.ErrLotInactive),
		errors.Is(err, services.ErrOfferTerminal),
		errors.Is(err, services.ErrOfferNotActionable),
		errors.Is(err, services.ErrOfferExpired),
		errors.Is(err, services.ErrTooManyRounds),
		errors.Is(err, services.ErrOwnLot),
		errors.Is(err, services.ErrCartEmpty),
		errors.Is(err, services.ErrNotCancellable),
		errors.Is(err, services.ErrPayoutNotDue),
		errors.Is(err, services.ErrBadShippingChoice):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, shipping.ErrUnavailable):
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

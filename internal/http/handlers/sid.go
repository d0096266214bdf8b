package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"clearlot/internal/domain"
)

// ensureSID guarantees a session cookie; anonymous carts and watchlists
// hang off it until login binds it to a user.
func ensureSID(c *fiber.Ctx) string {
	sid := c.Cookies("sid")
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     "sid",
			Value:    sid,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Secure:   false, // enable true behind TLS
		})
	}
	return sid
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

func currentRole(c *fiber.Ctx) string {
	if u := currentUser(c); u != nil {
		return u.Role
	}
	return ""
}

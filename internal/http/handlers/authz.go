package handlers

import (
	"clearlot/internal/domain"
	applog "clearlot/internal/log"
	"clearlot/internal/services"

	"github.com/gofiber/fiber/v2"
)

// RequireUser enforces a logged-in session for JSON routes.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
		}
		u, err := auth.CurrentUser(sid)
		if err != nil || u == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
		}
		c.Locals("user", u)
		return c.Next()
	}
}

// RequireRole gates a route to the given roles (admins implied).
func RequireRole(auth *services.AuthService, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies("sid")
		if sid == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
		}
		u, err := auth.CurrentUser(sid)
		if err != nil || u == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "login required"})
		}
		if u.Role != domain.RoleAdmin {
			allowed := false
			for _, r := range roles {
				if u.Role == r {
					allowed = true
					break
				}
			}
			if !allowed {
				applog.Security(c, "access.denied.role", map[string]any{"need": roles})
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
			}
		}
		c.Locals("user", u)
		return c.Next()
	}
}

func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return RequireRole(auth)
}

package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	applog "clearlot/internal/log"
	"clearlot/internal/services"
	"clearlot/internal/validate"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type registerReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register is deliberately single-shot: the client must not retry on a
// transient failure, or a duplicate submission surfaces as a false
// "already exists".
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	email, ok := validate.Email(req.Email)
	if !ok {
		return badRequest(c, "invalid email")
	}
	name, ok := validate.Name(req.Name)
	if !ok {
		return badRequest(c, "name must be 1-40 characters")
	}
	role, ok := validate.Role(req.Role)
	if !ok {
		return badRequest(c, "role must be buyer or seller")
	}
	if !validate.Password(req.Password) {
		return badRequest(c, "password must be 8-64 chars with upper, lower, digit and symbol")
	}

	u, err := h.Auth.Register(email, name, req.Password, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "an account with this email already exists"})
		}
		applog.Error(c, "auth.register.fail", err, nil)
		return fail(c, err)
	}
	applog.Audit(c, "auth.register", map[string]any{"email": email, "role": role})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	sid := ensureSID(c)
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if _, ok := validate.Email(req.Email); !ok {
		applog.Security(c, "auth.login.fail", map[string]any{"reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	}
	u, err := h.Auth.Login(sid, req.Email, req.Password)
	if err != nil {
		applog.Security(c, "auth.login.fail", map[string]any{"email": req.Email})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid email or password"})
	}
	applog.Audit(c, "auth.login.success", map[string]any{"email": u.Email})
	return c.JSON(fiber.Map{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sid := ensureSID(c)
	_ = h.Auth.Logout(sid)
	c.Cookie(&fiber.Cookie{
		Name:     "sid",
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
	applog.Audit(c, "auth.logout", map[string]any{"sid": sid})
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not logged in"})
	}
	return c.JSON(fiber.Map{"id": u.ID, "email": u.Email, "name": u.Name, "role": u.Role})
}

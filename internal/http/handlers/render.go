package handlers

import "github.com/gofiber/fiber/v2"

// render serves the few server-rendered pages (wire instructions, error
// page), injecting the logged-in user when present.
func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if u := c.Locals("user"); u != nil {
		data["User"] = u
	}
	return c.Render(tmpl, data)
}

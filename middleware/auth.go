package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AnglerContextMiddleware extracts the angler identity and roles the Gateway
// forwards on secured routes. Handlers read them from Locals; an absent
// X-User-ID on a secured route is rejected here so handlers can assume it.
func AnglerContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		anglerID := c.Get("X-User-ID")
		if anglerID == "" {
			log.Printf("[ANGLER_CTX] X-User-ID missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals("angler_id", anglerID)
		c.Locals("angler_roles", roles)

		return c.Next()
	}
}

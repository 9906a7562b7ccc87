package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// defaultAPIVersion is assumed when the client sends no version header.
const defaultAPIVersion = "1.0.0"

// VersionMiddleware parses the X-Api-Version header and stores it in context
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", defaultAPIVersion)

		// Support the short alias
		if version == "1.0" {
			version = defaultAPIVersion
		}

		c.Locals("apiVersion", version)

		return c.Next()
	}
}

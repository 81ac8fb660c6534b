// Package auth guards the mutating pipeline routes with a shared API key.
// Read-only report routes stay open.
package auth

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// HeaderAPIKey is the request header carrying the pipeline API key.
const HeaderAPIKey = "X-API-Key"

// RequireAPIKey rejects requests whose X-API-Key header does not match the
// configured key. An empty configured key disables the check, which is the
// expected setup for local development.
func RequireAPIKey(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if apiKey == "" {
			return c.Next()
		}

		provided := c.Get(HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or missing API key",
			})
		}
		return c.Next()
	}
}

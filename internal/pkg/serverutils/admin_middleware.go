package serverutils

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// AdminTokenMiddleware requires the X-Admin-Token header to equal token.
// An empty token disables the protected routes entirely.
func AdminTokenMiddleware(token string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if token == "" {
			return ctx.Status(fiber.StatusForbidden).JSON(ErrorResponse(403, "Admin access is disabled"))
		}
		got := ctx.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Missing or invalid admin token"))
		}
		return ctx.Next()
	}
}

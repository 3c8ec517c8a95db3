package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DBDeadline bounds the database work of each request: handlers pass
// c.UserContext() down, and it expires after timeout.
func DBDeadline(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

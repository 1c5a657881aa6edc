package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/usercontext"
)

// RequireBuyer ensures the request names the buyer it acts for.
func RequireBuyer(c *fiber.Ctx) error {
	if usercontext.GetBuyerEmail(c) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": "Missing " + usercontext.HeaderUserEmail + " header"})
	}
	return c.Next()
}

package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/entitlements"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/usercontext"
)

// BuyerContextMiddleware reads the buyer identity from X-User-Email and
// stores it normalized. It never rejects; RequireBuyer does that.
func BuyerContextMiddleware(c *fiber.Ctx) error {
	ctx := usercontext.GetBuyerContext(c)
	ctx.Email = entitlements.NormalizeEmail(c.Get(usercontext.HeaderUserEmail))
	usercontext.SetBuyerContext(c, ctx)
	return c.Next()
}

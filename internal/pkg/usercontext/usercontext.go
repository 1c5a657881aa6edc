package usercontext

import "github.com/gofiber/fiber/v2"

// BuyerContext is the identity a run or entitlement request acts for. The
// gateway trusts the caller's X-User-Email once the API key checked out.
type BuyerContext struct {
	Email         string `json:"email"`
	Authenticated bool   `json:"authenticated"`
}

// GetBuyerContext retrieves the buyer context from fiber context.
// Returns an anonymous context if none is set.
func GetBuyerContext(c *fiber.Ctx) BuyerContext {
	if ctx, ok := c.Locals(KeyBuyerContext).(BuyerContext); ok {
		return ctx
	}
	return BuyerContext{}
}

// SetBuyerContext stores the buyer context for later handlers.
func SetBuyerContext(c *fiber.Ctx, ctx BuyerContext) {
	c.Locals(KeyBuyerContext, ctx)
}

// GetBuyerEmail returns the normalized buyer email, or "" when none was sent.
func GetBuyerEmail(c *fiber.Ctx) string {
	return GetBuyerContext(c).Email
}

// IsAuthenticated reports whether the request passed the API key check.
func IsAuthenticated(c *fiber.Ctx) bool {
	return GetBuyerContext(c).Authenticated
}

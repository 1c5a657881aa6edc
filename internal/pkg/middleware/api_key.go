package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/usercontext"
)

// APIKeyAuthMiddleware guards the /v1 API with the shared gateway key.
// An unset key rejects every request; the API is never left open.
func APIKeyAuthMiddleware(expected string) fiber.Handler {
	expected = strings.TrimSpace(expected)
	return func(c *fiber.Ctx) error {
		if expected == "" {
			log.Error().Str("path", c.Path()).Msg("GATEWAY_API_KEY not configured")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key not configured"})
		}

		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			log.Warn().Str("path", c.Path()).Str("ip", c.IP()).Msg("invalid API key")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}

		ctx := usercontext.GetBuyerContext(c)
		ctx.Authenticated = true
		usercontext.SetBuyerContext(c, ctx)
		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	if key := strings.TrimSpace(c.Get("X-API-Key")); key != "" {
		return key
	}
	authz := strings.TrimSpace(c.Get("Authorization"))
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/apperror"
)

// respondError writes the JSON error body for a domain error. The body only
// carries the fixed message for the error code; the error itself is logged.
func respondError(c *fiber.Ctx, err error, extra ...fiber.Map) error {
	status := apperror.HTTPStatus(err)
	body := fiber.Map{"ok": false, "error": apperror.Code(err), "message": apperror.Message(err)}

	var upstream *apperror.UpstreamError
	if errors.As(err, &upstream) {
		body["upstream"] = fiber.Map{
			"provider": upstream.Provider,
			"status":   upstream.Status,
			"code":     upstream.Code,
		}
	}
	if status >= fiber.StatusInternalServerError && upstream == nil {
		log.Error().Err(err).Str("path", c.Path()).Str("ip", GetClientIP(c)).Int("status", status).Msg("request failed")
	} else {
		log.Warn().Err(err).Str("path", c.Path()).Int("status", status).Msg("request rejected")
	}
	for _, m := range extra {
		for k, v := range m {
			body[k] = v
		}
	}
	return c.Status(status).JSON(body)
}

// GetClientIP prefers the proxy headers a load balancer sets over the
// socket address.
func GetClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		// the first entry is the original client
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return strings.TrimPrefix(c.IP(), "::ffff:")
}

package controllers

import (
	"context"
	"errors"
	"mime"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/billing"
)

// WebhookProcessor is satisfied by *billing.Processor.
type WebhookProcessor interface {
	Handle(ctx context.Context, ev billing.Event) (*billing.AuthorizationResult, error)
}

// webhookAdapter maps a provider's flattened delivery onto billing.Event.
type webhookAdapter struct {
	secretField string
	toEvent     func(fields map[string]string) billing.Event
}

var webhookAdapters = map[string]webhookAdapter{
	billing.ProviderThriveCart: {secretField: billing.ThriveCartSecretField, toEvent: billing.ThriveCartEvent},
}

// BillingController receives checkout webhooks.
type BillingController struct {
	processor WebhookProcessor
	secrets   map[string]string
}

// NewBillingController creates the webhook controller. secrets is keyed by
// provider name; a provider without an adapter is never routed.
func NewBillingController(processor WebhookProcessor, secrets map[string]string) *BillingController {
	return &BillingController{processor: processor, secrets: secrets}
}

// HandleWebhook verifies the shared secret and applies one delivery.
func (bc *BillingController) HandleWebhook(c *fiber.Ctx) error {
	provider := strings.ToLower(strings.TrimSpace(c.Params("provider")))
	adapter, ok := webhookAdapters[provider]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"ok": false, "error": "not_found", "message": "Unknown billing provider"})
	}

	fields, err := parseWebhookFields(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"ok": false, "error": "malformed_event", "message": "Could not parse webhook body"})
	}

	if err := billing.VerifySharedSecret(bc.secrets[provider], fields[adapter.secretField]); err != nil {
		if errors.Is(err, billing.ErrSecretNotConfigured) {
			log.Error().Str("provider", provider).Msg("webhook secret not configured")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"ok": false, "error": "internal_server_error", "message": "Webhook secret not configured"})
		}
		log.Warn().Str("provider", provider).Str("ip", GetClientIP(c)).Msg("webhook secret mismatch")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"ok": false, "error": "unauthorized", "message": "Invalid webhook secret"})
	}

	res, err := bc.processor.Handle(c.UserContext(), adapter.toEvent(fields))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"ok":          true,
		"event":       res.Event,
		"sku":         res.Sku,
		"agents":      res.Agents,
		"source":      res.Source,
		"created":     res.Created,
		"reactivated": res.Reactivated,
		"revoked":     res.Revoked,
		"duplicate":   res.Duplicate,
	})
}

// HandleProbe answers the URL check checkout providers run before saving a
// webhook target.
func (bc *BillingController) HandleProbe(c *fiber.Ctx) error {
	provider := strings.ToLower(strings.TrimSpace(c.Params("provider")))
	if _, ok := webhookAdapters[provider]; !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"ok": false, "error": "not_found", "message": "Unknown billing provider"})
	}
	return c.JSON(fiber.Map{"ok": true, "provider": provider})
}

// parseWebhookFields accepts url-encoded, multipart and JSON bodies and
// returns them as one flat map with bracketed keys.
func parseWebhookFields(c *fiber.Ctx) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(c.Get(fiber.HeaderContentType))

	switch mediaType {
	case fiber.MIMEApplicationJSON:
		return billing.FlattenJSON(c.Body())
	case fiber.MIMEMultipartForm:
		form, err := c.MultipartForm()
		if err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(form.Value))
		for k, v := range form.Value {
			if len(v) > 0 {
				fields[k] = strings.TrimSpace(v[0])
			}
		}
		return fields, nil
	default:
		fields := map[string]string{}
		c.Request().PostArgs().VisitAll(func(k, v []byte) {
			key := string(k)
			if _, seen := fields[key]; !seen {
				fields[key] = strings.TrimSpace(string(v))
			}
		})
		return fields, nil
	}
}

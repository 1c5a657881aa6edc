package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/usercontext"
)

func newTestApp(key string) *fiber.App {
	app := fiber.New()
	app.Use(BuyerContextMiddleware)
	app.Get("/v1/ping", APIKeyAuthMiddleware(key), RequireBuyer, func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetBuyerContext(c))
	})
	return app
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		headers    map[string]string
		status     int
	}{
		{name: "x-api-key", configured: "k1", headers: map[string]string{"X-API-Key": "k1", "X-User-Email": "a@example.com"}, status: fiber.StatusOK},
		{name: "bearer", configured: "k1", headers: map[string]string{"Authorization": "Bearer k1", "X-User-Email": "a@example.com"}, status: fiber.StatusOK},
		{name: "missing key", configured: "k1", headers: map[string]string{"X-User-Email": "a@example.com"}, status: fiber.StatusUnauthorized},
		{name: "wrong key", configured: "k1", headers: map[string]string{"X-API-Key": "k2"}, status: fiber.StatusUnauthorized},
		{name: "not configured", configured: "", headers: map[string]string{"X-API-Key": "k1"}, status: fiber.StatusInternalServerError},
		{name: "missing buyer", configured: "k1", headers: map[string]string{"X-API-Key": "k1"}, status: fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/v1/ping", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := newTestApp(tt.configured).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestBuyerContextIsNormalized(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/ping", nil)
	req.Header.Set("X-API-Key", "k1")
	req.Header.Set("X-User-Email", "  Buyer@Example.COM ")

	resp, err := newTestApp("k1").Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got usercontext.BuyerContext
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "buyer@example.com", got.Email)
	assert.True(t, got.Authenticated)
}

package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thanya-aura/thanyaaura-gateway/app/repository"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/apperror"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/billing"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/database"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/entitlements"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/middleware"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/providers"
)

const (
	testWebhookSecret = "s3cret"
	testAPIKey        = "gw-key"
	testBuyer         = "buyer@example.com"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []providers.RunRequest
	err      error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req providers.RunRequest) (*providers.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &providers.Result{Provider: req.Provider, Model: "test-model", Output: "ok from " + string(req.AgentSlug)}, nil
}

func newTestGateway(t *testing.T) (*fiber.App, *fakeDispatcher) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cat, err := catalog.Default()
	require.NoError(t, err)

	repos := repository.NewRepositories(db)
	resolver := catalog.NewResolver(cat.Table, true, nil)
	store := entitlements.NewStore(repos.Subscription, resolver)
	processor := billing.NewProcessor(resolver, store, billing.Options{Audit: repos.WebhookEvent, RetryDelay: time.Millisecond})
	dispatcher := &fakeDispatcher{}

	app := fiber.New()
	app.Get("/health", HandleHealth)

	bc := NewBillingController(processor, map[string]string{billing.ProviderThriveCart: testWebhookSecret})
	app.Post("/billing/:provider", bc.HandleWebhook)
	app.Get("/billing/:provider", bc.HandleProbe)

	ac := NewAgentController(cat, store)
	rc := NewRunController(cat, store, dispatcher)
	v1 := app.Group("/v1", middleware.BuyerContextMiddleware, middleware.APIKeyAuthMiddleware(testAPIKey))
	v1.Get("/agents", ac.HandleListAgents)
	v1.Get("/entitlements", middleware.RequireBuyer, ac.HandleEntitlements)
	v1.Post("/run", middleware.RequireBuyer, rc.HandleRun)

	return app, dispatcher
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func purchaseForm(event, sku, order string) url.Values {
	return url.Values{
		"event":             {event},
		"order_id":          {order},
		"customer[email]":   {testBuyer},
		"sku":               {sku},
		"thrivecart_secret": {testWebhookSecret},
	}
}

func runAgent(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-User-Email", testBuyer)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func runBody(agent, provider string) string {
	return fmt.Sprintf(`{"agent_slug":%q,"provider":%q,"input":{"messages":[{"role":"user","content":"hello"}]}}`, agent, provider)
}

func TestSingleAgentPurchaseThenRun(t *testing.T) {
	app, dispatcher := newTestGateway(t)

	resp := postForm(t, app, "/billing/thrivecart", purchaseForm("order.success", "cfp", "1001"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["created"])
	assert.Equal(t, []any{"CFP"}, body["agents"])

	resp = runAgent(t, app, runBody("cfp", "openai"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	assert.NotEmpty(t, body["trace_id"])
	result := body["result"].(map[string]any)
	assert.Equal(t, "ok from CFP", result["output"])

	resp = runAgent(t, app, runBody("REVS", "openai"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	body = decode(t, resp)
	assert.Equal(t, "not_entitled", body["error"])
	assert.Equal(t, "No active entitlement for this agent", body["message"])
	assert.NotContains(t, body["message"], testBuyer)

	require.Len(t, dispatcher.requests, 1)
	assert.Equal(t, catalog.AgentSlug("CFP"), dispatcher.requests[0].AgentSlug)
}

func TestReplayedDeliveryIsDuplicate(t *testing.T) {
	app, _ := newTestGateway(t)

	resp := postForm(t, app, "/billing/thrivecart", purchaseForm("order.success", "cfp", "1001"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = postForm(t, app, "/billing/thrivecart", purchaseForm("order.success", "cfp", "1001"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, false, body["created"])
}

func TestPremiumTierPurchaseJSON(t *testing.T) {
	app, _ := newTestGateway(t)

	payload := `{"event":"order.success","order_id":"2002","customer":{"email":"Buyer@Example.com"},"sku":"premium","thrivecart_secret":"s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/billing/thrivecart", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode(t, resp)["agents"], 33)

	req = httptest.NewRequest(http.MethodGet, "/v1/entitlements", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("X-User-Email", testBuyer)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	assert.Equal(t, testBuyer, body["email"])
	assert.Len(t, body["agents"], 33)
	assert.Len(t, body["subscriptions"], 1)
}

func TestRefundRevokesAccess(t *testing.T) {
	app, _ := newTestGateway(t)

	require.Equal(t, fiber.StatusOK, postForm(t, app, "/billing/thrivecart", purchaseForm("order.success", "cfp", "7")).StatusCode)
	require.Equal(t, fiber.StatusOK, runAgent(t, app, runBody("CFP", "")).StatusCode)

	resp := postForm(t, app, "/billing/thrivecart", purchaseForm("order.refund", "cfp", "7"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decode(t, resp)["revoked"])

	assert.Equal(t, fiber.StatusForbidden, runAgent(t, app, runBody("CFP", "")).StatusCode)
}

func subscriptionForm(event, invoice string) url.Values {
	form := purchaseForm(event, "cfp", "1001")
	form.Set("subscription_id", "sub_9")
	form.Set("invoice_id", invoice)
	return form
}

func TestSubscriptionRenewalRestoresAccess(t *testing.T) {
	app, _ := newTestGateway(t)

	resp := postForm(t, app, "/billing/thrivecart", subscriptionForm("order.success", "inv_1"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["created"])

	resp = postForm(t, app, "/billing/thrivecart", subscriptionForm("order.rebill_failed", "inv_2"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decode(t, resp)["revoked"])
	assert.Equal(t, fiber.StatusForbidden, runAgent(t, app, runBody("CFP", "")).StatusCode)

	resp = postForm(t, app, "/billing/thrivecart", subscriptionForm("order.subscription_payment", "inv_3"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["duplicate"])
	assert.Equal(t, true, body["reactivated"])

	req := httptest.NewRequest(http.MethodGet, "/v1/entitlements", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-User-Email", testBuyer)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"CFP"}, decode(t, resp)["agents"])
	assert.Equal(t, fiber.StatusOK, runAgent(t, app, runBody("CFP", "")).StatusCode)

	// the next cycle's failed rebill is a new delivery, not a duplicate
	resp = postForm(t, app, "/billing/thrivecart", subscriptionForm("order.rebill_failed", "inv_4"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	assert.Equal(t, false, body["duplicate"])
	assert.Equal(t, float64(1), body["revoked"])
	assert.Equal(t, fiber.StatusForbidden, runAgent(t, app, runBody("CFP", "")).StatusCode)
}

func TestWebhookRejections(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		form   url.Values
		status int
		code   string
	}{
		{name: "unknown provider", path: "/billing/paypal", form: purchaseForm("order.success", "cfp", "1"), status: fiber.StatusNotFound, code: "not_found"},
		{name: "wrong secret", path: "/billing/thrivecart", form: url.Values{"event": {"order.success"}, "thrivecart_secret": {"nope"}}, status: fiber.StatusUnauthorized, code: "unauthorized"},
		{name: "unknown sku", path: "/billing/thrivecart", form: purchaseForm("order.success", "does-not-exist", "1"), status: fiber.StatusUnprocessableEntity, code: "unknown_sku"},
		{name: "unsupported event", path: "/billing/thrivecart", form: purchaseForm("order.subscription_paused", "cfp", "1"), status: fiber.StatusUnprocessableEntity, code: "unsupported_event"},
		{name: "missing email", path: "/billing/thrivecart", form: url.Values{"event": {"order.success"}, "order_id": {"1"}, "sku": {"cfp"}, "thrivecart_secret": {testWebhookSecret}}, status: fiber.StatusBadRequest, code: "malformed_event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestGateway(t)
			resp := postForm(t, app, tt.path, tt.form)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decode(t, resp)["error"])
		})
	}
}

func TestWebhookSecretNotConfigured(t *testing.T) {
	app := fiber.New()
	bc := NewBillingController(nil, map[string]string{})
	app.Post("/billing/:provider", bc.HandleWebhook)

	resp := postForm(t, app, "/billing/thrivecart", purchaseForm("order.success", "cfp", "1"))
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestBillingProbe(t *testing.T) {
	app, _ := newTestGateway(t)

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		resp, err := app.Test(httptest.NewRequest(method, "/billing/thrivecart", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, method)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/billing/unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "unknown agent", body: runBody("NOPE", "openai"), status: fiber.StatusBadRequest, code: "invalid_request"},
		{name: "unknown provider", body: runBody("CFP", "anthropic"), status: fiber.StatusBadRequest, code: "invalid_request"},
		{name: "no messages", body: `{"agent_slug":"CFP","input":{"messages":[]}}`, status: fiber.StatusBadRequest, code: "invalid_request"},
		{name: "bad role", body: `{"agent_slug":"CFP","input":{"messages":[{"role":"tool","content":"x"}]}}`, status: fiber.StatusBadRequest, code: "invalid_request"},
		{name: "invalid json", body: `{`, status: fiber.StatusBadRequest, code: "invalid_request"},
		{name: "missing credential", body: runBody("CFP", "gemini"), err: fmt.Errorf("gemini: %w", apperror.ErrMissingCredential), status: fiber.StatusServiceUnavailable, code: "missing_credential"},
		{name: "timeout", body: runBody("CFP", "openai"), err: fmt.Errorf("openai after 1s: %w", apperror.ErrTimeout), status: fiber.StatusGatewayTimeout, code: "upstream_timeout"},
		{name: "upstream", body: runBody("CFP", "openai"), err: &apperror.UpstreamError{Provider: "openai", Status: 429, Code: "openai.rate_limit_error", Message: "slow down"}, status: fiber.StatusBadGateway, code: "upstream_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, dispatcher := newTestGateway(t)
			dispatcher.err = tt.err
			require.Equal(t, fiber.StatusOK, postForm(t, app, "/billing/thrivecart", purchaseForm("order.success", "cfp", "1")).StatusCode)

			resp := runAgent(t, app, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode(t, resp)
			assert.Equal(t, tt.code, body["error"])

			if tt.err != nil {
				assert.NotEmpty(t, body["trace_id"])
				assert.Equal(t, apperror.Message(tt.err), body["message"])
			} else {
				assert.Equal(t, "Invalid request", body["message"])
			}
			assert.NotContains(t, body["message"], "slow down")

			if tt.status == fiber.StatusBadGateway {
				details := body["upstream"].(map[string]any)
				assert.Equal(t, "openai.rate_limit_error", details["code"])
				assert.Equal(t, float64(429), details["status"])
			}
		})
	}
}

func TestRunDefaultsToAgentProvider(t *testing.T) {
	app, dispatcher := newTestGateway(t)
	require.Equal(t, fiber.StatusOK, postForm(t, app, "/billing/thrivecart", purchaseForm("order.success", "cfp", "1")).StatusCode)

	resp := runAgent(t, app, runBody("CFP", ""))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	cat, err := catalog.Default()
	require.NoError(t, err)
	agent, ok := cat.Agent("CFP")
	require.True(t, ok)
	require.Len(t, dispatcher.requests, 1)
	assert.Equal(t, providers.Kind(agent.Providers[0]), dispatcher.requests[0].Provider)
}

func TestListAgents(t *testing.T) {
	app, _ := newTestGateway(t)

	tests := []struct {
		query string
		count int
	}{
		{query: "", count: 33},
		{query: "?level=standard", count: 13},
		{query: "?level=plus", count: 10},
		{query: "?level=PREMIUM", count: 10},
		{query: "?level=gold", count: 0},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/v1/agents"+tt.query, nil)
		req.Header.Set("X-API-Key", testAPIKey)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(tt.count), decode(t, resp)["count"], tt.query)
	}
}

func TestHealth(t *testing.T) {
	app, _ := newTestGateway(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode(t, resp)["status"])
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "cloudflare", headers: map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"}, want: "203.0.113.7"},
		{name: "forwarded", headers: map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, want: "198.51.100.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "2001:db8::1"}, want: "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetClientIP(c)) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			raw, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}

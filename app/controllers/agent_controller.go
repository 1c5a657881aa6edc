package controllers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/thanya-aura/thanyaaura-gateway/app/models"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/usercontext"
)

// EntitlementReader is satisfied by *entitlements.Store.
type EntitlementReader interface {
	EffectiveAgents(ctx context.Context, email string) ([]catalog.AgentSlug, error)
	ListSubscriptions(ctx context.Context, email string) ([]models.Subscription, error)
}

// AgentController exposes the catalog and a buyer's effective agents.
type AgentController struct {
	catalog      *catalog.Catalog
	entitlements EntitlementReader
}

func NewAgentController(c *catalog.Catalog, entitlements EntitlementReader) *AgentController {
	return &AgentController{catalog: c, entitlements: entitlements}
}

// HandleListAgents lists the catalog, optionally filtered by ?level=.
func (ac *AgentController) HandleListAgents(c *fiber.Ctx) error {
	level := catalog.Level(strings.ToLower(strings.TrimSpace(c.Query("level"))))

	agents := make([]catalog.Agent, 0)
	for _, a := range ac.catalog.Agents() {
		if level != "" && a.Level != level {
			continue
		}
		agents = append(agents, a)
	}
	return c.JSON(fiber.Map{"agents": agents, "count": len(agents)})
}

// HandleEntitlements returns the effective agents and the subscriptions
// behind them for the buyer in X-User-Email.
func (ac *AgentController) HandleEntitlements(c *fiber.Ctx) error {
	email := usercontext.GetBuyerEmail(c)
	ctx := c.UserContext()

	agents, err := ac.entitlements.EffectiveAgents(ctx, email)
	if err != nil {
		return respondError(c, err)
	}
	subs, err := ac.entitlements.ListSubscriptions(ctx, email)
	if err != nil {
		return respondError(c, err)
	}

	list := make([]fiber.Map, 0, len(subs))
	for _, s := range subs {
		list = append(list, fiber.Map{
			"sku":        s.Sku,
			"order_id":   s.OrderID,
			"provider":   s.Provider,
			"status":     s.Status,
			"created_at": s.CreatedAt.UTC(),
			"updated_at": s.UpdatedAt.UTC(),
		})
	}
	return c.JSON(fiber.Map{"email": email, "agents": agents, "subscriptions": list})
}

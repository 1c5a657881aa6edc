package controllers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/apperror"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/providers"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/usercontext"
)

// EntitlementChecker is satisfied by *entitlements.Store.
type EntitlementChecker interface {
	HasAgent(ctx context.Context, email string, slug catalog.AgentSlug) (bool, error)
}

// Dispatcher is satisfied by *providers.Router.
type Dispatcher interface {
	Dispatch(ctx context.Context, req providers.RunRequest) (*providers.Result, error)
}

// RunController executes agent runs for entitled buyers.
type RunController struct {
	catalog      *catalog.Catalog
	entitlements EntitlementChecker
	dispatcher   Dispatcher
	validate     *validator.Validate
}

func NewRunController(c *catalog.Catalog, entitlements EntitlementChecker, dispatcher Dispatcher) *RunController {
	return &RunController{
		catalog:      c,
		entitlements: entitlements,
		dispatcher:   dispatcher,
		validate:     validator.New(),
	}
}

// HandleRun checks the buyer owns the agent and forwards the conversation
// to exactly one provider.
func (rc *RunController) HandleRun(c *fiber.Ctx) error {
	var req providers.RunRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fmt.Errorf("decode body: %w", apperror.ErrInvalidRequest))
	}
	req.AgentSlug = catalog.AgentSlug(strings.ToUpper(strings.TrimSpace(string(req.AgentSlug))))
	if err := rc.validate.Struct(req); err != nil {
		return respondError(c, fmt.Errorf("%w: %s", apperror.ErrInvalidRequest, err.Error()))
	}

	agent, ok := rc.catalog.Agent(req.AgentSlug)
	if !ok {
		return respondError(c, fmt.Errorf("agent %q: %w", req.AgentSlug, apperror.ErrInvalidRequest))
	}

	if req.Provider == "" {
		req.Provider = defaultProvider(agent)
	}
	kind, err := providers.ParseKind(string(req.Provider))
	if err != nil {
		return respondError(c, err)
	}
	req.Provider = kind

	email := usercontext.GetBuyerEmail(c)
	ctx := c.UserContext()
	entitled, err := rc.entitlements.HasAgent(ctx, email, agent.Slug)
	if err != nil {
		return respondError(c, err)
	}
	if !entitled {
		log.Info().Str("email", email).Str("agent", string(agent.Slug)).Msg("run rejected: not entitled")
		return respondError(c, fmt.Errorf("agent %s for %s: %w", agent.Slug, email, apperror.ErrNotEntitled))
	}

	traceID := uuid.NewString()
	res, err := rc.dispatcher.Dispatch(ctx, req)
	if err != nil {
		log.Warn().Err(err).Str("trace_id", traceID).Str("agent", string(agent.Slug)).Str("provider", string(req.Provider)).Msg("run failed")
		return respondError(c, err, fiber.Map{"trace_id": traceID})
	}

	return c.JSON(fiber.Map{
		"ok":         true,
		"trace_id":   traceID,
		"agent_slug": agent.Slug,
		"result":     res,
	})
}

func defaultProvider(agent catalog.Agent) providers.Kind {
	if len(agent.Providers) > 0 {
		return providers.Kind(agent.Providers[0])
	}
	return providers.KindOpenAI
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/apperror"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/config"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/metrics"
)

const maxResponseBytes = 8 << 20

// Recorder receives one call per dispatch; metrics.Collector implements it.
type Recorder interface {
	RecordDispatch(provider, outcome string, elapsed time.Duration)
}

// RouterConfig wires a Router. DefaultModels is keyed by provider kind.
type RouterConfig struct {
	Providers     []Provider
	DefaultModels map[Kind]string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Recorder      Recorder
}

// Router sends a RunRequest to the provider it names. It never picks or
// substitutes a provider on its own.
type Router struct {
	providers map[Kind]Provider
	defaults  map[Kind]string
	timeout   time.Duration
	client    *http.Client
	recorder  Recorder
}

func NewRouter(cfg RouterConfig) *Router {
	r := &Router{
		providers: make(map[Kind]Provider, len(cfg.Providers)),
		defaults:  cfg.DefaultModels,
		timeout:   cfg.Timeout,
		client:    cfg.HTTPClient,
		recorder:  cfg.Recorder,
	}
	for _, p := range cfg.Providers {
		r.providers[p.Kind()] = p
	}
	if r.defaults == nil {
		r.defaults = map[Kind]string{}
	}
	if r.timeout <= 0 {
		r.timeout = config.DefaultProviderTimeout
	}
	if r.client == nil {
		// the per-call context carries the deadline
		r.client = &http.Client{}
	}
	return r
}

// NewRouterFromConfig builds the OpenAI and Gemini router from the loaded
// configuration.
func NewRouterFromConfig(cfg config.Config, collector *metrics.Collector) *Router {
	var rec Recorder
	if collector != nil {
		rec = collector
	}
	return NewRouter(RouterConfig{
		Providers: []Provider{
			NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
			NewGemini(cfg.GeminiAPIKey, cfg.GeminiBaseURL),
		},
		DefaultModels: map[Kind]string{
			KindOpenAI: cfg.ModelDefaultOpenAI,
			KindGemini: cfg.ModelDefaultGemini,
		},
		Timeout:  cfg.ProviderTimeout,
		Recorder: rec,
	})
}

// Configured lists providers that have credentials.
func (r *Router) Configured() map[Kind]bool {
	out := make(map[Kind]bool, len(r.providers))
	for k, p := range r.providers {
		out[k] = p.Configured()
	}
	return out
}

// Dispatch performs exactly one upstream call. The outcome is a Result, an
// *apperror.UpstreamError, apperror.ErrTimeout, apperror.ErrMissingCredential
// or context.Canceled when the caller went away.
func (r *Router) Dispatch(ctx context.Context, req RunRequest) (*Result, error) {
	p, ok := r.providers[req.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", req.Provider, apperror.ErrInvalidRequest)
	}

	start := time.Now()
	if !p.Configured() {
		r.record(p.Kind(), metrics.OutcomeMissingCredential, start)
		return nil, fmt.Errorf("%s: %w", p.Kind(), apperror.ErrMissingCredential)
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = r.defaults[p.Kind()]
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	httpReq, err := p.BuildRequest(callCtx, model, req.Input.Messages)
	if err != nil {
		return nil, err
	}

	logger := log.With().Str("provider", string(p.Kind())).Str("model", model).Str("agent", string(req.AgentSlug)).Logger()
	logger.Debug().Msg("dispatching run request")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, r.transportError(ctx, callCtx, p.Kind(), start, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, r.transportError(ctx, callCtx, p.Kind(), start, err)
	}

	result, err := p.ParseResponse(resp.StatusCode, body)
	if err != nil {
		r.record(p.Kind(), metrics.OutcomeUpstreamError, start)
		logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("upstream error")
		return nil, err
	}
	if result.Model == "" {
		result.Model = model
	}

	r.record(p.Kind(), metrics.OutcomeCompleted, start)
	logger.Info().Dur("elapsed", time.Since(start)).Int("total_tokens", result.Usage.TotalTokens).Msg("run completed")
	return result, nil
}

// transportError classifies a failed round trip: caller cancellation,
// deadline, or an upstream that could not be reached.
func (r *Router) transportError(parent, call context.Context, kind Kind, start time.Time, err error) error {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		r.record(kind, metrics.OutcomeCanceled, start)
		return fmt.Errorf("%s dispatch: %w", kind, context.Canceled)
	case errors.Is(call.Err(), context.DeadlineExceeded):
		r.record(kind, metrics.OutcomeTimeout, start)
		log.Warn().Str("provider", string(kind)).Dur("timeout", r.timeout).Msg("upstream call timed out")
		return fmt.Errorf("%s after %s: %w", kind, r.timeout, apperror.ErrTimeout)
	default:
		r.record(kind, metrics.OutcomeUpstreamError, start)
		return upstreamError(kind, 0, "unreachable", err.Error())
	}
}

func (r *Router) record(kind Kind, outcome string, start time.Time) {
	if r.recorder != nil {
		r.recorder.RecordDispatch(string(kind), outcome, time.Since(start))
	}
}

package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/app/models"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/apperror"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
)

const (
	defaultRetries    = 3
	defaultRetryDelay = 200 * time.Millisecond
)

// Options carries the optional collaborators of a Processor.
type Options struct {
	Audit      AuditRepository
	Notifier   Notifier
	Recorder   Recorder
	Retries    int
	RetryDelay time.Duration
}

// Processor turns validated checkout events into entitlement changes.
// Callers must have verified the delivery secret already.
type Processor struct {
	resolver   SkuResolver
	grants     GrantStore
	audit      AuditRepository
	notifier   Notifier
	recorder   Recorder
	retries    int
	retryDelay time.Duration
	validate   *validator.Validate
}

// NewProcessor creates a webhook processor from injected dependencies.
func NewProcessor(resolver SkuResolver, grants GrantStore, opts Options) *Processor {
	if opts.Retries < 1 {
		opts.Retries = defaultRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	return &Processor{
		resolver:   resolver,
		grants:     grants,
		audit:      opts.Audit,
		notifier:   opts.Notifier,
		recorder:   opts.Recorder,
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		validate:   validator.New(),
	}
}

// Handle applies one event. It never reports success for a failed grant:
// an unknown SKU is a client error, a store failure is returned after the
// retries are spent so the provider redelivers.
func (p *Processor) Handle(ctx context.Context, ev Event) (*AuthorizationResult, error) {
	ev = normalizeEvent(ev)
	if err := p.validate.Struct(ev); err != nil {
		p.record(ev, "malformed")
		return nil, fmt.Errorf("%s delivery: %w: %s", ev.Provider, apperror.ErrMalformedEvent, fieldList(err))
	}

	act, status := eventPlan(ev.Type)
	if act == actionNone {
		p.record(ev, "unsupported")
		return nil, fmt.Errorf("%s event %q: %w", ev.Provider, ev.Type, apperror.ErrUnsupportedEvent)
	}

	audit, duplicate := p.startAudit(ctx, ev)
	if duplicate {
		p.record(ev, "duplicate")
		log.Info().Str("provider", ev.Provider).Str("event", ev.Type).Str("order_id", ev.OrderID).Msg("delivery already processed")
		return &AuthorizationResult{Event: ev.Type, Email: ev.Email, Sku: ev.Sku, OrderID: ev.OrderID, Agents: []catalog.AgentSlug{}, Duplicate: true}, nil
	}

	var (
		res *AuthorizationResult
		err error
	)
	switch act {
	case actionGrant, actionRenew:
		res, err = p.grant(ctx, ev, act == actionRenew)
	case actionRevoke:
		res, err = p.revoke(ctx, ev, status)
	}
	p.finishAudit(ctx, audit, err)

	if err != nil {
		p.record(ev, apperror.Code(err))
		return nil, err
	}
	p.record(ev, "ok")
	return res, nil
}

// grant stores the purchase. A renewal also reactivates a grant that a
// failed rebill or cancellation moved out of active; a first purchase never
// does, so replaying it cannot undo a refund.
func (p *Processor) grant(ctx context.Context, ev Event, renewal bool) (*AuthorizationResult, error) {
	resolution, err := p.resolver.Resolve(catalog.Sku(ev.Sku))
	if err != nil {
		log.Warn().Err(err).Str("sku", ev.Sku).Str("order_id", ev.OrderID).Msg("purchase rejected: sku does not resolve")
		return nil, err
	}

	var created, reactivated bool
	err = p.withRetry(ctx, "record grant", func() error {
		var gerr error
		if renewal {
			created, reactivated, gerr = p.grants.RenewGrant(ctx, ev.Email, ev.Sku, ev.OrderID, ev.Provider)
		} else {
			created, gerr = p.grants.RecordGrant(ctx, ev.Email, ev.Sku, ev.OrderID, ev.Provider)
		}
		return gerr
	})
	if err != nil {
		return nil, err
	}

	if created && p.notifier != nil {
		go p.notify(context.WithoutCancel(ctx), ev.Email, resolution.Agents)
	}

	return &AuthorizationResult{
		Event:       ev.Type,
		Email:       ev.Email,
		Sku:         ev.Sku,
		OrderID:     ev.OrderID,
		Agents:      resolution.Agents,
		Source:      resolution.Source.String(),
		Created:     created,
		Reactivated: reactivated,
	}, nil
}

func (p *Processor) revoke(ctx context.Context, ev Event, status string) (*AuthorizationResult, error) {
	var n int64
	err := p.withRetry(ctx, "revoke grant", func() error {
		var rerr error
		n, rerr = p.grants.Revoke(ctx, ev.Email, ev.Sku, ev.OrderID, status)
		return rerr
	})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		log.Info().Str("sku", ev.Sku).Str("order_id", ev.OrderID).Str("event", ev.Type).Msg("revoke matched no active grant")
	}
	return &AuthorizationResult{
		Event:   ev.Type,
		Email:   ev.Email,
		Sku:     ev.Sku,
		OrderID: ev.OrderID,
		Agents:  []catalog.AgentSlug{},
		Revoked: n,
	}, nil
}

// withRetry re-runs fn while it fails with a persistence error. Only the
// idempotent store calls go through here.
func (p *Processor) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.retries; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, apperror.ErrPersistence) {
			return err
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Int("max_attempts", p.retries).Msg("store call failed")
		if attempt == p.retries {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.retryDelay):
		}
	}
	return err
}

func (p *Processor) notify(ctx context.Context, email string, agents []catalog.AgentSlug) {
	if err := p.notifier.NotifyPurchase(ctx, email, agents); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("purchase notification not sent")
	}
}

// startAudit writes the audit row. It reports duplicate=true only for a
// delivery that was already processed without error.
func (p *Processor) startAudit(ctx context.Context, ev Event) (*models.BillingWebhookEvent, bool) {
	if p.audit == nil {
		return nil, false
	}
	row := &models.BillingWebhookEvent{
		Provider:    ev.Provider,
		DeliveryKey: DeliveryKey(ev),
		EventType:   ev.Type,
		PayloadJSON: ev.PayloadJSON,
	}
	if row.PayloadJSON == "" {
		row.PayloadJSON = "{}"
	}
	created, stored, err := p.audit.CreateIfNotExists(ctx, row)
	if err != nil {
		log.Warn().Err(err).Str("provider", ev.Provider).Msg("webhook audit write failed")
		return nil, false
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		return stored, true
	}
	return stored, false
}

func (p *Processor) finishAudit(ctx context.Context, row *models.BillingWebhookEvent, procErr error) {
	if p.audit == nil || row == nil {
		return
	}
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	if err := p.audit.MarkProcessed(ctx, row.ID, msg); err != nil {
		log.Warn().Err(err).Uint("webhook_event_id", row.ID).Msg("webhook audit update failed")
	}
}

func (p *Processor) record(ev Event, result string) {
	if p.recorder != nil {
		p.recorder.RecordWebhook(ev.Provider, ev.Type, result)
	}
}

// DeliveryKey identifies a delivery independent of field order or secret.
// The redacted payload is part of the key: a subscription sends the same
// order, sku and email every billing cycle, and only per-cycle fields such
// as the invoice id tell two cycles apart. A redelivery repeats the payload.
func DeliveryKey(ev Event) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{ev.Provider, ev.Type, ev.OrderID, ev.Sku, ev.Email, ev.PayloadJSON}, "|")))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func normalizeEvent(ev Event) Event {
	ev.Provider = strings.ToLower(strings.TrimSpace(ev.Provider))
	ev.Type = normalizeEventType(ev.Type)
	ev.OrderID = strings.TrimSpace(ev.OrderID)
	ev.Email = strings.ToLower(strings.TrimSpace(ev.Email))
	ev.Sku = strings.TrimSpace(ev.Sku)
	return ev
}

func fieldList(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

// Package entitlements records purchase grants and answers which agents a
// buyer may run. It never caches: every EffectiveAgents call reads the store.
package entitlements

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/app/models"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/apperror"
	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/catalog"
)

// Repository is the persistence the store needs. app/repository provides
// the GORM implementation.
type Repository interface {
	CreateIfNotExists(ctx context.Context, sub *models.Subscription) (bool, error)
	ListActiveSkus(ctx context.Context, email string) ([]string, error)
	ListByEmail(ctx context.Context, email string) ([]models.Subscription, error)
	UpdateStatus(ctx context.Context, email, sku, orderID, status string) (int64, error)
	Reactivate(ctx context.Context, email, sku, orderID string) (int64, error)
}

// SkuResolver is satisfied by *catalog.Resolver.
type SkuResolver interface {
	Resolve(sku catalog.Sku) (catalog.Resolution, error)
}

type Store struct {
	repo     Repository
	resolver SkuResolver
}

func NewStore(repo Repository, resolver SkuResolver) *Store {
	return &Store{repo: repo, resolver: resolver}
}

// NormalizeEmail is the identity form used for every read and write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RecordGrant stores one grant. Replaying the same (email, sku, orderID)
// is a no-op and reports created=false.
func (s *Store) RecordGrant(ctx context.Context, email, sku, orderID, provider string) (bool, error) {
	email = NormalizeEmail(email)
	sku = strings.TrimSpace(sku)
	orderID = strings.TrimSpace(orderID)
	if email == "" || sku == "" || orderID == "" {
		return false, fmt.Errorf("record grant: email, sku and order id are required: %w", apperror.ErrMalformedEvent)
	}

	sub := &models.Subscription{
		UserEmail: email,
		Sku:       sku,
		OrderID:   orderID,
		Provider:  strings.ToLower(strings.TrimSpace(provider)),
		Status:    models.SubscriptionStatusActive,
	}
	created, err := s.repo.CreateIfNotExists(ctx, sub)
	if err != nil {
		return false, apperror.Persistence("record grant", err)
	}
	if created {
		log.Info().Str("email", email).Str("sku", sku).Str("order_id", orderID).Msg("grant recorded")
	} else {
		log.Debug().Str("email", email).Str("sku", sku).Str("order_id", orderID).Msg("grant already recorded")
	}
	return created, nil
}

// RenewGrant records a paid renewal. A new grant is stored like RecordGrant;
// an existing canceled or expired grant is made active again. Renewing an
// active grant changes nothing.
func (s *Store) RenewGrant(ctx context.Context, email, sku, orderID, provider string) (created bool, reactivated bool, err error) {
	created, err = s.RecordGrant(ctx, email, sku, orderID, provider)
	if err != nil || created {
		return created, false, err
	}

	email = NormalizeEmail(email)
	n, err := s.repo.Reactivate(ctx, email, strings.TrimSpace(sku), strings.TrimSpace(orderID))
	if err != nil {
		return false, false, apperror.Persistence("reactivate grant", err)
	}
	if n > 0 {
		log.Info().Str("email", email).Str("sku", sku).Str("order_id", orderID).Msg("grant reactivated")
	}
	return false, n > 0, nil
}

// EffectiveAgents returns the sorted, deduplicated union of agents granted
// by the buyer's active subscriptions. SKUs that no longer resolve are
// skipped; a buyer with no grants gets an empty, non-nil slice.
func (s *Store) EffectiveAgents(ctx context.Context, email string) ([]catalog.AgentSlug, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return []catalog.AgentSlug{}, nil
	}

	skus, err := s.repo.ListActiveSkus(ctx, email)
	if err != nil {
		return nil, apperror.Persistence("list active skus", err)
	}

	sets := make([][]catalog.AgentSlug, 0, len(skus))
	seen := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		if _, ok := seen[sku]; ok {
			continue
		}
		seen[sku] = struct{}{}

		res, err := s.resolver.Resolve(catalog.Sku(sku))
		if err != nil {
			if errors.Is(err, apperror.ErrUnknownSku) {
				log.Warn().Str("email", email).Str("sku", sku).Msg("active subscription sku no longer resolves; skipped")
				continue
			}
			return nil, err
		}
		sets = append(sets, res.Agents)
	}
	return catalog.Union(sets...), nil
}

// HasAgent reports whether the buyer is entitled to the agent.
func (s *Store) HasAgent(ctx context.Context, email string, slug catalog.AgentSlug) (bool, error) {
	agents, err := s.EffectiveAgents(ctx, email)
	if err != nil {
		return false, err
	}
	for _, a := range agents {
		if a == slug {
			return true, nil
		}
	}
	return false, nil
}

// Revoke moves the active rows of one grant to canceled or expired. Rows are
// kept; zero matches is not an error.
func (s *Store) Revoke(ctx context.Context, email, sku, orderID, status string) (int64, error) {
	switch status {
	case models.SubscriptionStatusCanceled, models.SubscriptionStatusExpired:
	default:
		return 0, fmt.Errorf("revoke: invalid target status %q", status)
	}
	email = NormalizeEmail(email)
	n, err := s.repo.UpdateStatus(ctx, email, strings.TrimSpace(sku), strings.TrimSpace(orderID), status)
	if err != nil {
		return 0, apperror.Persistence("revoke grant", err)
	}
	log.Info().Str("email", email).Str("sku", sku).Str("order_id", orderID).Str("status", status).Int64("rows", n).Msg("grant revoked")
	return n, nil
}

// ListSubscriptions returns every row for the buyer, newest first.
func (s *Store) ListSubscriptions(ctx context.Context, email string) ([]models.Subscription, error) {
	subs, err := s.repo.ListByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, apperror.Persistence("list subscriptions", err)
	}
	return subs, nil
}

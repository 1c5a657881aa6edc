package catalog

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/thanya-aura/thanyaaura-gateway/internal/pkg/apperror"
)

// Source tells which table answered a resolution.
type Source int

const (
	SourceNotFound Source = iota
	SourcePrimary
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourcePrimary:
		return "primary"
	case SourceFallback:
		return "fallback"
	default:
		return "not_found"
	}
}

// Resolution is the tagged result of Resolve. Agents is empty for SourceNotFound.
type Resolution struct {
	Source Source
	Agents []AgentSlug
}

// Recorder receives one call per resolution attempt. metrics.Collector
// implements it; nil disables recording.
type Recorder interface {
	RecordResolution(source string)
}

// Resolver maps SKUs to agents. The fallback flag is fixed at construction.
type Resolver struct {
	table           SkuTable
	fallbackEnabled bool
	recorder        Recorder
}

func NewResolver(table SkuTable, fallbackEnabled bool, recorder Recorder) *Resolver {
	return &Resolver{
		table:           table,
		fallbackEnabled: fallbackEnabled,
		recorder:        recorder,
	}
}

// FallbackEnabled reports the flag the resolver was built with.
func (r *Resolver) FallbackEnabled() bool {
	return r.fallbackEnabled
}

// Resolve looks the SKU up in the primary table and, only when that misses
// and the fallback is enabled, in the legacy table. Matching is exact.
func (r *Resolver) Resolve(sku Sku) (Resolution, error) {
	if agents, ok := r.table.Primary[sku]; ok {
		r.record(SourcePrimary)
		return Resolution{Source: SourcePrimary, Agents: clone(agents)}, nil
	}

	if r.fallbackEnabled {
		if agents, ok := r.table.Fallback[sku]; ok {
			log.Warn().
				Str("sku", string(sku)).
				Interface("agents", agents).
				Msg("sku resolved through legacy fallback table")
			r.record(SourceFallback)
			return Resolution{Source: SourceFallback, Agents: clone(agents)}, nil
		}
	}

	r.record(SourceNotFound)
	return Resolution{Source: SourceNotFound}, fmt.Errorf("resolve %q: %w", sku, apperror.ErrUnknownSku)
}

// FallbackOnly lists legacy SKUs with no primary entry, i.e. the products
// that still break when the fallback is switched off.
func (r *Resolver) FallbackOnly() []Sku {
	var out []Sku
	for sku := range r.table.Fallback {
		if _, ok := r.table.Primary[sku]; !ok {
			out = append(out, sku)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Resolver) record(s Source) {
	if r.recorder != nil {
		r.recorder.RecordResolution(s.String())
	}
}

func clone(in []AgentSlug) []AgentSlug {
	out := make([]AgentSlug, len(in))
	copy(out, in)
	return out
}

// Package catalog owns the SKU -> agent mapping and the resolver built on it.
//
// The mapping has two sources. The primary table holds curated single-agent
// SKUs and tier bundles. The fallback table is the legacy naming convention
// (module-0-<code>) kept alive until every checkout product has been moved to a
// primary SKU; it can be switched off with AGENT_FALLBACK_ENABLED=false.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sku is a checkout product identifier. Comparison is exact and case-sensitive.
type Sku string

// AgentSlug is the canonical identifier of a purchasable agent, e.g. "CFS".
type AgentSlug string

type Level string

const (
	LevelStandard Level = "standard"
	LevelPlus     Level = "plus"
	LevelPremium  Level = "premium"
)

type SkuKind string

const (
	KindAgent SkuKind = "agent"
	KindTier  SkuKind = "tier"
)

//go:embed skus.yaml
var defaultCatalogYAML []byte

// Agent describes one purchasable agent.
type Agent struct {
	Slug      AgentSlug `yaml:"slug" json:"slug"`
	Name      string    `yaml:"name" json:"name"`
	Family    string    `yaml:"family" json:"family"`
	Level     Level     `yaml:"level" json:"level"`
	Providers []string  `yaml:"providers" json:"providers"`
}

// SkuTable is the process-wide mapping. It is built once and never mutated.
type SkuTable struct {
	Primary  map[Sku][]AgentSlug
	Fallback map[Sku][]AgentSlug
	Kinds    map[Sku]SkuKind
}

// Catalog is the loaded agent list plus the derived SkuTable.
type Catalog struct {
	agents []Agent
	bySlug map[AgentSlug]Agent
	Table  SkuTable
}

type fileFormat struct {
	Agents []Agent             `yaml:"agents"`
	Skus   map[string][]string `yaml:"skus"`
	Tiers  map[string][]Level  `yaml:"tiers"`
	Legacy struct {
		Prefix      string              `yaml:"prefix"`
		Overrides   map[string][]string `yaml:"overrides"`
		TierAliases map[string]string   `yaml:"tier_aliases"`
	} `yaml:"legacy"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Load(defaultCatalogYAML)
}

// LoadFile reads a catalog from disk; an empty path means the embedded default.
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sku catalog: %w", err)
	}
	return Load(data)
}

// Load parses and validates a YAML catalog.
func Load(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sku catalog: %w", err)
	}
	if len(f.Agents) == 0 {
		return nil, errors.New("sku catalog defines no agents")
	}

	c := &Catalog{
		bySlug: make(map[AgentSlug]Agent, len(f.Agents)),
		Table: SkuTable{
			Primary:  make(map[Sku][]AgentSlug),
			Fallback: make(map[Sku][]AgentSlug),
			Kinds:    make(map[Sku]SkuKind),
		},
	}

	byLevel := make(map[Level][]AgentSlug)
	for _, a := range f.Agents {
		if a.Slug == "" {
			return nil, errors.New("sku catalog has an agent without slug")
		}
		if _, dup := c.bySlug[a.Slug]; dup {
			return nil, fmt.Errorf("sku catalog: duplicate agent %s", a.Slug)
		}
		switch a.Level {
		case LevelStandard, LevelPlus, LevelPremium:
		default:
			return nil, fmt.Errorf("sku catalog: agent %s has unknown level %q", a.Slug, a.Level)
		}
		c.bySlug[a.Slug] = a
		c.agents = append(c.agents, a)
		byLevel[a.Level] = append(byLevel[a.Level], a.Slug)
	}

	for raw, slugs := range f.Skus {
		agents, err := c.knownAgents(raw, slugs)
		if err != nil {
			return nil, err
		}
		c.Table.Primary[Sku(raw)] = agents
		c.Table.Kinds[Sku(raw)] = KindAgent
	}

	tierAgents := make(map[string][]AgentSlug, len(f.Tiers))
	for raw, levels := range f.Tiers {
		if _, clash := c.Table.Primary[Sku(raw)]; clash {
			return nil, fmt.Errorf("sku catalog: %q is both an agent sku and a tier", raw)
		}
		var agents []AgentSlug
		for _, lvl := range levels {
			members, ok := byLevel[lvl]
			if !ok {
				return nil, fmt.Errorf("sku catalog: tier %q references level %q with no agents", raw, lvl)
			}
			agents = append(agents, members...)
		}
		agents = normalize(agents)
		tierAgents[raw] = agents
		c.Table.Primary[Sku(raw)] = agents
		c.Table.Kinds[Sku(raw)] = KindTier
	}

	// an agent with a single-agent override keeps only that legacy key
	renamed := make(map[AgentSlug]struct{})
	for _, slugs := range f.Legacy.Overrides {
		if len(slugs) == 1 {
			renamed[AgentSlug(slugs[0])] = struct{}{}
		}
	}
	if prefix := f.Legacy.Prefix; prefix != "" {
		for _, a := range c.agents {
			if _, ok := renamed[a.Slug]; ok {
				continue
			}
			c.Table.Fallback[Sku(prefix+strings.ToLower(string(a.Slug)))] = []AgentSlug{a.Slug}
		}
	}
	for raw, slugs := range f.Legacy.Overrides {
		agents, err := c.knownAgents(raw, slugs)
		if err != nil {
			return nil, err
		}
		c.Table.Fallback[Sku(raw)] = agents
	}
	for alias, tier := range f.Legacy.TierAliases {
		agents, ok := tierAgents[tier]
		if !ok {
			return nil, fmt.Errorf("sku catalog: legacy alias %q points at unknown tier %q", alias, tier)
		}
		c.Table.Fallback[Sku(alias)] = agents
	}

	return c, nil
}

func (c *Catalog) knownAgents(sku string, slugs []string) ([]AgentSlug, error) {
	if len(slugs) == 0 {
		return nil, fmt.Errorf("sku catalog: sku %q maps to no agents", sku)
	}
	out := make([]AgentSlug, 0, len(slugs))
	for _, s := range slugs {
		slug := AgentSlug(s)
		if _, ok := c.bySlug[slug]; !ok {
			return nil, fmt.Errorf("sku catalog: sku %q maps to unknown agent %q", sku, s)
		}
		out = append(out, slug)
	}
	return normalize(out), nil
}

// Agents returns all agents sorted by slug.
func (c *Catalog) Agents() []Agent {
	out := make([]Agent, len(c.agents))
	copy(out, c.agents)
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Agent looks up an agent by its exact slug.
func (c *Catalog) Agent(slug AgentSlug) (Agent, bool) {
	a, ok := c.bySlug[slug]
	return a, ok
}

// PrimarySkus lists the primary SKUs with their kind, sorted. Used to seed
// the products table.
func (c *Catalog) PrimarySkus() []Sku {
	out := make([]Sku, 0, len(c.Table.Primary))
	for sku := range c.Table.Primary {
		out = append(out, sku)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// normalize sorts and dedups a slug list.
func normalize(in []AgentSlug) []AgentSlug {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[AgentSlug]struct{}, len(in))
	out := make([]AgentSlug, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Union merges slug sets into one sorted, deduplicated list.
func Union(sets ...[]AgentSlug) []AgentSlug {
	var all []AgentSlug
	for _, s := range sets {
		all = append(all, s...)
	}
	out := normalize(all)
	if out == nil {
		return []AgentSlug{}
	}
	return out
}

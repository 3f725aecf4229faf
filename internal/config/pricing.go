package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theirongolddev/agentcost/internal/model"
)

// LongContextThreshold is the prompt size up to which tiered models bill at
// their lower tier.
const LongContextThreshold = 200_000

// Tier is one pricing band of a model. A tier applies when the prompt token
// count is at most MaxPromptTokens; zero means unbounded.
type Tier struct {
	Name            string
	MaxPromptTokens int64
	Rates           model.Rates
}

// ModelPricing holds the ordered pricing tiers for a model.
// A flat-priced model has a single unbounded tier.
type ModelPricing struct {
	Tiers []Tier
}

// Tiered reports whether the price depends on prompt size.
func (p ModelPricing) Tiered() bool {
	return len(p.Tiers) > 1
}

// SelectTier returns the index and tier that applies to a prompt of the
// given size. Boundaries are inclusive.
func (p ModelPricing) SelectTier(promptTokens int64) (int, Tier) {
	for i, t := range p.Tiers {
		if t.MaxPromptTokens == 0 || promptTokens <= t.MaxPromptTokens {
			return i, t
		}
	}
	last := len(p.Tiers) - 1
	return last, p.Tiers[last]
}

// Validate checks that rates are non-negative, bounds ascend and only the
// last tier is unbounded.
func (p ModelPricing) Validate() error {
	if len(p.Tiers) == 0 {
		return fmt.Errorf("no tiers")
	}
	var prev int64
	for i, t := range p.Tiers {
		if t.Rates.Input < 0 || t.Rates.Output < 0 || t.Rates.Cached < 0 {
			return fmt.Errorf("tier %d: negative rate", i+1)
		}
		last := i == len(p.Tiers)-1
		switch {
		case t.MaxPromptTokens == 0 && !last:
			return fmt.Errorf("tier %d: only the last tier may be unbounded", i+1)
		case t.MaxPromptTokens != 0 && last:
			return fmt.Errorf("tier %d: last tier must be unbounded", i+1)
		case t.MaxPromptTokens != 0 && t.MaxPromptTokens <= prev:
			return fmt.Errorf("tier %d: bound %d not above %d", i+1, t.MaxPromptTokens, prev)
		}
		prev = t.MaxPromptTokens
	}
	return nil
}

// PerMTok converts USD-per-million-token prices to per-token rates.
func PerMTok(input, output, cached float64) model.Rates {
	return model.Rates{
		Input:  input / 1_000_000,
		Output: output / 1_000_000,
		Cached: cached / 1_000_000,
	}
}

func flat(r model.Rates) ModelPricing {
	return ModelPricing{Tiers: []Tier{{Name: "flat", Rates: r}}}
}

func longContext(small, large model.Rates) ModelPricing {
	return ModelPricing{Tiers: []Tier{
		{Name: "small_prompt", MaxPromptTokens: LongContextThreshold, Rates: small},
		{Name: "large_prompt", Rates: large},
	}}
}

// DefaultPricing maps model base names to their pricing.
var DefaultPricing = map[string]ModelPricing{
	"gemini-1.5-pro":        flat(PerMTok(7.00, 21.00, 3.50)),
	"gemini-1.5-flash":      flat(PerMTok(0.70, 2.10, 0.35)),
	"gemini-2.0-flash":      flat(PerMTok(0.10, 0.40, 0.025)),
	"gemini-2.5-flash":      flat(PerMTok(0.30, 2.50, 0.075)),
	"gemini-2.5-flash-lite": flat(PerMTok(0.10, 0.40, 0.025)),
	"gemini-2.5-pro": longContext(
		PerMTok(1.25, 10.00, 0.31),
		PerMTok(2.50, 15.00, 0.625),
	),
	"gemini-3-pro-preview": longContext(
		PerMTok(2.00, 12.00, 0.20),
		PerMTok(4.00, 18.00, 0.40),
	),
}

// Table resolves model pricing from a fixed set of entries.
type Table struct {
	models map[string]ModelPricing
}

// NewTable builds a table from base pricing plus config overrides.
// Overrides replace a model's tiers entirely.
func NewTable(base map[string]ModelPricing, overrides PricingOverrides) (*Table, error) {
	models := make(map[string]ModelPricing, len(base)+len(overrides.Models))
	for name, p := range base {
		models[name] = p
	}
	for name, o := range overrides.Models {
		p := o.Pricing()
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("pricing override %q: %w", name, err)
		}
		models[name] = p
	}
	return &Table{models: models}, nil
}

// DefaultTable returns a table over the compiled-in pricing.
func DefaultTable() *Table {
	return &Table{models: DefaultPricing}
}

// Lookup returns the pricing for a model, normalizing the name first.
// Returns zero pricing and false if the model is unknown.
func (t *Table) Lookup(name string) (ModelPricing, bool) {
	p, ok := t.models[t.Normalize(name)]
	return p, ok
}

// Models returns the priced model names, sorted.
func (t *Table) Models() []string {
	names := make([]string, 0, len(t.models))
	for name := range t.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize maps a raw model identifier onto a priced base name.
// e.g., "models/gemini-2.5-flash-preview-04-17" -> "gemini-2.5-flash"
// Unmatched names are returned unchanged.
func (t *Table) Normalize(raw string) string {
	if _, ok := t.models[raw]; ok {
		return raw
	}

	name := strings.TrimPrefix(raw, "models/")
	if _, ok := t.models[name]; ok {
		return name
	}

	// Drop version-ish trailing segments one at a time.
	parts := strings.Split(name, "-")
	for len(parts) > 1 && isVersionSegment(parts[len(parts)-1]) {
		parts = parts[:len(parts)-1]
		candidate := strings.Join(parts, "-")
		if _, ok := t.models[candidate]; ok {
			return candidate
		}
	}

	return raw
}

func isVersionSegment(s string) bool {
	switch s {
	case "latest", "exp", "preview":
		return true
	}
	return isAllDigits(s)
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// NormalizeModelName normalizes against the compiled-in pricing.
func NormalizeModelName(raw string) string {
	return DefaultTable().Normalize(raw)
}

// LookupPricing returns compiled-in pricing for a model.
func LookupPricing(name string) (ModelPricing, bool) {
	return DefaultTable().Lookup(name)
}

package config

import "strings"

// ModelPricing holds per-million-token prices for a model.
type ModelPricing struct {
	InputPerMTok      float64
	OutputPerMTok     float64
	CacheWritePerMTok float64
	CacheReadPerMTok  float64
}

// DefaultPricing maps model base names to their pricing.
var DefaultPricing = map[string]ModelPricing{
	"claude-opus-4": {
		InputPerMTok: 15.00, OutputPerMTok: 75.00,
		CacheWritePerMTok: 18.75, CacheReadPerMTok: 1.50,
	},
	"claude-sonnet-4": {
		InputPerMTok: 3.00, OutputPerMTok: 15.00,
		CacheWritePerMTok: 3.75, CacheReadPerMTok: 0.30,
	},
	"claude-3-5-sonnet": {
		InputPerMTok: 3.00, OutputPerMTok: 15.00,
		CacheWritePerMTok: 3.75, CacheReadPerMTok: 0.30,
	},
	"claude-3-5-haiku": {
		InputPerMTok: 0.80, OutputPerMTok: 4.00,
		CacheWritePerMTok: 1.00, CacheReadPerMTok: 0.08,
	},
	"claude-haiku-4-5": {
		InputPerMTok: 1.00, OutputPerMTok: 5.00,
		CacheWritePerMTok: 1.25, CacheReadPerMTok: 0.10,
	},
}

// PriceTable resolves model names to pricing, with user overrides
// layered on top of the defaults.
type PriceTable struct {
	overrides map[string]ModelPricing
}

// DefaultPrices returns a table with no overrides.
func DefaultPrices() *PriceTable {
	return &PriceTable{}
}

// PricesFromConfig applies user overrides onto the defaults. Override
// fields left unset keep the default value for that model.
func PricesFromConfig(cfg Config) *PriceTable {
	if len(cfg.Pricing.Overrides) == 0 {
		return DefaultPrices()
	}
	overrides := make(map[string]ModelPricing, len(cfg.Pricing.Overrides))
	for name, ov := range cfg.Pricing.Overrides {
		base := DefaultPricing[NormalizeModelName(name)]
		if ov.InputPerMTok != nil {
			base.InputPerMTok = *ov.InputPerMTok
		}
		if ov.OutputPerMTok != nil {
			base.OutputPerMTok = *ov.OutputPerMTok
		}
		if ov.CacheWritePerMTok != nil {
			base.CacheWritePerMTok = *ov.CacheWritePerMTok
		}
		if ov.CacheReadPerMTok != nil {
			base.CacheReadPerMTok = *ov.CacheReadPerMTok
		}
		overrides[NormalizeModelName(name)] = base
	}
	return &PriceTable{overrides: overrides}
}

// NormalizeModelName strips date suffixes from model identifiers.
// e.g., "claude-opus-4-20250514" -> "claude-opus-4"
func NormalizeModelName(raw string) string {
	if hasPricingModel(raw) {
		return raw
	}

	parts := strings.Split(raw, "-")
	if len(parts) >= 2 {
		last := parts[len(parts)-1]
		if isAllDigits(last) && len(last) >= 8 {
			candidate := strings.Join(parts[:len(parts)-1], "-")
			if hasPricingModel(candidate) {
				return candidate
			}
		}
	}

	return raw
}

func hasPricingModel(model string) bool {
	_, ok := DefaultPricing[model]
	return ok
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Lookup returns the pricing for a model, normalizing the name first.
// Falls back to a prefix match against the table so new date-suffixed
// variants still price. Returns false for fully unknown models.
func (t *PriceTable) Lookup(model string) (ModelPricing, bool) {
	normalized := NormalizeModelName(model)
	if t.overrides != nil {
		if p, ok := t.overrides[normalized]; ok {
			return p, true
		}
	}
	if p, ok := DefaultPricing[normalized]; ok {
		return p, true
	}
	for name, p := range DefaultPricing {
		if strings.HasPrefix(normalized, name) {
			return p, true
		}
	}
	return ModelPricing{}, false
}

// Cost computes the estimated USD cost for one call's token counts.
// Unknown models cost zero.
func (t *PriceTable) Cost(model string, input, output, cacheWrite, cacheRead int64) float64 {
	pricing, ok := t.Lookup(model)
	if !ok {
		return 0
	}

	cost := float64(input) * pricing.InputPerMTok / 1_000_000
	cost += float64(output) * pricing.OutputPerMTok / 1_000_000
	cost += float64(cacheWrite) * pricing.CacheWritePerMTok / 1_000_000
	cost += float64(cacheRead) * pricing.CacheReadPerMTok / 1_000_000

	return cost
}

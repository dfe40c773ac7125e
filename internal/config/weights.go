package config

import "strings"

// WeightRule maps a model-name prefix to a context consumption
// multiplier. Rules are evaluated in order; the first match wins.
type WeightRule struct {
	Prefix     string
	Multiplier float64
}

// WeightTable is an ordered rule list with a default multiplier of 1.0
// for models no rule matches. Keeping this as data (not branching)
// lets users extend it from the config file.
type WeightTable struct {
	rules []WeightRule
}

// Multipliers observed per model family: Opus consumes roughly 5x the
// capacity of Sonnet per raw token, Haiku slightly less than Sonnet.
var defaultWeightRules = []WeightRule{
	{Prefix: "claude-opus", Multiplier: 5.0},
	{Prefix: "claude-sonnet", Multiplier: 1.0},
	{Prefix: "claude-haiku", Multiplier: 0.8},
	{Prefix: "claude-3-5-haiku", Multiplier: 0.8},
}

// DefaultWeights returns the built-in weight table.
func DefaultWeights() *WeightTable {
	return &WeightTable{rules: defaultWeightRules}
}

// WeightsFromConfig builds a table from user rules, falling back to the
// defaults after them so user rules take priority.
func WeightsFromConfig(cfg Config) *WeightTable {
	if len(cfg.Weights) == 0 {
		return DefaultWeights()
	}
	rules := make([]WeightRule, 0, len(cfg.Weights)+len(defaultWeightRules))
	for _, r := range cfg.Weights {
		rules = append(rules, WeightRule{Prefix: r.Prefix, Multiplier: r.Multiplier})
	}
	rules = append(rules, defaultWeightRules...)
	return &WeightTable{rules: rules}
}

// Multiplier returns the consumption multiplier for a model name.
// Unknown models default to 1.0.
func (t *WeightTable) Multiplier(model string) float64 {
	for _, r := range t.rules {
		if strings.HasPrefix(model, r.Prefix) {
			return r.Multiplier
		}
	}
	return 1.0
}

// WeightedTokens scales a raw input+output token count by the model's
// multiplier, truncating toward zero.
func (t *WeightTable) WeightedTokens(model string, rawTokens int64) int64 {
	return int64(float64(rawTokens) * t.Multiplier(model))
}

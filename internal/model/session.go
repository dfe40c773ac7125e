// Package model defines the canonical domain types for blockwatch.
// Presentation DTOs live in internal/cli; everything else works on
// these types directly.
package model

import "time"

// TokenCounts aggregates the four token categories reported per API call.
type TokenCounts struct {
	Input         int64
	Output        int64
	CacheCreation int64
	CacheRead     int64
}

// Add folds another set of counts into tc.
func (tc *TokenCounts) Add(other TokenCounts) {
	tc.Input += other.Input
	tc.Output += other.Output
	tc.CacheCreation += other.CacheCreation
	tc.CacheRead += other.CacheRead
}

// Raw returns input+output, the basis for weighted-token accounting.
func (tc TokenCounts) Raw() int64 {
	return tc.Input + tc.Output
}

// Total returns the sum of all four categories.
func (tc TokenCounts) Total() int64 {
	return tc.Input + tc.Output + tc.CacheCreation + tc.CacheRead
}

// ModelUsage tracks per-model token usage within a session.
type ModelUsage struct {
	Model          string
	Tokens         TokenCounts
	Messages       int
	WeightedTokens int64
	CostUSD        float64
}

// Session aggregates all deduplicated events sharing one session identifier.
// StartTime is the minimum event timestamp, EndTime the maximum.
type Session struct {
	ID                  string
	StartTime           time.Time
	EndTime             time.Time // zero until the first event is folded
	Models              map[string]*ModelUsage
	TotalWeightedTokens int64
	CostUSD             float64
	HasLimitError       bool
}

// RecomputeTotals resets TotalWeightedTokens to the sum over per-model
// weighted totals. Callers fold events through the reconstructor, which
// invokes this after every usage change.
func (s *Session) RecomputeTotals() {
	var total int64
	for _, mu := range s.Models {
		total += mu.WeightedTokens
	}
	s.TotalWeightedTokens = total
}

// DurationMinutes is the observed session span in minutes, 0 when the
// session has no end time or a degenerate span.
func (s *Session) DurationMinutes() float64 {
	if s.EndTime.IsZero() || !s.EndTime.After(s.StartTime) {
		return 0
	}
	return s.EndTime.Sub(s.StartTime).Minutes()
}

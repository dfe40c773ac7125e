package pipeline

import (
	"sort"

	"blockwatch/internal/config"
	"blockwatch/internal/event"
	"blockwatch/internal/model"
)

// Reconstructor folds deduplicated events into sessions keyed by the
// upstream session identifier. Weighting and pricing are injected so a
// run's config applies uniformly.
type Reconstructor struct {
	weights  *config.WeightTable
	prices   *config.PriceTable
	sessions map[string]*model.Session
}

// NewReconstructor returns an empty reconstructor using the given
// weight and price tables.
func NewReconstructor(weights *config.WeightTable, prices *config.PriceTable) *Reconstructor {
	return &Reconstructor{
		weights:  weights,
		prices:   prices,
		sessions: make(map[string]*model.Session),
	}
}

// Fold applies one accepted event. Events without a session identifier
// are grouped under a single synthetic session so their usage still
// counts.
func (r *Reconstructor) Fold(e *event.UsageEvent) {
	id := e.SessionID
	if id == "" {
		id = "unknown"
	}

	s, ok := r.sessions[id]
	if !ok {
		s = &model.Session{
			ID:        id,
			StartTime: e.Timestamp,
			EndTime:   e.Timestamp,
			Models:    make(map[string]*model.ModelUsage),
		}
		r.sessions[id] = s
	}

	if e.Timestamp.Before(s.StartTime) {
		s.StartTime = e.Timestamp
	}
	if e.Timestamp.After(s.EndTime) {
		s.EndTime = e.Timestamp
	}
	if e.IsLimitError {
		s.HasLimitError = true
	}

	if e.Model == "" {
		return
	}
	mu, ok := s.Models[e.Model]
	if !ok {
		mu = &model.ModelUsage{Model: e.Model}
		s.Models[e.Model] = mu
	}
	mu.Messages++
	counts := model.TokenCounts{
		Input:         e.Input,
		Output:        e.Output,
		CacheCreation: e.CacheWrite,
		CacheRead:     e.CacheRead,
	}
	mu.Tokens.Add(counts)
	mu.WeightedTokens = r.weights.WeightedTokens(e.Model, mu.Tokens.Raw())

	// Records that carry a pre-computed cost are trusted as-is;
	// everything else is estimated from the pricing table.
	var cost float64
	if e.CostUSD != nil {
		cost = *e.CostUSD
	} else {
		cost = r.prices.Cost(e.Model, e.Input, e.Output, e.CacheWrite, e.CacheRead)
	}
	mu.CostUSD += cost
	s.CostUSD += cost

	s.RecomputeTotals()
}

// Sessions returns the reconstructed sessions sorted by start time
// ascending.
func (r *Reconstructor) Sessions() []*model.Session {
	out := make([]*model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

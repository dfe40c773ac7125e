// Package analytics derives burn rates, forward projections, and
// exhaustion estimates from reconstructed sessions and blocks.
package analytics

import (
	"math"
	"time"

	"blockwatch/internal/model"
)

// Windowed-average defaults, tunable per call site.
const (
	DefaultWindow      = 60 * time.Minute
	DefaultMinSessions = 2
	decayHalfLife      = 30.0 // minutes, exponential estimator
)

// WindowedRate averages usage over sessions that started within the
// trailing window. Returns nil when fewer than minSessions qualify or
// the combined span has non-positive duration.
func WindowedRate(sessions []*model.Session, now time.Time, window time.Duration, minSessions int) *model.BurnRate {
	if window <= 0 {
		window = DefaultWindow
	}
	if minSessions <= 0 {
		minSessions = DefaultMinSessions
	}
	cutoff := now.Add(-window)

	var (
		tokens        int64
		cost          float64
		count         int
		earliestStart time.Time
		latestEnd     time.Time
	)
	for _, s := range sessions {
		if s.StartTime.Before(cutoff) {
			continue
		}
		count++
		tokens += s.TotalWeightedTokens
		cost += s.CostUSD
		if earliestStart.IsZero() || s.StartTime.Before(earliestStart) {
			earliestStart = s.StartTime
		}
		if s.EndTime.After(latestEnd) {
			latestEnd = s.EndTime
		}
	}
	if count < minSessions {
		return nil
	}

	minutes := latestEnd.Sub(earliestStart).Minutes()
	if minutes <= 0 {
		return nil
	}
	return &model.BurnRate{
		TokensPerMinute: float64(tokens) / minutes,
		CostPerHour:     cost * 60 / minutes,
	}
}

// DecayedRate computes an exponentially-weighted tokens-per-minute rate
// over the same trailing window. Each session is weighted by
// exp(-age/30) where age is minutes since the session started, so a
// 30-minute-old session counts for about a third of a fresh one.
// Returns nil when the accumulated weight or weighted duration is
// non-positive.
func DecayedRate(sessions []*model.Session, now time.Time, window time.Duration) *model.BurnRate {
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := now.Add(-window)

	var (
		weightedTokens   float64
		weightedDuration float64
		weightedCost     float64
		totalWeight      float64
	)
	for _, s := range sessions {
		if s.StartTime.Before(cutoff) {
			continue
		}
		age := now.Sub(s.StartTime).Minutes()
		w := math.Exp(-age / decayHalfLife)

		weightedTokens += float64(s.TotalWeightedTokens) * w
		weightedDuration += s.DurationMinutes() * w
		weightedCost += s.CostUSD * w
		totalWeight += w
	}
	if totalWeight <= 0 || weightedDuration <= 0 {
		return nil
	}
	return &model.BurnRate{
		TokensPerMinute: weightedTokens / weightedDuration,
		CostPerHour:     weightedCost / weightedDuration * 60,
	}
}

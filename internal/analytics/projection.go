package analytics

import (
	"time"

	"blockwatch/internal/model"
)

// Horizon bounds how far forward projections are trusted. Anything
// beyond it is noise, not a forecast.
const Horizon = 24 * time.Hour

// Project extrapolates current usage toward a token limit at the given
// burn rate. Returns nil when the rate is non-positive or the limit
// would not be reached within the horizon.
func Project(currentTokens, limit int64, rate *model.BurnRate, currentCost float64) *model.Projection {
	if rate == nil || rate.TokensPerMinute <= 0 {
		return nil
	}
	minutes := float64(limit-currentTokens) / rate.TokensPerMinute
	if minutes > Horizon.Minutes() {
		return nil
	}
	if minutes < 0 {
		minutes = 0
	}
	return &model.Projection{
		TotalTokens:      currentTokens + int64(rate.TokensPerMinute*minutes),
		TotalCost:        currentCost + rate.CostPerHour*minutes/60,
		RemainingMinutes: minutes,
	}
}

// PredictExhaustion estimates when the limit will be hit at the given
// rate. The zero time is returned when the rate is non-positive, the
// limit is already exceeded, or exhaustion falls beyond the horizon.
func PredictExhaustion(currentTokens, limit int64, rate *model.BurnRate, now time.Time) time.Time {
	if rate == nil || rate.TokensPerMinute <= 0 {
		return time.Time{}
	}
	minutes := float64(limit-currentTokens) / rate.TokensPerMinute
	if minutes <= 0 || minutes > Horizon.Minutes() {
		return time.Time{}
	}
	return now.Add(time.Duration(minutes * float64(time.Minute)))
}

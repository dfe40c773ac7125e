package analytics

import (
	"math"
	"testing"
	"time"

	"blockwatch/internal/model"
)

func burnSession(start time.Time, dur time.Duration, weighted int64, cost float64) *model.Session {
	return &model.Session{
		ID:                  "s-" + start.Format("150405"),
		StartTime:           start,
		EndTime:             start.Add(dur),
		TotalWeightedTokens: weighted,
		CostUSD:             cost,
	}
}

func TestWindowedRate(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sessions := []*model.Session{
		burnSession(now.Add(-50*time.Minute), 20*time.Minute, 1000, 2.0),
		burnSession(now.Add(-20*time.Minute), 10*time.Minute, 500, 1.0),
	}

	got := WindowedRate(sessions, now, 0, 0)
	if got == nil {
		t.Fatal("rate missing for two qualifying sessions")
	}
	// Span: earliest start -50m to latest end -10m = 40 minutes.
	if want := 1500.0 / 40; got.TokensPerMinute != want {
		t.Errorf("TokensPerMinute = %v, want %v", got.TokensPerMinute, want)
	}
	if want := 3.0 * 60 / 40; got.CostPerHour != want {
		t.Errorf("CostPerHour = %v, want %v", got.CostPerHour, want)
	}
}

func TestWindowedRateTooFewSessions(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	sessions := []*model.Session{
		burnSession(now.Add(-10*time.Minute), 5*time.Minute, 500, 1.0),
		// Outside the trailing hour, so it does not qualify.
		burnSession(now.Add(-3*time.Hour), 5*time.Minute, 500, 1.0),
	}
	if got := WindowedRate(sessions, now, 0, 0); got != nil {
		t.Errorf("expected nil rate with one qualifying session, got %+v", got)
	}
}

func TestWindowedRateZeroSpan(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(-5 * time.Minute)
	sessions := []*model.Session{
		burnSession(start, 0, 100, 0),
		burnSession(start, 0, 200, 0),
	}
	if got := WindowedRate(sessions, now, 0, 0); got != nil {
		t.Errorf("expected nil rate for zero-duration span, got %+v", got)
	}
}

func TestDecayedRateWeighsRecentSessionsHigher(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	// Same tokens and duration; the fresh session burns 100/min, the
	// older one 10/min. The blended rate must land nearer 100.
	sessions := []*model.Session{
		burnSession(now.Add(-55*time.Minute), 50*time.Minute, 500, 1.0),
		burnSession(now.Add(-5*time.Minute), 5*time.Minute, 500, 1.0),
	}

	got := DecayedRate(sessions, now, 0)
	if got == nil {
		t.Fatal("rate missing")
	}
	blended := got.TokensPerMinute
	if blended <= 55 || blended >= 100 {
		t.Errorf("blended rate %v not biased toward the recent session", blended)
	}

	// Cross-check against the closed form.
	wOld := math.Exp(-55.0 / 30)
	wNew := math.Exp(-5.0 / 30)
	want := (500*wOld + 500*wNew) / (50*wOld + 5*wNew)
	if math.Abs(blended-want) > 1e-9 {
		t.Errorf("TokensPerMinute = %v, want %v", blended, want)
	}
}

func TestDecayedRateEmpty(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if got := DecayedRate(nil, now, 0); got != nil {
		t.Errorf("expected nil rate for no sessions, got %+v", got)
	}
}

func TestProject(t *testing.T) {
	rate := &model.BurnRate{TokensPerMinute: 50, CostPerHour: 6}
	got := Project(6000, 7000, rate, 10)
	if got == nil {
		t.Fatal("projection missing")
	}
	if want := 20.0; got.RemainingMinutes != want {
		t.Errorf("RemainingMinutes = %v, want %v", got.RemainingMinutes, want)
	}
	if want := int64(7000); got.TotalTokens != want {
		t.Errorf("TotalTokens = %d, want %d", got.TotalTokens, want)
	}
	if want := 12.0; got.TotalCost != want { // 10 + 6*(20/60)
		t.Errorf("TotalCost = %v, want %v", got.TotalCost, want)
	}
}

func TestProjectRejects(t *testing.T) {
	tests := []struct {
		name    string
		current int64
		limit   int64
		rate    *model.BurnRate
	}{
		{"nil rate", 100, 1000, nil},
		{"zero rate", 100, 1000, &model.BurnRate{}},
		{"negative rate", 100, 1000, &model.BurnRate{TokensPerMinute: -5}},
		{"beyond horizon", 0, 10_000_000, &model.BurnRate{TokensPerMinute: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Project(tt.current, tt.limit, tt.rate, 0); got != nil {
				t.Errorf("expected nil projection, got %+v", got)
			}
		})
	}
}

func TestPredictExhaustion(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rate := &model.BurnRate{TokensPerMinute: 50}

	got := PredictExhaustion(6000, 7000, rate, now)
	if want := now.Add(20 * time.Minute); !got.Equal(want) {
		t.Errorf("exhaustion = %v, want %v", got, want)
	}
}

func TestPredictExhaustionRejects(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	if got := PredictExhaustion(1000, 1000, &model.BurnRate{TokensPerMinute: 50}, now); !got.IsZero() {
		t.Errorf("limit already reached: got %v, want zero time", got)
	}
	if got := PredictExhaustion(0, 1000, nil, now); !got.IsZero() {
		t.Errorf("nil rate: got %v, want zero time", got)
	}
	if got := PredictExhaustion(0, 10_000_000, &model.BurnRate{TokensPerMinute: 1}, now); !got.IsZero() {
		t.Errorf("beyond horizon: got %v, want zero time", got)
	}
}

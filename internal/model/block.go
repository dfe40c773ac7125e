package model

import "time"

// BurnRate is the observed consumption velocity of a block or window.
type BurnRate struct {
	TokensPerMinute float64
	CostPerHour     float64
}

// Projection is a forward estimate against a token limit. Absent (nil
// on the Block) when the burn rate is non-positive or the horizon is
// exceeded.
type Projection struct {
	TotalTokens      int64
	TotalCost        float64
	RemainingMinutes float64
}

// Block is a fixed-duration accounting window over one or more sessions.
// Gap blocks mark idle intervals and carry no sessions or tokens.
type Block struct {
	ID            string
	StartTime     time.Time
	EndTime       time.Time // nominal or finalized end
	ActualEndTime time.Time // last contained session activity, zero if none
	IsActive      bool
	IsGap         bool
	Sessions      int
	Tokens        TokenCounts
	TotalTokens   int64
	CostUSD       float64
	Models        []string // distinct, first-seen order
	Breakdown     map[string]*TokenCounts
	BurnRate      *BurnRate
	Projection    *Projection

	WeightedTokens int64
	// ContextRate is weighted/raw tokens, 0 when no raw tokens were seen.
	ContextRate float64
	// LimitErrors counts contained sessions that recorded a usage-limit
	// error. Evidence for plan detection, nothing else.
	LimitErrors int
}

// DurationMinutes is the span from start to actual end, 0 when no
// activity was recorded.
func (b *Block) DurationMinutes() float64 {
	if b.ActualEndTime.IsZero() || !b.ActualEndTime.After(b.StartTime) {
		return 0
	}
	return b.ActualEndTime.Sub(b.StartTime).Minutes()
}

// DailyStats holds entry-level aggregates for one calendar day.
type DailyStats struct {
	Date      time.Time
	Models    []string // distinct, first-seen order
	Tokens    TokenCounts
	CostUSD   float64
	Entries   int
	Breakdown map[string]*ModelBreakdown
}

// ModelBreakdown holds per-model token and cost splits inside a daily
// or monthly aggregate.
type ModelBreakdown struct {
	Model   string
	Tokens  TokenCounts
	CostUSD float64
	Entries int
}

// MonthlyStats rolls daily stats up to a calendar month ("2006-01" key).
type MonthlyStats struct {
	Month     string
	Models    []string
	Tokens    TokenCounts
	CostUSD   float64
	Entries   int
	Breakdown map[string]*ModelBreakdown
}

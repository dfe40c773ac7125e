package cli

import (
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/samber/lo"

	"blockwatch/internal/model"
)

// JSON view types. These are the only serialized shapes; internal
// structs never marshal directly, so field renames there cannot break
// the output contract.

// TokensJSON is the serialized token-count split.
type TokensJSON struct {
	Input         int64 `json:"input_tokens"`
	Output        int64 `json:"output_tokens"`
	CacheCreation int64 `json:"cache_creation_tokens"`
	CacheRead     int64 `json:"cache_read_tokens"`
}

// ModelBreakdownJSON is one model's share of an aggregate.
type ModelBreakdownJSON struct {
	Model   string     `json:"model"`
	Tokens  TokensJSON `json:"tokens"`
	CostUSD float64    `json:"cost_usd"`
	Entries int        `json:"entries"`
}

// DailyJSON is one day's report row.
type DailyJSON struct {
	Date        string               `json:"date"`
	Models      []string             `json:"models"`
	Tokens      TokensJSON           `json:"tokens"`
	TotalTokens int64                `json:"total_tokens"`
	CostUSD     float64              `json:"cost_usd"`
	Entries     int                  `json:"entries"`
	Breakdown   []ModelBreakdownJSON `json:"breakdown,omitempty"`
}

// MonthlyJSON is one month's report row.
type MonthlyJSON struct {
	Month       string               `json:"month"`
	Models      []string             `json:"models"`
	Tokens      TokensJSON           `json:"tokens"`
	TotalTokens int64                `json:"total_tokens"`
	CostUSD     float64              `json:"cost_usd"`
	Entries     int                  `json:"entries"`
	Breakdown   []ModelBreakdownJSON `json:"breakdown,omitempty"`
}

// SessionJSON is one session's report row.
type SessionJSON struct {
	ID             string               `json:"session_id"`
	StartTime      time.Time            `json:"start_time"`
	EndTime        time.Time            `json:"end_time"`
	Models         []string             `json:"models"`
	WeightedTokens int64                `json:"weighted_tokens"`
	CostUSD        float64              `json:"cost_usd"`
	HasLimitError  bool                 `json:"has_limit_error"`
	Breakdown      []ModelBreakdownJSON `json:"breakdown,omitempty"`
}

// BurnRateJSON mirrors model.BurnRate.
type BurnRateJSON struct {
	TokensPerMinute float64 `json:"tokens_per_minute"`
	CostPerHour     float64 `json:"cost_per_hour"`
}

// ProjectionJSON mirrors model.Projection.
type ProjectionJSON struct {
	TotalTokens      int64   `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost"`
	RemainingMinutes float64 `json:"remaining_minutes"`
}

// BlockJSON is one block's report row.
type BlockJSON struct {
	ID             string          `json:"id"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	ActualEndTime  *time.Time      `json:"actual_end_time,omitempty"`
	IsActive       bool            `json:"is_active"`
	IsGap          bool            `json:"is_gap"`
	Sessions       int             `json:"sessions"`
	Tokens         TokensJSON      `json:"tokens"`
	TotalTokens    int64           `json:"total_tokens"`
	WeightedTokens int64           `json:"weighted_tokens"`
	CostUSD        float64         `json:"cost_usd"`
	Models         []string        `json:"models"`
	BurnRate       *BurnRateJSON   `json:"burn_rate,omitempty"`
	Projection     *ProjectionJSON `json:"projection,omitempty"`
}

func tokensView(tc model.TokenCounts) TokensJSON {
	return TokensJSON{
		Input:         tc.Input,
		Output:        tc.Output,
		CacheCreation: tc.CacheCreation,
		CacheRead:     tc.CacheRead,
	}
}

func breakdownView(breakdown map[string]*model.ModelBreakdown, order []string) []ModelBreakdownJSON {
	return lo.FilterMap(order, func(name string, _ int) (ModelBreakdownJSON, bool) {
		mb, ok := breakdown[name]
		if !ok {
			return ModelBreakdownJSON{}, false
		}
		return ModelBreakdownJSON{
			Model:   mb.Model,
			Tokens:  tokensView(mb.Tokens),
			CostUSD: mb.CostUSD,
			Entries: mb.Entries,
		}, true
	})
}

// DailyView converts daily stats into serializable rows.
func DailyView(days []model.DailyStats, withBreakdown bool) []DailyJSON {
	return lo.Map(days, func(d model.DailyStats, _ int) DailyJSON {
		row := DailyJSON{
			Date:        d.Date.Format("2006-01-02"),
			Models:      d.Models,
			Tokens:      tokensView(d.Tokens),
			TotalTokens: d.Tokens.Total(),
			CostUSD:     d.CostUSD,
			Entries:     d.Entries,
		}
		if withBreakdown {
			row.Breakdown = breakdownView(d.Breakdown, d.Models)
		}
		return row
	})
}

// MonthlyView converts monthly stats into serializable rows.
func MonthlyView(months []model.MonthlyStats, withBreakdown bool) []MonthlyJSON {
	return lo.Map(months, func(m model.MonthlyStats, _ int) MonthlyJSON {
		row := MonthlyJSON{
			Month:       m.Month,
			Models:      m.Models,
			Tokens:      tokensView(m.Tokens),
			TotalTokens: m.Tokens.Total(),
			CostUSD:     m.CostUSD,
			Entries:     m.Entries,
		}
		if withBreakdown {
			row.Breakdown = breakdownView(m.Breakdown, m.Models)
		}
		return row
	})
}

// SessionView converts sessions into serializable rows.
func SessionView(sessions []*model.Session, withBreakdown bool) []SessionJSON {
	return lo.Map(sessions, func(s *model.Session, _ int) SessionJSON {
		names := lo.Keys(s.Models)
		sort.Strings(names)
		row := SessionJSON{
			ID:             s.ID,
			StartTime:      s.StartTime,
			EndTime:        s.EndTime,
			Models:         names,
			WeightedTokens: s.TotalWeightedTokens,
			CostUSD:        s.CostUSD,
			HasLimitError:  s.HasLimitError,
		}
		if withBreakdown {
			row.Breakdown = lo.Map(row.Models, func(name string, _ int) ModelBreakdownJSON {
				mu := s.Models[name]
				return ModelBreakdownJSON{
					Model:   mu.Model,
					Tokens:  tokensView(mu.Tokens),
					CostUSD: mu.CostUSD,
					Entries: mu.Messages,
				}
			})
		}
		return row
	})
}

// BlockView converts blocks into serializable rows.
func BlockView(blocks []model.Block) []BlockJSON {
	return lo.Map(blocks, func(b model.Block, _ int) BlockJSON {
		row := BlockJSON{
			ID:             b.ID,
			StartTime:      b.StartTime,
			EndTime:        b.EndTime,
			IsActive:       b.IsActive,
			IsGap:          b.IsGap,
			Sessions:       b.Sessions,
			Tokens:         tokensView(b.Tokens),
			TotalTokens:    b.TotalTokens,
			WeightedTokens: b.WeightedTokens,
			CostUSD:        b.CostUSD,
			Models:         b.Models,
		}
		if !b.ActualEndTime.IsZero() {
			t := b.ActualEndTime
			row.ActualEndTime = &t
		}
		if b.BurnRate != nil {
			row.BurnRate = &BurnRateJSON{
				TokensPerMinute: b.BurnRate.TokensPerMinute,
				CostPerHour:     b.BurnRate.CostPerHour,
			}
		}
		if b.Projection != nil {
			row.Projection = &ProjectionJSON{
				TotalTokens:      b.Projection.TotalTokens,
				TotalCost:        b.Projection.TotalCost,
				RemainingMinutes: b.Projection.RemainingMinutes,
			}
		}
		return row
	})
}

// WriteJSON marshals v with indentation to w.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

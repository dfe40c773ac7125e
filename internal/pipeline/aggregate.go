package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"blockwatch/internal/model"
)

// ParseDateFilter parses a YYYYMMDD flag value in the given location.
// Invalid input is a configuration error and aborts before any file
// I/O.
func ParseDateFilter(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("20060102", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYYMMDD)", s)
	}
	return t, nil
}

// EndOfDay extends an until-filter to the last instant of its day, so
// --until 20260801 includes that whole day.
func EndOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Daily buckets sessions by calendar day of their start time in loc and
// returns the days sorted ascending.
func Daily(sessions []*model.Session, loc *time.Location) []model.DailyStats {
	byDay := make(map[string]*model.DailyStats)
	for _, s := range sessions {
		day := s.StartTime.In(loc)
		key := day.Format("2006-01-02")
		st, ok := byDay[key]
		if !ok {
			st = &model.DailyStats{
				Date:      time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc),
				Breakdown: make(map[string]*model.ModelBreakdown),
			}
			byDay[key] = st
		}
		foldSessionStats(&st.Models, &st.Tokens, &st.CostUSD, &st.Entries, st.Breakdown, s)
	}

	out := lo.Values(byDay)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return lo.Map(out, func(st *model.DailyStats, _ int) model.DailyStats { return *st })
}

// Monthly rolls sessions up to calendar months keyed "2006-01".
func Monthly(sessions []*model.Session, loc *time.Location) []model.MonthlyStats {
	byMonth := make(map[string]*model.MonthlyStats)
	for _, s := range sessions {
		key := s.StartTime.In(loc).Format("2006-01")
		st, ok := byMonth[key]
		if !ok {
			st = &model.MonthlyStats{
				Month:     key,
				Breakdown: make(map[string]*model.ModelBreakdown),
			}
			byMonth[key] = st
		}
		foldSessionStats(&st.Models, &st.Tokens, &st.CostUSD, &st.Entries, st.Breakdown, s)
	}

	out := lo.Values(byMonth)
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return lo.Map(out, func(st *model.MonthlyStats, _ int) model.MonthlyStats { return *st })
}

func foldSessionStats(models *[]string, tokens *model.TokenCounts, cost *float64, entries *int, breakdown map[string]*model.ModelBreakdown, s *model.Session) {
	for name, mu := range s.Models {
		if !lo.Contains(*models, name) {
			*models = append(*models, name)
		}
		tokens.Add(mu.Tokens)
		*cost += mu.CostUSD
		*entries += mu.Messages

		mb, ok := breakdown[name]
		if !ok {
			mb = &model.ModelBreakdown{Model: name}
			breakdown[name] = mb
		}
		mb.Tokens.Add(mu.Tokens)
		mb.CostUSD += mu.CostUSD
		mb.Entries += mu.Messages
	}
}

// SortOrder selects report row ordering.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortOrder validates an --order flag value. Empty means
// descending, the default report orientation.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "":
		return OrderDesc, nil
	case OrderAsc, OrderDesc:
		return SortOrder(s), nil
	}
	return "", fmt.Errorf("invalid order %q (want asc or desc)", s)
}

// Reorder reverses rows for descending order; inputs arrive ascending.
func Reorder[T any](rows []T, order SortOrder) []T {
	if order != OrderDesc {
		return rows
	}
	return lo.Reverse(rows)
}

// Recent truncates to the last n rows of an ascending slice. n <= 0
// keeps everything.
func Recent[T any](rows []T, n int) []T {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[len(rows)-n:]
}

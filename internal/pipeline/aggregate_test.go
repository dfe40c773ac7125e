package pipeline

import (
	"testing"
	"time"

	"blockwatch/internal/model"
)

func daySession(id string, start time.Time, in, out int64, cost float64) *model.Session {
	s := &model.Session{
		ID:        id,
		StartTime: start,
		EndTime:   start.Add(10 * time.Minute),
		Models: map[string]*model.ModelUsage{
			"claude-sonnet-4-20250514": {
				Model:    "claude-sonnet-4-20250514",
				Tokens:   model.TokenCounts{Input: in, Output: out},
				Messages: 1,
				CostUSD:  cost,
			},
		},
		CostUSD: cost,
	}
	return s
}

func TestDaily(t *testing.T) {
	d1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	sessions := []*model.Session{
		daySession("a", d1, 100, 50, 1.0),
		daySession("b", d1.Add(2*time.Hour), 10, 5, 0.5),
		daySession("c", d2, 1, 1, 0.1),
	}

	got := Daily(sessions, time.UTC)
	if len(got) != 2 {
		t.Fatalf("got %d days, want 2", len(got))
	}
	if got[0].Date.Day() != 1 || got[1].Date.Day() != 2 {
		t.Errorf("days not sorted ascending: %v, %v", got[0].Date, got[1].Date)
	}
	first := got[0]
	if first.Entries != 2 {
		t.Errorf("Entries = %d, want 2", first.Entries)
	}
	if first.Tokens.Input != 110 || first.Tokens.Output != 55 {
		t.Errorf("tokens = %d/%d, want 110/55", first.Tokens.Input, first.Tokens.Output)
	}
	if first.CostUSD != 1.5 {
		t.Errorf("CostUSD = %v, want 1.5", first.CostUSD)
	}
	mb := first.Breakdown["claude-sonnet-4-20250514"]
	if mb == nil || mb.Entries != 2 {
		t.Errorf("breakdown = %+v, want 2 entries for sonnet", mb)
	}
}

func TestDailyTimezoneBuckets(t *testing.T) {
	// 2026-08-01 23:30 UTC is already 2026-08-02 in UTC+2.
	start := time.Date(2026, 8, 1, 23, 30, 0, 0, time.UTC)
	loc := time.FixedZone("UTC+2", 2*3600)

	got := Daily([]*model.Session{daySession("a", start, 1, 1, 0)}, loc)
	if len(got) != 1 {
		t.Fatalf("got %d days, want 1", len(got))
	}
	if got[0].Date.Day() != 2 {
		t.Errorf("bucketed into day %d, want 2", got[0].Date.Day())
	}
}

func TestMonthly(t *testing.T) {
	sessions := []*model.Session{
		daySession("a", time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC), 10, 10, 1),
		daySession("b", time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), 20, 20, 2),
		daySession("c", time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC), 30, 30, 3),
	}

	got := Monthly(sessions, time.UTC)
	if len(got) != 2 {
		t.Fatalf("got %d months, want 2", len(got))
	}
	if got[0].Month != "2026-07" || got[1].Month != "2026-08" {
		t.Errorf("months = %q, %q", got[0].Month, got[1].Month)
	}
	if got[1].CostUSD != 5 {
		t.Errorf("august cost = %v, want 5", got[1].CostUSD)
	}
}

func TestParseDateFilter(t *testing.T) {
	got, err := ParseDateFilter("20260801", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := ParseDateFilter("2026-08-01", time.UTC); err == nil {
		t.Error("dashed date accepted")
	}
	if _, err := ParseDateFilter("notadate", time.UTC); err == nil {
		t.Error("garbage date accepted")
	}
	if got, err := ParseDateFilter("", time.UTC); err != nil || !got.IsZero() {
		t.Errorf("empty filter: got %v, %v; want zero, nil", got, err)
	}
}

func TestFilterByTime(t *testing.T) {
	mk := func(day int) *model.Session {
		return daySession("s", time.Date(2026, 8, day, 12, 0, 0, 0, time.UTC), 1, 1, 0)
	}
	sessions := []*model.Session{mk(1), mk(2), mk(3)}

	since := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	until := EndOfDay(since)
	got := FilterByTime(sessions, since, until)
	if len(got) != 1 || got[0].StartTime.Day() != 2 {
		t.Errorf("got %d sessions, want only day 2", len(got))
	}
}

func TestReorderAndRecent(t *testing.T) {
	rows := []int{1, 2, 3, 4}

	desc := Reorder(append([]int(nil), rows...), OrderDesc)
	if desc[0] != 4 || desc[3] != 1 {
		t.Errorf("desc = %v", desc)
	}
	asc := Reorder(append([]int(nil), rows...), OrderAsc)
	if asc[0] != 1 {
		t.Errorf("asc = %v", asc)
	}

	if got := Recent(rows, 2); len(got) != 2 || got[0] != 3 {
		t.Errorf("Recent(2) = %v, want [3 4]", got)
	}
	if got := Recent(rows, 0); len(got) != 4 {
		t.Errorf("Recent(0) = %v, want all", got)
	}
	if got := Recent(rows, 10); len(got) != 4 {
		t.Errorf("Recent(10) = %v, want all", got)
	}
}

func TestParseSortOrder(t *testing.T) {
	if got, err := ParseSortOrder(""); err != nil || got != OrderDesc {
		t.Errorf("empty order: got %v, %v", got, err)
	}
	if _, err := ParseSortOrder("sideways"); err == nil {
		t.Error("invalid order accepted")
	}
}

package blocks

import (
	"testing"
	"time"

	"blockwatch/internal/model"
)

func sessionAt(t *testing.T, start time.Time, dur time.Duration, tokens int64) *model.Session {
	t.Helper()
	s := &model.Session{
		ID:        "sess-" + start.Format("150405"),
		StartTime: start,
		EndTime:   start.Add(dur),
		Models:    map[string]*model.ModelUsage{},
	}
	s.Models["claude-sonnet-4-20250514"] = &model.ModelUsage{
		Model:          "claude-sonnet-4-20250514",
		Tokens:         model.TokenCounts{Input: tokens / 2, Output: tokens - tokens/2},
		Messages:       1,
		WeightedTokens: tokens,
	}
	s.RecomputeTotals()
	return s
}

func TestBuildSingleSession(t *testing.T) {
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(90 * time.Minute)

	got := Build([]*model.Session{sessionAt(t, start, time.Hour, 1000)}, now, Options{})
	if len(got) != 1 {
		t.Fatalf("got %d blocks, want 1", len(got))
	}
	b := got[0]
	if b.Sessions != 1 {
		t.Errorf("Sessions = %d, want 1", b.Sessions)
	}
	if b.IsGap {
		t.Error("single data block marked as gap")
	}
	if !b.IsActive {
		t.Error("recent block not marked active")
	}
	if b.TotalTokens != 1000 {
		t.Errorf("TotalTokens = %d, want 1000", b.TotalTokens)
	}
	if b.ID != "block_1" {
		t.Errorf("ID = %q, want block_1", b.ID)
	}
}

func TestBuildSplitsAndInsertsGap(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	// Second session starts 5h40m after the first: outside the 5h
	// window, and the idle span between them exceeds 30m.
	s1 := sessionAt(t, start, time.Hour, 500)
	s2 := sessionAt(t, start.Add(5*time.Hour+40*time.Minute), time.Hour, 700)
	now := s2.EndTime.Add(10 * time.Minute)

	got := Build([]*model.Session{s1, s2}, now, Options{})
	if len(got) != 3 {
		t.Fatalf("got %d blocks, want 3 (data, gap, data)", len(got))
	}
	if got[0].IsGap || got[2].IsGap {
		t.Error("data blocks marked as gaps")
	}
	if !got[1].IsGap {
		t.Error("middle block not marked as gap")
	}
	if got[1].Sessions != 0 || got[1].TotalTokens != 0 {
		t.Errorf("gap block carries usage: sessions=%d tokens=%d", got[1].Sessions, got[1].TotalTokens)
	}
	if !got[1].StartTime.Equal(got[0].EndTime) || !got[1].EndTime.Equal(got[2].StartTime) {
		t.Error("gap block does not span the idle interval exactly")
	}
	if got[0].IsActive {
		t.Error("older data block marked active")
	}
	if !got[2].IsActive {
		t.Error("recent data block not marked active")
	}
}

func TestBuildSessionAtExactBoundaryStaysInBlock(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s1 := sessionAt(t, start, 30*time.Minute, 100)
	// Exactly 5h after the block start. Strictly-greater rule keeps
	// it in the same block.
	s2 := sessionAt(t, start.Add(5*time.Hour), 30*time.Minute, 100)

	got := Build([]*model.Session{s1, s2}, s2.EndTime, Options{})
	if len(got) != 1 {
		t.Fatalf("got %d blocks, want 1", len(got))
	}
	if got[0].Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", got[0].Sessions)
	}
}

func TestBuildGapAtExactThresholdInsertsNothing(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s1 := sessionAt(t, start, time.Hour, 100)
	// Next block starts 5h30m in; idle span from s1's end (01:00) to
	// the next start would be 4h30m > 30m, so pick timings where the
	// measured gap is exactly the threshold instead.
	s2 := sessionAt(t, s1.EndTime.Add(30*time.Minute), time.Hour, 100)
	s2.StartTime = start.Add(5*time.Hour + 1*time.Minute)
	s2.EndTime = s2.StartTime.Add(time.Hour)

	// Rebuild s1 so its activity ends exactly 30m before s2 starts.
	s1.EndTime = s2.StartTime.Add(-30 * time.Minute)

	got := Build([]*model.Session{s1, s2}, s2.EndTime, Options{})
	if len(got) != 2 {
		t.Fatalf("got %d blocks, want 2 (no gap at exact threshold)", len(got))
	}
	for _, b := range got {
		if b.IsGap {
			t.Error("gap block inserted for a span equal to the threshold")
		}
	}
}

func TestBuildNoActiveWhenStale(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := sessionAt(t, start, time.Hour, 100)
	now := start.Add(7 * time.Hour) // past the 6h recency window

	got := Build([]*model.Session{s}, now, Options{})
	if len(got) != 1 {
		t.Fatalf("got %d blocks, want 1", len(got))
	}
	if got[0].IsActive {
		t.Error("stale block marked active")
	}
}

func TestBuildAtMostOneActive(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var sessions []*model.Session
	for i := 0; i < 5; i++ {
		sessions = append(sessions, sessionAt(t, start.Add(time.Duration(i)*6*time.Hour), time.Hour, 200))
	}
	now := sessions[len(sessions)-1].EndTime.Add(5 * time.Minute)

	got := Build(sessions, now, Options{})
	active := 0
	for _, b := range got {
		if b.IsActive {
			active++
			if b.IsGap {
				t.Error("gap block marked active")
			}
		}
	}
	if active != 1 {
		t.Errorf("active blocks = %d, want 1", active)
	}
}

func TestBuildBurnRate(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := sessionAt(t, start, 2*time.Hour, 1200)
	s.CostUSD = 6.0

	got := Build([]*model.Session{s}, s.EndTime, Options{})
	if len(got) != 1 {
		t.Fatalf("got %d blocks, want 1", len(got))
	}
	br := got[0].BurnRate
	if br == nil {
		t.Fatal("burn rate missing")
	}
	if want := 10.0; br.TokensPerMinute != want { // 1200 tokens / 120 min
		t.Errorf("TokensPerMinute = %v, want %v", br.TokensPerMinute, want)
	}
	if want := 3.0; br.CostPerHour != want { // $6 / 120 min * 60
		t.Errorf("CostPerHour = %v, want %v", br.CostPerHour, want)
	}
}

func TestBuildBurnRateHalfHourSession(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := sessionAt(t, start, 30*time.Minute, 1800)

	got := Build([]*model.Session{s}, s.EndTime, Options{})
	br := got[0].BurnRate
	if br == nil {
		t.Fatal("burn rate missing")
	}
	if want := 60.0; br.TokensPerMinute != want {
		t.Errorf("TokensPerMinute = %v, want %v", br.TokensPerMinute, want)
	}
}

func TestBuildBurnRateOmittedForZeroDuration(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := sessionAt(t, start, 0, 100)

	got := Build([]*model.Session{s}, start.Add(time.Minute), Options{})
	if got[0].BurnRate != nil {
		t.Errorf("burn rate computed for zero-duration block: %+v", got[0].BurnRate)
	}
}

func TestBuildDeterministic(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	sessions := []*model.Session{
		sessionAt(t, start.Add(12*time.Hour), time.Hour, 300),
		sessionAt(t, start, time.Hour, 100),
		sessionAt(t, start.Add(6*time.Hour), time.Hour, 200),
	}
	now := start.Add(13 * time.Hour)

	first := Build(sessions, now, Options{})
	second := Build(sessions, now, Options{})
	if len(first) != len(second) {
		t.Fatalf("runs disagree on length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].TotalTokens != second[i].TotalTokens ||
			first[i].IsGap != second[i].IsGap || first[i].IsActive != second[i].IsActive {
			t.Errorf("block %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
	if !first[0].StartTime.Equal(start) {
		t.Errorf("unsorted input not reordered: first block starts %v", first[0].StartTime)
	}
}

// Package blocks converts a chronologically ordered session stream into
// fixed-duration accounting blocks with gap detection and active-block
// marking.
package blocks

import (
	"fmt"
	"sort"
	"time"

	"blockwatch/internal/model"
)

// Options control block construction. Zero values fall back to the
// observed upstream heuristics; they are heuristics, not invariants,
// and callers may tune them from config.
type Options struct {
	BlockDuration time.Duration // width of one accounting window
	GapThreshold  time.Duration // idle span that produces a gap block
	ActiveWindow  time.Duration // recency window for active marking
}

// DefaultOptions returns the upstream defaults: 5h blocks, 30m gap
// threshold, 6h active window.
func DefaultOptions() Options {
	return Options{
		BlockDuration: 5 * time.Hour,
		GapThreshold:  30 * time.Minute,
		ActiveWindow:  6 * time.Hour,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.BlockDuration <= 0 {
		o.BlockDuration = d.BlockDuration
	}
	if o.GapThreshold <= 0 {
		o.GapThreshold = d.GapThreshold
	}
	if o.ActiveWindow <= 0 {
		o.ActiveWindow = d.ActiveWindow
	}
	return o
}

// Builder is the block-construction state machine. Sessions must be
// fed in non-decreasing start-time order; Build sorts its input before
// feeding, so only direct Add callers need to care.
type Builder struct {
	opts    Options
	current *model.Block
	closed  []model.Block
}

// NewBuilder returns a builder with the given options.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts.withDefaults()}
}

// Add folds one session into the timeline, opening a new block when the
// session starts more than one block duration after the current block's
// start. Strictly greater: a session exactly one duration away stays in
// the current block.
func (b *Builder) Add(s *model.Session) {
	if b.current == nil || s.StartTime.Sub(b.current.StartTime) > b.opts.BlockDuration {
		if b.current != nil {
			b.finalizeBlock(b.current, s.StartTime)
			b.closed = append(b.closed, *b.current)
		}
		b.current = b.newBlock(s.StartTime)
	}
	b.foldSession(b.current, s)
}

// Finish closes any open block (falling back to now when the block has
// no recorded activity end), inserts gap blocks, and marks at most one
// block active. The builder must not be reused afterwards.
func (b *Builder) Finish(now time.Time) []model.Block {
	if b.current != nil {
		b.finalizeBlock(b.current, now)
		b.closed = append(b.closed, *b.current)
		b.current = nil
	}

	out := b.insertGaps(b.closed)
	markActive(out, now, b.opts.ActiveWindow)
	return out
}

// Build runs the full construction over a session list. The input is
// sorted by start time ascending first; now is explicit so results are
// reproducible in tests.
func Build(sessions []*model.Session, now time.Time, opts Options) []model.Block {
	sorted := make([]*model.Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	builder := NewBuilder(opts)
	for _, s := range sorted {
		builder.Add(s)
	}
	return builder.Finish(now)
}

func (b *Builder) newBlock(start time.Time) *model.Block {
	return &model.Block{
		ID:        fmt.Sprintf("block_%d", len(b.closed)+1),
		StartTime: start,
		EndTime:   start.Add(b.opts.BlockDuration),
		Breakdown: make(map[string]*model.TokenCounts),
	}
}

func (b *Builder) foldSession(blk *model.Block, s *model.Session) {
	blk.Sessions++

	for name, mu := range s.Models {
		counts, ok := blk.Breakdown[name]
		if !ok {
			counts = &model.TokenCounts{}
			blk.Breakdown[name] = counts
			blk.Models = append(blk.Models, name)
		}
		counts.Add(mu.Tokens)
		blk.Tokens.Add(mu.Tokens)
	}

	blk.TotalTokens = blk.Tokens.Total()
	blk.WeightedTokens += s.TotalWeightedTokens
	blk.CostUSD += s.CostUSD
	if s.HasLimitError {
		blk.LimitErrors++
	}

	if !s.EndTime.IsZero() && s.EndTime.After(blk.ActualEndTime) {
		blk.ActualEndTime = s.EndTime
	}

	if raw := blk.Tokens.Raw(); raw > 0 {
		blk.ContextRate = float64(blk.WeightedTokens) / float64(raw)
	}
}

// finalizeBlock fixes the block's displayed end time (actual activity
// end when known, the supplied fallback otherwise) and computes its
// burn rate. Burn rate is omitted for degenerate durations.
func (b *Builder) finalizeBlock(blk *model.Block, fallbackEnd time.Time) {
	if blk.ActualEndTime.IsZero() {
		blk.EndTime = fallbackEnd
	} else {
		blk.EndTime = blk.ActualEndTime
	}

	minutes := blk.DurationMinutes()
	if minutes <= 0 {
		return
	}
	blk.BurnRate = &model.BurnRate{
		TokensPerMinute: float64(blk.TotalTokens) / minutes,
		CostPerHour:     blk.CostUSD / minutes * 60,
	}
}

// insertGaps splices a synthetic gap block between each adjacent pair
// whose idle span strictly exceeds the threshold. A span exactly equal
// to the threshold inserts nothing.
func (b *Builder) insertGaps(in []model.Block) []model.Block {
	if len(in) == 0 {
		return nil
	}

	out := make([]model.Block, 0, len(in))
	for i := range in {
		out = append(out, in[i])

		if i+1 >= len(in) {
			continue
		}
		gap := in[i+1].StartTime.Sub(in[i].EndTime)
		if gap <= b.opts.GapThreshold {
			continue
		}
		out = append(out, model.Block{
			ID:        fmt.Sprintf("gap_%d", len(out)),
			StartTime: in[i].EndTime,
			EndTime:   in[i+1].StartTime,
			IsGap:     true,
		})
	}
	return out
}

// markActive flags the non-gap block with the latest start time, but
// only when that start is within the recency window of now. A timeline
// whose last activity is older than the window has no active block.
func markActive(blocks []model.Block, now time.Time, window time.Duration) {
	latest := -1
	for i := range blocks {
		if blocks[i].IsGap {
			continue
		}
		if latest < 0 || blocks[i].StartTime.After(blocks[latest].StartTime) {
			latest = i
		}
	}
	if latest < 0 {
		return
	}
	if now.Sub(blocks[latest].StartTime) <= window {
		blocks[latest].IsActive = true
	}
}

// Package pipeline orchestrates file discovery, parsing, deduplication,
// session reconstruction, and aggregation for one run.
package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"blockwatch/internal/config"
	"blockwatch/internal/event"
	"blockwatch/internal/model"
	"blockwatch/internal/source"
)

// maxLineBytes bounds a single JSONL line. Tool-use records with large
// embedded content routinely exceed bufio's default.
const maxLineBytes = 10 * 1024 * 1024

// FileStats records per-file parse diagnostics, surfaced only in debug
// mode.
type FileStats struct {
	Path       string
	Lines      int
	Parsed     int
	Duplicates int
	Malformed  int
	NoUsage    int
	Synthetic  int
}

// LoadResult holds the output of the full loading pipeline.
type LoadResult struct {
	Sessions     []*model.Session
	TotalFiles   int
	FileErrors   int
	ProjectCount int
	Events       int
	Duplicates   int
	Files        []FileStats
}

// Options configure a pipeline run.
type Options struct {
	ClaudeDir string
	Config    config.Config
	Debug     bool
}

// Load discovers and parses all usage logs under the Claude data
// directory. Files are processed strictly sequentially in discovery
// order (mtime, then path) so that the first occurrence of a duplicated
// event always wins, independent of scheduling.
func Load(opts Options) (*LoadResult, error) {
	files, err := source.ScanDir(opts.ClaudeDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", opts.ClaudeDir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no session logs found under %s", opts.ClaudeDir)
	}

	result := &LoadResult{
		TotalFiles:   len(files),
		ProjectCount: source.CountProjects(files),
	}

	parser := newParser(opts.Config)
	dedup := event.NewDedup()
	recon := NewReconstructor(
		config.WeightsFromConfig(opts.Config),
		config.PricesFromConfig(opts.Config),
	)

	for _, f := range files {
		events, stats, err := parseFile(f.Path, parser)
		if err != nil {
			// A vanished or unreadable file skips, the run continues.
			result.FileErrors++
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", f.Path, err)
			continue
		}
		foldEvents(events, dedup, recon, &stats)
		result.Events += stats.Parsed
		result.Duplicates += stats.Duplicates
		if opts.Debug {
			result.Files = append(result.Files, stats)
		}
	}

	result.Sessions = recon.Sessions()
	if len(result.Sessions) == 0 {
		return nil, fmt.Errorf("no valid usage records found under %s", opts.ClaudeDir)
	}
	return result, nil
}

// newParser builds the line parser, honoring a configured limit-error
// phrase override.
func newParser(cfg config.Config) event.Parser {
	p := event.NewParser()
	if phrase := cfg.Limits.ErrorPhrase; phrase != "" {
		p.Limit = event.LimitMatcher{Phrase: phrase}
	}
	return p
}

// parseFile parses one JSONL file line by line, keeping events in line
// order. Deduplication happens later, at assembly, because identity
// collisions cross file boundaries.
func parseFile(path string, parser event.Parser) ([]*event.UsageEvent, FileStats, error) {
	stats := FileStats{Path: path}

	f, err := os.Open(path)
	if err != nil {
		return nil, stats, err
	}
	defer f.Close()

	var events []*event.UsageEvent
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		ev, skip := parser.ParseLine(line)
		switch skip {
		case event.SkipNone:
		case event.SkipMalformed, event.SkipNoTimestamp:
			stats.Malformed++
			continue
		case event.SkipNoUsage:
			stats.NoUsage++
			continue
		case event.SkipSynthetic:
			stats.Synthetic++
			continue
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, stats, err
	}
	return events, stats, nil
}

// foldEvents runs one file's events through the shared dedup set and
// into the reconstructor, in order.
func foldEvents(events []*event.UsageEvent, dedup *event.Dedup, recon *Reconstructor, stats *FileStats) {
	for _, ev := range events {
		if !dedup.Accept(ev) {
			stats.Duplicates++
			continue
		}
		stats.Parsed++
		recon.Fold(ev)
	}
}

// FilterByTime keeps sessions whose start falls inside [since, until].
// Zero bounds are open.
func FilterByTime(sessions []*model.Session, since, until time.Time) []*model.Session {
	var out []*model.Session
	for _, s := range sessions {
		if !since.IsZero() && s.StartTime.Before(since) {
			continue
		}
		if !until.IsZero() && s.StartTime.After(until) {
			continue
		}
		out = append(out, s)
	}
	return out
}

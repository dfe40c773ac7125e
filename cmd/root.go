package cmd

import (
	"fmt"
	"os"
	"time"

	"blockwatch/internal/config"
	"blockwatch/internal/model"
	"blockwatch/internal/pipeline"
	"blockwatch/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagClaudeDir string
	flagDebug     bool
	flagJSON      bool
	flagSince     string
	flagUntil     string
	flagOrder     string
	flagBreakdown bool
	flagRecent    int
	flagNoCache   bool
	flagTimezone  string
)

var rootCmd = &cobra.Command{
	Use:   "blockwatch",
	Short: "Claude Code usage blocks, burn rates, and projections",
	Long: "Analyze Claude Code usage logs: 5-hour accounting blocks, burn rates,\n" +
		"cost estimates, and limit projections.",
	RunE:          runDaily,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagClaudeDir, "claude-dir", "d", "", "Claude data directory (default ~/.claude)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Print per-file parse diagnostics")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Emit JSON instead of tables")
	rootCmd.PersistentFlags().StringVar(&flagSince, "since", "", "Start date filter (YYYYMMDD)")
	rootCmd.PersistentFlags().StringVar(&flagUntil, "until", "", "End date filter (YYYYMMDD)")
	rootCmd.PersistentFlags().StringVar(&flagOrder, "order", "", "Row order: asc or desc (default desc)")
	rootCmd.PersistentFlags().BoolVar(&flagBreakdown, "breakdown", false, "Include per-model breakdown")
	rootCmd.PersistentFlags().IntVar(&flagRecent, "recent", 0, "Show only the most recent N rows")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the event cache, reparse everything")
	rootCmd.PersistentFlags().StringVar(&flagTimezone, "timezone", "", "IANA timezone for report bucketing (default local)")
}

// runContext is the validated, shared state every report command needs.
type runContext struct {
	cfg      config.Config
	loc      *time.Location
	since    time.Time
	until    time.Time
	order    pipeline.SortOrder
	loadOpts pipeline.Options
}

// newRunContext validates user-supplied filters before any file I/O.
func newRunContext() (*runContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	tz := flagTimezone
	if tz == "" {
		tz = cfg.General.Timezone
	}
	loc := time.Local
	if tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
	}

	since, err := pipeline.ParseDateFilter(flagSince, loc)
	if err != nil {
		return nil, err
	}
	until, err := pipeline.ParseDateFilter(flagUntil, loc)
	if err != nil {
		return nil, err
	}
	until = pipeline.EndOfDay(until)

	order, err := pipeline.ParseSortOrder(flagOrder)
	if err != nil {
		return nil, err
	}

	claudeDir := flagClaudeDir
	if claudeDir == "" {
		claudeDir = config.DefaultClaudeDir(cfg)
	}

	return &runContext{
		cfg:   cfg,
		loc:   loc,
		since: since,
		until: until,
		order: order,
		loadOpts: pipeline.Options{
			ClaudeDir: claudeDir,
			Config:    cfg,
			Debug:     flagDebug || cfg.General.Debug,
		},
	}, nil
}

// loadData runs the pipeline, via the event cache unless --no-cache. A
// broken cache degrades to a full reparse rather than failing the run.
func (rc *runContext) loadData() (*pipeline.LoadResult, error) {
	if !flagNoCache {
		cache, err := store.Open(store.DefaultPath())
		if err == nil {
			defer cache.Close()
			cr, err := pipeline.LoadWithCache(rc.loadOpts, cache)
			if err == nil {
				rc.printDebug(&cr.LoadResult)
				return &cr.LoadResult, nil
			}
			if rc.loadOpts.Debug {
				fmt.Fprintf(os.Stderr, "cache load failed, reparsing: %v\n", err)
			}
		} else if rc.loadOpts.Debug {
			fmt.Fprintf(os.Stderr, "cache unavailable: %v\n", err)
		}
	}

	result, err := pipeline.Load(rc.loadOpts)
	if err != nil {
		return nil, err
	}
	rc.printDebug(result)
	return result, nil
}

func (rc *runContext) printDebug(result *pipeline.LoadResult) {
	if !rc.loadOpts.Debug {
		return
	}
	fmt.Fprintf(os.Stderr, "%d files, %d projects, %d events, %d duplicates, %d file errors\n",
		result.TotalFiles, result.ProjectCount, result.Events, result.Duplicates, result.FileErrors)
	for _, fs := range result.Files {
		fmt.Fprintf(os.Stderr, "  %s: %d lines, %d parsed, %d dup, %d malformed, %d no-usage, %d synthetic\n",
			fs.Path, fs.Lines, fs.Parsed, fs.Duplicates, fs.Malformed, fs.NoUsage, fs.Synthetic)
	}
}

// filteredSessions loads and applies the date range. An empty result
// after filtering is an explicit error, never a silent empty report.
func (rc *runContext) filteredSessions() ([]*model.Session, error) {
	result, err := rc.loadData()
	if err != nil {
		return nil, err
	}
	sessions := pipeline.FilterByTime(result.Sessions, rc.since, rc.until)
	if len(sessions) == 0 {
		return nil, fmt.Errorf("no data for the selected range")
	}
	return sessions, nil
}

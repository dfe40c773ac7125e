package pipeline

import (
	"fmt"
	"os"

	"blockwatch/internal/config"
	"blockwatch/internal/event"
	"blockwatch/internal/source"
	"blockwatch/internal/store"
)

// CachedLoadResult extends LoadResult with cache effectiveness counters.
type CachedLoadResult struct {
	LoadResult
	CacheHits int
	Reparsed  int
}

// LoadWithCache is Load with a parsed-event cache in front of the
// parser. Unchanged files (same mtime and size) are served from the
// cache; changed or new files are reparsed and written back. Files are
// still assembled strictly in discovery order so first-occurrence-wins
// deduplication is identical to an uncached run.
func LoadWithCache(opts Options, cache *store.Cache) (*CachedLoadResult, error) {
	files, err := source.ScanDir(opts.ClaudeDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", opts.ClaudeDir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no session logs found under %s", opts.ClaudeDir)
	}

	tracked, err := cache.TrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading cache index: %w", err)
	}

	result := &CachedLoadResult{
		LoadResult: LoadResult{
			TotalFiles:   len(files),
			ProjectCount: source.CountProjects(files),
		},
	}

	parser := newParser(opts.Config)
	dedup := event.NewDedup()
	recon := NewReconstructor(
		config.WeightsFromConfig(opts.Config),
		config.PricesFromConfig(opts.Config),
	)

	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f.Path] = struct{}{}

		var (
			events []*event.UsageEvent
			stats  FileStats
		)
		if fi, ok := tracked[f.Path]; ok && fi.MtimeNs == f.ModTime.UnixNano() && fi.SizeBytes == f.Size {
			events, err = cache.LoadFileEvents(f.Path)
			if err != nil {
				return nil, fmt.Errorf("reading cache for %s: %w", f.Path, err)
			}
			stats = FileStats{Path: f.Path, Lines: len(events)}
			result.CacheHits++
		} else {
			events, stats, err = parseFile(f.Path, parser)
			if err != nil {
				result.FileErrors++
				fmt.Fprintf(os.Stderr, "warning: %s: %v\n", f.Path, err)
				continue
			}
			if err := cache.SaveFileEvents(f.Path, f.ModTime.UnixNano(), f.Size, events); err != nil {
				return nil, fmt.Errorf("writing cache for %s: %w", f.Path, err)
			}
			result.Reparsed++
		}

		foldEvents(events, dedup, recon, &stats)
		result.Events += stats.Parsed
		result.Duplicates += stats.Duplicates
		if opts.Debug {
			result.Files = append(result.Files, stats)
		}
	}

	// Drop tracker entries for files that vanished from disk.
	for path := range tracked {
		if _, ok := seen[path]; !ok {
			if err := cache.DeleteFile(path); err != nil {
				return nil, fmt.Errorf("pruning cache for %s: %w", path, err)
			}
		}
	}

	result.Sessions = recon.Sessions()
	if len(result.Sessions) == 0 {
		return nil, fmt.Errorf("no valid usage records found under %s", opts.ClaudeDir)
	}
	return result, nil
}

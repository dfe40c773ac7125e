package pipeline

import (
	"path/filepath"
	"testing"
	"time"

	"blockwatch/internal/config"
	"blockwatch/internal/store"
)

func TestLoadWithCacheMatchesUncachedRun(t *testing.T) {
	claudeDir := t.TempDir()
	older := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	writeLog(t, claudeDir, "proj-a", "a.jsonl",
		line("sess-1", "2026-08-01T09:00:00Z", "msg_1", "req_1", 100, 50)+
			line("sess-1", "2026-08-01T09:05:00Z", "msg_2", "req_2", 10, 5), older)
	writeLog(t, claudeDir, "proj-b", "b.jsonl",
		line("sess-1", "2026-08-01T09:00:00Z", "msg_1", "req_1", 999, 0), older.Add(time.Hour))

	cache, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	opts := Options{ClaudeDir: claudeDir, Config: config.DefaultConfig()}

	cold, err := LoadWithCache(opts, cache)
	if err != nil {
		t.Fatal(err)
	}
	if cold.Reparsed != 2 || cold.CacheHits != 0 {
		t.Errorf("cold run: reparsed %d, hits %d; want 2, 0", cold.Reparsed, cold.CacheHits)
	}

	warm, err := LoadWithCache(opts, cache)
	if err != nil {
		t.Fatal(err)
	}
	if warm.CacheHits != 2 || warm.Reparsed != 0 {
		t.Errorf("warm run: hits %d, reparsed %d; want 2, 0", warm.CacheHits, warm.Reparsed)
	}

	plain, err := Load(opts)
	if err != nil {
		t.Fatal(err)
	}

	// The warm cached run must agree with the uncached pipeline,
	// duplicate resolution included.
	for _, got := range []*CachedLoadResult{cold, warm} {
		if got.Duplicates != plain.Duplicates {
			t.Errorf("Duplicates = %d, want %d", got.Duplicates, plain.Duplicates)
		}
		if len(got.Sessions) != len(plain.Sessions) {
			t.Fatalf("sessions = %d, want %d", len(got.Sessions), len(plain.Sessions))
		}
		for i := range got.Sessions {
			if got.Sessions[i].TotalWeightedTokens != plain.Sessions[i].TotalWeightedTokens {
				t.Errorf("session %d weighted tokens = %d, want %d",
					i, got.Sessions[i].TotalWeightedTokens, plain.Sessions[i].TotalWeightedTokens)
			}
		}
	}
}

func TestLoadWithCacheReparsesChangedFile(t *testing.T) {
	claudeDir := t.TempDir()
	mtime := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	writeLog(t, claudeDir, "proj", "a.jsonl",
		line("sess-1", "2026-08-01T09:00:00Z", "msg_1", "req_1", 100, 0), mtime)

	cache, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	opts := Options{ClaudeDir: claudeDir, Config: config.DefaultConfig()}
	if _, err := LoadWithCache(opts, cache); err != nil {
		t.Fatal(err)
	}

	// Append a line and bump mtime; the file must be reparsed.
	writeLog(t, claudeDir, "proj", "a.jsonl",
		line("sess-1", "2026-08-01T09:00:00Z", "msg_1", "req_1", 100, 0)+
			line("sess-1", "2026-08-01T09:10:00Z", "msg_2", "req_2", 50, 0),
		mtime.Add(time.Minute))

	got, err := LoadWithCache(opts, cache)
	if err != nil {
		t.Fatal(err)
	}
	if got.Reparsed != 1 || got.CacheHits != 0 {
		t.Errorf("reparsed %d, hits %d; want 1, 0", got.Reparsed, got.CacheHits)
	}
	if got.Events != 2 {
		t.Errorf("Events = %d, want 2", got.Events)
	}
}

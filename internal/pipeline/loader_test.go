package pipeline

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"blockwatch/internal/config"
)

func writeLog(t *testing.T, claudeDir, project, name, content string, mtime time.Time) {
	t.Helper()
	dir := filepath.Join(claudeDir, "projects", project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func line(sessionID, ts, msgID, reqID string, in, out int) string {
	return `{"sessionId":"` + sessionID + `","timestamp":"` + ts + `","requestId":"` + reqID + `",` +
		`"message":{"id":"` + msgID + `","model":"claude-sonnet-4-20250514",` +
		`"usage":{"input_tokens":` + strconv.Itoa(in) + `,"output_tokens":` + strconv.Itoa(out) + `}}}` + "\n"
}

func TestLoadEndToEnd(t *testing.T) {
	claudeDir := t.TempDir()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	writeLog(t, claudeDir, "-home-user-proj",
		"sess-1.jsonl",
		line("sess-1", "2026-08-01T10:00:00Z", "msg_1", "req_1", 100, 50)+
			"not json at all\n"+
			line("sess-1", "2026-08-01T10:05:00Z", "msg_2", "req_2", 10, 5),
		base)

	got, err := Load(Options{ClaudeDir: claudeDir, Config: config.DefaultConfig(), Debug: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.Events != 2 {
		t.Errorf("Events = %d, want 2", got.Events)
	}
	if len(got.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(got.Sessions))
	}
	s := got.Sessions[0]
	if s.ID != "sess-1" {
		t.Errorf("ID = %q", s.ID)
	}
	if want := int64(165); s.TotalWeightedTokens != want {
		t.Errorf("TotalWeightedTokens = %d, want %d", s.TotalWeightedTokens, want)
	}
	if len(got.Files) != 1 || got.Files[0].Malformed != 1 {
		t.Errorf("debug stats = %+v, want one file with one malformed line", got.Files)
	}
}

func TestLoadDeduplicatesAcrossFiles(t *testing.T) {
	claudeDir := t.TempDir()
	older := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	// Same identity in two files. The older file is scanned first, so
	// its occurrence wins and the newer one is dropped.
	writeLog(t, claudeDir, "proj-a", "a.jsonl",
		line("sess-1", "2026-08-01T09:00:00Z", "msg_1", "req_1", 100, 0), older)
	writeLog(t, claudeDir, "proj-b", "b.jsonl",
		line("sess-1", "2026-08-01T09:00:00Z", "msg_1", "req_1", 999, 0), newer)

	got, err := Load(Options{ClaudeDir: claudeDir, Config: config.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	if got.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", got.Duplicates)
	}
	if len(got.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(got.Sessions))
	}
	if tok := got.Sessions[0].Models["claude-sonnet-4-20250514"].Tokens.Input; tok != 100 {
		t.Errorf("Input = %d, want 100 (first occurrence wins)", tok)
	}
}

func TestLoadNoFiles(t *testing.T) {
	claudeDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(claudeDir, "projects"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(Options{ClaudeDir: claudeDir, Config: config.DefaultConfig()}); err == nil {
		t.Error("expected an error for an empty data directory")
	}
}

func TestLoadNoValidRecords(t *testing.T) {
	claudeDir := t.TempDir()
	writeLog(t, claudeDir, "proj", "empty.jsonl", "garbage\n{\"type\":\"summary\"}\n",
		time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))

	if _, err := Load(Options{ClaudeDir: claudeDir, Config: config.DefaultConfig()}); err == nil {
		t.Error("expected an error when no line parses")
	}
}

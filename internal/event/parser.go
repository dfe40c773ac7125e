package event

import (
	"encoding/json"
	"strings"
	"time"
)

// syntheticModel is the placeholder model name the upstream tool writes
// for internally generated messages. Never billed, always skipped.
const syntheticModel = "<synthetic>"

// LimitMatcher decides whether an API-error record indicates quota
// exhaustion. The phrase is an upstream contract that may change, so it
// is data, not code.
type LimitMatcher struct {
	Phrase string
}

// DefaultLimitMatcher matches the vendor wording observed in the wild.
func DefaultLimitMatcher() LimitMatcher {
	return LimitMatcher{Phrase: "Claude AI usage limit reached"}
}

// Match reports whether the error text indicates a usage limit.
func (m LimitMatcher) Match(text string) bool {
	return m.Phrase != "" && strings.Contains(text, m.Phrase)
}

// rawEntry mirrors one JSONL record. Field names follow the upstream
// camelCase schema.
type rawEntry struct {
	Type              string      `json:"type"`
	SessionID         string      `json:"sessionId"`
	Timestamp         string      `json:"timestamp"`
	RequestID         string      `json:"requestId"`
	IsAPIErrorMessage bool        `json:"isApiErrorMessage"`
	Message           *rawMessage `json:"message"`
}

type rawMessage struct {
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Usage   *rawUsage       `json:"usage"`
	Content json.RawMessage `json:"content"`
	CostUSD *float64        `json:"costUSD"`
}

type rawUsage struct {
	InputTokens              *int64 `json:"input_tokens"`
	OutputTokens             *int64 `json:"output_tokens"`
	CacheCreationInputTokens int64  `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64  `json:"cache_read_input_tokens"`
}

type rawContentItem struct {
	Text string `json:"text"`
}

// Parser converts raw lines into UsageEvents. It is a pure value; the
// skip counters live with the caller (see pipeline.FileStats).
type Parser struct {
	Limit LimitMatcher
}

// NewParser returns a parser with the default limit matcher.
func NewParser() Parser {
	return Parser{Limit: DefaultLimitMatcher()}
}

// SkipReason classifies why a line was discarded.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipMalformed
	SkipNoTimestamp
	SkipNoUsage
	SkipSynthetic
)

// ParseLine parses one JSONL line. A nil event with SkipNone never
// happens; a nil event carries the reason it was discarded. Per-line
// failures are local decisions and never abort a file.
func (p Parser) ParseLine(line []byte) (*UsageEvent, SkipReason) {
	var entry rawEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return nil, SkipMalformed
	}

	if entry.Timestamp == "" {
		return nil, SkipNoTimestamp
	}
	ts, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
	if err != nil {
		return nil, SkipNoTimestamp
	}

	msg := entry.Message
	if msg == nil || msg.Usage == nil {
		return nil, SkipNoUsage
	}
	u := msg.Usage
	if u.InputTokens == nil && u.OutputTokens == nil {
		return nil, SkipNoUsage
	}
	if msg.Model == syntheticModel {
		return nil, SkipSynthetic
	}

	ev := &UsageEvent{
		SessionID:  entry.SessionID,
		Timestamp:  ts.UTC(),
		Model:      msg.Model,
		CacheWrite: u.CacheCreationInputTokens,
		CacheRead:  u.CacheReadInputTokens,
		CostUSD:    msg.CostUSD,
		MessageID:  msg.ID,
		RequestID:  entry.RequestID,
	}
	if u.InputTokens != nil {
		ev.Input = *u.InputTokens
	}
	if u.OutputTokens != nil {
		ev.Output = *u.OutputTokens
	}

	if entry.IsAPIErrorMessage {
		ev.IsLimitError = p.Limit.Match(contentText(msg.Content))
	}

	return ev, SkipNone
}

// contentText extracts the first text fragment from a message content
// payload, which is either a plain string or an array of content items.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []rawContentItem
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		return items[0].Text
	}
	return ""
}

// Package event parses raw JSONL usage records into UsageEvents and
// deduplicates them by message/request identity.
package event

import "time"

// UsageEvent is one parsed log line. Immutable once parsed; consumed
// exactly once by the reconstructor.
type UsageEvent struct {
	SessionID  string
	Timestamp  time.Time
	Model      string
	Input      int64
	Output     int64
	CacheWrite int64
	CacheRead  int64
	// CostUSD is the pre-computed cost carried by the record, if any.
	CostUSD      *float64
	IsLimitError bool

	MessageID string
	RequestID string
}

// IdentityKey returns the deduplication key and whether it is defined.
// Events missing either identifier can never be deduplicated.
func (e *UsageEvent) IdentityKey() (string, bool) {
	if e.MessageID == "" || e.RequestID == "" {
		return "", false
	}
	return e.MessageID + ":" + e.RequestID, true
}

// Dedup is a per-run identity set. It is owned by the pipeline run that
// created it and must never be shared across runs. Files must be fed in
// a fixed order (mtime, then path) so the first occurrence of a
// duplicated identity wins deterministically.
type Dedup struct {
	seen map[string]struct{}
}

// NewDedup returns an empty identity set.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]struct{})}
}

// Accept reports whether the event should be processed. Events without
// an identity key are always accepted.
func (d *Dedup) Accept(e *UsageEvent) bool {
	key, ok := e.IdentityKey()
	if !ok {
		return true
	}
	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct identities seen so far.
func (d *Dedup) Len() int {
	return len(d.seen)
}

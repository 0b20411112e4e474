// Package ledger implements the fact ledger: the ordered collection of
// learned facts attached to one user row as a single serialized JSON value.
//
// The ledger is append-only. Entries are stored in append order but carry
// their own timestamps, so readers sort by recency instead of trusting the
// storage order. Decoding fails open: malformed history becomes an empty
// list so that new activity is never blocked by corrupt old data.
package ledger

import (
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// TimestampFormat is the wire and storage layout for fact timestamps:
// UTC, second precision, trailing Z, no fractional seconds.
const TimestampFormat = "2006-01-02T15:04:05Z"

// Pagination bounds for list reads. Values outside the range are a caller
// error, never silently clamped.
const (
	MinLimit = 1
	MaxLimit = 500
)

// ErrLimitOutOfRange is returned by Paginate when limit is outside
// [MinLimit, MaxLimit].
var ErrLimitOutOfRange = errors.New("limit out of range")

// Fact is a single learned item. Entries are immutable once appended; there
// is no update or delete.
type Fact struct {
	Content   string  `json:"content"`
	Category  *string `json:"category,omitempty"`
	SourceURL *string `json:"source_url,omitempty"`
	LearnedAt string  `json:"learned_at"`
}

// ParseTimestamp parses a stored fact timestamp. The canonical form is
// TimestampFormat, but legacy values with fractional seconds must still be
// readable, so RFC 3339 with nanoseconds is accepted as a fallback. ok is
// false for blank or unparsable values.
func ParseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(TimestampFormat, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// FormatTimestamp renders t in the canonical storage form (UTC, seconds).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(TimestampFormat)
}

// Decode parses a stored ledger value. It fails open: a blank value, invalid
// JSON, or JSON that is not an array all yield an empty ledger rather than an
// error, so a corrupt history cannot block an append.
func Decode(raw string) []Fact {
	if raw == "" {
		return []Fact{}
	}
	var out []Fact
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []Fact{}
	}
	if out == nil {
		return []Fact{}
	}
	return out
}

// Encode serializes the ledger in the compact form stored on the user row.
// Encoding a ledger of well-formed Fact values cannot fail; an error here
// indicates a programming bug and surfaces as an empty-array fallback.
func Encode(list []Fact) string {
	if list == nil {
		list = []Fact{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// Append returns a copy of list with entry added at the end. Existing entries
// are never dropped or reordered.
func Append(list []Fact, entry Fact) []Fact {
	out := make([]Fact, 0, len(list)+1)
	out = append(out, list...)
	return append(out, entry)
}

// FilterByCategory keeps entries whose category exactly equals category
// (case-sensitive), preserving order. Entries without a category never match.
func FilterByCategory(list []Fact, category string) []Fact {
	out := make([]Fact, 0, len(list))
	for _, f := range list {
		if f.Category != nil && *f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// SortByRecency returns the ledger ordered newest-first by LearnedAt.
// Entries with blank or unparsable timestamps sort as the oldest possible
// value; the sort is stable so their relative order is preserved.
func SortByRecency(list []Fact) []Fact {
	out := make([]Fact, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := ParseTimestamp(out[i].LearnedAt)
		tj, _ := ParseTimestamp(out[j].LearnedAt)
		return ti.After(tj)
	})
	return out
}

// Paginate truncates list to at most limit entries and reports the length of
// the full (pre-truncation) list, enabling "N of M" responses. limit must be
// within [MinLimit, MaxLimit]; out-of-range values return ErrLimitOutOfRange.
func Paginate(list []Fact, limit int) ([]Fact, int, error) {
	if limit < MinLimit || limit > MaxLimit {
		return nil, 0, ErrLimitOutOfRange
	}
	total := len(list)
	if limit < total {
		return list[:limit], total, nil
	}
	return list, total, nil
}

// CountThisWeek counts entries whose learned-at date falls within the
// inclusive seven-day calendar window [today-6d, today]. Entries with
// unparsable timestamps are skipped. The window is computed on every read,
// never stored.
func CountThisWeek(list []Fact, today time.Time) int {
	day := today.UTC().Truncate(24 * time.Hour)
	weekAgo := day.AddDate(0, 0, -6)
	n := 0
	for _, f := range list {
		t, ok := ParseTimestamp(f.LearnedAt)
		if !ok {
			continue
		}
		d := t.UTC().Truncate(24 * time.Hour)
		if !d.Before(weekAgo) && !d.After(day) {
			n++
		}
	}
	return n
}

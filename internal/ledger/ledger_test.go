package ledger

import (
	"strings"
	"testing"
	"time"
)

func strptr(s string) *string { return &s }

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(TimestampFormat, s)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", s, err)
	}
	return v
}

func TestParseTimestamp(t *testing.T) {
	if _, ok := ParseTimestamp(""); ok {
		t.Fatalf("blank timestamp should not parse")
	}
	if _, ok := ParseTimestamp("yesterday"); ok {
		t.Fatalf("garbage timestamp should not parse")
	}

	// Canonical form
	v, ok := ParseTimestamp("2024-05-04T10:00:00Z")
	if !ok || v.Hour() != 10 {
		t.Fatalf("canonical parse failed: %v, %v", v, ok)
	}

	// Legacy fractional seconds must still be readable
	v2, ok := ParseTimestamp("2024-05-04T10:00:00.123456Z")
	if !ok || !v2.Truncate(time.Second).Equal(v) {
		t.Fatalf("fractional-second parse failed: %v, %v", v2, ok)
	}
}

func TestFormatTimestamp_CanonicalShape(t *testing.T) {
	in := time.Date(2024, 5, 4, 12, 30, 45, 999999999, time.FixedZone("EET", 2*3600))
	got := FormatTimestamp(in)
	// UTC, second precision, trailing Z, no fractional part
	if got != "2024-05-04T10:30:45Z" {
		t.Fatalf("FormatTimestamp = %q", got)
	}
	if strings.Contains(got, ".") {
		t.Fatalf("canonical form must not carry fractional seconds: %q", got)
	}
}

func TestDecode_FailsOpen(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"blank", ""},
		{"invalid json", "{not json"},
		{"not an array", `{"content":"x"}`},
		{"json null", "null"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decode(tc.raw)
			if got == nil || len(got) != 0 {
				t.Fatalf("Decode(%q) = %#v; want empty non-nil ledger", tc.raw, got)
			}
		})
	}
}

func TestDecode_Encode_RoundTrip(t *testing.T) {
	list := []Fact{
		{Content: "a", Category: strptr("go"), LearnedAt: "2024-05-01T10:00:00Z"},
		{Content: "b", SourceURL: strptr("https://x"), LearnedAt: "2024-05-02T10:00:00Z"},
	}
	got := Decode(Encode(list))
	if len(got) != 2 || got[0].Content != "a" || *got[0].Category != "go" || *got[1].SourceURL != "https://x" {
		t.Fatalf("round trip mismatch: %#v", got)
	}
	// Unset optionals must not appear on the wire at all.
	if s := Encode([]Fact{{Content: "c", LearnedAt: "2024-05-01T10:00:00Z"}}); strings.Contains(s, "category") || strings.Contains(s, "source_url") {
		t.Fatalf("omitempty violated: %s", s)
	}
	if Encode(nil) != "[]" {
		t.Fatalf("nil ledger should encode as []")
	}
}

func TestAppend_DoesNotMutateInput(t *testing.T) {
	orig := []Fact{{Content: "a"}}
	grown := Append(orig, Fact{Content: "b"})
	if len(grown) != 2 || len(orig) != 1 {
		t.Fatalf("append sizes wrong: grown=%d orig=%d", len(grown), len(orig))
	}
	grown[0].Content = "mutated"
	if orig[0].Content != "a" {
		t.Fatalf("append aliased its input")
	}
}

func TestFilterByCategory(t *testing.T) {
	list := []Fact{
		{Content: "1", Category: strptr("go")},
		{Content: "2", Category: strptr("Go")}, // case differs: must not match
		{Content: "3"},                         // no category: never matches
		{Content: "4", Category: strptr("go")},
	}
	got := FilterByCategory(list, "go")
	if len(got) != 2 || got[0].Content != "1" || got[1].Content != "4" {
		t.Fatalf("filter mismatch: %#v", got)
	}
	if n := len(FilterByCategory(list, "history")); n != 0 {
		t.Fatalf("expected no matches, got %d", n)
	}
}

func TestSortByRecency(t *testing.T) {
	list := []Fact{
		{Content: "old", LearnedAt: "2024-05-01T10:00:00Z"},
		{Content: "broken-1", LearnedAt: "???"},
		{Content: "new", LearnedAt: "2024-05-03T10:00:00Z"},
		{Content: "broken-2", LearnedAt: ""},
		{Content: "mid", LearnedAt: "2024-05-02T10:00:00Z"},
	}
	got := SortByRecency(list)

	wantOrder := []string{"new", "mid", "old", "broken-1", "broken-2"}
	for i, w := range wantOrder {
		if got[i].Content != w {
			t.Fatalf("position %d = %q; want %q (full: %#v)", i, got[i].Content, w, got)
		}
	}
	// Input order untouched
	if list[0].Content != "old" {
		t.Fatalf("sort mutated its input")
	}
}

func TestPaginate(t *testing.T) {
	list := make([]Fact, 10)

	t.Run("limit below minimum", func(t *testing.T) {
		if _, _, err := Paginate(list, 0); err != ErrLimitOutOfRange {
			t.Fatalf("expected ErrLimitOutOfRange, got %v", err)
		}
	})
	t.Run("limit above maximum", func(t *testing.T) {
		if _, _, err := Paginate(list, 501); err != ErrLimitOutOfRange {
			t.Fatalf("expected ErrLimitOutOfRange, got %v", err)
		}
	})
	t.Run("boundary limits accepted", func(t *testing.T) {
		if _, _, err := Paginate(list, 1); err != nil {
			t.Fatalf("limit=1 should be valid: %v", err)
		}
		if _, _, err := Paginate(list, 500); err != nil {
			t.Fatalf("limit=500 should be valid: %v", err)
		}
	})
	t.Run("truncates and reports full total", func(t *testing.T) {
		window, total, err := Paginate(list, 3)
		if err != nil || len(window) != 3 || total != 10 {
			t.Fatalf("window=%d total=%d err=%v", len(window), total, err)
		}
	})
	t.Run("limit larger than list returns all", func(t *testing.T) {
		window, total, err := Paginate(list, 500)
		if err != nil || len(window) != 10 || total != 10 {
			t.Fatalf("window=%d total=%d err=%v", len(window), total, err)
		}
	})
}

func TestCountThisWeek(t *testing.T) {
	today := ts(t, "2024-05-10T15:30:00Z")
	list := []Fact{
		{Content: "today", LearnedAt: "2024-05-10T01:00:00Z"},
		{Content: "edge of window", LearnedAt: "2024-05-04T23:59:59Z"}, // today-6: in
		{Content: "one day too old", LearnedAt: "2024-05-03T23:59:59Z"},
		{Content: "future", LearnedAt: "2024-05-11T00:00:00Z"},
		{Content: "broken", LearnedAt: "not-a-time"},
		{Content: "legacy fractional", LearnedAt: "2024-05-08T10:00:00.5Z"},
	}
	if got := CountThisWeek(list, today); got != 3 {
		t.Fatalf("CountThisWeek = %d; want 3", got)
	}
	if got := CountThisWeek(nil, today); got != 0 {
		t.Fatalf("empty ledger should count 0, got %d", got)
	}
}

package streak

import (
	"testing"
	"time"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DayFormat, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func TestParseDay(t *testing.T) {
	if _, ok := ParseDay(""); ok {
		t.Fatalf("blank date should not parse")
	}
	if _, ok := ParseDay("not-a-date"); ok {
		t.Fatalf("garbage date should not parse")
	}
	if _, ok := ParseDay("2024-13-40"); ok {
		t.Fatalf("impossible date should not parse")
	}
	d, ok := ParseDay("2024-01-02")
	if !ok || d.Year() != 2024 || d.Month() != time.January || d.Day() != 2 {
		t.Fatalf("ParseDay(2024-01-02) = %v, %v", d, ok)
	}
}

func TestComputeNewStreak(t *testing.T) {
	cases := []struct {
		name         string
		current      int
		longest      int
		lastActivity string
		today        string
		wantCurrent  int
		wantLongest  int
	}{
		{"first activity ever", 0, 0, "", "2024-01-01", 1, 1},
		{"unparsable history resets to first activity", 7, 9, "garbage", "2024-01-01", 1, 9},
		{"same day repeat keeps streak", 3, 5, "2024-01-01", "2024-01-01", 3, 5},
		{"same day with zero current floors at 1", 0, 5, "2024-01-01", "2024-01-01", 1, 5},
		{"consecutive day increments", 3, 5, "2024-01-01", "2024-01-02", 4, 5},
		{"increment raises longest", 5, 5, "2024-01-01", "2024-01-02", 6, 6},
		{"two-day gap resets", 5, 8, "2024-01-01", "2024-01-03", 1, 8},
		{"long gap resets", 5, 8, "2023-11-01", "2024-01-03", 1, 8},
		{"future stored date resets", 5, 8, "2024-01-10", "2024-01-03", 1, 8},
		{"negative counters are sanitized", -3, -1, "", "2024-01-01", 1, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotCurrent, gotLongest, gotDate := ComputeNewStreak(
				tc.current, tc.longest, tc.lastActivity, day(t, tc.today))
			if gotCurrent != tc.wantCurrent {
				t.Fatalf("current = %d; want %d", gotCurrent, tc.wantCurrent)
			}
			if gotLongest != tc.wantLongest {
				t.Fatalf("longest = %d; want %d", gotLongest, tc.wantLongest)
			}
			if gotDate != tc.today {
				t.Fatalf("lastActivity = %q; want %q", gotDate, tc.today)
			}
		})
	}
}

func TestComputeNewStreak_LongestNeverBelowCurrent(t *testing.T) {
	// Whatever the prior state, the returned longest must cover the new current.
	gotCurrent, gotLongest, _ := ComputeNewStreak(9, 2, "2024-05-03", day(t, "2024-05-04"))
	if gotCurrent != 10 || gotLongest != 10 {
		t.Fatalf("got current=%d longest=%d; want 10/10", gotCurrent, gotLongest)
	}
}

func TestComputeNewStreak_MidDayTimestamp(t *testing.T) {
	// A reference time with a clock component must still land on the calendar day.
	now := time.Date(2024, 5, 4, 23, 59, 59, 0, time.UTC)
	_, _, gotDate := ComputeNewStreak(1, 1, "2024-05-03", now)
	if gotDate != "2024-05-04" {
		t.Fatalf("lastActivity = %q; want 2024-05-04", gotDate)
	}
}

func TestUTCClock_Now(t *testing.T) {
	now := UTCClock{}.Now()
	if now.Location() != time.UTC {
		t.Fatalf("expected UTC time, got %v", now.Location())
	}
}

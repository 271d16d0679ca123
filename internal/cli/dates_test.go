package cli

import (
	"testing"
	"time"
)

// Wednesday afternoon, fixed so weekday math is deterministic.
var now = time.Date(2026, 1, 7, 15, 30, 0, 0, time.UTC)

func TestParseSince_Relative(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"30m", now.Add(-30 * time.Minute)},
		{"2h", now.Add(-2 * time.Hour)},
		{"2h ago", now.Add(-2 * time.Hour)},
		{"1d", now.AddDate(0, 0, -1)},
		{"2w ago", now.AddDate(0, 0, -14)},
		{"1mo", now.AddDate(0, -1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSince(tt.input, now)
			if err != nil {
				t.Fatalf("ParseSince(%q) error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseSince(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSince_Days(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"today", time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)},
		{"Today", time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseSince(tt.input, now)
		if err != nil {
			t.Fatalf("ParseSince(%q) error: %v", tt.input, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseSince(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseSince_Weekdays(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		// now is Wednesday Jan 7 2026
		{"wednesday", time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)},
		{"monday", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"mon", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"last friday", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSince(tt.input, now)
			if err != nil {
				t.Fatalf("ParseSince(%q) error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseSince(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSince_AbsoluteDates(t *testing.T) {
	got, err := ParseSince("2026-01-05", now)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("got %v", got)
	}

	got, err = ParseSince("2026-01-05T10:05:00Z", now)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(time.Date(2026, 1, 5, 10, 5, 0, 0, time.UTC)) {
		t.Errorf("got %v", got)
	}
}

func TestParseSince_Invalid(t *testing.T) {
	for _, input := range []string{"", "  ", "0h", "h2", "next tuesday", "soonish"} {
		if _, err := ParseSince(input, now); err == nil {
			t.Errorf("ParseSince(%q) expected error", input)
		}
	}
}

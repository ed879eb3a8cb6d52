package digest

import (
	"testing"
	"time"
)

func TestParseDayArg(t *testing.T) {
	// 2026-08-29 is a Saturday.
	now := time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		arg  string
		want time.Time
	}{
		{"today", day(2026, 8, 29)},
		{"TODAY", day(2026, 8, 29)},
		{"yesterday", day(2026, 8, 28)},
		{"friday", day(2026, 8, 28)},
		{"fri", day(2026, 8, 28)},
		{"sunday", day(2026, 8, 23)},
		// same weekday as now means last week's occurrence
		{"saturday", day(2026, 8, 22)},
		{"aug 15", day(2026, 8, 15)},
		{"august 15", day(2026, 8, 15)},
		// month-day past today resolves to last year
		{"dec 02", day(2025, 12, 2)},
		{"2026-08-01", day(2026, 8, 1)},
		{"2025-12-02", day(2025, 12, 2)},
		{"08/15", day(2026, 8, 15)},
		{"12-02", day(2025, 12, 2)},
		{"  yesterday  ", day(2026, 8, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ParseDayArg(tt.arg, now, time.UTC)
			if err != nil {
				t.Fatalf("ParseDayArg(%q) error = %v", tt.arg, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDayArg(%q) = %v, want %v", tt.arg, got, tt.want)
			}
		})
	}
}

func TestParseDayArgInvalid(t *testing.T) {
	now := time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC)
	for _, arg := range []string{
		"",
		"tomorrow",
		"someday",
		"feb 30",
		"2026-02-30",
		"13/01",
		"2026-13-01",
	} {
		if _, err := ParseDayArg(arg, now, time.UTC); err == nil {
			t.Errorf("ParseDayArg(%q) error = nil, want error", arg)
		}
	}
}

func TestParseDayArgUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 22:00 UTC is already the next day at UTC+5.
	now := time.Date(2026, 8, 29, 22, 0, 0, 0, time.UTC)

	got, err := ParseDayArg("today", now, loc)
	if err != nil {
		t.Fatalf("ParseDayArg error = %v", err)
	}
	want := time.Date(2026, 8, 30, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("ParseDayArg(today) = %v, want %v", got, want)
	}
}

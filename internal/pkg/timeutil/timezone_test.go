package timeutil

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestLocalDate(t *testing.T) {
	// 23:30 UTC is already the next day in Shanghai
	ts := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		tz   string
		want string
	}{
		{"", "2024-03-09"},
		{"UTC", "2024-03-09"},
		{"Asia/Shanghai", "2024-03-10"},
		{"America/Los_Angeles", "2024-03-09"},
		{"Not/AZone", "2024-03-09"},
	}

	for _, tt := range tests {
		if got := LocalDate(ts, tt.tz); got != tt.want {
			t.Errorf("LocalDate(%q) = %s, want %s", tt.tz, got, tt.want)
		}
	}
}

func TestDaysBack(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	got := DaysBack(now, 7, "UTC")
	want := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DaysBack(7) = %v, want %v", got, want)
	}

	if got := DaysBack(now, 0, "UTC"); !got.Equal(StartOfDay(now, "UTC")) {
		t.Errorf("DaysBack(0) = %v, want start of today", got)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-10", "Asia/Shanghai")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if got.UTC().Format(time.RFC3339) != "2024-03-09T16:00:00Z" {
		t.Errorf("ParseDate() = %v", got.UTC())
	}

	if _, err := ParseDate("10/03/2024", ""); err == nil {
		t.Error("ParseDate() expected error for bad layout")
	}
}

func TestIsValidTimezone(t *testing.T) {
	if !IsValidTimezone("Europe/Berlin") {
		t.Error("Europe/Berlin should be valid")
	}
	if IsValidTimezone("") || IsValidTimezone("Mars/Olympus") {
		t.Error("empty and unknown zones should be invalid")
	}
}

package stats

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

func TestResolveFrom(t *testing.T) {
	tests := []struct {
		arg  string
		want time.Time
	}{
		{"today", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"last-week", time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)},
		{"last-month", time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)},
		{"2026-01-31", time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ResolveFrom(tt.arg, testNow)
		if err != nil {
			t.Errorf("ResolveFrom(%q): %v", tt.arg, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ResolveFrom(%q) = %v, want %v", tt.arg, got, tt.want)
		}
	}
}

func TestResolveToIsExclusiveNextMidnight(t *testing.T) {
	got, err := ResolveTo("yesterday", testNow)
	if err != nil {
		t.Fatal(err)
	}
	// --to yesterday covers all of yesterday: bound is today's midnight.
	want := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ResolveTo(yesterday) = %v, want %v", got, want)
	}

	got, err = ResolveTo("2026-03-01", testNow)
	if err != nil {
		t.Fatal(err)
	}
	want = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ResolveTo(2026-03-01) = %v, want %v", got, want)
	}
}

func TestResolveInvalidDate(t *testing.T) {
	for _, arg := range []string{"tomorrow", "03/15/2026", "2026-13-01", ""} {
		if _, err := ResolveFrom(arg, testNow); err == nil {
			t.Errorf("ResolveFrom(%q): expected error", arg)
		}
	}
}

package utils

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		expYear int
		expMon  time.Month
		expDay  int
		wantErr bool
	}{
		{name: "plain date", input: "2025-01-06", expYear: 2025, expMon: time.January, expDay: 6},
		{name: "padded input", input: "  2025-12-31 ", expYear: 2025, expMon: time.December, expDay: 31},
		{name: "leap day", input: "2024-02-29", expYear: 2024, expMon: time.February, expDay: 29},
		{name: "not a leap day", input: "2025-02-29", wantErr: true},
		{name: "wrong format", input: "06/01/2025", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			d, err := ParseDate(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Year != tc.expYear || d.Month != tc.expMon || d.Day != tc.expDay {
				t.Fatalf("expected %04d-%02d-%02d, got %s", tc.expYear, tc.expMon, tc.expDay, d)
			}
		})
	}
}

func TestDateAddDays(t *testing.T) {
	d := NewDate(2025, time.January, 30)

	if got := d.AddDays(2); got != NewDate(2025, time.February, 1) {
		t.Fatalf("expected month rollover, got %s", got)
	}
	if got := d.AddDays(-30); got != NewDate(2024, time.December, 31) {
		t.Fatalf("expected year rollback, got %s", got)
	}
	if got := d.AddDays(0); got != d {
		t.Fatalf("expected identity, got %s", got)
	}
}

func TestDateWeekdayAndOrdering(t *testing.T) {
	// 2025-01-06 is a Monday.
	mon := NewDate(2025, time.January, 6)
	if mon.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %s", mon.Weekday())
	}

	tue := mon.AddDays(1)
	if !mon.Before(tue) || !tue.After(mon) {
		t.Fatalf("ordering broken between %s and %s", mon, tue)
	}
	if mon.DaysUntil(tue) != 1 || tue.DaysUntil(mon) != -1 {
		t.Fatalf("DaysUntil mismatch")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2025, time.March, 9)

	raw, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"2025-03-09"` {
		t.Fatalf("unexpected JSON %s", raw)
	}

	var back Date
	if err := back.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != d {
		t.Fatalf("round trip mismatch: %s != %s", back, d)
	}

	var zero Date
	if err := zero.UnmarshalJSON([]byte("null")); err != nil {
		t.Fatalf("null unmarshal: %v", err)
	}
	if !zero.IsZero() {
		t.Fatalf("expected zero date after null")
	}
}

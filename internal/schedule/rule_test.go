package schedule

import (
	"testing"
	"time"

	"choreboard/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDailyMatchesEveryDay(t *testing.T) {
	r, err := Parse(model.KindDaily, "")
	if err != nil {
		t.Fatalf("parse daily: %v", err)
	}
	anchor := date(2025, time.June, 1)
	for d := 0; d < 10; d++ {
		if !r.Matches(anchor.AddDate(0, 0, d), anchor) {
			t.Errorf("daily should match day +%d", d)
		}
	}
	if r.Matches(anchor.AddDate(0, 0, -1), anchor) {
		t.Error("daily should not match before anchor")
	}
}

func TestWeeklyMatchesConfiguredDays(t *testing.T) {
	r, err := Parse(model.KindWeekly, "mon, wed ,FRI")
	if err != nil {
		t.Fatalf("parse weekly: %v", err)
	}
	anchor := date(2025, time.June, 1) // a Sunday

	// June 2: Monday, June 3: Tuesday, June 4: Wednesday
	if !r.Matches(date(2025, time.June, 2), anchor) {
		t.Error("Monday should match")
	}
	if r.Matches(date(2025, time.June, 3), anchor) {
		t.Error("Tuesday should not match")
	}
	if !r.Matches(date(2025, time.June, 4), anchor) {
		t.Error("Wednesday should match")
	}
	if !r.Matches(date(2025, time.June, 6), anchor) {
		t.Error("Friday should match")
	}
}

func TestWeeklyRejectsGarbage(t *testing.T) {
	if _, err := Parse(model.KindWeekly, "mon,blursday"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Parse(model.KindWeekly, ""); err == nil {
		t.Fatal("expected parse error for empty weekday set")
	}
}

func TestEveryNDays(t *testing.T) {
	r, err := Parse(model.KindEveryNDays, "3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	anchor := date(2025, time.March, 1)

	tests := []struct {
		day  int
		want bool
	}{
		{0, true}, {1, false}, {2, false}, {3, true}, {6, true}, {7, false},
	}
	for _, tt := range tests {
		got := r.Matches(anchor.AddDate(0, 0, tt.day), anchor)
		if got != tt.want {
			t.Errorf("day +%d: got %v, want %v", tt.day, got, tt.want)
		}
	}
}

func TestEveryNDaysInvalidInterval(t *testing.T) {
	for _, text := range []string{"0", "-2", "x", ""} {
		if _, err := Parse(model.KindEveryNDays, text); err == nil {
			t.Errorf("interval %q: expected error", text)
		}
	}
}

func TestOneTimeNeverMatches(t *testing.T) {
	r, err := Parse(model.KindOneTime, "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	anchor := date(2025, time.June, 1)
	if r.Matches(anchor, anchor) {
		t.Error("one-time rules are materialized structurally, not by date")
	}
}

func TestParseErrorIsStructured(t *testing.T) {
	_, err := Parse(model.KindCron, "not a cron expression")
	if err == nil {
		t.Fatal("expected error")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Kind != model.KindCron {
		t.Errorf("Kind = %q, want cron", pe.Kind)
	}
}

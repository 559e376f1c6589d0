package schedule

import (
	"testing"
	"time"
)

func mustRRule(t *testing.T, text string) *RRule {
	t.Helper()
	r, err := ParseRRule(text)
	if err != nil {
		t.Fatalf("ParseRRule(%s): %v", text, err)
	}
	return r
}

func rruleDays(r *RRule, anchor time.Time, year int, month time.Month) []int {
	var days []int
	for d := 1; d <= daysInMonth(year, month); d++ {
		if r.Matches(date(year, month, d), anchor) {
			days = append(days, d)
		}
	}
	return days
}

func TestRRuleMonthlyBySetPos(t *testing.T) {
	// 1st and 3rd Saturday (weekday 5, 0=Monday).
	r := mustRRule(t, `{"freq":"MONTHLY","byweekday":[5],"bysetpos":[1,3]}`)
	anchor := date(2025, time.January, 1)

	got := rruleDays(r, anchor, 2025, time.December)
	want := []int{6, 20}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("December 2025 matches = %v, want %v", got, want)
	}
}

func TestRRuleNegativeSetPos(t *testing.T) {
	// Last Sunday of the month. June 2025: Sundays 1, 8, 15, 22, 29.
	r := mustRRule(t, `{"freq":"MONTHLY","byweekday":[6],"bysetpos":[-1]}`)
	got := rruleDays(r, date(2025, time.January, 1), 2025, time.June)
	if len(got) != 1 || got[0] != 29 {
		t.Errorf("matches = %v, want [29]", got)
	}
}

func TestRRuleDailyInterval(t *testing.T) {
	r := mustRRule(t, `{"freq":"DAILY","interval":4,"dtstart":"2025-03-01"}`)
	anchor := date(2025, time.January, 1) // dtstart wins over anchor

	if !r.Matches(date(2025, time.March, 1), anchor) {
		t.Error("dtstart itself should match")
	}
	if r.Matches(date(2025, time.March, 3), anchor) {
		t.Error("+2 days should not match interval 4")
	}
	if !r.Matches(date(2025, time.March, 5), anchor) {
		t.Error("+4 days should match")
	}
	if r.Matches(date(2025, time.February, 25), anchor) {
		t.Error("dates before dtstart never match")
	}
}

func TestRRuleWeeklyByWeekday(t *testing.T) {
	// Monday and Thursday every other week, anchored in a known week.
	r := mustRRule(t, `{"freq":"WEEKLY","interval":2,"byweekday":[0,3],"dtstart":"2025-06-02"}`)
	anchor := date(2025, time.June, 2) // Monday

	if !r.Matches(date(2025, time.June, 2), anchor) {
		t.Error("anchor Monday should match")
	}
	if !r.Matches(date(2025, time.June, 5), anchor) {
		t.Error("Thursday of anchor week should match")
	}
	if r.Matches(date(2025, time.June, 9), anchor) {
		t.Error("Monday of the off week should not match")
	}
	if !r.Matches(date(2025, time.June, 16), anchor) {
		t.Error("Monday two weeks on should match")
	}
}

func TestRRuleUntilAndCount(t *testing.T) {
	r := mustRRule(t, `{"freq":"DAILY","until":"2025-06-03"}`)
	anchor := date(2025, time.June, 1)
	if !r.Matches(date(2025, time.June, 3), anchor) {
		t.Error("until date itself should match")
	}
	if r.Matches(date(2025, time.June, 4), anchor) {
		t.Error("past until should not match")
	}

	r = mustRRule(t, `{"freq":"DAILY","count":3}`)
	if !r.Matches(date(2025, time.June, 3), anchor) {
		t.Error("3rd occurrence should match")
	}
	if r.Matches(date(2025, time.June, 4), anchor) {
		t.Error("4th occurrence exceeds count")
	}
}

func TestRRuleYearly(t *testing.T) {
	r := mustRRule(t, `{"freq":"YEARLY","dtstart":"2024-07-04"}`)
	anchor := date(2024, time.July, 4)
	if !r.Matches(date(2026, time.July, 4), anchor) {
		t.Error("same month/day in later year should match")
	}
	if r.Matches(date(2026, time.July, 5), anchor) {
		t.Error("different day should not match")
	}
	if r.Matches(date(2026, time.August, 4), anchor) {
		t.Error("different month should not match")
	}
}

func TestRRuleNegativeMonthDay(t *testing.T) {
	r := mustRRule(t, `{"freq":"MONTHLY","bymonthday":[-1]}`)
	anchor := date(2025, time.January, 1)
	if !r.Matches(date(2025, time.February, 28), anchor) {
		t.Error("last day of February should match")
	}
	if r.Matches(date(2025, time.February, 27), anchor) {
		t.Error("second-to-last day should not match")
	}
}

func TestRRuleUnknownKeysIgnored(t *testing.T) {
	if _, err := ParseRRule(`{"freq":"DAILY","wkst":0,"tzid":"UTC"}`); err != nil {
		t.Fatalf("unknown keys should be ignored: %v", err)
	}
}

func TestRRuleValidation(t *testing.T) {
	bad := []string{
		`{}`,                                  // missing freq
		`{"freq":"HOURLY"}`,                   // unsupported freq
		`{"freq":"DAILY","interval":0}`,       // interval < 1
		`{"freq":"DAILY","count":0}`,          // count < 1
		`{"freq":"WEEKLY","byweekday":[7]}`,   // weekday out of range
		`{"freq":"MONTHLY","bymonthday":[0]}`, // monthday zero
		`{"freq":"MONTHLY","bymonth":[13]}`,   // month out of range
		`{"freq":"MONTHLY","bysetpos":[0]}`,   // setpos zero
		`{"freq":"DAILY","dtstart":"junk"}`,   // bad date
		`not json`,
	}
	for _, text := range bad {
		if _, err := ParseRRule(text); err == nil {
			t.Errorf("ParseRRule(%s): expected error", text)
		}
	}
}

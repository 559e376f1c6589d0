package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// RRule is an RFC 5545 recurrence subset expressed as a JSON object, e.g.
//
//	{"freq":"MONTHLY","byweekday":[5],"bysetpos":[1,3]}
//
// Weekday numbering follows the RFC: 0 = Monday .. 6 = Sunday. Unknown
// keys are ignored; a missing freq is a validation error.
type RRule struct {
	Freq       string
	Interval   int
	DTStart    *time.Time
	Until      *time.Time
	Count      int
	ByWeekday  []int
	ByMonthDay []int
	ByMonth    []int
	BySetPos   []int
}

type rawRRule struct {
	Freq       *string `json:"freq"`
	Interval   *int    `json:"interval"`
	DTStart    *string `json:"dtstart"`
	Until      *string `json:"until"`
	Count      *int    `json:"count"`
	ByWeekday  []int   `json:"byweekday"`
	ByMonthDay []int   `json:"bymonthday"`
	ByMonth    []int   `json:"bymonth"`
	BySetPos   []int   `json:"bysetpos"`
}

var validFreqs = map[string]bool{
	"DAILY":   true,
	"WEEKLY":  true,
	"MONTHLY": true,
	"YEARLY":  true,
}

// ParseRRule parses and validates an RRULE JSON object.
func ParseRRule(text string) (*RRule, error) {
	var raw rawRRule
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if raw.Freq == nil {
		return nil, fmt.Errorf("freq is required")
	}
	if !validFreqs[*raw.Freq] {
		return nil, fmt.Errorf("unknown freq %q", *raw.Freq)
	}

	r := &RRule{Freq: *raw.Freq, Interval: 1}

	if raw.Interval != nil {
		if *raw.Interval < 1 {
			return nil, fmt.Errorf("interval must be >= 1")
		}
		r.Interval = *raw.Interval
	}
	if raw.Count != nil {
		if *raw.Count < 1 {
			return nil, fmt.Errorf("count must be >= 1")
		}
		r.Count = *raw.Count
	}
	if raw.DTStart != nil {
		t, err := parseRRuleDate(*raw.DTStart)
		if err != nil {
			return nil, fmt.Errorf("dtstart: %w", err)
		}
		r.DTStart = &t
	}
	if raw.Until != nil {
		t, err := parseRRuleDate(*raw.Until)
		if err != nil {
			return nil, fmt.Errorf("until: %w", err)
		}
		r.Until = &t
	}
	for _, wd := range raw.ByWeekday {
		if wd < 0 || wd > 6 {
			return nil, fmt.Errorf("byweekday value %d out of range", wd)
		}
	}
	r.ByWeekday = raw.ByWeekday
	for _, md := range raw.ByMonthDay {
		if md == 0 || md > 31 || md < -31 {
			return nil, fmt.Errorf("bymonthday value %d out of range", md)
		}
	}
	r.ByMonthDay = raw.ByMonthDay
	for _, m := range raw.ByMonth {
		if m < 1 || m > 12 {
			return nil, fmt.Errorf("bymonth value %d out of range", m)
		}
	}
	r.ByMonth = raw.ByMonth
	for _, p := range raw.BySetPos {
		if p == 0 {
			return nil, fmt.Errorf("bysetpos value must be nonzero")
		}
	}
	r.BySetPos = raw.BySetPos

	return r, nil
}

func parseRRuleDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return civilDay(t), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// maxScanDays bounds the enumeration a COUNT-limited rule forces. A date
// further than a century from the anchor never matches such a rule.
const maxScanDays = 36600

// Matches reports whether date is an occurrence of the rule. anchor is the
// fallback start date when the rule has no dtstart.
func (r *RRule) Matches(date, anchor time.Time) bool {
	start := civilDay(anchor)
	if r.DTStart != nil {
		start = civilDay(*r.DTStart)
	}
	d := civilDay(date)

	if d.Before(start) {
		return false
	}
	if r.Until != nil && d.After(civilDay(*r.Until)) {
		return false
	}
	if !r.matchesStructural(d, start) {
		return false
	}
	if r.Count > 0 {
		return r.withinCount(d, start)
	}
	return true
}

// withinCount enumerates occurrences from start and checks that date falls
// inside the first Count of them.
func (r *RRule) withinCount(d, start time.Time) bool {
	if daysBetween(start, d) > maxScanDays {
		return false
	}
	seen := 0
	for cur := start; !cur.After(d); cur = cur.AddDate(0, 0, 1) {
		if r.matchesStructural(cur, start) {
			seen++
			if cur.Equal(d) {
				return seen <= r.Count
			}
			if seen >= r.Count {
				return false
			}
		}
	}
	return false
}

func (r *RRule) matchesStructural(d, start time.Time) bool {
	switch r.Freq {
	case "DAILY":
		if daysBetween(start, d)%r.Interval != 0 {
			return false
		}
		return r.monthOK(d, false, start) && r.weekdayOK(d) && r.monthDayOK(d)

	case "WEEKLY":
		weeks := daysBetween(weekStart(start), weekStart(d)) / 7
		if weeks%r.Interval != 0 {
			return false
		}
		if !r.monthOK(d, false, start) {
			return false
		}
		if len(r.ByWeekday) == 0 {
			return d.Weekday() == start.Weekday()
		}
		return containsInt(r.ByWeekday, mondayIndex(d))

	case "MONTHLY":
		months := (d.Year()-start.Year())*12 + int(d.Month()) - int(start.Month())
		if months%r.Interval != 0 {
			return false
		}
		if !r.monthOK(d, false, start) {
			return false
		}
		return r.inMonthSelection(d, start)

	case "YEARLY":
		if (d.Year()-start.Year())%r.Interval != 0 {
			return false
		}
		if !r.monthOK(d, true, start) {
			return false
		}
		return r.inMonthSelection(d, start)
	}
	return false
}

// monthOK applies the bymonth filter. For YEARLY rules an empty bymonth
// pins the month to the start date's month.
func (r *RRule) monthOK(d time.Time, yearly bool, start time.Time) bool {
	if len(r.ByMonth) > 0 {
		return containsInt(r.ByMonth, int(d.Month()))
	}
	if yearly {
		return d.Month() == start.Month()
	}
	return true
}

func (r *RRule) weekdayOK(d time.Time) bool {
	if len(r.ByWeekday) == 0 {
		return true
	}
	return containsInt(r.ByWeekday, mondayIndex(d))
}

func (r *RRule) monthDayOK(d time.Time) bool {
	if len(r.ByMonthDay) == 0 {
		return true
	}
	last := daysInMonth(d.Year(), d.Month())
	for _, md := range r.ByMonthDay {
		if md < 0 {
			md = last + 1 + md
		}
		if d.Day() == md {
			return true
		}
	}
	return false
}

// inMonthSelection decides membership for MONTHLY/YEARLY periods: build the
// ordered candidate days within d's month, narrow by bysetpos, and test d.
func (r *RRule) inMonthSelection(d, start time.Time) bool {
	last := daysInMonth(d.Year(), d.Month())

	var candidates []int
	switch {
	case len(r.ByWeekday) > 0:
		for day := 1; day <= last; day++ {
			t := time.Date(d.Year(), d.Month(), day, 0, 0, 0, 0, time.UTC)
			if containsInt(r.ByWeekday, mondayIndex(t)) {
				candidates = append(candidates, day)
			}
		}
	case len(r.ByMonthDay) > 0:
		for day := 1; day <= last; day++ {
			t := time.Date(d.Year(), d.Month(), day, 0, 0, 0, 0, time.UTC)
			if r.monthDayOK(t) {
				candidates = append(candidates, day)
			}
		}
	default:
		if start.Day() <= last {
			candidates = append(candidates, start.Day())
		}
	}

	if len(r.BySetPos) > 0 {
		var selected []int
		for _, pos := range r.BySetPos {
			idx := pos
			if idx < 0 {
				idx = len(candidates) + 1 + idx
			}
			if idx >= 1 && idx <= len(candidates) {
				selected = append(selected, candidates[idx-1])
			}
		}
		candidates = selected
	}

	for _, day := range candidates {
		if d.Day() == day {
			return true
		}
	}
	return false
}

// mondayIndex maps a weekday to RFC 5545 numbering (0 = Monday).
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// weekStart returns the Monday of t's week.
func weekStart(t time.Time) time.Time {
	return t.AddDate(0, 0, -mondayIndex(t))
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"choreboard/internal/model"
)

// ParseError reports a malformed schedule rule. The daily evaluation logs
// it per-template and moves on; a bad rule never aborts the whole run.
type ParseError struct {
	Kind model.ScheduleKind
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s rule %q: %v", e.Kind, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Rule is the parsed form of a template's schedule, tagged by kind.
// Exactly one of the kind-specific fields is populated.
type Rule struct {
	Kind     model.ScheduleKind
	Weekdays []time.Weekday // weekly
	Interval int            // every_n_days
	Cron     *CronExpr
	RRule    *RRule
}

// Parse parses the kind-specific rule text into a Rule.
func Parse(kind model.ScheduleKind, text string) (Rule, error) {
	switch kind {
	case model.KindDaily, model.KindOneTime:
		return Rule{Kind: kind}, nil

	case model.KindWeekly:
		var days []time.Weekday
		seen := map[time.Weekday]bool{}
		for _, part := range strings.Split(text, ",") {
			name := strings.ToLower(strings.TrimSpace(part))
			if len(name) > 3 {
				name = name[:3]
			}
			wd, ok := weekdayNames[name]
			if !ok {
				return Rule{}, &ParseError{Kind: kind, Text: text, Err: fmt.Errorf("unknown weekday %q", part)}
			}
			if !seen[wd] {
				seen[wd] = true
				days = append(days, wd)
			}
		}
		if len(days) == 0 {
			return Rule{}, &ParseError{Kind: kind, Text: text, Err: fmt.Errorf("no weekdays")}
		}
		return Rule{Kind: kind, Weekdays: days}, nil

	case model.KindEveryNDays:
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || n < 1 {
			return Rule{}, &ParseError{Kind: kind, Text: text, Err: fmt.Errorf("interval must be a positive integer")}
		}
		return Rule{Kind: kind, Interval: n}, nil

	case model.KindCron:
		expr, err := ParseCron(text)
		if err != nil {
			return Rule{}, &ParseError{Kind: kind, Text: text, Err: err}
		}
		return Rule{Kind: kind, Cron: expr}, nil

	case model.KindRRule:
		rr, err := ParseRRule(text)
		if err != nil {
			return Rule{}, &ParseError{Kind: kind, Text: text, Err: err}
		}
		return Rule{Kind: kind, RRule: rr}, nil
	}

	return Rule{}, &ParseError{Kind: kind, Text: text, Err: fmt.Errorf("unknown schedule kind")}
}

// Matches reports whether an occurrence falls on date. anchor is the rule's
// start date (normally the template's anchor date); no rule matches before
// it. Pure and deterministic for a given rule+date pair.
func (r Rule) Matches(date, anchor time.Time) bool {
	d := civilDay(date)
	a := civilDay(anchor)
	if d.Before(a) {
		return false
	}

	switch r.Kind {
	case model.KindDaily:
		return true
	case model.KindWeekly:
		for _, wd := range r.Weekdays {
			if d.Weekday() == wd {
				return true
			}
		}
		return false
	case model.KindEveryNDays:
		return daysBetween(a, d)%r.Interval == 0
	case model.KindCron:
		return r.Cron.Matches(d)
	case model.KindRRule:
		return r.RRule.Matches(d, a)
	case model.KindOneTime:
		// One-time tasks are materialized structurally, never by date.
		return false
	}
	return false
}

func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpr is a parsed 5-field cron expression (minute hour day-of-month
// month day-of-week) with two extensions in the day fields: `L` (last day
// of month) and `weekday#n` (nth weekday of the month, negative n counting
// from the end). Chore occurrences always anchor at the configured
// distribution time, so the minute and hour fields are validated but
// otherwise ignored.
type CronExpr struct {
	months  map[int]bool // nil = unrestricted
	dom     map[int]bool
	domLast bool
	domAny  bool
	dow     map[int]bool // 0 = Sunday
	nth     []nthWeekday
	dowAny  bool
}

type nthWeekday struct {
	weekday time.Weekday
	n       int // 1-indexed; negative = from end of month
}

// ParseCron parses a 5-field cron expression.
func ParseCron(expr string) (*CronExpr, error) {
	fields := strings.Fields(strings.TrimSpace(expr))
	if len(fields) != 5 {
		return nil, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	// Minute and hour: range-checked only.
	if _, _, err := parseNumericField(fields[0], 0, 59); err != nil {
		return nil, fmt.Errorf("minute: %w", err)
	}
	if _, _, err := parseNumericField(fields[1], 0, 23); err != nil {
		return nil, fmt.Errorf("hour: %w", err)
	}

	c := &CronExpr{}

	var err error
	if c.dom, c.domAny, c.domLast, err = parseDomField(fields[2]); err != nil {
		return nil, fmt.Errorf("day of month: %w", err)
	}

	months, monthsAny, err := parseNumericField(fields[3], 1, 12)
	if err != nil {
		return nil, fmt.Errorf("month: %w", err)
	}
	if !monthsAny {
		c.months = months
	}

	if c.dow, c.nth, c.dowAny, err = parseDowField(fields[4]); err != nil {
		return nil, fmt.Errorf("day of week: %w", err)
	}

	return c, nil
}

// Matches reports whether the date satisfies the expression's date fields.
// Classic cron semantics: when both day-of-month and day-of-week are
// restricted, a date matches if either does.
func (c *CronExpr) Matches(t time.Time) bool {
	if c.months != nil && !c.months[int(t.Month())] {
		return false
	}

	domRestricted := !c.domAny
	dowRestricted := !c.dowAny

	domHit := false
	if domRestricted {
		domHit = c.dom[t.Day()] || (c.domLast && t.Day() == daysInMonth(t.Year(), t.Month()))
	}

	dowHit := false
	if dowRestricted {
		if c.dow[int(t.Weekday())] {
			dowHit = true
		}
		for _, spec := range c.nth {
			if dowHit {
				break
			}
			if t.Weekday() != spec.weekday {
				continue
			}
			last := daysInMonth(t.Year(), t.Month())
			switch {
			case spec.n > 0 && (t.Day()-1)/7+1 == spec.n:
				dowHit = true
			case spec.n < 0 && (last-t.Day())/7+1 == -spec.n:
				dowHit = true
			}
		}
	}

	switch {
	case domRestricted && dowRestricted:
		return domHit || dowHit
	case domRestricted:
		return domHit
	case dowRestricted:
		return dowHit
	}
	return true
}

// parseNumericField handles *, lists, ranges, and steps over [min, max].
// Returns the value set and whether the field is fully unrestricted.
func parseNumericField(field string, min, max int) (map[int]bool, bool, error) {
	if field == "*" {
		return nil, true, nil
	}

	set := map[int]bool{}
	for _, item := range strings.Split(field, ",") {
		if err := parseItem(item, min, max, set); err != nil {
			return nil, false, err
		}
	}
	return set, false, nil
}

func parseItem(item string, min, max int, set map[int]bool) error {
	step := 1
	if idx := strings.Index(item, "/"); idx >= 0 {
		s, err := strconv.Atoi(item[idx+1:])
		if err != nil || s < 1 {
			return fmt.Errorf("invalid step %q", item)
		}
		step = s
		item = item[:idx]
	}

	lo, hi := min, max
	switch {
	case item == "*":
		// full range
	case strings.Contains(item, "-"):
		parts := strings.SplitN(item, "-", 2)
		a, err1 := strconv.Atoi(parts[0])
		b, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil || a > b {
			return fmt.Errorf("invalid range %q", item)
		}
		lo, hi = a, b
	default:
		n, err := strconv.Atoi(item)
		if err != nil {
			return fmt.Errorf("invalid value %q", item)
		}
		lo, hi = n, n
	}

	if lo < min || hi > max {
		return fmt.Errorf("value out of range [%d,%d] in %q", min, max, item)
	}
	for v := lo; v <= hi; v += step {
		set[v] = true
	}
	return nil
}

func parseDomField(field string) (set map[int]bool, any, last bool, err error) {
	if field == "*" {
		return nil, true, false, nil
	}

	set = map[int]bool{}
	for _, item := range strings.Split(field, ",") {
		if item == "L" {
			last = true
			continue
		}
		if err := parseItem(item, 1, 31, set); err != nil {
			return nil, false, false, err
		}
	}
	return set, false, last, nil
}

func parseDowField(field string) (set map[int]bool, nth []nthWeekday, any bool, err error) {
	if field == "*" {
		return nil, nil, true, nil
	}

	set = map[int]bool{}
	for _, item := range strings.Split(field, ",") {
		if idx := strings.Index(item, "#"); idx >= 0 {
			wd, err1 := strconv.Atoi(item[:idx])
			n, err2 := strconv.Atoi(item[idx+1:])
			if err1 != nil || err2 != nil || wd < 0 || wd > 7 || n == 0 || n > 5 || n < -5 {
				return nil, nil, false, fmt.Errorf("invalid nth-weekday %q", item)
			}
			nth = append(nth, nthWeekday{weekday: time.Weekday(wd % 7), n: n})
			continue
		}
		if err := parseItem(item, 0, 7, set); err != nil {
			return nil, nil, false, err
		}
	}
	// 7 is an alias for Sunday.
	if set[7] {
		delete(set, 7)
		set[0] = true
	}
	return set, nth, false, nil
}

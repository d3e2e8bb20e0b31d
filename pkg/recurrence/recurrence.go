// Package recurrence expands a repeating event form into occurrence dates.
//
// Monthly repeats keep the starting day of month and clamp it to the last day of
// shorter months: a series starting on Jan 31 continues on Feb 28 (29 in leap
// years), Mar 31, Apr 30 and so on.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

type Unit string

const (
	None  Unit = "none"
	Week  Unit = "week"
	Month Unit = "month"
)

const (
	MinCount = 1
	MaxCount = 52
)

// ParseUnit maps the repeat select value to a Unit. Empty means None.
func ParseUnit(value string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(value))) {
	case "", None:
		return None, nil
	case Week:
		return Week, nil
	case Month:
		return Month, nil
	}
	return "", fmt.Errorf("unknown repeat unit %q", value)
}

// ParseCount reads the repeat count field. Non-numeric input counts as one.
func ParseCount(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return MinCount
	}
	return ClampCount(n)
}

func ClampCount(n int) int {
	return max(MinCount, min(n, MaxCount))
}

// Expand returns the calendar dates (midnight in start's location) of a series
// starting at start. Unit None always yields only the start date.
func Expand(start time.Time, unit Unit, count int) ([]time.Time, error) {
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	count = ClampCount(count)
	if unit == None || unit == "" || count == 1 {
		return []time.Time{first}, nil
	}

	opt := rrule.ROption{
		Dtstart: first,
		Count:   count,
	}
	switch unit {
	case Week:
		opt.Freq = rrule.WEEKLY
	case Month:
		opt.Freq = rrule.MONTHLY
		if day := first.Day(); day > 28 {
			// the last existing day among 28..day of each month
			days := make([]int, 0, day-27)
			for d := 28; d <= day; d++ {
				days = append(days, d)
			}
			opt.Bymonthday = days
			opt.Bysetpos = []int{-1}
		}
	default:
		return nil, fmt.Errorf("unknown repeat unit %q", unit)
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("could not build %s recurrence: %w", unit, err)
	}
	return rule.All(), nil
}

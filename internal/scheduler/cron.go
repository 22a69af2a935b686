// Package scheduler provides a minimal cron scheduler with file-lock
// overlap prevention, used to drive periodic supervisor runs.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronExpr is a parsed 5-field cron expression
// (minute, hour, day-of-month, month, day-of-week).
type CronExpr struct {
	fields [5]map[int]bool
}

var cronBounds = [5][2]int{
	{0, 59}, // minute
	{0, 23}, // hour
	{1, 31}, // day-of-month
	{1, 12}, // month
	{0, 6},  // day-of-week
}

var cronFieldNames = [5]string{"minute", "hour", "day-of-month", "month", "day-of-week"}

// ParseCron parses a standard 5-field cron expression.
// Supports: *, */N, N, N-M, N-M/S, comma-separated combinations.
func ParseCron(expr string) (*CronExpr, error) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("cron: expected 5 fields, got %d", len(parts))
	}

	var c CronExpr
	for i, part := range parts {
		set, err := parseCronField(part, cronBounds[i][0], cronBounds[i][1])
		if err != nil {
			return nil, fmt.Errorf("cron: %s: %w", cronFieldNames[i], err)
		}
		c.fields[i] = set
	}
	return &c, nil
}

// Matches reports whether t falls within the expression.
func (c *CronExpr) Matches(t time.Time) bool {
	return c.fields[0][t.Minute()] &&
		c.fields[1][t.Hour()] &&
		c.fields[2][t.Day()] &&
		c.fields[3][int(t.Month())] &&
		c.fields[4][int(t.Weekday())]
}

// Next returns the first time after t matching the expression, searching up
// to two years ahead; zero time when nothing matches.
func (c *CronExpr) Next(t time.Time) time.Time {
	candidate := t.Truncate(time.Minute).Add(time.Minute)
	limit := t.Add(2 * 365 * 24 * time.Hour)

	for candidate.Before(limit) {
		switch {
		case !c.fields[3][int(candidate.Month())]:
			candidate = time.Date(candidate.Year(), candidate.Month()+1, 1, 0, 0, 0, 0, candidate.Location())
		case !c.fields[2][candidate.Day()] || !c.fields[4][int(candidate.Weekday())]:
			candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day()+1, 0, 0, 0, 0, candidate.Location())
		case !c.fields[1][candidate.Hour()]:
			candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(), candidate.Hour()+1, 0, 0, 0, candidate.Location())
		case !c.fields[0][candidate.Minute()]:
			candidate = candidate.Add(time.Minute)
		default:
			return candidate
		}
	}
	return time.Time{}
}

func parseCronField(field string, min, max int) (map[int]bool, error) {
	set := make(map[int]bool)
	for _, part := range strings.Split(field, ",") {
		lo, hi, step := min, max, 1
		rangePart := part

		if idx := strings.IndexByte(part, '/'); idx >= 0 {
			s, err := strconv.Atoi(part[idx+1:])
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("invalid step %q", part)
			}
			step = s
			rangePart = part[:idx]
		}

		switch {
		case rangePart == "*":
			// full range
		case strings.Contains(rangePart, "-"):
			bounds := strings.SplitN(rangePart, "-", 2)
			var err error
			if lo, err = strconv.Atoi(bounds[0]); err != nil {
				return nil, fmt.Errorf("invalid range start %q", bounds[0])
			}
			if hi, err = strconv.Atoi(bounds[1]); err != nil {
				return nil, fmt.Errorf("invalid range end %q", bounds[1])
			}
		default:
			v, err := strconv.Atoi(rangePart)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q", rangePart)
			}
			lo, hi = v, v
		}

		if lo < min || hi > max || lo > hi {
			return nil, fmt.Errorf("range %d-%d out of bounds [%d,%d]", lo, hi, min, max)
		}
		for v := lo; v <= hi; v += step {
			set[v] = true
		}
	}
	return set, nil
}

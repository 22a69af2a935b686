package supervisor

import (
	"sort"
	"time"

	"github.com/driftwatch/driftwatch/internal/store"
)

// Pattern keys and types. Each key maps to exactly one detector.
const (
	PatternKeyProductivity = "prod_create_more_than_finish"
	PatternKeyEmotional    = "emo_irritation_proxy"
	PatternKeyRelational   = "rel_no_connection_streak"

	PatternTypeProductivity = "productivity"
	PatternTypeEmotional    = "emotional"
	PatternTypeRelational   = "relational"
)

// Detection thresholds. These are business rules, not tunables.
const (
	productivityMinFlaggedDays = 3
	emotionalMoodMax           = 4
	emotionalFocusDriftMin     = 2
	emotionalMinMatches        = 2
	relationalMinStreak        = 3
)

// Detection is the result of one pattern detector over a signal window.
type Detection struct {
	PatternKey  string
	PatternType string
	Detected    bool
	Severity    int
	Diagnostics map[string]any
}

// SensitiveType reports whether the pattern type is consent-gated.
func SensitiveType(patternType string) bool {
	return patternType == PatternTypeEmotional || patternType == PatternTypeRelational
}

const dayKeyFormat = "2006-01-02"

// DetectProductivity flags windows where tasks get started faster than they
// get finished: a day counts when more tasks were created than completed on
// that calendar day. Pure function; no I/O.
func DetectProductivity(tasks []store.Task, windowStart, windowEnd time.Time) Detection {
	createdPerDay := map[string]int{}
	completedPerDay := map[string]int{}
	for _, t := range tasks {
		if dayInWindow(t.CreatedAt, windowStart, windowEnd) {
			createdPerDay[calendarDay(t.CreatedAt).Format(dayKeyFormat)]++
		}
		if t.CompletedAt != nil && dayInWindow(*t.CompletedAt, windowStart, windowEnd) {
			completedPerDay[calendarDay(*t.CompletedAt).Format(dayKeyFormat)]++
		}
	}

	var flagged []string
	for day, created := range createdPerDay {
		if created > completedPerDay[day] {
			flagged = append(flagged, day)
		}
	}
	sort.Strings(flagged)

	severity := 0
	switch n := len(flagged); {
	case n >= 8:
		severity = 3
	case n >= 5:
		severity = 2
	case n >= 3:
		severity = 1
	}

	return Detection{
		PatternKey:  PatternKeyProductivity,
		PatternType: PatternTypeProductivity,
		Detected:    len(flagged) >= productivityMinFlaggedDays,
		Severity:    severity,
		Diagnostics: map[string]any{
			"window_start":      calendarDay(windowStart).Format(dayKeyFormat),
			"window_end":        calendarDay(windowEnd).Format(dayKeyFormat),
			"flagged_days":      flagged,
			"flagged_count":     len(flagged),
			"created_per_day":   createdPerDay,
			"completed_per_day": completedPerDay,
		},
	}
}

// DetectEmotional counts check-ins that proxy irritation: low mood combined
// with high focus drift. Pure function; no I/O.
func DetectEmotional(checkins []store.CheckIn) Detection {
	var matching []string
	for _, c := range checkins {
		if c.Mood <= emotionalMoodMax && c.FocusDrift >= emotionalFocusDriftMin {
			matching = append(matching, c.Day.Format(dayKeyFormat))
		}
	}
	sort.Strings(matching)

	severity := 0
	switch n := len(matching); {
	case n >= 4:
		severity = 3
	case n >= 3:
		severity = 2
	case n >= 2:
		severity = 1
	}

	return Detection{
		PatternKey:  PatternKeyEmotional,
		PatternType: PatternTypeEmotional,
		Detected:    len(matching) >= emotionalMinMatches,
		Severity:    severity,
		Diagnostics: map[string]any{
			"matching_days":   matching,
			"matching_count":  len(matching),
			"mood_max":        emotionalMoodMax,
			"focus_drift_min": emotionalFocusDriftMin,
		},
	}
}

// DetectRelational finds the longest run of consecutive check-in days with
// no human connection. A connection day resets the streak to zero (and does
// not start a new one); a gap in check-in days breaks continuity and the
// streak restarts at the current day. Pure function; no I/O.
func DetectRelational(checkins []store.CheckIn) Detection {
	sorted := make([]store.CheckIn, len(checkins))
	copy(sorted, checkins)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Day.Before(sorted[j].Day) })

	var (
		maxStreak   int
		maxDays     []string
		curDays     []string
		prevDay     time.Time
		haveCurrent bool
	)
	record := func() {
		if len(curDays) > maxStreak {
			maxStreak = len(curDays)
			maxDays = append([]string(nil), curDays...)
		}
	}

	for _, c := range sorted {
		day := calendarDay(c.Day)
		if c.HumanConnectionDone {
			record()
			curDays = nil
			haveCurrent = false
			prevDay = day
			continue
		}
		if haveCurrent && day.Sub(prevDay) != 24*time.Hour {
			record()
			curDays = nil
		}
		curDays = append(curDays, day.Format(dayKeyFormat))
		haveCurrent = true
		prevDay = day
	}
	record()

	severity := 0
	switch {
	case maxStreak >= 7:
		severity = 3
	case maxStreak >= 5:
		severity = 2
	case maxStreak >= 3:
		severity = 1
	}

	if maxDays == nil {
		maxDays = []string{}
	}
	return Detection{
		PatternKey:  PatternKeyRelational,
		PatternType: PatternTypeRelational,
		Detected:    maxStreak >= relationalMinStreak,
		Severity:    severity,
		Diagnostics: map[string]any{
			"max_streak":  maxStreak,
			"streak_days": maxDays,
		},
	}
}

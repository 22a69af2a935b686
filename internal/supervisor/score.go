package supervisor

import (
	"fmt"
	"time"

	"github.com/driftwatch/driftwatch/internal/store"
)

// Cycle tiers, coarse recommendations derived from the window score.
const (
	TierExpand   = "expand"
	TierMaintain = "maintain"
	TierReduce   = "reduce"
	TierReset    = "reset"
)

// CycleResult is the scored evaluation of one member window.
type CycleResult struct {
	ScoreTotal     int
	Tier           string
	CreatedCount   int
	CompletedCount int
	NuclearDone    int
	HumanDone      int
}

// Notes renders the diagnostic string persisted on the cycle row.
func (r CycleResult) Notes() string {
	return fmt.Sprintf("created=%d completed=%d nuclear=%d human=%d",
		r.CreatedCount, r.CompletedCount, r.NuclearDone, r.HumanDone)
}

// ScoreCycle computes the window score and tier from raw signals.
// Pure: no I/O, no clock.
//
// score = (completed − created) + nuclearDone + humanDone, where created and
// completed count tasks whose respective timestamp's calendar day falls
// inside [windowStart, windowEnd].
func ScoreCycle(tasks []store.Task, checkins []store.CheckIn, windowStart, windowEnd time.Time) CycleResult {
	var r CycleResult
	for _, t := range tasks {
		if dayInWindow(t.CreatedAt, windowStart, windowEnd) {
			r.CreatedCount++
		}
		if t.CompletedAt != nil && dayInWindow(*t.CompletedAt, windowStart, windowEnd) {
			r.CompletedCount++
		}
	}
	for _, c := range checkins {
		if c.NuclearBlockDone {
			r.NuclearDone++
		}
		if c.HumanConnectionDone {
			r.HumanDone++
		}
	}

	r.ScoreTotal = (r.CompletedCount - r.CreatedCount) + r.NuclearDone + r.HumanDone
	r.Tier = tierFor(r.ScoreTotal)
	return r
}

// tierFor maps a score to its tier. Evaluated in order; first match wins.
func tierFor(score int) string {
	switch {
	case score >= 5:
		return TierExpand
	case score <= -7:
		return TierReset
	case score <= -3:
		return TierReduce
	default:
		return TierMaintain
	}
}

// calendarDay truncates t to its UTC calendar day.
func calendarDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// dayInWindow reports whether t's calendar day lies in [start, end] inclusive.
func dayInWindow(t, start, end time.Time) bool {
	d := calendarDay(t)
	return !d.Before(calendarDay(start)) && !d.After(calendarDay(end))
}

package supervisor

import (
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func taskAt(created time.Time, completed *time.Time) store.Task {
	return store.Task{TenantID: "t1", UserID: "u1", CreatedAt: created, CompletedAt: completed}
}

func tp(t time.Time) *time.Time { return &t }

func TestScoreCycleExpandBoundary(t *testing.T) {
	start := day(2026, 3, 1)
	end := day(2026, 3, 14)

	var tasks []store.Task
	// 10 completions, 3 creations inside the window. Creations outside the
	// window so created/completed counts diverge cleanly.
	for i := 0; i < 10; i++ {
		tasks = append(tasks, taskAt(day(2026, 2, 10), tp(day(2026, 3, 2).Add(time.Duration(i)*time.Hour))))
	}
	for i := 0; i < 3; i++ {
		tasks = append(tasks, taskAt(day(2026, 3, 5).Add(time.Duration(i)*time.Hour), nil))
	}
	checkins := []store.CheckIn{
		{Day: day(2026, 3, 3), NuclearBlockDone: true},
		{Day: day(2026, 3, 4), HumanConnectionDone: true},
	}

	r := ScoreCycle(tasks, checkins, start, end)
	if r.CompletedCount != 10 || r.CreatedCount != 3 {
		t.Fatalf("counts = completed %d created %d, want 10/3", r.CompletedCount, r.CreatedCount)
	}
	if r.ScoreTotal != 9 {
		t.Fatalf("ScoreTotal = %d, want 9", r.ScoreTotal)
	}
	if r.Tier != TierExpand {
		t.Fatalf("Tier = %q, want %q", r.Tier, TierExpand)
	}
}

func TestScoreCycleResetBoundary(t *testing.T) {
	start := day(2026, 3, 1)
	end := day(2026, 3, 14)

	var tasks []store.Task
	for i := 0; i < 10; i++ {
		tasks = append(tasks, taskAt(day(2026, 3, 6).Add(time.Duration(i)*time.Hour), nil))
	}
	for i := 0; i < 2; i++ {
		tasks = append(tasks, taskAt(day(2026, 2, 1), tp(day(2026, 3, 8).Add(time.Duration(i)*time.Hour))))
	}

	r := ScoreCycle(tasks, nil, start, end)
	if r.ScoreTotal != -8 {
		t.Fatalf("ScoreTotal = %d, want -8", r.ScoreTotal)
	}
	if r.Tier != TierReset {
		t.Fatalf("Tier = %q, want %q", r.Tier, TierReset)
	}
}

func TestTierMapping(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{9, TierExpand},
		{5, TierExpand},
		{4, TierMaintain},
		{0, TierMaintain},
		{-2, TierMaintain},
		{-3, TierReduce},
		{-6, TierReduce},
		{-7, TierReset},
		{-20, TierReset},
	}
	for _, c := range cases {
		if got := tierFor(c.score); got != c.want {
			t.Errorf("tierFor(%d) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestScoreCycleIgnoresDaysOutsideWindow(t *testing.T) {
	start := day(2026, 3, 1)
	end := day(2026, 3, 14)

	tasks := []store.Task{
		taskAt(day(2026, 2, 28), nil),                    // created before window
		taskAt(day(2026, 3, 15), nil),                    // created after window
		taskAt(day(2026, 2, 1), tp(day(2026, 2, 20))),    // completed before window
		taskAt(day(2026, 3, 1), tp(day(2026, 3, 14))),    // both inside
		taskAt(day(2026, 2, 1), tp(day(2026, 3, 14).Add(23*time.Hour))), // completed last window day
	}

	r := ScoreCycle(tasks, nil, start, end)
	if r.CreatedCount != 1 {
		t.Errorf("CreatedCount = %d, want 1", r.CreatedCount)
	}
	if r.CompletedCount != 2 {
		t.Errorf("CompletedCount = %d, want 2", r.CompletedCount)
	}
}

func TestScoreCycleDeterministic(t *testing.T) {
	start := day(2026, 3, 1)
	end := day(2026, 3, 14)
	tasks := []store.Task{
		taskAt(day(2026, 3, 2), tp(day(2026, 3, 3))),
		taskAt(day(2026, 3, 4), nil),
	}
	checkins := []store.CheckIn{
		{Day: day(2026, 3, 2), NuclearBlockDone: true, HumanConnectionDone: true},
	}

	a := ScoreCycle(tasks, checkins, start, end)
	b := ScoreCycle(tasks, checkins, start, end)
	if a != b {
		t.Fatalf("ScoreCycle not deterministic: %+v vs %+v", a, b)
	}
}

// Package supervisor implements the behavioral pattern detection and
// intervention batch: per member, it scores a rolling check-in/task window,
// runs three pattern detectors, merges detection results into persisted
// pattern state, and fires throttled, consent-gated interventions.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/driftwatch/driftwatch/internal/events"
	"github.com/driftwatch/driftwatch/internal/notify"
	"github.com/driftwatch/driftwatch/internal/store"
)

// Store is the persistence surface the supervisor needs. *store.Store
// satisfies it; tests may substitute fakes.
type Store interface {
	ListMembers(f store.MemberFilter) ([]store.Member, error)
	GetCheckIns(tenantID, userID string, from, to time.Time) ([]store.CheckIn, error)
	GetTasks(tenantID, userID string, from, to time.Time) ([]store.Task, error)
	UpsertCycle(c *store.Cycle) error
	GetPattern(tenantID, userID, patternKey string) (*store.BehaviorPattern, error)
	UpsertPattern(p *store.BehaviorPattern) error
	DeactivatePattern(tenantID, userID, patternKey string, now time.Time) error
	UpdatePatternEvidence(tenantID, userID, patternKey, evidence string, now time.Time) error
	CreateReminder(r *store.Reminder) error
	GetOrCreateLatestConversation(tenantID, userID string, now time.Time) (string, error)
	AppendMessage(conversationID, role, content string, now time.Time) error
	LogSupervisorRun(r *store.SupervisorRun) error
}

// Filter restricts a run to one tenant and/or user, for re-running a single
// member while debugging. Zero value runs everyone.
type Filter struct {
	TenantID string
	UserID   string
}

// MemberError records one member's isolated failure.
type MemberError struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Error    string `json:"error"`
}

// Summary is the result of one batch run.
type Summary struct {
	RunAt     time.Time     `json:"run_at"`
	Processed int           `json:"processed"`
	Errors    []MemberError `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Options configures a Supervisor. Zero fields take defaults.
type Options struct {
	Bus          *notify.Bus
	Emitter      events.Emitter
	Clock        Clock
	WindowDays   int
	CooldownDays int
	Concurrency  int
}

// Supervisor runs the batch over all members.
type Supervisor struct {
	st          Store
	emitter     events.Emitter
	clock       Clock
	dispatcher  *Dispatcher
	windowDays  int
	concurrency int
}

// New creates a Supervisor.
func New(st Store, opts Options) *Supervisor {
	if opts.Emitter == nil {
		opts.Emitter = events.Noop{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 14
	}
	if opts.CooldownDays <= 0 {
		opts.CooldownDays = 3
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	return &Supervisor{
		st:          st,
		emitter:     opts.Emitter,
		clock:       opts.Clock,
		dispatcher:  NewDispatcher(st, opts.Bus, time.Duration(opts.CooldownDays)*24*time.Hour),
		windowDays:  opts.WindowDays,
		concurrency: opts.Concurrency,
	}
}

// Run executes one batch. Failing to enumerate members is fatal; every other
// failure is isolated to its member and collected in the summary. Members
// are processed through a bounded worker pool with no shared mutable state
// beyond the store's keyed upserts.
func (s *Supervisor) Run(ctx context.Context, f Filter) (*Summary, error) {
	start := s.clock.Now().UTC()
	members, err := s.st.ListMembers(store.MemberFilter{TenantID: f.TenantID, UserID: f.UserID})
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	slog.Info("Supervisor run started", "members", len(members), "window_days", s.windowDays)

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		processed int
		errs      []MemberError
	)
	sem := make(chan struct{}, s.concurrency)

	for _, m := range members {
		wg.Add(1)
		sem <- struct{}{}
		go func(m store.Member) {
			defer wg.Done()
			defer func() { <-sem }()

			err := s.processMember(ctx, m)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("Supervisor member failed",
					"tenant", m.TenantID, "user", m.UserID, "error", err)
				errs = append(errs, MemberError{TenantID: m.TenantID, UserID: m.UserID, Error: err.Error()})
				return
			}
			processed++
		}(m)
	}
	wg.Wait()

	summary := &Summary{
		RunAt:     start,
		Processed: processed,
		Errors:    errs,
		Duration:  s.clock.Now().UTC().Sub(start),
	}

	if err := s.st.LogSupervisorRun(&store.SupervisorRun{
		RunAt:      start,
		Processed:  processed,
		Failed:     len(errs),
		DurationMs: summary.Duration.Milliseconds(),
	}); err != nil {
		slog.Warn("Supervisor run log failed", "error", err)
	}

	if err := s.emitter.Emit(ctx, events.Event{
		Type: events.TypeRunCompleted,
		At:   start,
		Payload: map[string]any{
			"processed": processed,
			"failed":    len(errs),
		},
	}); err != nil {
		slog.Warn("Supervisor event emit failed", "type", events.TypeRunCompleted, "error", err)
	}

	slog.Info("Supervisor run finished", "processed", processed, "failed", len(errs))
	return summary, nil
}

// processMember runs the full pipeline for one member: signal fetch, cycle
// scoring, the three detectors, pattern state merge, and intervention gating.
func (s *Supervisor) processMember(ctx context.Context, m store.Member) error {
	now := s.clock.Now().UTC()
	windowEnd := calendarDay(now)
	windowStart := windowEnd.AddDate(0, 0, -(s.windowDays - 1))
	fetchEnd := windowEnd.AddDate(0, 0, 1) // exclusive

	checkins, err := s.st.GetCheckIns(m.TenantID, m.UserID, windowStart, windowEnd)
	if err != nil {
		return fmt.Errorf("get check-ins: %w", err)
	}
	tasks, err := s.st.GetTasks(m.TenantID, m.UserID, windowStart, fetchEnd)
	if err != nil {
		return fmt.Errorf("get tasks: %w", err)
	}

	result := ScoreCycle(tasks, checkins, windowStart, windowEnd)
	if err := s.st.UpsertCycle(&store.Cycle{
		TenantID:    m.TenantID,
		UserID:      m.UserID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		ScoreTotal:  result.ScoreTotal,
		Tier:        result.Tier,
		Notes:       result.Notes(),
		UpdatedAt:   now,
	}); err != nil {
		return fmt.Errorf("upsert cycle: %w", err)
	}

	detections := []Detection{
		DetectProductivity(tasks, windowStart, windowEnd),
		DetectEmotional(checkins),
		DetectRelational(checkins),
	}

	for _, det := range detections {
		updated, ev, err := ApplyDetection(s.st, m, det, now)
		if err != nil {
			return err
		}
		if !updated {
			continue
		}

		if err := s.emitter.Emit(ctx, events.Event{
			Type:     events.TypePatternDetected,
			At:       now,
			TenantID: m.TenantID,
			UserID:   m.UserID,
			Payload: map[string]any{
				"pattern_key": det.PatternKey,
				"severity":    det.Severity,
			},
		}); err != nil {
			slog.Warn("Supervisor event emit failed", "type", events.TypePatternDetected, "error", err)
		}

		fired, err := s.dispatcher.Dispatch(m, det, ev, now)
		if err != nil {
			return err
		}
		if fired {
			if err := s.emitter.Emit(ctx, events.Event{
				Type:     events.TypeInterventionFired,
				At:       now,
				TenantID: m.TenantID,
				UserID:   m.UserID,
				Payload:  map[string]any{"pattern_key": det.PatternKey},
			}); err != nil {
				slog.Warn("Supervisor event emit failed", "type", events.TypeInterventionFired, "error", err)
			}
		}
	}
	return nil
}

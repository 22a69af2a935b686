package supervisor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/driftwatch/driftwatch/internal/notify"
	"github.com/driftwatch/driftwatch/internal/store"
)

// ReminderChannel is the delivery channel stamped on intervention reminders.
const ReminderChannel = "push"

// Dispatcher fires the one-shot intervention side effects for a detected,
// persisted pattern: one reminder plus one conversational message.
type Dispatcher struct {
	st       Store
	bus      *notify.Bus
	cooldown time.Duration
}

// NewDispatcher creates a Dispatcher. bus may be nil (no push delivery).
func NewDispatcher(st Store, bus *notify.Bus, cooldown time.Duration) *Dispatcher {
	if cooldown <= 0 {
		cooldown = 72 * time.Hour
	}
	return &Dispatcher{st: st, bus: bus, cooldown: cooldown}
}

// Dispatch decides whether the pattern may intervene this run and, if so,
// emits the side effects and stamps the throttle state. Gates short-circuit
// in order: cooldown, then consent. A gated skip is steady-state behavior,
// not an error.
//
// Side effects are emitted before the throttle stamp is persisted; a stamp
// failure after a successful emission is a one-time double-send risk the
// cooldown absorbs on the next run.
func (d *Dispatcher) Dispatch(m store.Member, det Detection, ev Evidence, now time.Time) (bool, error) {
	if ev.LastInterventionAt != nil && now.Sub(*ev.LastInterventionAt) < d.cooldown {
		slog.Debug("Intervention skipped: cooldown",
			"tenant", m.TenantID, "user", m.UserID, "pattern", det.PatternKey)
		return false, nil
	}
	if SensitiveType(det.PatternType) && ev.ConsentStatus == ConsentDeclined {
		slog.Debug("Intervention skipped: consent declined",
			"tenant", m.TenantID, "user", m.UserID, "pattern", det.PatternKey)
		return false, nil
	}

	title, body := composeMessage(det)

	reminder := &store.Reminder{
		TenantID: m.TenantID,
		UserID:   m.UserID,
		Title:    title,
		Channel:  ReminderChannel,
		FireAt:   now,
	}
	if err := d.st.CreateReminder(reminder); err != nil {
		return false, fmt.Errorf("create reminder: %w", err)
	}

	convID, err := d.st.GetOrCreateLatestConversation(m.TenantID, m.UserID, now)
	if err != nil {
		return false, fmt.Errorf("resolve conversation: %w", err)
	}
	if err := d.st.AppendMessage(convID, "assistant", body, now); err != nil {
		return false, fmt.Errorf("append message: %w", err)
	}

	if d.bus != nil {
		d.bus.Publish(&notify.Notification{
			TenantID: m.TenantID,
			UserID:   m.UserID,
			Channel:  ReminderChannel,
			Title:    title,
			Body:     body,
			At:       now,
		})
	}

	// Throttle stamp last: side effects are already out.
	stamp := now
	ev.LastInterventionAt = &stamp
	if SensitiveType(det.PatternType) && ev.ConsentStatus == "" {
		ev.ConsentStatus = ConsentPending
	}
	raw, err := ev.Encode()
	if err != nil {
		return true, fmt.Errorf("encode evidence stamp: %w", err)
	}
	if err := d.st.UpdatePatternEvidence(m.TenantID, m.UserID, det.PatternKey, raw, now); err != nil {
		return true, fmt.Errorf("persist intervention stamp: %w", err)
	}

	slog.Info("Intervention fired",
		"tenant", m.TenantID, "user", m.UserID, "pattern", det.PatternKey, "severity", det.Severity)
	return true, nil
}

// composeMessage builds the reminder title and conversational message.
// The productivity pattern names its flagged-day count; sensitive patterns
// get a deliberately vague invitation — raw evidence never reaches the
// user-facing text.
func composeMessage(det Detection) (title, body string) {
	if det.PatternType == PatternTypeProductivity {
		flagged, _ := det.Diagnostics["flagged_count"].(int)
		title = "Close one open loop today"
		body = fmt.Sprintf(
			"You started more tasks than you finished on %d of the last 14 days. Want to pick one open task and close it out today?",
			flagged)
		return title, body
	}
	title = "A moment to check in"
	body = "I noticed something in your recent check-ins that might be worth a conversation. How have the last two weeks felt to you?"
	return title, body
}

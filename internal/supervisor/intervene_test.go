package supervisor

import (
	"strings"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/notify"
)

func productivityDetection() Detection {
	return Detection{
		PatternKey:  PatternKeyProductivity,
		PatternType: PatternTypeProductivity,
		Detected:    true,
		Severity:    1,
		Diagnostics: map[string]any{"flagged_count": 4},
	}
}

func TestDispatchFiresReminderAndMessage(t *testing.T) {
	st := newTestStore(t)
	m := testMember()
	now := day(2026, 3, 14).Add(7 * time.Hour)
	d := NewDispatcher(st, nil, 72*time.Hour)

	det := productivityDetection()
	_, ev, err := ApplyDetection(st, m, det, now)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	fired, err := d.Dispatch(m, det, ev, now)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !fired {
		t.Fatal("expected intervention to fire")
	}

	reminders, err := st.ListReminders(m.TenantID, m.UserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(reminders) != 1 {
		t.Fatalf("reminders = %d, want 1", len(reminders))
	}
	r := reminders[0]
	if r.Channel != ReminderChannel || r.Title != "Close one open loop today" {
		t.Fatalf("unexpected reminder: %+v", r)
	}
	if !r.FireAt.Equal(now) {
		t.Fatalf("FireAt = %v, want %v", r.FireAt, now)
	}

	convID, err := st.GetOrCreateLatestConversation(m.TenantID, m.UserID, now)
	if err != nil {
		t.Fatalf("conversation: %v", err)
	}
	msgs, err := st.ListMessages(convID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if msgs[0].Role != "assistant" {
		t.Fatalf("Role = %q, want assistant", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "4 of the last 14 days") {
		t.Fatalf("message does not name the flagged-day count: %q", msgs[0].Content)
	}

	// Throttle stamp persisted.
	p, _ := st.GetPattern(m.TenantID, m.UserID, det.PatternKey)
	stamped := ParseEvidence(p.Evidence)
	if stamped.LastInterventionAt == nil || !stamped.LastInterventionAt.Equal(now) {
		t.Fatalf("LastInterventionAt = %v, want %v", stamped.LastInterventionAt, now)
	}
}

func TestDispatchCooldownWindow(t *testing.T) {
	st := newTestStore(t)
	m := testMember()
	d := NewDispatcher(st, nil, 72*time.Hour)
	det := productivityDetection()

	day1 := day(2026, 3, 10).Add(7 * time.Hour)
	_, ev, err := ApplyDetection(st, m, det, day1)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if fired, err := d.Dispatch(m, det, ev, day1); err != nil || !fired {
		t.Fatalf("day 1 dispatch = %v, %v; want fire", fired, err)
	}

	// Next day: still detected, inside the 3-day cooldown.
	day2 := day1.AddDate(0, 0, 1)
	_, ev, err = ApplyDetection(st, m, det, day2)
	if err != nil {
		t.Fatalf("apply day 2: %v", err)
	}
	if fired, err := d.Dispatch(m, det, ev, day2); err != nil || fired {
		t.Fatalf("day 2 dispatch = %v, %v; want cooldown skip", fired, err)
	}

	// Day 4: exactly 72h since the stamp, cooldown has elapsed.
	day4 := day1.AddDate(0, 0, 3)
	_, ev, err = ApplyDetection(st, m, det, day4)
	if err != nil {
		t.Fatalf("apply day 4: %v", err)
	}
	if fired, err := d.Dispatch(m, det, ev, day4); err != nil || !fired {
		t.Fatalf("day 4 dispatch = %v, %v; want fire", fired, err)
	}

	reminders, _ := st.ListReminders(m.TenantID, m.UserID)
	if len(reminders) != 2 {
		t.Fatalf("reminders = %d, want 2 (day 1 and day 4)", len(reminders))
	}
}

func TestDispatchSensitiveInitializesPendingConsent(t *testing.T) {
	st := newTestStore(t)
	m := testMember()
	now := day(2026, 3, 14)
	d := NewDispatcher(st, nil, 72*time.Hour)
	det := emotionalDetection(true)

	_, ev, err := ApplyDetection(st, m, det, now)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if fired, err := d.Dispatch(m, det, ev, now); err != nil || !fired {
		t.Fatalf("dispatch = %v, %v; want fire on pending-unset consent", fired, err)
	}

	p, _ := st.GetPattern(m.TenantID, m.UserID, det.PatternKey)
	if got := ParseEvidence(p.Evidence).ConsentStatus; got != ConsentPending {
		t.Fatalf("ConsentStatus = %q, want pending after first sensitive intervention", got)
	}
}

func TestDispatchDeclinedConsentBlocksSensitive(t *testing.T) {
	st := newTestStore(t)
	m := testMember()
	now := day(2026, 3, 14)
	d := NewDispatcher(st, nil, 72*time.Hour)
	det := emotionalDetection(true)

	if _, _, err := ApplyDetection(st, m, det, now); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := st.SetPatternConsent(m.TenantID, m.UserID, det.PatternKey, ConsentDeclined, now); err != nil {
		t.Fatalf("set consent: %v", err)
	}
	p, _ := st.GetPattern(m.TenantID, m.UserID, det.PatternKey)
	ev := ParseEvidence(p.Evidence)

	fired, err := d.Dispatch(m, det, ev, now)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if fired {
		t.Fatal("declined consent must block a sensitive intervention")
	}
	reminders, _ := st.ListReminders(m.TenantID, m.UserID)
	if len(reminders) != 0 {
		t.Fatalf("reminders = %d, want 0", len(reminders))
	}
}

func TestDispatchDeclinedConsentDoesNotBlockProductivity(t *testing.T) {
	st := newTestStore(t)
	m := testMember()
	now := day(2026, 3, 14)
	d := NewDispatcher(st, nil, 72*time.Hour)
	det := productivityDetection()

	if _, _, err := ApplyDetection(st, m, det, now); err != nil {
		t.Fatalf("apply: %v", err)
	}
	ev := Evidence{ConsentStatus: ConsentDeclined}
	if fired, err := d.Dispatch(m, det, ev, now); err != nil || !fired {
		t.Fatalf("dispatch = %v, %v; consent gate must not apply to productivity", fired, err)
	}
}

func TestDispatchPublishesToBus(t *testing.T) {
	st := newTestStore(t)
	m := testMember()
	now := day(2026, 3, 14)
	bus := notify.NewBus()
	d := NewDispatcher(st, bus, 72*time.Hour)
	det := productivityDetection()

	_, ev, err := ApplyDetection(st, m, det, now)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := d.Dispatch(m, det, ev, now); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if n := bus.Pending(); n != 1 {
		t.Fatalf("bus pending = %d, want 1", n)
	}
}

func TestComposeMessageSensitiveOmitsEvidence(t *testing.T) {
	det := Detection{
		PatternKey:  PatternKeyRelational,
		PatternType: PatternTypeRelational,
		Detected:    true,
		Severity:    2,
		Diagnostics: map[string]any{"max_streak": 6, "streak_days": []string{"2026-03-01"}},
	}
	title, body := composeMessage(det)
	if title != "A moment to check in" {
		t.Fatalf("title = %q", title)
	}
	for _, leak := range []string{"6", "streak", "2026-03-01"} {
		if strings.Contains(body, leak) {
			t.Fatalf("sensitive message leaks evidence %q: %q", leak, body)
		}
	}
}

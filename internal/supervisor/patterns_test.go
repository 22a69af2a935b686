package supervisor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/driftwatch/driftwatch/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "driftwatch.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testMember() store.Member {
	return store.Member{TenantID: "t1", UserID: "u1"}
}

func emotionalDetection(detected bool) Detection {
	return Detection{
		PatternKey:  PatternKeyEmotional,
		PatternType: PatternTypeEmotional,
		Detected:    detected,
		Severity:    1,
		Diagnostics: map[string]any{"matching_count": 2},
	}
}

func TestApplyDetectionCreatesRow(t *testing.T) {
	st := newTestStore(t)
	m := testMember()
	now := day(2026, 3, 14).Add(8 * time.Hour)

	updated, ev, err := ApplyDetection(st, m, emotionalDetection(true), now)
	if err != nil {
		t.Fatalf("apply detection: %v", err)
	}
	if !updated {
		t.Fatal("expected updated=true on first detection")
	}
	if ev.ConsentStatus != "" || ev.LastInterventionAt != nil {
		t.Fatalf("new pattern must have empty control fields, got %+v", ev)
	}

	p, err := st.GetPattern(m.TenantID, m.UserID, PatternKeyEmotional)
	if err != nil || p == nil {
		t.Fatalf("get pattern: %v %v", p, err)
	}
	if p.Occurrences != 1 || !p.IsActive || p.Severity != 1 {
		t.Fatalf("unexpected row: %+v", p)
	}
	if !p.FirstSeenAt.Equal(now) || !p.LastSeenAt.Equal(now) {
		t.Fatalf("seen timestamps = %v / %v, want %v", p.FirstSeenAt, p.LastSeenAt, now)
	}
}

func TestApplyDetectionIncrementsAndPreservesFirstSeen(t *testing.T) {
	st := newTestStore(t)
	m := testMember()
	day1 := day(2026, 3, 14).Add(8 * time.Hour)
	day2 := day1.AddDate(0, 0, 1)

	if _, _, err := ApplyDetection(st, m, emotionalDetection(true), day1); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if _, _, err := ApplyDetection(st, m, emotionalDetection(true), day2); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	p, _ := st.GetPattern(m.TenantID, m.UserID, PatternKeyEmotional)
	if p.Occurrences != 2 {
		t.Fatalf("Occurrences = %d, want 2", p.Occurrences)
	}
	if !p.FirstSeenAt.Equal(day1) {
		t.Fatalf("FirstSeenAt = %v, want preserved %v", p.FirstSeenAt, day1)
	}
	if !p.LastSeenAt.Equal(day2) {
		t.Fatalf("LastSeenAt = %v, want %v", p.LastSeenAt, day2)
	}

	// Still exactly one row for the composite key.
	var count int
	if err := st.DB().QueryRow(`SELECT COUNT(*) FROM behavior_patterns
		WHERE tenant_id = ? AND user_id = ? AND pattern_key = ?`,
		m.TenantID, m.UserID, PatternKeyEmotional).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}
}

func TestApplyDetectionDeactivatesWithoutTouchingState(t *testing.T) {
	st := newTestStore(t)
	m := testMember()
	day1 := day(2026, 3, 14)
	day2 := day1.AddDate(0, 0, 1)

	if _, _, err := ApplyDetection(st, m, emotionalDetection(true), day1); err != nil {
		t.Fatalf("apply: %v", err)
	}
	updated, _, err := ApplyDetection(st, m, emotionalDetection(false), day2)
	if err != nil {
		t.Fatalf("apply not-detected: %v", err)
	}
	if updated {
		t.Fatal("not-detected must return updated=false")
	}

	p, _ := st.GetPattern(m.TenantID, m.UserID, PatternKeyEmotional)
	if p.IsActive {
		t.Fatal("pattern must be inactive after a run without detection")
	}
	if p.Occurrences != 1 {
		t.Fatalf("Occurrences = %d, deactivation must not change it", p.Occurrences)
	}
	if !p.LastSeenAt.Equal(day1) {
		t.Fatalf("LastSeenAt = %v, deactivation must not change it", p.LastSeenAt)
	}
	if ev := ParseEvidence(p.Evidence); ev.Diagnostics == nil {
		t.Fatal("evidence must be retained while inactive")
	}
}

func TestApplyDetectionNoRowWhenNeverDetected(t *testing.T) {
	st := newTestStore(t)
	m := testMember()

	updated, _, err := ApplyDetection(st, m, emotionalDetection(false), day(2026, 3, 14))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated {
		t.Fatal("expected updated=false")
	}
	p, _ := st.GetPattern(m.TenantID, m.UserID, PatternKeyEmotional)
	if p != nil {
		t.Fatal("no row should exist for a never-detected pattern")
	}
}

func TestApplyDetectionPreservesControlFieldsAcrossDeactivation(t *testing.T) {
	st := newTestStore(t)
	m := testMember()
	day1 := day(2026, 3, 14)

	if _, _, err := ApplyDetection(st, m, emotionalDetection(true), day1); err != nil {
		t.Fatalf("apply: %v", err)
	}
	// External consent flow declines.
	if err := st.SetPatternConsent(m.TenantID, m.UserID, PatternKeyEmotional, ConsentDeclined, day1); err != nil {
		t.Fatalf("set consent: %v", err)
	}

	// Goes quiet, then comes back two runs later.
	if _, _, err := ApplyDetection(st, m, emotionalDetection(false), day1.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, ev, err := ApplyDetection(st, m, emotionalDetection(true), day1.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("re-detect: %v", err)
	}
	if ev.ConsentStatus != ConsentDeclined {
		t.Fatalf("ConsentStatus = %q, want declined carried across deactivation", ev.ConsentStatus)
	}
}

func TestEvidenceRoundTrip(t *testing.T) {
	at := day(2026, 3, 10).Add(7 * time.Hour)
	ev := Evidence{
		ConsentStatus:      ConsentPending,
		LastInterventionAt: &at,
		Diagnostics:        map[string]any{"max_streak": 4},
	}
	raw, err := ev.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := ParseEvidence(raw)
	if got.ConsentStatus != ConsentPending {
		t.Fatalf("ConsentStatus = %q", got.ConsentStatus)
	}
	if got.LastInterventionAt == nil || !got.LastInterventionAt.Equal(at) {
		t.Fatalf("LastInterventionAt = %v, want %v", got.LastInterventionAt, at)
	}
	if got.Diagnostics["max_streak"].(float64) != 4 {
		t.Fatalf("Diagnostics = %v", got.Diagnostics)
	}
}

func TestParseEvidenceToleratesLegacyPayloads(t *testing.T) {
	for _, raw := range []string{"", "{}", "not json", `{"unknown":1}`} {
		ev := ParseEvidence(raw)
		if ev.ConsentStatus != "" || ev.LastInterventionAt != nil {
			t.Errorf("ParseEvidence(%q) produced control fields: %+v", raw, ev)
		}
	}
}

package supervisor

import (
	"fmt"
	"time"

	"github.com/driftwatch/driftwatch/internal/store"
)

// ApplyDetection merges one detector result into persisted pattern state.
//
// Not detected: an active row is deactivated; evidence, occurrences, and the
// seen timestamps are left alone. Returns updated=false — the pattern is not
// eligible for intervention this run.
//
// Detected: the row is upserted with fresh diagnostics, last_seen_at = now,
// occurrences incremented, first_seen_at preserved. The consent_status and
// last_intervention_at control fields are threaded through from the previous
// evidence untouched. Returns updated=true and the merged envelope so the
// intervention gate can read the control fields without a second fetch.
func ApplyDetection(st Store, m store.Member, det Detection, now time.Time) (bool, Evidence, error) {
	prev, err := st.GetPattern(m.TenantID, m.UserID, det.PatternKey)
	if err != nil {
		return false, Evidence{}, fmt.Errorf("get pattern %s: %w", det.PatternKey, err)
	}

	if !det.Detected {
		if prev != nil && prev.IsActive {
			if err := st.DeactivatePattern(m.TenantID, m.UserID, det.PatternKey, now); err != nil {
				return false, Evidence{}, fmt.Errorf("deactivate pattern %s: %w", det.PatternKey, err)
			}
		}
		return false, Evidence{}, nil
	}

	ev := Evidence{Diagnostics: det.Diagnostics}
	firstSeen := now
	occurrences := 1
	if prev != nil {
		prevEv := ParseEvidence(prev.Evidence)
		ev.ConsentStatus = prevEv.ConsentStatus
		ev.LastInterventionAt = prevEv.LastInterventionAt
		firstSeen = prev.FirstSeenAt
		occurrences = prev.Occurrences + 1
	}

	raw, err := ev.Encode()
	if err != nil {
		return false, Evidence{}, fmt.Errorf("encode evidence %s: %w", det.PatternKey, err)
	}

	row := &store.BehaviorPattern{
		TenantID:    m.TenantID,
		UserID:      m.UserID,
		PatternKey:  det.PatternKey,
		PatternType: det.PatternType,
		Severity:    det.Severity,
		FirstSeenAt: firstSeen,
		LastSeenAt:  now,
		Occurrences: occurrences,
		Evidence:    raw,
		IsActive:    true,
		UpdatedAt:   now,
	}
	if err := st.UpsertPattern(row); err != nil {
		return false, Evidence{}, fmt.Errorf("upsert pattern %s: %w", det.PatternKey, err)
	}
	return true, ev, nil
}

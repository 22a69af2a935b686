package supervisor

import (
	"encoding/json"
	"time"
)

// Consent states for sensitive pattern types. Transitions beyond the
// initial "pending" are owned by the surrounding product.
const (
	ConsentPending  = "pending"
	ConsentGranted  = "granted"
	ConsentDeclined = "declined"
)

// Evidence is the persisted envelope on a behavior pattern row. The two
// control fields survive every run; Diagnostics is replaced wholesale each
// run the pattern is detected. Keeping the control fields typed means a
// future diagnostics-shape change cannot clobber them.
type Evidence struct {
	ConsentStatus      string         `json:"consent_status,omitempty"`
	LastInterventionAt *time.Time     `json:"last_intervention_at,omitempty"`
	Diagnostics        map[string]any `json:"diagnostics,omitempty"`
}

// ParseEvidence decodes a stored evidence envelope. An empty or malformed
// payload yields a zero envelope rather than an error: pattern rows written
// before the envelope existed must still round-trip.
func ParseEvidence(raw string) Evidence {
	var ev Evidence
	if raw == "" {
		return ev
	}
	_ = json.Unmarshal([]byte(raw), &ev)
	return ev
}

// Encode serializes the envelope for storage.
func (e Evidence) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

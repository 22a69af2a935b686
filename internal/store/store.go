// Package store provides the SQLite persistence layer for driftwatch:
// members, daily check-ins, tasks, cycle scores, behavior pattern state,
// reminders, conversations, and the supervisor run log.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const dayFormat = "2006-01-02"

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open driftwatch db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	return s.db.Close()
}

// --- Members ---

// UpsertMember inserts or updates a member row.
func (s *Store) UpsertMember(m *Member) error {
	_, err := s.db.Exec(`INSERT INTO members (tenant_id, user_id, display_name)
		VALUES (?, ?, ?)
		ON CONFLICT(tenant_id, user_id) DO UPDATE SET
			display_name = excluded.display_name`,
		m.TenantID, m.UserID, m.DisplayName)
	return err
}

// ListMembers returns members matching the filter, ordered by tenant then user.
func (s *Store) ListMembers(f MemberFilter) ([]Member, error) {
	query := `SELECT tenant_id, user_id, COALESCE(display_name,''), created_at
		FROM members WHERE 1=1`
	var args []any
	if f.TenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, f.TenantID)
	}
	if f.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	query += ` ORDER BY tenant_id, user_id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.TenantID, &m.UserID, &m.DisplayName, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Check-ins ---

// UpsertCheckIn inserts or replaces the check-in for one calendar day.
func (s *Store) UpsertCheckIn(c *CheckIn) error {
	_, err := s.db.Exec(`INSERT INTO checkins
		(tenant_id, user_id, day, mood, focus_drift, nuclear_block_done, human_connection_done)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, user_id, day) DO UPDATE SET
			mood = excluded.mood,
			focus_drift = excluded.focus_drift,
			nuclear_block_done = excluded.nuclear_block_done,
			human_connection_done = excluded.human_connection_done`,
		c.TenantID, c.UserID, c.Day.UTC().Format(dayFormat),
		c.Mood, c.FocusDrift, c.NuclearBlockDone, c.HumanConnectionDone)
	return err
}

// GetCheckIns returns check-ins with day in [from, to] inclusive, ascending.
// No value-based filtering happens here: detectors own their thresholds.
func (s *Store) GetCheckIns(tenantID, userID string, from, to time.Time) ([]CheckIn, error) {
	rows, err := s.db.Query(`SELECT tenant_id, user_id, day, mood, focus_drift,
		nuclear_block_done, human_connection_done, created_at
		FROM checkins
		WHERE tenant_id = ? AND user_id = ? AND day >= ? AND day <= ?
		ORDER BY day ASC`,
		tenantID, userID, from.UTC().Format(dayFormat), to.UTC().Format(dayFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CheckIn
	for rows.Next() {
		var c CheckIn
		// The day column is declared DATE, so the driver hands back a
		// time.Time; scan it directly.
		if err := rows.Scan(&c.TenantID, &c.UserID, &c.Day, &c.Mood, &c.FocusDrift,
			&c.NuclearBlockDone, &c.HumanConnectionDone, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Day = c.Day.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Tasks ---

// AddTask inserts a task row and returns it with its assigned ID.
func (s *Store) AddTask(t *Task) (*Task, error) {
	var completed any
	if t.CompletedAt != nil {
		completed = t.CompletedAt.UTC()
	}
	res, err := s.db.Exec(`INSERT INTO tasks (tenant_id, user_id, title, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.TenantID, t.UserID, t.Title, t.CreatedAt.UTC(), completed)
	if err != nil {
		return nil, err
	}
	t.ID, _ = res.LastInsertId()
	return t, nil
}

// CompleteTask stamps a task's completion time.
func (s *Store) CompleteTask(id int64, at time.Time) error {
	_, err := s.db.Exec(`UPDATE tasks SET completed_at = ? WHERE id = ?`, at.UTC(), id)
	return err
}

// GetTasks returns tasks whose created_at or completed_at falls in
// [from, to). The caller passes to as the exclusive end of the window.
func (s *Store) GetTasks(tenantID, userID string, from, to time.Time) ([]Task, error) {
	rows, err := s.db.Query(`SELECT id, tenant_id, user_id, COALESCE(title,''), created_at, completed_at
		FROM tasks
		WHERE tenant_id = ? AND user_id = ?
		AND ((created_at >= ? AND created_at < ?) OR (completed_at >= ? AND completed_at < ?))
		ORDER BY created_at ASC`,
		tenantID, userID, from.UTC(), to.UTC(), from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		var completed sql.NullTime
		if err := rows.Scan(&t.ID, &t.TenantID, &t.UserID, &t.Title, &t.CreatedAt, &completed); err != nil {
			return nil, err
		}
		if completed.Valid {
			ct := completed.Time
			t.CompletedAt = &ct
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Cycles ---

// UpsertCycle writes the cycle row for one member window. Re-running with
// identical inputs overwrites the same row; it never duplicates.
func (s *Store) UpsertCycle(c *Cycle) error {
	_, err := s.db.Exec(`INSERT INTO cycles
		(tenant_id, user_id, window_start, window_end, score_total, tier, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, user_id, window_start) DO UPDATE SET
			window_end = excluded.window_end,
			score_total = excluded.score_total,
			tier = excluded.tier,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		c.TenantID, c.UserID,
		c.WindowStart.UTC().Format(dayFormat), c.WindowEnd.UTC().Format(dayFormat),
		c.ScoreTotal, c.Tier, c.Notes, c.UpdatedAt.UTC())
	return err
}

// GetCycle returns the cycle row for one member window, or nil when absent.
func (s *Store) GetCycle(tenantID, userID string, windowStart time.Time) (*Cycle, error) {
	var c Cycle
	err := s.db.QueryRow(`SELECT tenant_id, user_id, window_start, window_end,
		score_total, tier, COALESCE(notes,''), updated_at
		FROM cycles WHERE tenant_id = ? AND user_id = ? AND window_start = ?`,
		tenantID, userID, windowStart.UTC().Format(dayFormat)).
		Scan(&c.TenantID, &c.UserID, &c.WindowStart, &c.WindowEnd,
			&c.ScoreTotal, &c.Tier, &c.Notes, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.WindowStart = c.WindowStart.UTC()
	c.WindowEnd = c.WindowEnd.UTC()
	return &c, nil
}

// CountCycles returns the number of cycle rows for one member.
func (s *Store) CountCycles(tenantID, userID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM cycles WHERE tenant_id = ? AND user_id = ?`,
		tenantID, userID).Scan(&n)
	return n, err
}

// --- Behavior patterns ---

// GetPattern returns the pattern row for one member and key, or nil when absent.
func (s *Store) GetPattern(tenantID, userID, patternKey string) (*BehaviorPattern, error) {
	var p BehaviorPattern
	err := s.db.QueryRow(`SELECT tenant_id, user_id, pattern_key, pattern_type, severity,
		first_seen_at, last_seen_at, occurrences, COALESCE(evidence,'{}'), is_active, updated_at
		FROM behavior_patterns WHERE tenant_id = ? AND user_id = ? AND pattern_key = ?`,
		tenantID, userID, patternKey).
		Scan(&p.TenantID, &p.UserID, &p.PatternKey, &p.PatternType, &p.Severity,
			&p.FirstSeenAt, &p.LastSeenAt, &p.Occurrences, &p.Evidence, &p.IsActive, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertPattern writes full pattern state keyed on (tenant, user, pattern_key).
// The caller owns the merge semantics; the upsert only guards uniqueness.
func (s *Store) UpsertPattern(p *BehaviorPattern) error {
	_, err := s.db.Exec(`INSERT INTO behavior_patterns
		(tenant_id, user_id, pattern_key, pattern_type, severity,
		 first_seen_at, last_seen_at, occurrences, evidence, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, user_id, pattern_key) DO UPDATE SET
			pattern_type = excluded.pattern_type,
			severity = excluded.severity,
			first_seen_at = excluded.first_seen_at,
			last_seen_at = excluded.last_seen_at,
			occurrences = excluded.occurrences,
			evidence = excluded.evidence,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		p.TenantID, p.UserID, p.PatternKey, p.PatternType, p.Severity,
		p.FirstSeenAt.UTC(), p.LastSeenAt.UTC(), p.Occurrences, p.Evidence, p.IsActive, p.UpdatedAt.UTC())
	return err
}

// DeactivatePattern flips is_active off without touching evidence,
// occurrences, or the seen timestamps.
func (s *Store) DeactivatePattern(tenantID, userID, patternKey string, now time.Time) error {
	_, err := s.db.Exec(`UPDATE behavior_patterns SET is_active = 0, updated_at = ?
		WHERE tenant_id = ? AND user_id = ? AND pattern_key = ?`,
		now.UTC(), tenantID, userID, patternKey)
	return err
}

// UpdatePatternEvidence replaces the evidence envelope only.
func (s *Store) UpdatePatternEvidence(tenantID, userID, patternKey, evidence string, now time.Time) error {
	_, err := s.db.Exec(`UPDATE behavior_patterns SET evidence = ?, updated_at = ?
		WHERE tenant_id = ? AND user_id = ? AND pattern_key = ?`,
		evidence, now.UTC(), tenantID, userID, patternKey)
	return err
}

// SetPatternConsent writes consent_status into the evidence envelope.
// This is the surface for the external consent flow; the supervisor itself
// never transitions consent beyond initializing "pending".
func (s *Store) SetPatternConsent(tenantID, userID, patternKey, status string, now time.Time) error {
	p, err := s.GetPattern(tenantID, userID, patternKey)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("pattern %s not found for %s/%s", patternKey, tenantID, userID)
	}
	var envelope map[string]any
	if err := json.Unmarshal([]byte(p.Evidence), &envelope); err != nil {
		envelope = map[string]any{}
	}
	envelope["consent_status"] = status
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return s.UpdatePatternEvidence(tenantID, userID, patternKey, string(data), now)
}

// ListActivePatterns returns currently-active patterns across all members.
func (s *Store) ListActivePatterns() ([]BehaviorPattern, error) {
	rows, err := s.db.Query(`SELECT tenant_id, user_id, pattern_key, pattern_type, severity,
		first_seen_at, last_seen_at, occurrences, COALESCE(evidence,'{}'), is_active, updated_at
		FROM behavior_patterns WHERE is_active = 1
		ORDER BY tenant_id, user_id, pattern_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BehaviorPattern
	for rows.Next() {
		var p BehaviorPattern
		if err := rows.Scan(&p.TenantID, &p.UserID, &p.PatternKey, &p.PatternType, &p.Severity,
			&p.FirstSeenAt, &p.LastSeenAt, &p.Occurrences, &p.Evidence, &p.IsActive, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Reminders ---

// CreateReminder inserts a reminder record, assigning an ID when absent.
func (s *Store) CreateReminder(r *Reminder) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`INSERT INTO reminders (id, tenant_id, user_id, title, channel, fire_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.TenantID, r.UserID, r.Title, r.Channel, r.FireAt.UTC())
	return err
}

// ListReminders returns a member's reminders, newest first.
func (s *Store) ListReminders(tenantID, userID string) ([]Reminder, error) {
	rows, err := s.db.Query(`SELECT id, tenant_id, user_id, title, channel, fire_at, created_at
		FROM reminders WHERE tenant_id = ? AND user_id = ?
		ORDER BY created_at DESC`, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.TenantID, &r.UserID, &r.Title, &r.Channel, &r.FireAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- Conversations ---

// GetOrCreateLatestConversation returns the member's most recently updated
// conversation ID, creating a new conversation if none exists.
func (s *Store) GetOrCreateLatestConversation(tenantID, userID string, now time.Time) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM conversations
		WHERE tenant_id = ? AND user_id = ?
		ORDER BY updated_at DESC LIMIT 1`, tenantID, userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	id = uuid.NewString()
	_, err = s.db.Exec(`INSERT INTO conversations (id, tenant_id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, tenantID, userID, "Check-in", now.UTC(), now.UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

// AppendMessage adds a message and bumps the conversation's updated_at.
func (s *Store) AppendMessage(conversationID, role, content string, now time.Time) error {
	_, err := s.db.Exec(`INSERT INTO conversation_messages (id, conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), conversationID, role, content, now.UTC())
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`, now.UTC(), conversationID)
	return err
}

// ListMessages returns a conversation's messages in order.
func (s *Store) ListMessages(conversationID string) ([]ConversationMessage, error) {
	rows, err := s.db.Query(`SELECT id, conversation_id, role, content, created_at
		FROM conversation_messages WHERE conversation_id = ?
		ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ConversationMessage
	for rows.Next() {
		var m ConversationMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Supervisor runs ---

// LogSupervisorRun records one batch run for the status surface.
func (s *Store) LogSupervisorRun(r *SupervisorRun) error {
	_, err := s.db.Exec(`INSERT INTO supervisor_runs (run_at, processed, failed, duration_ms, notes)
		VALUES (?, ?, ?, ?, ?)`,
		r.RunAt.UTC(), r.Processed, r.Failed, r.DurationMs, r.Notes)
	return err
}

// ListSupervisorRuns returns recent runs, newest first.
func (s *Store) ListSupervisorRuns(limit int) ([]SupervisorRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT id, run_at, processed, failed, duration_ms, COALESCE(notes,'')
		FROM supervisor_runs ORDER BY run_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SupervisorRun
	for rows.Next() {
		var r SupervisorRun
		if err := rows.Scan(&r.ID, &r.RunAt, &r.Processed, &r.Failed, &r.DurationMs, &r.Notes); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

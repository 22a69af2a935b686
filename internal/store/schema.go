package store

import (
	"time"
)

// Member identifies a (tenant, user) pair the supervisor evaluates.
type Member struct {
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// MemberFilter restricts member enumeration to one tenant and/or user.
// Zero value means no restriction.
type MemberFilter struct {
	TenantID string
	UserID   string
}

// CheckIn is one member's daily self-report. At most one per calendar day.
type CheckIn struct {
	TenantID            string    `json:"tenant_id"`
	UserID              string    `json:"user_id"`
	Day                 time.Time `json:"day"` // calendar day, UTC midnight
	Mood                int       `json:"mood"`
	FocusDrift          int       `json:"focus_drift"`
	NuclearBlockDone    bool      `json:"nuclear_block_done"`
	HumanConnectionDone bool      `json:"human_connection_done"`
	CreatedAt           time.Time `json:"created_at"`
}

// Task is a read-only task row. CompletedAt is nil while open.
type Task struct {
	ID          int64      `json:"id"`
	TenantID    string     `json:"tenant_id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Cycle is one scored evaluation of a member's window.
// At most one row per (tenant, user, window_start).
type Cycle struct {
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	ScoreTotal  int       `json:"score_total"`
	Tier        string    `json:"tier"`
	Notes       string    `json:"notes"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BehaviorPattern is persisted pattern state for one member and pattern key.
// Evidence is a JSON envelope owned by the supervisor package.
type BehaviorPattern struct {
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	PatternKey  string    `json:"pattern_key"`
	PatternType string    `json:"pattern_type"`
	Severity    int       `json:"severity"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	Occurrences int       `json:"occurrences"`
	Evidence    string    `json:"evidence"`
	IsActive    bool      `json:"is_active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Reminder is a one-shot reminder record created by an intervention.
type Reminder struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Channel   string    `json:"channel"`
	FireAt    time.Time `json:"fire_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a member's message thread with the assistant.
type Conversation struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationMessage is a single message in a conversation.
type ConversationMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// SupervisorRun records one batch run for the status surface.
type SupervisorRun struct {
	ID         int64     `json:"id"`
	RunAt      time.Time `json:"run_at"`
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
	DurationMs int64     `json:"duration_ms"`
	Notes      string    `json:"notes"`
}

const Schema = `
CREATE TABLE IF NOT EXISTS members (
	tenant_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	display_name TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (tenant_id, user_id)
);

CREATE TABLE IF NOT EXISTS checkins (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	day DATE NOT NULL,
	mood INTEGER NOT NULL DEFAULT 0,
	focus_drift INTEGER NOT NULL DEFAULT 0,
	nuclear_block_done BOOLEAN NOT NULL DEFAULT 0,
	human_connection_done BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(tenant_id, user_id, day)
);
CREATE INDEX IF NOT EXISTS idx_checkins_member_day ON checkins(tenant_id, user_id, day);

CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	title TEXT DEFAULT '',
	created_at DATETIME NOT NULL,
	completed_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_tasks_member_created ON tasks(tenant_id, user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_member_completed ON tasks(tenant_id, user_id, completed_at);

CREATE TABLE IF NOT EXISTS cycles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	window_start DATE NOT NULL,
	window_end DATE NOT NULL,
	score_total INTEGER NOT NULL DEFAULT 0,
	tier TEXT NOT NULL DEFAULT 'maintain',
	notes TEXT DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(tenant_id, user_id, window_start)
);

CREATE TABLE IF NOT EXISTS behavior_patterns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	pattern_key TEXT NOT NULL,
	pattern_type TEXT NOT NULL,
	severity INTEGER NOT NULL DEFAULT 0,
	first_seen_at DATETIME NOT NULL,
	last_seen_at DATETIME NOT NULL,
	occurrences INTEGER NOT NULL DEFAULT 0,
	evidence TEXT DEFAULT '{}',
	is_active BOOLEAN NOT NULL DEFAULT 1,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(tenant_id, user_id, pattern_key)
);
CREATE INDEX IF NOT EXISTS idx_patterns_active ON behavior_patterns(is_active);

CREATE TABLE IF NOT EXISTS reminders (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	channel TEXT NOT NULL DEFAULT 'push',
	fire_at DATETIME NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_reminders_member ON reminders(tenant_id, user_id);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	title TEXT DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_conversations_member ON conversations(tenant_id, user_id, updated_at);

CREATE TABLE IF NOT EXISTS conversation_messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_conv_messages_conv ON conversation_messages(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS supervisor_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_at DATETIME NOT NULL,
	processed INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	notes TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_supervisor_runs_at ON supervisor_runs(run_at);
`

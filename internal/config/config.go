// Package config provides configuration types and loading for driftwatch.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: Paths, Supervisor, Scheduler, Notify, Events.
type Config struct {
	Paths      PathsConfig      `json:"paths"`
	Supervisor SupervisorConfig `json:"supervisor"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Notify     NotifyConfig     `json:"notify"`
	Events     EventsConfig     `json:"events"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
	DBPath  string `json:"dbPath" envconfig:"DB_PATH"`
}

// ---------------------------------------------------------------------------
// Supervisor – batch run behaviour
// ---------------------------------------------------------------------------

// SupervisorConfig groups batch supervisor settings.
// Detection thresholds are business rules and deliberately not configurable.
type SupervisorConfig struct {
	WindowDays   int `json:"windowDays" envconfig:"WINDOW_DAYS"`
	CooldownDays int `json:"cooldownDays" envconfig:"COOLDOWN_DAYS"`
	Concurrency  int `json:"concurrency" envconfig:"CONCURRENCY"`
}

// ---------------------------------------------------------------------------
// Scheduler – cron-based daemon runs
// ---------------------------------------------------------------------------

// SchedulerConfig contains settings for the cron scheduler.
type SchedulerConfig struct {
	Enabled      bool          `json:"enabled" envconfig:"ENABLED"`
	Cron         string        `json:"cron" envconfig:"CRON"`
	TickInterval time.Duration `json:"tickInterval" envconfig:"TICK_INTERVAL"`
	LockPath     string        `json:"lockPath" envconfig:"LOCK_PATH"`
}

// ---------------------------------------------------------------------------
// Notify – reminder push delivery
// ---------------------------------------------------------------------------

// NotifyConfig contains notification sink configurations.
type NotifyConfig struct {
	Slack SlackConfig `json:"slack"`
}

// SlackConfig configures the Slack push sink.
type SlackConfig struct {
	Enabled     bool   `json:"enabled" envconfig:"ENABLED"`
	OutboundURL string `json:"outboundUrl" envconfig:"OUTBOUND_URL"`
	BotToken    string `json:"botToken" envconfig:"BOT_TOKEN"`
	Channel     string `json:"channel" envconfig:"CHANNEL"`
}

// ---------------------------------------------------------------------------
// Events – Kafka export of run and intervention events
// ---------------------------------------------------------------------------

// EventsConfig contains settings for the Kafka event export.
// Export is disabled when Brokers is empty.
type EventsConfig struct {
	Brokers string `json:"brokers" envconfig:"BROKERS"`
	Topic   string `json:"topic" envconfig:"TOPIC"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir: "~/.driftwatch",
			DBPath:  "~/.driftwatch/driftwatch.db",
		},
		Supervisor: SupervisorConfig{
			WindowDays:   14,
			CooldownDays: 3,
			Concurrency:  4,
		},
		Scheduler: SchedulerConfig{
			Enabled:      false,
			Cron:         "0 7 * * *",
			TickInterval: 60 * time.Second,
			LockPath:     "~/.driftwatch/scheduler.lock",
		},
		Events: EventsConfig{
			Topic: "driftwatch.events",
		},
	}
}

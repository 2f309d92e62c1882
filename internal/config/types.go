package config

// Config is the full runtime configuration. Every section is optional; an
// empty file (or no file) plus environment variables is a valid setup.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Server   ServerConfig   `json:"server"`
	Telegram TelegramConfig `json:"telegram"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
	Digest   DigestConfig   `json:"digest"`
	Pprof    PprofConfig    `json:"pprof,omitempty"`

	// Timezone is an IANA name used for chat timestamps and "today" counts.
	Timezone string `json:"timezone,omitempty"`
}

// ServerConfig controls the HTTP API listener.
//
// Defaults:
//   - addr: ":3000"
//   - read_timeout: "15s"
//   - write_timeout: "30s"
//   - idle_timeout: "60s"
//   - shutdown_timeout: "10s"
type ServerConfig struct {
	Addr            string   `json:"addr,omitempty"`
	ReadTimeout     string   `json:"read_timeout,omitempty"`
	WriteTimeout    string   `json:"write_timeout,omitempty"`
	IdleTimeout     string   `json:"idle_timeout,omitempty"`
	ShutdownTimeout string   `json:"shutdown_timeout,omitempty"`
	TrustedProxies  []string `json:"trusted_proxies,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID string `json:"chat_id"`
	// APIURL overrides https://api.telegram.org (self-hosted Bot API servers).
	APIURL string `json:"api_url,omitempty"`
	// Timeout bounds each sendMessage call. Default "10s".
	Timeout string `json:"timeout,omitempty"`
	// Commands enables long polling for /stats and /last in ChatID.
	Commands bool `json:"commands,omitempty"`
}

// SecurityConfig holds the optional webhook signing secret (do not log).
type SecurityConfig struct {
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram mirrors warnings into a chat. ChatID defaults to telegram.chat_id.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     string `json:"chat_id,omitempty"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// DigestConfig schedules a periodic summary message. Schedule is a
// five-field cron expression or a descriptor such as "@daily".
type DigestConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
}

// PprofConfig mounts net/http/pprof under /debug/pprof on the API server.
// A bearer token is required when enabled.
type PprofConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DefaultAddr           = ":3000"
	DefaultDigestSchedule = "0 21 * * *"
	DefaultTimezone       = "UTC"
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.Logging.Console = true
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields in place.
func ApplyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Telegram.MinLevel == "" {
		cfg.Logging.Telegram.MinLevel = "warn"
	}
	if cfg.Logging.Telegram.RatePerSec <= 0 {
		cfg.Logging.Telegram.RatePerSec = 1
	}
	if strings.TrimSpace(cfg.Digest.Schedule) == "" {
		cfg.Digest.Schedule = DefaultDigestSchedule
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		cfg.Timezone = DefaultTimezone
	}
}

// Validate checks fields that can be verified without other packages.
// Callers may add more checks through ConfigManager.SetValidator.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	durations := map[string]string{
		"server.read_timeout":     cfg.Server.ReadTimeout,
		"server.write_timeout":    cfg.Server.WriteTimeout,
		"server.idle_timeout":     cfg.Server.IdleTimeout,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,
		"telegram.timeout":        cfg.Telegram.Timeout,
	}
	for _, path := range sortedKeys(durations) {
		if _, err := ParseDurationField(path, durations[path]); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := time.LoadLocation(strings.TrimSpace(cfg.Timezone)); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if cfg.Pprof.Enabled && strings.TrimSpace(cfg.Pprof.Token) == "" {
		errs = append(errs, errors.New("pprof.token: required when pprof is enabled"))
	}
	if cfg.Telegram.Commands && (strings.TrimSpace(cfg.Telegram.Token) == "" || strings.TrimSpace(cfg.Telegram.ChatID) == "") {
		errs = append(errs, errors.New("telegram.commands: requires token and chat_id"))
	}
	return errors.Join(errs...)
}

// Location resolves cfg.Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil {
		return time.UTC
	}
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil {
		return time.UTC
	}
	return loc
}

// LogChatID is where log lines are mirrored.
func (c *Config) LogChatID() string {
	if id := strings.TrimSpace(c.Logging.Telegram.ChatID); id != "" {
		return id
	}
	return strings.TrimSpace(c.Telegram.ChatID)
}

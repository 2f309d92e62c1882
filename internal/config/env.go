package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables recognized on top of the config file.
const (
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChat  = "TELEGRAM_CHAT_ID"
	EnvWebhookSecret = "TRADINGVIEW_SECRET"
	EnvAddr          = "XAUBOT_ADDR"
	EnvPort          = "PORT"
	EnvLogLevel      = "XAUBOT_LOG_LEVEL"
	EnvTimezone      = "XAUBOT_TIMEZONE"
)

// DefaultEnvFiles are read in order; later files override earlier ones.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ReadEnvFiles merges dotenv files without touching the process environment.
// Missing files are skipped.
func ReadEnvFiles(paths ...string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		m, err := godotenv.Read(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("env file %s: %w", p, err)
		}
		for k, v := range m {
			out[k] = v
		}
	}
	return out, nil
}

// EnvLookup layers the process environment over values read from dotenv files.
func EnvLookup(files map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := files[key]
		return v, ok
	}
}

// ApplyEnv overlays environment values onto cfg. Non-empty values win over the file.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	if lookup == nil {
		return
	}
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&cfg.Telegram.Token, EnvTelegramToken)
	set(&cfg.Telegram.ChatID, EnvTelegramChat)
	set(&cfg.Security.WebhookSecret, EnvWebhookSecret)
	set(&cfg.Logging.Level, EnvLogLevel)
	set(&cfg.Timezone, EnvTimezone)

	if v, ok := lookup(EnvPort); ok && strings.TrimSpace(v) != "" {
		cfg.Server.Addr = ":" + strings.TrimSpace(v)
	}
	set(&cfg.Server.Addr, EnvAddr)
}

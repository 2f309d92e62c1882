package app

import (
	"time"

	"xaubot/internal/config"
	"xaubot/internal/httpapi"
	"xaubot/internal/notifier"
	"xaubot/internal/telegram"
	logx "xaubot/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ChatID:     cfg.LogChatID(),
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

func mapTelegramConfig(cfg *config.Config) telegram.Config {
	return telegram.Config{
		APIURL:  cfg.Telegram.APIURL,
		Timeout: config.DurationOr(cfg.Telegram.Timeout, 10*time.Second),
	}
}

func mapServerConfig(cfg *config.Config) httpapi.ServerConfig {
	return httpapi.ServerConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     config.DurationOr(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout:    config.DurationOr(cfg.Server.WriteTimeout, 30*time.Second),
		IdleTimeout:     config.DurationOr(cfg.Server.IdleTimeout, 60*time.Second),
		ShutdownTimeout: config.DurationOr(cfg.Server.ShutdownTimeout, 10*time.Second),
	}
}

func credentials(cfg *config.Config) notifier.Credentials {
	if cfg == nil {
		return notifier.Credentials{}
	}
	return notifier.Credentials{Token: cfg.Telegram.Token, ChatID: cfg.Telegram.ChatID}
}

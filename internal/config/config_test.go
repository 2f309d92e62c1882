package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseYAMLWithDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "xaubot.yaml", `
telegram:
  token: "123:abc"
  chat_id: -1001234
security:
  webhook_secret: s3cret
logging:
  level: debug
timezone: Asia/Jakarta
`)
	m := NewConfigManager(path, filepath.Join(dir, ".env"))
	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "-1001234", cfg.Telegram.ChatID)
	assert.Equal(t, "s3cret", cfg.Security.WebhookSecret)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultDigestSchedule, cfg.Digest.Schedule)
	assert.Equal(t, "Asia/Jakarta", cfg.Location().String())
	assert.Same(t, cfg, m.Get())
}

func TestParseRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "xaubot.json", `{"telegram":{"tokn":"x"}}`)
	_, err := NewConfigManager(path, filepath.Join(dir, ".env")).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokn")
}

func TestParseWithoutFileUsesEnvFiles(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, ".env", "TELEGRAM_BOT_TOKEN=from-env\nTELEGRAM_CHAT_ID=1\nPORT=8080\n")
	local := writeFile(t, dir, ".env.local", "TELEGRAM_CHAT_ID=2\n")

	cfg, err := NewConfigManager("", base, local, filepath.Join(dir, "missing.env")).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, "2", cfg.Telegram.ChatID)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Logging.Console)
}

func TestProcessEnvWinsOverEnvFiles(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "TRADINGVIEW_SECRET=file\n")
	t.Setenv(EnvWebhookSecret, "process")
	t.Setenv(EnvAddr, "127.0.0.1:9999")

	cfg, err := NewConfigManager("", envFile).Parse()
	require.NoError(t, err)
	assert.Equal(t, "process", cfg.Security.WebhookSecret)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
}

func TestApplyEnvIgnoresBlankValues(t *testing.T) {
	t.Parallel()
	cfg := &Config{Telegram: TelegramConfig{Token: "keep"}}
	ApplyEnv(cfg, func(key string) (string, bool) {
		if key == EnvTelegramToken {
			return "  ", true
		}
		return "", false
	})
	assert.Equal(t, "keep", cfg.Telegram.Token)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cfg := Default()
	require.NoError(t, Validate(cfg))

	bad := Default()
	bad.Server.ReadTimeout = "soon"
	bad.Timezone = "Mars/Base"
	bad.Pprof.Enabled = true
	err := Validate(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.read_timeout")
	assert.Contains(t, err.Error(), "timezone")
	assert.Contains(t, err.Error(), "pprof.token")
}

func TestDurationOr(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 5*time.Second, DurationOr("", 5*time.Second))
	assert.Equal(t, 2*time.Second, DurationOr("2s", 5*time.Second))
	assert.Equal(t, 5*time.Second, DurationOr("bad", 5*time.Second))
}

func TestSummarizeConfigChangeHidesSecrets(t *testing.T) {
	t.Parallel()
	a := Default()
	b := Default()
	b.Telegram.Token = "super-secret"
	b.Security.WebhookSecret = "also-secret"
	b.Timezone = "Asia/Jakarta"

	changed, attrs := SummarizeConfigChange(a, b)
	assert.Equal(t, []string{"telegram", "security", "timezone"}, changed)
	assert.NotEmpty(t, attrs)

	changed, _ = SummarizeConfigChange(a, Default())
	assert.Empty(t, changed)
}

func TestReloadPublishesOnlyValidChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "xaubot.json", `{"telegram":{"token":"a","chat_id":"1"}}`)
	m := NewConfigManager(path, filepath.Join(dir, ".env"))
	_, err := m.Load()
	require.NoError(t, err)
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	changed, err := m.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	writeFile(t, dir, "xaubot.json", `{"timezone":"Nowhere/City"}`)
	_, err = m.Reload(context.Background())
	require.Error(t, err)
	assert.Equal(t, "a", m.Get().Telegram.Token)

	writeFile(t, dir, "xaubot.json", `{"telegram":{"token":"b","chat_id":"1"}}`)
	changed, err = m.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	got := <-ch
	assert.Equal(t, "b", got.Telegram.Token)
}

func TestWatchPicksUpFileChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "xaubot.json", `{"telegram":{"token":"a","chat_id":"1"}}`)
	m := NewConfigManager(path, filepath.Join(dir, ".env"))
	_, err := m.Load()
	require.NoError(t, err)
	ch := m.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		// Rewrite until the watcher (which starts asynchronously) sees it.
		writeFile(t, dir, ".env", "TELEGRAM_BOT_TOKEN=rotated\n")
		select {
		case cfg := <-ch:
			assert.Equal(t, "rotated", cfg.Telegram.Token)
			return
		case <-deadline:
			t.Fatal("config change not published")
		case <-tick.C:
		}
	}
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	var runs atomic.Int32
	d := &debouncer{delay: 30 * time.Millisecond, fn: func() { runs.Add(1) }}
	for i := 0; i < 5; i++ {
		d.trigger()
	}
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	d.stop()
}

package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"xaubot/internal/config"
	"xaubot/internal/digest"
	"xaubot/internal/eventbus"
	"xaubot/internal/guard"
	"xaubot/internal/httpapi"
	"xaubot/internal/notifier"
	"xaubot/internal/relay"
	"xaubot/internal/runtime/supervisor"
	"xaubot/internal/signallog"
	"xaubot/internal/telegram"
	logx "xaubot/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	loc  atomic.Pointer[time.Location]

	tg         *telegram.Client
	signals    *signallog.Log
	dispatcher *notifier.Dispatcher
	pipeline   *relay.Pipeline
	digest     *digest.Service
	router     http.Handler
	server     *httpapi.Server

	cmdMu  sync.Mutex
	cmdSup *supervisor.Supervisor
	cmdKey string
}

// NewApp loads the configuration and wires every component. Nothing runs
// until Start.
func NewApp(cfgPath string, envFiles ...string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath, envFiles...)
	cfgm.SetValidator(validateConfig)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	tg := telegram.New(mapTelegramConfig(cfg))
	token := func() string { return cfgm.Get().Telegram.Token }
	logSvc, log := logx.New(mapLogConfig(cfg), telegram.LogSender{Client: tg, Token: token})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{
		cfgm:    cfgm,
		log:     log.With(logx.String("comp", "app")),
		logs:    logSvc,
		bus:     eventbus.New(),
		tg:      tg,
		signals: signallog.New(),
	}
	a.loc.Store(cfg.Location())

	a.dispatcher = notifier.NewDispatcher(tg, func() notifier.Credentials { return credentials(cfgm.Get()) },
		log.With(logx.String("comp", "notifier")), a.bus)
	a.dispatcher.SetTimeout(config.DurationOr(cfg.Telegram.Timeout, 0))

	a.pipeline = relay.New(
		guard.New(func() string { return cfgm.Get().Security.WebhookSecret }),
		a.signals, a.dispatcher,
		relay.WithBus(a.bus),
		relay.WithLogger(log.With(logx.String("comp", "relay"))),
		relay.WithLocation(a.location),
	)

	a.digest = digest.New(a.signals, a.dispatcher, log.With(logx.String("comp", "digest")))
	if err := a.digest.Apply(cfg.Digest.Enabled, cfg.Digest.Schedule, a.location()); err != nil {
		return nil, err
	}

	router, err := httpapi.NewRouter(httpapi.Deps{
		Pipeline:       a.pipeline,
		Signals:        a.signals,
		Notifier:       a.dispatcher,
		Bus:            a.bus,
		Location:       a.location,
		PprofToken:     func() string { return pprofToken(cfgm.Get()) },
		TrustedProxies: cfg.Server.TrustedProxies,
		Log:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("server.trusted_proxies: %w", err)
	}
	a.router = router
	a.server = httpapi.NewServer(router, log)
	return a, nil
}

// validateConfig runs checks that need packages config cannot import.
func validateConfig(_ context.Context, cfg *config.Config) error {
	if cfg.Digest.Enabled {
		if _, err := digest.ParseSchedule(cfg.Digest.Schedule); err != nil {
			return fmt.Errorf("digest.schedule: %w", err)
		}
	}
	return nil
}

func pprofToken(cfg *config.Config) string {
	if cfg == nil || !cfg.Pprof.Enabled {
		return ""
	}
	return strings.TrimSpace(cfg.Pprof.Token)
}

func (a *App) location() *time.Location {
	if loc := a.loc.Load(); loc != nil {
		return loc
	}
	return time.UTC
}

// Handler exposes the HTTP routes, mainly for tests.
func (a *App) Handler() http.Handler { return a.router }

// Addr reports the API listen address once started.
func (a *App) Addr() string { return a.server.Addr() }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	cfg := a.cfgm.Get()

	if err := a.server.Start(a.sup.Context(), mapServerConfig(cfg)); err != nil {
		a.sup.Cancel()
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	a.digest.Start(a.sup.Context())
	a.applyCommands(cfg)

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", a.cfgm.Watch)

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("systemd notified ready")
	}
	a.log.Info("app started",
		logx.String("addr", a.server.Addr()),
		logx.Bool("telegram_configured", a.dispatcher.Configured()),
		logx.Bool("signature_check", strings.TrimSpace(cfg.Security.WebhookSecret) != ""),
	)
	return nil
}

// applyConfig pushes a committed config into every live component.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(mapLogConfig(newCfg))
	a.tg.Apply(mapTelegramConfig(newCfg))
	a.dispatcher.SetTimeout(config.DurationOr(newCfg.Telegram.Timeout, 0))
	a.loc.Store(newCfg.Location())

	if err := a.digest.Apply(newCfg.Digest.Enabled, newCfg.Digest.Schedule, a.location()); err != nil {
		a.log.Warn("invalid digest config; keeping previous", logx.Err(err))
	}
	a.applyCommands(newCfg)

	if oldCfg != nil && (oldCfg.Server.Addr != newCfg.Server.Addr ||
		strings.Join(oldCfg.Server.TrustedProxies, ",") != strings.Join(newCfg.Server.TrustedProxies, ",")) {
		a.log.Warn("server config changed; restart required for changes to take effect")
	}

	eventbus.Publish(a.bus, eventbus.ConfigReloaded, map[string]any{"changed": sections})
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// Stop accepting requests before canceling the context in-flight
	// deliveries run under.
	a.step(ctx, "http", 10*time.Second, a.server.Stop)
	a.sup.Cancel()

	a.step(ctx, "digest", 2*time.Second, func(c context.Context) error { a.digest.Stop(c); return nil })
	a.step(ctx, "telegram.commands", 3*time.Second, func(c context.Context) error { return a.stopCommands(c) })
	a.step(ctx, "supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs one shutdown step with an upper bound so one component can't
// stall the whole stop.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < max {
			max = rem
		}
	}
	if max <= 0 {
		a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
	}
}

package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"xaubot/internal/config"
	"xaubot/internal/notifier"
	"xaubot/internal/runtime/supervisor"
	"xaubot/internal/signal"
	"xaubot/internal/signallog"
	"xaubot/internal/telegram"
	logx "xaubot/pkg/logx"
	"xaubot/pkg/tgui"
)

var commandNames = []string{"stats", "last"}

// applyCommands (re)starts the command poller when its settings changed.
// Each generation runs under its own supervisor so it can be replaced
// without touching the rest of the app.
func (a *App) applyCommands(cfg *config.Config) {
	key := ""
	if cfg.Telegram.Commands {
		key = strings.Join([]string{cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.APIURL}, "|")
	}

	a.cmdMu.Lock()
	defer a.cmdMu.Unlock()
	if key == a.cmdKey && (key == "") == (a.cmdSup == nil) {
		return
	}
	if a.cmdSup != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = a.cmdSup.Stop(ctx)
		cancel()
		a.cmdSup = nil
		a.log.Info("telegram commands stopped")
	}
	a.cmdKey = key
	if key == "" || a.sup == nil {
		return
	}

	log := a.log.With(logx.String("comp", "telegram.commands"))
	cmds := telegram.Commands{
		APIURL:  cfg.Telegram.APIURL,
		Token:   cfg.Telegram.Token,
		ChatID:  cfg.Telegram.ChatID,
		Names:   commandNames,
		Handler: a.answer,
		Log:     log,
	}
	sup := supervisor.New(a.sup.Context(), supervisor.WithLogger(log))
	sup.GoRestart("telegram.commands", cmds.Run, supervisor.WithRestartBackoff(time.Second, time.Minute))
	a.cmdSup = sup
}

func (a *App) stopCommands(ctx context.Context) error {
	a.cmdMu.Lock()
	sup := a.cmdSup
	a.cmdSup, a.cmdKey = nil, ""
	a.cmdMu.Unlock()
	if sup == nil {
		return nil
	}
	return sup.Stop(ctx)
}

// answer renders the reply for a bot command.
func (a *App) answer(_ context.Context, command string) string {
	f := notifier.Formatter{Location: a.location()}
	switch strings.TrimPrefix(command, "/") {
	case "stats":
		start := signallog.StartOfDay(time.Now(), a.location())
		var last *signal.Signal
		if s, ok := a.signals.Last(); ok {
			last = &s
		}
		text := f.Summary("XAUUSD today", a.signals.CountSince(start), a.signals.CountByAction(start), last)

		st := a.dispatcher.Stats()
		var out tgui.Lines
		out.Add(tgui.Raw(text))
		out.Blank()
		out.Add(tgui.Field("📬", "Delivered", strconv.FormatInt(st.Delivered, 10)))
		out.Add(tgui.Field("⚠️", "Failed", strconv.FormatInt(st.Failed, 10)))
		out.Add(tgui.Field("🗂", "Total logged", strconv.Itoa(a.signals.Count())))
		return out.String()
	case "last":
		s, ok := a.signals.Last()
		if !ok {
			return tgui.Esc("No signals yet.").String()
		}
		return f.Format(s)
	default:
		return ""
	}
}

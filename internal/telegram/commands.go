package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "xaubot/pkg/logx"
)

// CommandHandler answers a bot command with Telegram HTML.
type CommandHandler func(ctx context.Context, command string) string

const pollTimeout = 10 * time.Second

// Commands long-polls for bot commands and answers them in one chat only.
type Commands struct {
	APIURL  string
	Token   string
	ChatID  string
	Names   []string
	Handler CommandHandler
	Log     logx.Logger
}

// Run blocks until ctx is done or the bot cannot be created.
func (c Commands) Run(ctx context.Context) error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrNoToken
	}
	log := c.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	apiURL := strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	b, err := tele.NewBot(tele.Settings{
		Token:  c.Token,
		URL:    apiURL,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		Client: &http.Client{Timeout: pollTimeout + 10*time.Second},
		OnError: func(err error, _ tele.Context) {
			log.Warn("telegram handler error", logx.Err(err))
		},
	})
	if err != nil {
		return fmt.Errorf("telegram commands: %w", err)
	}

	for _, name := range c.Names {
		name := "/" + strings.TrimPrefix(strings.TrimSpace(name), "/")
		b.Handle(name, func(tc tele.Context) error {
			if !SameChat(tc.Chat(), c.ChatID) {
				log.Debug("ignoring command from other chat", logx.String("command", name))
				return nil
			}
			reply := c.Handler(ctx, name)
			if reply == "" {
				return nil
			}
			return tc.Send(reply, &tele.SendOptions{ParseMode: tele.ModeHTML})
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("command polling started", logx.Int("commands", len(c.Names)))
		b.Start()
	}()

	<-ctx.Done()
	b.Stop()

	// Keep shutdown snappy even if getUpdates is still waiting.
	t := time.NewTimer(2 * time.Second)
	defer t.Stop()
	select {
	case <-done:
		log.Info("command polling stopped")
	case <-t.C:
		log.Warn("command polling stop grace elapsed")
	}
	return ctx.Err()
}

// SameChat reports whether chat matches a configured id (numeric or @username).
func SameChat(chat *tele.Chat, configured string) bool {
	configured = strings.TrimSpace(configured)
	if chat == nil || configured == "" {
		return false
	}
	if id, err := strconv.ParseInt(configured, 10, 64); err == nil {
		return chat.ID == id
	}
	return chat.Username != "" && strings.EqualFold(strings.TrimPrefix(configured, "@"), chat.Username)
}

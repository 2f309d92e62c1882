// Package telegram talks to the Telegram Bot API through telebot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"xaubot/pkg/tgui"
)

const DefaultAPIURL = "https://api.telegram.org"

var ErrNoToken = errors.New("telegram token is empty")

type Config struct {
	// APIURL overrides the Bot API base URL. Tests point it at a local fake.
	APIURL  string
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// Client sends messages with whichever token the caller supplies.
// The bot for the most recent token is cached.
type Client struct {
	mu    sync.Mutex
	cfg   Config
	token string
	bot   *tele.Bot
}

func New(cfg Config) *Client {
	return &Client{cfg: cfg.withDefaults()}
}

// Apply swaps the API URL or timeout. The cached bot is dropped.
func (c *Client) Apply(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg.withDefaults()
	c.bot, c.token = nil, ""
	c.mu.Unlock()
}

func (c *Client) botFor(token string) (*tele.Bot, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bot != nil && c.token == token {
		return c.bot, nil
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		URL:     c.cfg.APIURL,
		Offline: true,
		Client:  &http.Client{Timeout: c.cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	c.bot, c.token = b, token
	return b, nil
}

// chatRef addresses a chat by numeric id or @username.
type chatRef string

func (r chatRef) Recipient() string { return string(r) }

// Send performs a single sendMessage call with HTML parse mode.
func (c *Client) Send(ctx context.Context, token, chatID, text string) error {
	return c.send(ctx, token, chatID, text, &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
	})
}

func (c *Client) send(ctx context.Context, token, chatID, text string, opt *tele.SendOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := c.botFor(token)
	if err != nil {
		return err
	}

	// telebot has no context support; the HTTP client timeout bounds the call.
	done := make(chan error, 1)
	go func() {
		_, err := b.Send(chatRef(strings.TrimSpace(chatID)), text, opt)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sendMessage: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender adapts Client to the log sink, which only knows chat ids.
type LogSender struct {
	Client *Client
	Token  func() string
}

// SendLog posts plain text, split into message-sized chunks.
func (s LogSender) SendLog(ctx context.Context, chatID, text string) error {
	if s.Client == nil || s.Token == nil {
		return ErrNoToken
	}
	for _, chunk := range tgui.Split(text, tgui.TextLimit, false) {
		if err := s.Client.send(ctx, s.Token(), chatID, chunk, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
			return err
		}
	}
	return nil
}

package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	logx "xaubot/pkg/logx"
)

const (
	streamBuffer    = 64
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPing      = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard may be served from another origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// stream forwards bus events to a websocket client as JSON text frames.
// ?types=a,b limits the feed to those topics. Events are dropped for a
// client that cannot keep up.
func (a *api) stream(c *gin.Context) {
	if a.Bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream disabled"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		a.log.Debug("stream upgrade failed", logx.Err(err))
		return
	}
	defer conn.Close()

	events, unsub := a.Bus.Subscribe(streamBuffer, streamTopics(c.Query("types"))...)
	defer unsub()

	// Reader: only control frames are expected; it ends on close or timeout.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPing)
	defer ping.Stop()
	log := a.log.With(logx.String("request_id", c.GetString(requestIDKey)))
	log.Debug("stream opened")

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-closed:
			log.Debug("stream closed by client")
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug("stream write failed", logx.Err(err))
				return
			}
		}
	}
}

func streamTopics(q string) []string {
	var out []string
	for _, t := range strings.Split(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"xaubot/internal/eventbus"
	"xaubot/internal/notifier"
	"xaubot/internal/relay"
	"xaubot/internal/signallog"
	logx "xaubot/pkg/logx"
)

// maxBodyBytes caps inbound payloads. Alerts are a few hundred bytes.
const maxBodyBytes = 1 << 20

// Processor runs a payload through the relay pipeline.
type Processor interface {
	Process(ctx context.Context, prof relay.Profile, raw []byte, sig string) (relay.Result, error)
}

// Notifier is the delivery surface the API reads and probes.
type Notifier interface {
	Stats() notifier.Stats
	Snapshot() []notifier.HistoryItem
	Configured() bool
	SendTest(ctx context.Context, creds notifier.Credentials, text string) error
}

// Deps are the collaborators the routes need. Pipeline, Signals and
// Notifier are required.
type Deps struct {
	Pipeline Processor
	Signals  *signallog.Log
	Notifier Notifier
	Bus      eventbus.Bus

	// Location is the live display timezone; nil means UTC.
	Location func() *time.Location
	// PprofToken returns the bearer token for /debug/pprof. Empty disables it.
	PprofToken func() string
	// TrustedProxies is passed to gin; nil trusts none.
	TrustedProxies []string

	Log logx.Logger
	Now func() time.Time
}

type api struct {
	Deps
	log logx.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Location == nil {
		d.Location = func() *time.Location { return time.UTC }
	}
	if d.PprofToken == nil {
		d.PprofToken = func() string { return "" }
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	log := d.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &api{Deps: d, log: log.With(logx.String("comp", "http"))}

	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(requestID(), accessLog(a.log), gin.CustomRecovery(a.recovered))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	g := r.Group("/api")
	g.POST("/webhook", a.webhook)
	g.GET("/webhook", a.webhookInfo)
	g.POST("/manual-signal", a.manualSignal)
	g.GET("/manual-signal", a.manualForm)
	g.GET("/signals", a.signals)
	g.GET("/stats", a.stats)
	g.GET("/deliveries", a.deliveries)
	g.POST("/test-telegram", a.testTelegram)
	g.POST("/test-zapier", a.testZapier)
	g.GET("/test-zapier", a.testZapierInfo)
	g.GET("/stream", a.stream)

	mountPprof(r, d.PprofToken)
	return r, nil
}

func (a *api) recovered(c *gin.Context, v any) {
	a.log.Error("handler panicked", logx.String("path", c.FullPath()), logx.Any("panic", v), logx.String("request_id", c.GetString(requestIDKey)))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func (a *api) location() *time.Location {
	if loc := a.Location(); loc != nil {
		return loc
	}
	return time.UTC
}

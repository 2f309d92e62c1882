package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"

	"xaubot/internal/guard"
	"xaubot/internal/notifier"
	"xaubot/internal/relay"
	"xaubot/internal/signal"
	"xaubot/internal/signallog"
)

var errBodyTooLarge = errors.New("request body too large")

// readBody returns the exact request bytes. The signature is computed over
// them, so nothing may parse the body before this.
func readBody(c *gin.Context) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	return raw, nil
}

func (a *api) run(c *gin.Context, prof relay.Profile) (relay.Result, bool) {
	raw, err := readBody(c)
	if err != nil {
		a.pipelineError(c, prof, relay.Result{}, err)
		return relay.Result{}, false
	}
	res, err := a.Pipeline.Process(c.Request.Context(), prof, raw, c.GetHeader(guard.Header))
	if err != nil {
		a.pipelineError(c, prof, res, err)
		return res, false
	}
	return res, true
}

func (a *api) webhook(c *gin.Context) {
	res, ok := a.run(c, relay.Automated)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Signal received and sent to Telegram",
		"signalId": res.Signal.ID,
	})
}

func (a *api) manualSignal(c *gin.Context) {
	res, ok := a.run(c, relay.Manual)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Manual signal processed and sent to Telegram",
		"signalId": res.Signal.ID,
		"signal":   res.Signal,
	})
}

// signals lists the log newest first. ?since accepts Go durations plus
// days and weeks ("1d", "2w"); ?limit caps the result.
func (a *api) signals(c *gin.Context) {
	var list []signal.Signal
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		d, err := str2duration.ParseDuration(raw)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid since duration", "signals": []signal.Signal{}})
			return
		}
		list = a.Signals.Since(a.Now().Add(-d))
	} else {
		list = a.Signals.Recent()
	}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid limit", "signals": []signal.Signal{}})
			return
		}
		if n < len(list) {
			list = list[:n]
		}
	}
	if list == nil {
		list = []signal.Signal{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"signals": list,
		"count":   len(list),
	})
}

func (a *api) stats(c *gin.Context) {
	start := signallog.StartOfDay(a.Now(), a.location())
	var lastAt *time.Time
	if last, ok := a.Signals.Last(); ok {
		lastAt = &last.Timestamp
	}
	body := gin.H{
		"totalSignals":       a.Signals.Count(),
		"todaySignals":       a.Signals.CountSince(start),
		"lastSignalTime":     lastAt,
		"botStatus":          "online",
		"telegramConfigured": a.Notifier.Configured(),
		"deliveries":         a.Notifier.Stats(),
	}
	if a.Bus != nil {
		body["droppedEvents"] = a.Bus.Dropped()
	}
	c.JSON(http.StatusOK, body)
}

// deliveries lists recent delivery attempts, newest first.
func (a *api) deliveries(c *gin.Context) {
	items := lo.Reverse(a.Notifier.Snapshot())
	if items == nil {
		items = []notifier.HistoryItem{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deliveries": items, "count": len(items)})
}

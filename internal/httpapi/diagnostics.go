package httpapi

import (
	_ "embed"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"xaubot/internal/notifier"
	"xaubot/internal/signal"
	"xaubot/pkg/tgui"
)

//go:embed manual.html
var manualFormHTML []byte

// exampleAlert is the sample body shown by the usage documents.
var exampleAlert = gin.H{
	"symbol":      signal.Symbol,
	"action":      "BUY",
	"price":       "2650.50",
	"stop_loss":   "2630.50",
	"take_profit": "2680.50",
	"timeframe":   "1H",
	"reason":      "Zapier email alert",
	"strategy":    "Email Bridge",
}

func (a *api) webhookInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "XAUUSD Trading Bot Webhook Endpoint",
		"status":  "Ready",
		"expected_format": gin.H{
			"symbol":      signal.Symbol,
			"action":      "BUY|SELL|CLOSE",
			"price":       "number",
			"stop_loss":   "number (optional)",
			"take_profit": "number (optional)",
			"timeframe":   "string (optional)",
			"reason":      "string (optional)",
			"strategy":    "string (optional)",
		},
		"zapier_example":   exampleAlert,
		"signature_header": "X-TradingView-Signature (optional, hex HMAC-SHA256 of the body)",
		"test_url":         "Send POST request to this endpoint with the above format",
	})
}

func (a *api) manualForm(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", manualFormHTML)
}

type testTelegramRequest struct {
	BotToken string `json:"botToken"`
	ChatID   string `json:"chatId"`
}

// testTelegram sends a probe message with the caller's credentials.
// It does not touch the signal log or delivery stats.
func (a *api) testTelegram(c *gin.Context) {
	var req testTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON format", "code": "MalformedPayload"})
		return
	}
	creds := notifier.Credentials{Token: strings.TrimSpace(req.BotToken), ChatID: strings.TrimSpace(req.ChatID)}
	if !creds.Complete() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Bot token and chat ID are required"})
		return
	}

	var text tgui.Lines
	text.Add(tgui.Raw("🤖 " + tgui.B("Test Connection").String()))
	text.Blank()
	text.Add(tgui.Esc("XAUUSD Trading Bot connected!"))
	text.Add(tgui.Field("⏰", "Time", a.Now().In(a.location()).Format(notifier.TimeLayout)))

	if err := a.Notifier.SendTest(c.Request.Context(), creds, text.String()); err != nil {
		var ce *notifier.ChannelError
		msg := err.Error()
		if errors.As(err, &ce) && ce.Err != nil {
			msg = ce.Err.Error()
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg, "code": notifier.Code(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Test message sent successfully!"})
}

// testZapier reports what the webhook would think of a payload without
// logging or delivering anything.
func (a *api) testZapier(c *gin.Context) {
	raw, err := readBody(c)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return
	}
	minimal := gin.H{"symbol": signal.Symbol, "action": "BUY", "price": "2650.50"}
	if strings.TrimSpace(string(raw)) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Empty request body",
			"help":    "Zapier must send JSON data in request body",
			"example": minimal,
		})
		return
	}

	p, err := signal.Decode(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "Invalid JSON format",
			"code":           signal.Code(err),
			"received_raw":   string(raw),
			"parse_error":    err.Error(),
			"correct_format": minimal,
		})
		return
	}

	an := signal.Analyze(p)
	if len(an.Missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "Missing or empty required fields",
			"missing_fields": an.Missing,
			"field_analysis": an.Fields,
			"received_data":  p,
			"zapier_fix": gin.H{
				"instruction":   "In Zapier webhook action, ensure Data field contains:",
				"required_json": minimal,
			},
		})
		return
	}
	if len(an.Invalid) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":              "Invalid field values",
			"invalid_fields":     an.Invalid,
			"validation_details": an.Checks,
		})
		return
	}

	results := make(map[string]bool, len(an.Checks))
	for field, check := range an.Checks {
		results[field] = check.Valid
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"message":            "Zapier webhook test successful! ✅",
		"received_data":      p,
		"field_analysis":     an.Fields,
		"validation_results": results,
		"next_steps": []string{
			"1. Your JSON format is correct",
			"2. Change webhook URL back to /api/webhook",
			"3. Turn on your Zap",
			"4. Test with real TradingView email",
		},
	})
}

func (a *api) testZapierInfo(c *gin.Context) {
	test := gin.H{}
	for k, v := range exampleAlert {
		test[k] = v
	}
	test["reason"] = "Zapier test"
	c.JSON(http.StatusOK, gin.H{
		"title":       "Zapier Test Endpoint",
		"description": "Use this endpoint to debug Zapier webhook issues",
		"usage": gin.H{
			"method":       "POST",
			"url":          "/api/test-zapier",
			"content_type": "application/json",
		},
		"test_data": test,
		"zapier_steps": []string{
			"1. In Zapier webhook action, change URL to this endpoint",
			"2. Copy test_data above to Data field",
			"3. Test the action",
			"4. Check response for debugging info",
			"5. Fix any issues shown in response",
			"6. Change URL back to /api/webhook when working",
		},
	})
}

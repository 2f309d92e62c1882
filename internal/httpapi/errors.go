package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"xaubot/internal/guard"
	"xaubot/internal/notifier"
	"xaubot/internal/relay"
	"xaubot/internal/signal"
	logx "xaubot/pkg/logx"
)

// pipelineError writes the response for a failed Process call.
// res tells whether the signal was already logged.
func (a *api) pipelineError(c *gin.Context, prof relay.Profile, res relay.Result, err error) {
	var fe *signal.FieldError
	switch {
	case errors.Is(err, guard.ErrSignatureMismatch):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid signature",
			"code":  "SignatureMismatch",
		})

	case errors.Is(err, signal.ErrMalformedPayload):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid JSON format",
			"code":    signal.Code(err),
			"details": err.Error(),
		})

	case errors.As(err, &fe):
		body := gin.H{
			"error": fe.Error(),
			"code":  signal.Code(err),
			"field": fe.Field,
		}
		if prof.Name == relay.Automated.Name {
			body["received_data"] = res.Payload
			body["required_fields"] = prof.Rules.Required
		}
		c.JSON(http.StatusBadRequest, body)

	case errors.Is(err, notifier.ErrConfigurationMissing):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "Signal saved but Telegram is not configured",
			"code":     notifier.Code(err),
			"signalId": res.Signal.ID,
		})

	case errors.Is(err, notifier.ErrChannel):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    "Signal saved but failed to send notification",
			"code":     notifier.Code(err),
			"signalId": res.Signal.ID,
		})

	case errors.Is(err, errBodyTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})

	default:
		a.log.Error("pipeline failed", logx.String("path", prof.Name), logx.String("request_id", c.GetString(requestIDKey)), logx.Err(err))
		body := gin.H{"error": "Internal server error"}
		if res.Accepted {
			body["signalId"] = res.Signal.ID
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

package notifier

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"xaubot/internal/signal"
	"xaubot/pkg/tgui"
)

// TimeLayout renders signal times in chat messages.
const TimeLayout = "2006-01-02 15:04:05 MST"

// reasonLimit keeps a single alert well under Telegram's message limit.
const reasonLimit = 1500

// Formatter renders signals as Telegram HTML. It is pure given its Location.
type Formatter struct {
	Location *time.Location
}

func (f Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// Marker returns the colored dot shown around the alert title.
func Marker(a signal.Action) string {
	switch a {
	case signal.Buy:
		return "🟢"
	case signal.Sell:
		return "🔴"
	default:
		return "⚪"
	}
}

// Price renders a price with exactly two decimals.
func Price(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

// Format builds the alert for s. Manual signals get their own title, reason
// label, source line and hashtag.
func (f Formatter) Format(s signal.Signal) string {
	manual := s.IsManual()
	title, reasonLabel, tag := "XAUUSD Signal Alert", "Reason", "#TradingSignal"
	if manual {
		title, reasonLabel, tag = "XAUUSD Manual Signal", "Analysis", "#ManualSignal"
	}
	mark := Marker(s.Action)

	var out tgui.Lines
	out.Add(tgui.Raw(mark + " " + tgui.B(title).String() + " " + mark))
	out.Blank()
	out.Add(tgui.Field("📊", "Action", string(s.Action)))
	out.Add(tgui.Field("💰", "Entry Price", Price(s.Price)))
	if s.StopLoss != nil {
		out.Add(tgui.Field("🛑", "Stop Loss", Price(*s.StopLoss)))
	}
	if s.TakeProfit != nil {
		out.Add(tgui.Field("🎯", "Take Profit", Price(*s.TakeProfit)))
	}
	out.Add(tgui.Field("⏰", "Time", s.Timestamp.In(f.loc()).Format(TimeLayout)))
	out.Add(tgui.Field("📈", "Timeframe", s.Timeframe))
	if s.Reason != "" {
		out.Add(tgui.Field("📝", reasonLabel, tgui.TruncRunes(s.Reason, reasonLimit)))
	}
	out.Add(tgui.Field("🤖", "Strategy", s.Strategy))
	if manual {
		out.Add(tgui.Field("📱", "Source", "Manual Input"))
	}
	out.Blank()
	out.Add(tgui.JoinH(" ", tgui.Raw("#"+signal.Symbol), tgui.Raw(tag), tgui.Raw("#"+string(s.Action))))
	return out.String()
}

// Summary renders signal counts for a period, used by the daily digest and
// the /stats command.
func (f Formatter) Summary(title string, total int, byAction map[signal.Action]int, last *signal.Signal) string {
	var out tgui.Lines
	out.Add(tgui.Raw("📋 " + tgui.B(title).String()))
	out.Blank()
	out.Add(tgui.Field("🔢", "Signals", fmt.Sprint(total)))
	for _, a := range signal.Actions {
		out.Add(tgui.Field(Marker(a), string(a), fmt.Sprint(byAction[a])))
	}
	if last != nil {
		out.Blank()
		out.Add(tgui.Raw(tgui.B("Last:").String() + " " + f.Short(*last)))
	}
	return out.String()
}

// Short renders a one-line description of s.
func (f Formatter) Short(s signal.Signal) string {
	line := fmt.Sprintf("%s %s @ %s (%s)", Marker(s.Action), s.Action, Price(s.Price),
		s.Timestamp.In(f.loc()).Format(TimeLayout))
	return tgui.Esc(line).String()
}

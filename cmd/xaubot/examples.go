package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// alertTemplate is a TradingView alert message body. Placeholders like
// {{close}} are filled in by TradingView when the alert fires.
type alertTemplate struct {
	Title       string
	Description string
	Body        map[string]any
}

var alertTemplates = []alertTemplate{
	{
		Title:       "🟢 Basic buy",
		Description: "Plain BUY alert at the bar close.",
		Body: map[string]any{
			"symbol":    "XAUUSD",
			"action":    "BUY",
			"price":     "{{close}}",
			"timeframe": "{{interval}}",
			"reason":    "Buy signal triggered on {{interval}} timeframe",
			"strategy":  "TradingView Alert",
		},
	},
	{
		Title:       "🔴 Basic sell",
		Description: "Plain SELL alert at the bar close.",
		Body: map[string]any{
			"symbol":    "XAUUSD",
			"action":    "SELL",
			"price":     "{{close}}",
			"timeframe": "{{interval}}",
			"reason":    "Sell signal triggered on {{interval}} timeframe",
			"strategy":  "TradingView Alert",
		},
	},
	{
		Title:       "📊 Strategy order",
		Description: "For strategy alerts; the action comes from the order (buy/sell).",
		Body: map[string]any{
			"symbol":    "XAUUSD",
			"action":    "{{strategy.order.action}}",
			"price":     "{{strategy.order.price}}",
			"timeframe": "{{interval}}",
			"reason":    "Moving Average crossover signal",
			"strategy":  "MA Cross Strategy",
		},
	},
	{
		Title:       "🎯 Breakout with fixed levels",
		Description: "Stop loss and take profit as fixed prices.",
		Body: map[string]any{
			"symbol":      "XAUUSD",
			"action":      "BUY",
			"price":       "{{close}}",
			"stop_loss":   2030,
			"take_profit": 2080,
			"timeframe":   "{{interval}}",
			"reason":      "Resistance breakout confirmed",
			"strategy":    "Breakout Strategy",
		},
	},
	{
		Title:       "📈 Levels from plots",
		Description: "Stop loss and take profit read from indicator plots 0 and 1.",
		Body: map[string]any{
			"symbol":      "XAUUSD",
			"action":      "BUY",
			"price":       "{{close}}",
			"stop_loss":   "{{plot_0}}",
			"take_profit": "{{plot_1}}",
			"timeframe":   "{{interval}}",
			"reason":      "RSI oversold condition",
			"strategy":    "RSI Reversal",
		},
	},
	{
		Title:       "⚪ Close position",
		Description: "Exit an open position.",
		Body: map[string]any{
			"symbol":    "XAUUSD",
			"action":    "CLOSE",
			"price":     "{{close}}",
			"timeframe": "{{interval}}",
			"reason":    "Exit condition met",
			"strategy":  "Exit Strategy",
		},
	},
}

func examplesCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "examples",
		Short: "Print TradingView alert message templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeExamples(cmd.OutOrStdout(), url)
		},
	}
	cmd.Flags().StringVar(&url, "url", "https://your-host/api/webhook", "webhook URL shown in the tips")
	return cmd
}

func writeExamples(w io.Writer, url string) error {
	fmt.Fprint(w, "TradingView webhook message templates\n\n")
	for i, t := range alertTemplates {
		b, err := json.MarshalIndent(t.Body, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d. %s\n   %s\n\n%s\n\n%s\n\n", i+1, t.Title, t.Description, b, strings.Repeat("─", 60))
	}
	fmt.Fprintf(w, `Tips:
  1. Paste one template into the alert "Message" box.
  2. TradingView replaces {{close}}, {{interval}} and other placeholders when the alert fires.
  3. Numeric fields must resolve to plain numbers; TradingView does no arithmetic.
  4. Set the webhook URL to %s
`, url)
	return nil
}

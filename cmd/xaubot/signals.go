package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"

	"xaubot/internal/notifier"
	"xaubot/internal/signal"
)

type signalsResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Signals []signal.Signal `json:"signals"`
	Count   int             `json:"count"`
}

func signalsCmd() *cobra.Command {
	var (
		server  string
		since   string
		limit   int
		tz      string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List signals logged by a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if since != "" {
				if _, err := str2duration.ParseDuration(since); err != nil {
					return fmt.Errorf("--since: %w", err)
				}
				q.Set("since", since)
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("--tz: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := fetchSignals(ctx, strings.TrimRight(server, "/")+"/api/signals?"+q.Encode())
			if err != nil {
				return err
			}
			renderSignals(cmd.OutOrStdout(), res.Signals, loc)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:3000", "base URL of a running xaubot")
	cmd.Flags().StringVar(&since, "since", "", "only signals newer than this (e.g. 12h, 1d, 1w)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows")
	cmd.Flags().StringVar(&tz, "tz", "Local", "timezone for the time column")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}

func fetchSignals(ctx context.Context, u string) (signalsResponse, error) {
	var out signalsResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return out, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		return out, fmt.Errorf("server answered %s: %s", resp.Status, out.Error)
	}
	return out, nil
}

func renderSignals(w io.Writer, list []signal.Signal, loc *time.Location) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Time", "Action", "Price", "SL", "TP", "TF", "Strategy", "Source"})
	table.SetAutoWrapText(false)
	opt := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return notifier.Price(*v)
	}
	for _, s := range list {
		source := "webhook"
		if s.IsManual() {
			source = "manual"
		}
		table.Append([]string{
			s.ID,
			s.Timestamp.In(loc).Format(notifier.TimeLayout),
			string(s.Action),
			notifier.Price(s.Price),
			opt(s.StopLoss),
			opt(s.TakeProfit),
			s.Timeframe,
			s.Strategy,
			source,
		})
	}
	table.SetFooter([]string{"", "", "", "", "", "", "", "TOTAL", strconv.Itoa(len(list))})
	table.Render()
}

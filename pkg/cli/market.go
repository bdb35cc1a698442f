package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stockcheckertool/pkg/core/indicators"
	"stockcheckertool/pkg/core/market"
)

func newIndicatorsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indicators <ticker>",
		Short: "Latest SMA, RSI and MACD readings",
		Example: `  stockcheck indicators AAPL
  stockcheck indicators 005930.KS --range 2y --interval 1wk`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			app, err := rt.App(ctx)
			if err != nil {
				return err
			}
			rng, _ := cmd.Flags().GetString("range")
			interval, _ := cmd.Flags().GetString("interval")

			candles, err := app.Market.FetchHistory(ctx, args[0], rng, interval)
			if err != nil {
				return err
			}
			set, err := indicators.Compute(market.Closes(candles))
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(set)
			}

			last := candles[len(candles)-1]
			output.Bold("%s  close %.2f on %s", strings.ToUpper(args[0]), last.Close, last.Time.Format("2006-01-02"))
			printLast(output, "SMA 20", set.SMA20)
			printLast(output, "SMA 50", set.SMA50)
			printLast(output, "RSI 14", set.RSI14)
			printLast(output, "MACD", set.MACD)
			printLast(output, "Signal", set.MACDSignal)

			if rsi, ok := set.RSI14.Last(); ok {
				switch {
				case rsi >= 70:
					output.Warning("RSI above 70: overbought")
				case rsi <= 30:
					output.Warning("RSI below 30: oversold")
				}
			}
			return nil
		},
	}
	cmd.Flags().String("range", "1y", "history range (1mo, 6mo, 1y, 5y, max)")
	cmd.Flags().String("interval", "1d", "bar interval (1d, 1wk, 1mo)")
	return cmd
}

func printLast(output *Output, label string, s indicators.Series) {
	v, ok := s.Last()
	if !ok {
		output.Printf("  %-8s %s\n", label, "not enough data")
		return
	}
	output.Printf("  %-8s %.2f\n", label, v)
}

func newNewsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news <ticker>",
		Short: "Recent headlines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			app, err := rt.App(ctx)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			items, err := app.Market.FetchNews(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(items)
			}
			if len(items) == 0 {
				output.Dim("no news for %s", strings.ToUpper(args[0]))
				return nil
			}
			for _, item := range items {
				output.Bold("%s", item.Title)
				when := ""
				if !item.PublishedAt.IsZero() {
					when = item.PublishedAt.Local().Format("2006-01-02 15:04") + "  "
				}
				output.Dim("%s%s  %s", when, item.Publisher, item.Link)
				if item.Summary != "" {
					output.Printf("%s\n", item.Summary)
				}
				output.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "maximum headlines")
	return cmd
}

func newRatingsCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratings <ticker>",
		Short: "Analyst recommendations and recent rating changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			app, err := rt.App(ctx)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			ratings, err := app.Market.FetchRatings(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(ratings)
			}

			output.Bold("%s analyst ratings", strings.ToUpper(args[0]))
			for _, t := range ratings.Trend {
				output.Printf("  %-4s strong buy %2d  buy %2d  hold %2d  sell %2d  strong sell %2d  (%d)\n",
					t.Period, t.StrongBuy, t.Buy, t.Hold, t.Sell, t.StrongSell, t.Total())
			}
			if len(ratings.Changes) > 0 {
				output.Println()
			}
			for _, c := range ratings.Changes {
				output.Printf("  %s  %-24s %-6s %s -> %s\n",
					c.Date.Format("2006-01-02"), c.Firm, c.Action, c.FromGrade, c.ToGrade)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "maximum rating changes")
	return cmd
}

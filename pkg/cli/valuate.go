package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stockcheckertool/pkg/core/assumption"
	"stockcheckertool/pkg/core/pipeline"
	"stockcheckertool/pkg/core/report"
	"stockcheckertool/pkg/core/utils"
	"stockcheckertool/pkg/core/valuation"
)

// addOverrideFlags registers the per-run assumption overrides.
func addOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("scenario", "s", "", "scenario name (default: active scenario)")
	cmd.Flags().Float64("growth", 0, "growth rate override, e.g. 0.05")
	cmd.Flags().Float64("terminal", 0, "terminal growth rate override, e.g. 0.025")
	cmd.Flags().Int("horizon", 0, "projection horizon in years")
	cmd.Flags().Bool("fade", false, "fade growth linearly to the terminal rate")
	cmd.Flags().Bool("mid-year", false, "use the mid-year discounting convention")
	cmd.Flags().Float64("rate", 0, "discount rate override; skips WACC estimation")
}

// overridesFromFlags only sets the flags the user actually passed.
func overridesFromFlags(cmd *cobra.Command) assumption.Overrides {
	var o assumption.Overrides
	f := cmd.Flags()
	if f.Changed("growth") {
		v, _ := f.GetFloat64("growth")
		o.GrowthRate = &v
	}
	if f.Changed("terminal") {
		v, _ := f.GetFloat64("terminal")
		o.TerminalGrowthRate = &v
	}
	if f.Changed("horizon") {
		v, _ := f.GetInt("horizon")
		o.HorizonYears = &v
	}
	if f.Changed("fade") {
		v, _ := f.GetBool("fade")
		o.GrowthFadeToTerminal = &v
	}
	if f.Changed("mid-year") {
		v, _ := f.GetBool("mid-year")
		o.MidYear = &v
	}
	if f.Changed("rate") {
		v, _ := f.GetFloat64("rate")
		o.DiscountRate = &v
	}
	return o
}

func newValuateCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "valuate <ticker> [ticker...]",
		Short: "Fetch fundamentals and run a DCF valuation",
		Example: `  stockcheck valuate AAPL
  stockcheck valuate MSFT --scenario growth --mid-year
  stockcheck valuate 005930.KS --rate 0.09
  stockcheck valuate AAPL MSFT GOOGL --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			app, err := rt.App(ctx)
			if err != nil {
				return err
			}
			scenario, _ := cmd.Flags().GetString("scenario")
			refresh, _ := cmd.Flags().GetBool("refresh")
			markdown, _ := cmd.Flags().GetBool("markdown")
			overrides := overridesFromFlags(cmd)

			reqs := make([]pipeline.Request, len(args))
			for i, t := range args {
				reqs[i] = pipeline.Request{Ticker: t, Scenario: scenario, Overrides: overrides, Refresh: refresh}
			}

			if len(reqs) == 1 {
				out, err := app.Pipeline.Run(ctx, reqs[0])
				if err != nil {
					return err
				}
				return printOutcome(output, out, markdown)
			}

			outcomes := app.Pipeline.RunBatch(ctx, reqs, app.Config.BatchLimit)
			if output.IsJSON() {
				return output.JSON(outcomes)
			}
			failed := 0
			for i := range outcomes {
				if outcomes[i].Err != nil {
					failed++
					output.Error("%s: %v", outcomes[i].Ticker, outcomes[i].Err)
					continue
				}
				if err := printOutcome(output, &outcomes[i], markdown); err != nil {
					return err
				}
				output.Println()
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d valuations failed", failed, len(outcomes))
			}
			return nil
		},
	}
	addOverrideFlags(cmd)
	cmd.Flags().Bool("refresh", false, "ignore cached fundamentals")
	cmd.Flags().Bool("markdown", false, "print the full Markdown report")
	return cmd
}

func printOutcome(output *Output, out *pipeline.Outcome, markdown bool) error {
	if output.IsJSON() {
		return output.JSON(out)
	}
	if markdown {
		output.Printf("%s", out.Markdown)
		return nil
	}

	f := out.Fundamentals
	name := f.Profile.Name
	if name == "" {
		name = out.Ticker
	}
	output.Bold("%s (%s) - scenario %s", name, out.Ticker, out.Scenario)
	if out.FromCache {
		output.Dim("fundamentals from cache")
	}
	printResult(output, f.Snapshot.Currency, f.Market.SharePrice, out.Result)
	return nil
}

func printResult(output *Output, currency string, price float64, r valuation.ValuationResult) {
	if r.LowConfidence {
		output.Warning("Low confidence: base free cash flow is not positive")
	}
	if r.RateSource == valuation.RateFallback {
		output.Warning("No beta published; fallback discount rate used")
	}
	output.Printf("  Discount rate    %.2f%% (%s)\n", r.WACCPercent(), r.RateSource)
	output.Printf("  Enterprise value %s\n", report.Money(currency, r.EnterpriseValue))
	output.Printf("  Equity value     %s\n", report.Money(currency, r.EquityValue))
	output.Printf("  Terminal share   %.1f%%\n", r.TerminalShare()*100)
	output.Printf("  Value per share  %s\n", report.Money(currency, r.ValuePerShare))
	if price > 0 {
		output.Printf("  Market price     %s\n", report.Money(currency, price))
		output.Signed(r.UpsidePercent, "  Upside           %+.2f%%", r.UpsidePercent)
	}
}

// dcfInput is the file format read by the dcf command.
type dcfInput struct {
	Snapshot    valuation.FinancialSnapshot `json:"snapshot"`
	Market      valuation.MarketData        `json:"market"`
	Assumptions valuation.Assumptions       `json:"assumptions"`
}

func readDCFInput(path string) (dcfInput, utils.Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dcfInput{}, "", err
	}
	if strings.EqualFold(filepath.Ext(path), ".hjson") {
		if data, err = utils.HJSONToJSON(data); err != nil {
			return dcfInput{}, "", err
		}
	}
	var in dcfInput
	strategy, err := utils.DecodeLenient(data, &in)
	if err != nil {
		return dcfInput{}, "", fmt.Errorf("decode %s: %w", path, err)
	}
	return in, strategy, nil
}

func newDCFCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dcf",
		Short: "Run a DCF valuation on inputs from a file",
		Long: `Value a company from a JSON file holding "snapshot", "market" and
"assumptions". Hand-edited files with comments, trailing commas or unquoted
keys are accepted.`,
		Example: `  stockcheck dcf --input config/sample_dcf.hjson
  stockcheck dcf --input inputs.json --markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path, _ := cmd.Flags().GetString("input")
			markdown, _ := cmd.Flags().GetBool("markdown")

			in, strategy, err := readDCFInput(path)
			if err != nil {
				return err
			}
			if _, err := rt.config(); err == nil && strategy != utils.StrategyJSON {
				rt.logger.Info().Str("strategy", string(strategy)).Msg("input decoded leniently")
			}

			res, err := valuation.Valuate(in.Snapshot, in.Market, in.Assumptions)
			if err != nil {
				return err
			}
			switch {
			case output.IsJSON():
				return output.JSON(res)
			case markdown:
				output.Printf("%s", report.Markdown(in.Snapshot.Ticker, in.Snapshot.Currency, res))
			default:
				output.Bold("%s", strings.ToUpper(in.Snapshot.Ticker))
				printResult(output, in.Snapshot.Currency, in.Market.SharePrice, res)
			}
			return nil
		},
	}
	cmd.Flags().StringP("input", "i", "", "input file (JSON or Hjson)")
	cmd.Flags().Bool("markdown", false, "print the full Markdown report")
	cmd.MarkFlagRequired("input")
	return cmd
}

func newSensitivityCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensitivity <ticker>",
		Short: "Value per share across discount and terminal growth rates",
		Example: `  stockcheck sensitivity AAPL
  stockcheck sensitivity MSFT --radius 3 --wacc-step 0.005`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			app, err := rt.App(ctx)
			if err != nil {
				return err
			}
			scenario, _ := cmd.Flags().GetString("scenario")
			waccStep, _ := cmd.Flags().GetFloat64("wacc-step")
			growthStep, _ := cmd.Flags().GetFloat64("growth-step")
			radius, _ := cmd.Flags().GetInt("radius")

			out, err := app.Pipeline.Run(ctx, pipeline.Request{Ticker: args[0], Scenario: scenario, Overrides: overridesFromFlags(cmd)})
			if err != nil {
				return err
			}
			base := out.Result
			table, err := valuation.Sensitivity(out.Fundamentals.Snapshot, out.Fundamentals.Market, base.Assumptions,
				valuation.Around(base.WACC, waccStep, radius),
				valuation.Around(base.Assumptions.TerminalGrowthRate, growthStep, radius))
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(table)
			}
			printSensitivity(output, out.Fundamentals.Snapshot.Currency, table)
			return nil
		},
	}
	addOverrideFlags(cmd)
	cmd.Flags().Float64("wacc-step", 0.01, "discount rate step between rows")
	cmd.Flags().Float64("growth-step", 0.005, "terminal growth step between columns")
	cmd.Flags().Int("radius", 2, "steps on each side of the base case")
	return cmd
}

func printSensitivity(output *Output, currency string, table valuation.SensitivityTable) {
	output.Printf("%-10s", "WACC \\ g")
	for _, g := range table.TerminalGrowths {
		output.Printf("%16s", fmt.Sprintf("%.2f%%", g*100))
	}
	output.Println()
	for i, w := range table.WACCs {
		output.Printf("%-10s", fmt.Sprintf("%.2f%%", w*100))
		for _, cell := range table.Cells[i] {
			if !cell.Valid {
				output.Printf("%16s", "n/a")
				continue
			}
			output.Printf("%16s", report.Money(currency, cell.ValuePerShare))
		}
		output.Println()
	}
}

func newHistoryCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <ticker>",
		Short: "List saved valuation runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			app, err := rt.App(cmd.Context())
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			records, err := app.Repo.ListByTicker(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(records)
			}
			if len(records) == 0 {
				output.Dim("no saved runs for %s", strings.ToUpper(args[0]))
				return nil
			}
			for _, rec := range records {
				output.Printf("%s  %-12s  %8.2f%%  %14.2f  %s\n",
					rec.CreatedAt.Local().Format("2006-01-02 15:04"), rec.Scenario,
					rec.Result.WACCPercent(), rec.Result.ValuePerShare, rec.ID)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "maximum runs to list")
	return cmd
}

func newScenariosCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the configured valuation scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg, err := rt.config()
			if err != nil {
				return err
			}
			book, err := assumption.LoadOrDefault(cfg.ScenarioFile)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				data, err := book.ToJSON()
				if err != nil {
					return err
				}
				output.Printf("%s\n", data)
				return nil
			}
			for _, name := range book.Names() {
				s, _ := book.Get(name)
				marker := " "
				if name == book.Active() {
					marker = "*"
				}
				output.Printf("%s %-14s g=%.2f%% gT=%.2f%% N=%d fade=%v mid-year=%v  %s\n",
					marker, name, s.GrowthRate*100, s.TerminalGrowthRate*100,
					s.WithDefaults().HorizonYears, s.GrowthFadeToTerminal, s.MidYear, s.Description)
			}
			return nil
		},
	}
}

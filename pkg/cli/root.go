package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stockcheckertool/pkg/core/config"
	"stockcheckertool/pkg/core/logging"
)

const Version = "0.1.0"

// runtime loads the configuration and builds the App on first use, after
// the persistent flags have been parsed.
type runtime struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger zerolog.Logger
	app    *App
}

func (r *runtime) config() (config.Config, error) {
	if r.cfg != nil {
		return *r.cfg, nil
	}
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if r.debug {
		cfg.Log.Level = "debug"
	}
	r.cfg = &cfg
	r.logger = logging.New(cfg.Log)
	return cfg, nil
}

func (r *runtime) App(ctx context.Context) (*App, error) {
	if r.app != nil {
		return r.app, nil
	}
	cfg, err := r.config()
	if err != nil {
		return nil, err
	}
	app, err := NewApp(ctx, cfg, r.logger)
	if err != nil {
		return nil, err
	}
	r.app = app
	return app, nil
}

func (r *runtime) close() {
	if r.app != nil {
		r.app.Close()
	}
}

// NewRootCmd creates the stockcheck root command.
func NewRootCmd() *cobra.Command {
	rt := &runtime{}

	rootCmd := &cobra.Command{
		Use:   "stockcheck",
		Short: "Stock checker - DCF valuation, indicators and news",
		Long: `stockcheck values listed companies with a discounted cash flow model.

Fundamentals and prices come from Yahoo Finance. The discount rate is the
company's WACC (CAPM cost of equity, after-tax cost of debt, market-value
weights) unless a scenario or flag supplies one.

Use 'stockcheck help <command>' for more information about a command.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&rt.configPath, "config", config.DefaultPath, "path to app.yaml")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&rt.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newValuateCmd(rt))
	rootCmd.AddCommand(newDCFCmd(rt))
	rootCmd.AddCommand(newSensitivityCmd(rt))
	rootCmd.AddCommand(newHistoryCmd(rt))
	rootCmd.AddCommand(newScenariosCmd(rt))
	rootCmd.AddCommand(newIndicatorsCmd(rt))
	rootCmd.AddCommand(newNewsCmd(rt))
	rootCmd.AddCommand(newRatingsCmd(rt))
	rootCmd.AddCommand(newServeCmd(rt))

	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

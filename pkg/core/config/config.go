// Package config loads the application settings from config/app.yaml and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"stockcheckertool/pkg/core/logging"
)

// DefaultPath is where the CLI and API look for settings.
const DefaultPath = "config/app.yaml"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Market   MarketConfig   `yaml:"market"`
	Defaults MarketDefaults `yaml:"defaults"`
	Log      logging.Config `yaml:"log"`

	CacheDir     string `yaml:"cache_dir"`
	ScenarioFile string `yaml:"scenario_file"`
	BatchLimit   int    `yaml:"batch_limit"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// MarketConfig describes the Yahoo Finance endpoints.
type MarketConfig struct {
	BaseURL    string        `yaml:"base_url"`
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// MarketDefaults fill in inputs the data source does not publish.
type MarketDefaults struct {
	RiskFreeRate      float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
	EquityRiskPremium float64 `yaml:"equity_risk_premium" json:"equity_risk_premium"`
	TaxRate           float64 `yaml:"tax_rate" json:"tax_rate"`
	CostOfDebt        float64 `yaml:"cost_of_debt" json:"cost_of_debt"`

	// FallbackDiscountRate is used when beta is missing and WACC cannot
	// be estimated. Zero disables the fallback.
	FallbackDiscountRate float64 `yaml:"fallback_discount_rate" json:"fallback_discount_rate"`
}

// Default returns the settings used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Market: MarketConfig{
			BaseURL:    "https://query2.finance.yahoo.com",
			UserAgent:  "Mozilla/5.0 (compatible; stockcheck/1.0)",
			Timeout:    10 * time.Second,
			Retries:    3,
			RetryDelay: 500 * time.Millisecond,
		},
		Defaults: MarketDefaults{
			RiskFreeRate:      0.0425,
			EquityRiskPremium: 0.05,
			TaxRate:           0.21,
			CostOfDebt:        0.045,

			FallbackDiscountRate: 0.10,
		},
		Log:          logging.DefaultConfig(),
		CacheDir:     ".cache/market",
		ScenarioFile: "config/scenarios.yaml",
		BatchLimit:   4,
	}
}

// Load reads .env (if any), the YAML file at path (if it exists) and the
// environment overrides, in that order.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("STOCKCHECK_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("STOCKCHECK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STOCKCHECK_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("STOCKCHECK_RISK_FREE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Defaults.RiskFreeRate = f
		}
	}
}

// Validate rejects settings the valuation pipeline cannot run with.
func (c Config) Validate() error {
	if c.Defaults.TaxRate < 0 || c.Defaults.TaxRate >= 1 {
		return fmt.Errorf("defaults.tax_rate must be in [0, 1), got %g", c.Defaults.TaxRate)
	}
	if c.Defaults.EquityRiskPremium < 0 {
		return fmt.Errorf("defaults.equity_risk_premium must not be negative, got %g", c.Defaults.EquityRiskPremium)
	}
	if c.Defaults.CostOfDebt < 0 {
		return fmt.Errorf("defaults.cost_of_debt must not be negative, got %g", c.Defaults.CostOfDebt)
	}
	if c.Defaults.FallbackDiscountRate < 0 || c.Defaults.FallbackDiscountRate >= 1 {
		return fmt.Errorf("defaults.fallback_discount_rate must be in [0, 1), got %g", c.Defaults.FallbackDiscountRate)
	}
	if c.Market.Retries < 0 {
		return fmt.Errorf("market.retries must not be negative, got %d", c.Market.Retries)
	}
	if c.BatchLimit < 1 {
		return fmt.Errorf("batch_limit must be at least 1, got %d", c.BatchLimit)
	}
	return nil
}

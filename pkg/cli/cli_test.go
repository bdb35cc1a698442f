package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcheckertool/pkg/core/utils"
	"stockcheckertool/pkg/core/valuation"
)

func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios.yaml")
	require.NoError(t, os.WriteFile(scenarios, []byte(`active: base
scenarios:
  base:
    description: Flat growth
    growth_rate: 0.03
    terminal_growth_rate: 0.02
  growth:
    growth_rate: 0.12
    terminal_growth_rate: 0.03
    horizon_years: 10
    growth_fade_to_terminal: true
`), 0644))

	path := filepath.Join(dir, "app.yaml")
	body := "log:\n  level: error\n  console: false\n  file_path: \"\"\n" +
		"cache_dir: " + filepath.Join(dir, "cache") + "\n" +
		"scenario_file: " + scenarios + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const hjsonInput = `{
  # reference company
  snapshot: {
    ticker: exm
    operating_income: 1000
    tax_rate: 0.25
    depreciation_amortization: 100
    capital_expenditures: 150
    change_in_working_capital: 50
    total_debt: 500
    cash_and_equivalents: 200
    shares_outstanding: 1000
  }
  market: { share_price: 9.5 }
  assumptions: {
    growth_rate: 0.03
    terminal_growth_rate: 0.02
    horizon_years: 5
    discount_rate: 0.10
  }
}`

func TestDCFCommand_LenientInput(t *testing.T) {
	input := filepath.Join(t.TempDir(), "exm.hjson")
	require.NoError(t, os.WriteFile(input, []byte(hjsonInput), 0644))

	out, err := run(t, "--config", testConfig(t), "dcf", "--input", input, "--json")
	require.NoError(t, err, out)

	var res valuation.ValuationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InEpsilon(t, 8.34523238521105, res.ValuePerShare, 1e-6)
	assert.Equal(t, valuation.RateOverride, res.RateSource)
}

func TestDCFCommand_TextAndMarkdown(t *testing.T) {
	input := filepath.Join(t.TempDir(), "exm.hjson")
	require.NoError(t, os.WriteFile(input, []byte(hjsonInput), 0644))
	cfg := testConfig(t)

	out, err := run(t, "--config", cfg, "dcf", "--input", input)
	require.NoError(t, err, out)
	assert.Contains(t, out, "EXM")
	assert.Contains(t, out, "Value per share  $8.35")

	out, err = run(t, "--config", cfg, "dcf", "--input", input, "--markdown")
	require.NoError(t, err, out)
	assert.Contains(t, out, "# EXM DCF Valuation")
}

func TestDCFCommand_Errors(t *testing.T) {
	_, err := run(t, "dcf")
	assert.Error(t, err, "--input is required")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"snapshot": {"shares_outstanding": 0}, "assumptions": {"growth_rate": 0.03, "terminal_growth_rate": 0.02, "discount_rate": 0.1}}`), 0644))
	_, err = run(t, "--config", testConfig(t), "dcf", "--input", bad)
	assert.ErrorIs(t, err, valuation.ErrInvalidInput)
}

func TestScenariosCommand(t *testing.T) {
	out, err := run(t, "--config", testConfig(t), "scenarios")
	require.NoError(t, err, out)
	assert.Contains(t, out, "* base")
	assert.Contains(t, out, "N=10 fade=true")
}

func TestOverridesFromFlags_OnlyChanged(t *testing.T) {
	cmd := newValuateCmd(&runtime{})
	require.NoError(t, cmd.ParseFlags([]string{"--growth", "0.07", "--mid-year"}))

	o := overridesFromFlags(cmd)
	require.NotNil(t, o.GrowthRate)
	assert.Equal(t, 0.07, *o.GrowthRate)
	require.NotNil(t, o.MidYear)
	assert.True(t, *o.MidYear)
	assert.Nil(t, o.TerminalGrowthRate)
	assert.Nil(t, o.DiscountRate)
}

func TestReadDCFInput_TrailingCommaKeepsValuation(t *testing.T) {
	strict := `{
  "snapshot": {"ticker": "EXM", "operating_income": 1000, "tax_rate": 0.25,
    "depreciation_amortization": 100, "capital_expenditures": 150,
    "change_in_working_capital": 50, "total_debt": 500,
    "cash_and_equivalents": 200, "shares_outstanding": 1000},
  "market": {"share_price": 9.5},
  "assumptions": {"growth_rate": 0.07, "terminal_growth_rate": 0.025,
    "horizon_years": 5, "discount_rate": 0.093}
}`
	sloppy := strings.Replace(strict, `"discount_rate": 0.093}`, `"discount_rate": 0.093,},`, 1)
	require.NotEqual(t, strict, sloppy)

	dir := t.TempDir()
	strictPath := filepath.Join(dir, "strict.json")
	sloppyPath := filepath.Join(dir, "sloppy.json")
	require.NoError(t, os.WriteFile(strictPath, []byte(strict), 0644))
	require.NoError(t, os.WriteFile(sloppyPath, []byte(sloppy), 0644))

	a, strategy, err := readDCFInput(strictPath)
	require.NoError(t, err)
	assert.Equal(t, utils.StrategyJSON, strategy)
	b, strategy, err := readDCFInput(sloppyPath)
	require.NoError(t, err)
	assert.NotEqual(t, utils.StrategyJSON, strategy)

	assert.Equal(t, 0.07, b.Assumptions.GrowthRate)
	assert.Equal(t, a, b)

	ra, err := valuation.Valuate(a.Snapshot, a.Market, a.Assumptions)
	require.NoError(t, err)
	rb, err := valuation.Valuate(b.Snapshot, b.Market, b.Assumptions)
	require.NoError(t, err)
	assert.Equal(t, ra.ValuePerShare, rb.ValuePerShare)
	assert.Equal(t, ra.EnterpriseValue, rb.EnterpriseValue)
}

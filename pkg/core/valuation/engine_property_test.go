package valuation

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func propertyParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())
	return parameters
}

// WACC is a weighted mean, so it lies between the two component costs.
func TestProperty_WACCBetweenComponentCosts(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("WACC lies within [min(Ke, Kd), max(Ke, Kd)] and (0, 1)", prop.ForAll(
		func(beta, rf, erp, kd, tax, debt float64) bool {
			s := referenceSnapshot()
			s.TaxRate = tax
			s.TotalDebt = debt
			m := MarketData{SharePrice: 10, RiskFreeRate: rf, EquityRiskPremium: erp, Beta: beta, CostOfDebt: kd}

			cs, err := NewCapitalStructure(s, m)
			if err != nil {
				return false
			}
			w, err := EstimateWACC(m, cs)
			if err != nil {
				return false
			}
			if math.Abs(w.WeightEquity+w.WeightDebt-1) > WeightTolerance {
				return false
			}
			lo := math.Min(w.CostOfEquity, w.CostOfDebt)
			hi := math.Max(w.CostOfEquity, w.CostOfDebt)
			return w.WACC >= lo-1e-12 && w.WACC <= hi+1e-12 && w.WACC > 0 && w.WACC < 1
		},
		gen.Float64Range(0.3, 2.5),
		gen.Float64Range(0.001, 0.06),
		gen.Float64Range(0.03, 0.08),
		gen.Float64Range(0.02, 0.12),
		gen.Float64Range(0, 0.4),
		gen.Float64Range(0, 50000),
	))

	properties.TestingRun(t)
}

func TestProperty_TerminalGrowthAtOrAboveRateRejected(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("terminal growth >= discount rate is an invalid input", prop.ForAll(
		func(wacc, spread float64) bool {
			a := referenceAssumptions()
			a.DiscountRate = rate(wacc)
			a.TerminalGrowthRate = wacc + spread

			res, err := Valuate(referenceSnapshot(), referenceMarket(), a)
			var ie *InvalidInputError
			if !errors.As(err, &ie) {
				return false
			}
			return ie.Field == "terminal_growth_rate" && reflect.DeepEqual(res, ValuationResult{})
		},
		gen.Float64Range(0.01, 0.2),
		gen.Float64Range(0, 0.1),
	))

	properties.TestingRun(t)
}

func TestProperty_ValuateIsDeterministic(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("same inputs give the same result", prop.ForAll(
		func(growth, terminal, wacc float64, horizon int, fade, midYear bool) bool {
			a := Assumptions{
				GrowthRate:           growth,
				TerminalGrowthRate:   terminal,
				HorizonYears:         horizon,
				GrowthFadeToTerminal: fade,
				MidYear:              midYear,
				DiscountRate:         rate(wacc),
			}
			first, err1 := Valuate(referenceSnapshot(), referenceMarket(), a)
			second, err2 := Valuate(referenceSnapshot(), referenceMarket(), a)
			if err1 != nil || err2 != nil {
				return false
			}
			return reflect.DeepEqual(first, second)
		},
		gen.Float64Range(-0.2, 0.3),
		gen.Float64Range(-0.02, 0.03),
		gen.Float64Range(0.05, 0.2),
		gen.IntRange(1, 15),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_BridgeIdentities(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("EV = ΣPV + PV(TV) and equity = EV - debt + cash", prop.ForAll(
		func(debt, cash, wacc float64) bool {
			s := referenceSnapshot()
			s.TotalDebt = debt
			s.CashAndEquivalents = cash
			a := referenceAssumptions()
			a.DiscountRate = rate(wacc)

			res, err := Valuate(s, referenceMarket(), a)
			if err != nil {
				return false
			}
			var sum float64
			for _, y := range res.Projection {
				sum += y.PresentValue
			}
			tol := 1e-9 * math.Max(1, math.Abs(res.EnterpriseValue))
			return math.Abs(sum-res.SumPVCashFlows) <= tol &&
				math.Abs(res.SumPVCashFlows+res.PVTerminalValue-res.EnterpriseValue) <= tol &&
				math.Abs(res.EnterpriseValue-debt+cash-res.EquityValue) <= tol &&
				math.Abs(res.EquityValue/s.SharesOutstanding-res.ValuePerShare) <= tol
		},
		gen.Float64Range(0, 10000),
		gen.Float64Range(0, 10000),
		gen.Float64Range(0.03, 0.25),
	))

	properties.TestingRun(t)
}

func TestProperty_HigherRateLowersValue(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("with positive cash flows EV falls as the discount rate rises", prop.ForAll(
		func(wacc, bump float64) bool {
			low := referenceAssumptions()
			low.DiscountRate = rate(wacc)
			high := referenceAssumptions()
			high.DiscountRate = rate(wacc + bump)

			a, err1 := Valuate(referenceSnapshot(), referenceMarket(), low)
			b, err2 := Valuate(referenceSnapshot(), referenceMarket(), high)
			if err1 != nil || err2 != nil {
				return false
			}
			return b.EnterpriseValue < a.EnterpriseValue
		},
		gen.Float64Range(0.03, 0.2),
		gen.Float64Range(0.001, 0.05),
	))

	properties.TestingRun(t)
}

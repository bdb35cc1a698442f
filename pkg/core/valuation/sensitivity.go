package valuation

import (
	"errors"
)

// SensitivityCell is one (discount rate, terminal growth) combination.
type SensitivityCell struct {
	WACC           float64 `json:"wacc"`
	TerminalGrowth float64 `json:"terminal_growth"`
	ValuePerShare  float64 `json:"value_per_share"`
	Valid          bool    `json:"valid"`
	Reason         string  `json:"reason,omitempty"`
}

// SensitivityTable holds rows by discount rate and columns by terminal growth.
type SensitivityTable struct {
	WACCs           []float64           `json:"waccs"`
	TerminalGrowths []float64           `json:"terminal_growths"`
	Cells           [][]SensitivityCell `json:"cells"`
}

// Sensitivity re-runs Valuate with every pairing of discount rate and
// terminal growth. Combinations the engine rejects are marked invalid
// instead of failing the whole table; other input errors are returned.
func Sensitivity(snapshot FinancialSnapshot, market MarketData, base Assumptions, waccs, terminalGrowths []float64) (SensitivityTable, error) {
	base = base.WithDefaults()
	if err := base.Validate(); err != nil {
		return SensitivityTable{}, err
	}
	if len(waccs) == 0 {
		return SensitivityTable{}, invalid("waccs", 0, "at least one discount rate is required")
	}
	if len(terminalGrowths) == 0 {
		return SensitivityTable{}, invalid("terminal_growths", 0, "at least one terminal growth rate is required")
	}

	table := SensitivityTable{
		WACCs:           append([]float64(nil), waccs...),
		TerminalGrowths: append([]float64(nil), terminalGrowths...),
		Cells:           make([][]SensitivityCell, len(waccs)),
	}
	for i, w := range waccs {
		row := make([]SensitivityCell, len(terminalGrowths))
		for j, g := range terminalGrowths {
			a := base
			rate := w
			a.DiscountRate = &rate
			a.TerminalGrowthRate = g

			cell := SensitivityCell{WACC: w, TerminalGrowth: g}
			res, err := Valuate(snapshot, market, a)
			if err != nil {
				var ie *InvalidInputError
				if !errors.As(err, &ie) || !cellLevel(ie.Field) {
					return SensitivityTable{}, err
				}
				cell.Reason = ie.Error()
			} else {
				cell.ValuePerShare = res.ValuePerShare
				cell.Valid = true
			}
			row[j] = cell
		}
		table.Cells[i] = row
	}
	return table, nil
}

// cellLevel reports whether an error is caused by the grid point itself
// rather than by the shared inputs.
func cellLevel(field string) bool {
	switch field {
	case "wacc", "discount_rate", "terminal_growth_rate", "growth_rate":
		return true
	}
	return false
}

// Around returns 2*radius+1 evenly spaced values centred on center.
func Around(center, step float64, radius int) []float64 {
	if radius < 0 {
		radius = 0
	}
	out := make([]float64, 0, 2*radius+1)
	for i := -radius; i <= radius; i++ {
		out = append(out, center+float64(i)*step)
	}
	return out
}

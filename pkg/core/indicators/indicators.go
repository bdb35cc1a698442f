// Package indicators computes the technical overlays shown next to a
// valuation: SMA 20/50, RSI 14 and the default MACD (12/26/9).
package indicators

import (
	"errors"
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
)

const (
	ShortSMAPeriod = 20
	LongSMAPeriod  = 50
	RSIPeriod      = 14
	MACDFast       = 12
	MACDSlow       = 26
	MACDSignal     = 9
)

// ErrNoData is returned for an empty price series.
var ErrNoData = errors.New("no closing prices")

// Series is an indicator aligned to the input: Values[i] belongs to
// closes[Offset+i]. A series the input is too short for is empty.
type Series struct {
	Offset int       `json:"offset"`
	Values []float64 `json:"values"`
}

// Last returns the most recent value.
func (s Series) Last() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}

// At returns the value for input index i.
func (s Series) At(i int) (float64, bool) {
	j := i - s.Offset
	if j < 0 || j >= len(s.Values) {
		return 0, false
	}
	return s.Values[j], true
}

// Set holds every computed indicator.
type Set struct {
	SMA20      Series `json:"sma_20"`
	SMA50      Series `json:"sma_50"`
	RSI14      Series `json:"rsi_14"`
	MACD       Series `json:"macd"`
	MACDSignal Series `json:"macd_signal"`
}

// Compute runs all indicators over closes (oldest first).
func Compute(closes []float64) (Set, error) {
	if len(closes) == 0 {
		return Set{}, ErrNoData
	}
	for _, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Set{}, errors.New("closing prices must be finite")
		}
	}

	var set Set
	set.SMA20 = sma(closes, ShortSMAPeriod)
	set.SMA50 = sma(closes, LongSMAPeriod)
	set.RSI14 = rsi(closes, RSIPeriod)
	set.MACD, set.MACDSignal = macd(closes)
	return set, nil
}

func aligned(n int, values []float64) Series {
	return Series{Offset: n - len(values), Values: values}
}

func sma(closes []float64, period int) Series {
	if len(closes) < period {
		return Series{Offset: len(closes)}
	}
	ind := trend.NewSmaWithPeriod[float64](period)
	return aligned(len(closes), helper.ChanToSlice(ind.Compute(helper.SliceToChan(closes))))
}

func rsi(closes []float64, period int) Series {
	if len(closes) < period+1 {
		return Series{Offset: len(closes)}
	}
	ind := momentum.NewRsiWithPeriod[float64](period)
	return aligned(len(closes), helper.ChanToSlice(ind.Compute(helper.SliceToChan(closes))))
}

func macd(closes []float64) (Series, Series) {
	if len(closes) < MACDSlow+MACDSignal-1 {
		empty := Series{Offset: len(closes)}
		return empty, empty
	}
	ind := trend.NewMacd[float64]()
	macdCh, signalCh := ind.Compute(helper.SliceToChan(closes))

	// Both outputs share one upstream; they must be drained together.
	done := make(chan []float64)
	go func() { done <- helper.ChanToSlice(signalCh) }()
	line := helper.ChanToSlice(macdCh)
	signal := <-done

	return aligned(len(closes), line), aligned(len(closes), signal)
}

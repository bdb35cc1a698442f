package market

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Candle is one OHLCV bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchHistory returns daily (or interval) bars for the given range, e.g.
// range "1y" and interval "1d". Bars without a close are skipped.
func (c *Client) FetchHistory(ctx context.Context, ticker, rng, interval string) ([]Candle, error) {
	t, err := normalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if rng == "" {
		rng = "1y"
	}
	if interval == "" {
		interval = "1d"
	}

	var resp chartResponse
	q := url.Values{"range": {rng}, "interval": {interval}}
	if err := c.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(t), q, &resp); err != nil {
		return nil, fmt.Errorf("history %s: %w", t, err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("history %s: %s: %w", t, e.Description, ErrNotFound)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no historical data for %s: %w", t, ErrNotFound)
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	candles := make([]Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		cl := at(quote.Close, i)
		if cl <= 0 {
			continue
		}
		var vol int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			vol = *quote.Volume[i]
		}
		candles = append(candles, Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  cl,
			Volume: vol,
		})
	}
	return candles, nil
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}

// Closes extracts closing prices in order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

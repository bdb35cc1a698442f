// Package pipeline ties the market data client, the snapshot cache, the
// scenario book and the valuation engine into a single run per ticker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stockcheckertool/pkg/core/assumption"
	"stockcheckertool/pkg/core/logging"
	"stockcheckertool/pkg/core/market"
	"stockcheckertool/pkg/core/report"
	"stockcheckertool/pkg/core/store"
	"stockcheckertool/pkg/core/validate"
	"stockcheckertool/pkg/core/valuation"
)

// ErrNoDiscountRate is returned when the ticker has no beta, the request
// gives no discount rate and no fallback rate is configured.
var ErrNoDiscountRate = errors.New("no beta published and no discount rate available")

// FundamentalsFetcher loads valuation inputs for a ticker.
type FundamentalsFetcher interface {
	FetchFundamentals(ctx context.Context, ticker string) (market.Fundamentals, error)
}

// SnapshotStore caches fundamentals per (ticker, day).
type SnapshotStore interface {
	Get(ctx context.Context, ticker string, asOf time.Time) (market.Fundamentals, error)
	Save(ctx context.Context, f market.Fundamentals, asOf time.Time) error
}

// RecordStore persists finished runs.
type RecordStore interface {
	Save(ctx context.Context, rec *store.ValuationRecord) error
}

// Request describes one valuation run.
type Request struct {
	Ticker    string               `json:"ticker"`
	Scenario  string               `json:"scenario,omitempty"`
	Overrides assumption.Overrides `json:"overrides,omitempty"`

	// Refresh skips the snapshot cache lookup.
	Refresh bool `json:"refresh,omitempty"`
}

// Outcome is the result of one run. Err is set instead of Result when the
// run failed. RecordID is nil when the run was not persisted.
type Outcome struct {
	Ticker       string                    `json:"ticker"`
	Scenario     string                    `json:"scenario"`
	RecordID     *uuid.UUID                `json:"record_id,omitempty"`
	Fundamentals market.Fundamentals       `json:"fundamentals"`
	Result       valuation.ValuationResult `json:"result"`
	Checks       *validate.Report          `json:"checks,omitempty"`
	Markdown     string                    `json:"markdown"`
	FromCache    bool                      `json:"from_cache"`

	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

// Orchestrator runs the fetch, value, persist and report steps.
type Orchestrator struct {
	fetcher  FundamentalsFetcher
	cache    SnapshotStore
	repo     RecordStore
	book     *assumption.ScenarioBook
	fallback float64
	log      zerolog.Logger
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator. cache and repo are optional and
// can be set with SetCache and SetRepository.
func NewOrchestrator(fetcher FundamentalsFetcher, book *assumption.ScenarioBook, log zerolog.Logger) *Orchestrator {
	if book == nil {
		book = assumption.DefaultBook()
	}
	return &Orchestrator{
		fetcher: fetcher,
		book:    book,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetCache enables the snapshot cache.
func (o *Orchestrator) SetCache(c SnapshotStore) {
	o.cache = c
}

// SetRepository enables persistence of finished runs.
func (o *Orchestrator) SetRepository(r RecordStore) {
	o.repo = r
}

// SetFallbackDiscountRate sets the rate used for tickers without a beta.
// Zero disables the fallback.
func (o *Orchestrator) SetFallbackDiscountRate(rate float64) {
	o.fallback = rate
}

// Book returns the scenario book used to resolve assumptions.
func (o *Orchestrator) Book() *assumption.ScenarioBook {
	return o.book
}

// Run values a single ticker.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Outcome, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required: %w", market.ErrNotFound)
	}
	log := logging.WithTicker(o.log, ticker)
	start := o.now()

	scenario := req.Scenario
	if scenario == "" {
		scenario = o.book.Active()
	}
	assumptions, err := o.book.Resolve(scenario, req.Overrides)
	if err != nil {
		return nil, fmt.Errorf("resolve scenario %q: %w", scenario, err)
	}

	f, fromCache, err := o.fundamentals(ctx, ticker, req.Refresh, log)
	if err != nil {
		return nil, err
	}

	checks := validate.Fundamentals(f)
	for _, w := range checks.Warnings() {
		log.Warn().Msg(w)
	}

	fallbackUsed := false
	if !f.HasBeta && assumptions.DiscountRate == nil {
		if o.fallback <= 0 {
			return nil, fmt.Errorf("%s: %w", ticker, ErrNoDiscountRate)
		}
		rate := o.fallback
		assumptions.DiscountRate = &rate
		fallbackUsed = true
		log.Warn().Float64("rate", rate).Msg("no beta published, using fallback discount rate")
	}

	result, err := valuation.Valuate(f.Snapshot, f.Market, assumptions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ticker, err)
	}
	if fallbackUsed {
		result.RateSource = valuation.RateFallback
	}
	if result.LowConfidence {
		log.Warn().Float64("base_fcf", result.BaseFreeCashFlow).Msg("non-positive base free cash flow")
	}

	out := &Outcome{
		Ticker:       ticker,
		Scenario:     scenario,
		Fundamentals: f,
		Result:       result,
		Checks:       checks,
		Markdown:     report.WithWarnings(report.Markdown(ticker, f.Snapshot.Currency, result), checks.Warnings()),
		FromCache:    fromCache,
	}

	if o.repo != nil {
		rec := &store.ValuationRecord{Ticker: ticker, Scenario: scenario, Result: result}
		if err := o.repo.Save(ctx, rec); err != nil {
			log.Error().Err(err).Msg("failed to persist valuation run")
		} else {
			id := rec.ID
			out.RecordID = &id
		}
	}

	log.Info().
		Str("scenario", scenario).
		Float64("value_per_share", result.ValuePerShare).
		Float64("wacc", result.WACC).
		Bool("cached", fromCache).
		Dur("took", o.now().Sub(start)).
		Msg("valuation complete")
	return out, nil
}

func (o *Orchestrator) fundamentals(ctx context.Context, ticker string, refresh bool, log zerolog.Logger) (market.Fundamentals, bool, error) {
	day := o.now()

	if o.cache != nil && !refresh {
		f, err := o.cache.Get(ctx, ticker, day)
		if err == nil {
			log.Debug().Msg("snapshot cache hit")
			return f, true, nil
		}
		if !errors.Is(err, store.ErrCacheMiss) {
			log.Warn().Err(err).Msg("snapshot cache read failed")
		}
	}

	f, err := o.fetcher.FetchFundamentals(ctx, ticker)
	if err != nil {
		return market.Fundamentals{}, false, fmt.Errorf("fetch fundamentals: %w", err)
	}

	if o.cache != nil {
		if err := o.cache.Save(ctx, f, day); err != nil {
			log.Warn().Err(err).Msg("snapshot cache write failed")
		}
	}
	return f, false, nil
}

// RunBatch values every request with at most limit runs in flight. A failed
// ticker is reported in its Outcome and does not stop the others. Outcomes
// are returned in request order.
func (o *Orchestrator) RunBatch(ctx context.Context, reqs []Request, limit int) []Outcome {
	if limit < 1 {
		limit = 1
	}
	outcomes := make([]Outcome, len(reqs))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			out, err := o.Run(ctx, req)
			if err != nil {
				outcomes[i] = Outcome{
					Ticker:   strings.ToUpper(strings.TrimSpace(req.Ticker)),
					Scenario: req.Scenario,
					Err:      err,
					Error:    err.Error(),
				}
				return nil
			}
			outcomes[i] = *out
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

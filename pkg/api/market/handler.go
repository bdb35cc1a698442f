package market

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"stockcheckertool/pkg/api/respond"
	"stockcheckertool/pkg/core/indicators"
	coreMarket "stockcheckertool/pkg/core/market"
)

// Source is the market data the endpoints read.
type Source interface {
	FetchFundamentals(ctx context.Context, ticker string) (coreMarket.Fundamentals, error)
	FetchHistory(ctx context.Context, ticker, rng, interval string) ([]coreMarket.Candle, error)
	FetchNews(ctx context.Context, ticker string, limit int) ([]coreMarket.NewsItem, error)
	FetchRatings(ctx context.Context, ticker string, limit int) (coreMarket.Ratings, error)
}

// Handler serves the /api/market endpoints.
type Handler struct {
	Source Source
}

func NewHandler(src Source) *Handler {
	return &Handler{Source: src}
}

func tickerParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	t := strings.TrimSpace(r.URL.Query().Get("ticker"))
	if t == "" {
		respond.BadRequest(w, "ticker is required")
		return "", false
	}
	return t, true
}

func limitParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		respond.BadRequest(w, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

type IndicatorsResponse struct {
	Ticker  string              `json:"ticker"`
	Candles []coreMarket.Candle `json:"candles"`
	indicators.Set
}

// HandleIndicators: GET /api/market/indicators?ticker=&range=&interval=
func (h *Handler) HandleIndicators(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	ticker, ok := tickerParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	candles, err := h.Source.FetchHistory(r.Context(), ticker, q.Get("range"), q.Get("interval"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	set, err := indicators.Compute(coreMarket.Closes(candles))
	if err != nil {
		respond.JSON(w, http.StatusNotFound, respond.ErrorBody{Error: err.Error()})
		return
	}
	respond.JSON(w, http.StatusOK, IndicatorsResponse{Ticker: strings.ToUpper(ticker), Candles: candles, Set: set})
}

// HandleNews: GET /api/market/news?ticker=&limit=
func (h *Handler) HandleNews(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	ticker, ok := tickerParam(w, r)
	if !ok {
		return
	}
	limit, ok := limitParam(w, r, 10)
	if !ok {
		return
	}
	items, err := h.Source.FetchNews(r.Context(), ticker, limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if items == nil {
		items = []coreMarket.NewsItem{}
	}
	respond.JSON(w, http.StatusOK, items)
}

// HandleRatings: GET /api/market/ratings?ticker=&limit=
func (h *Handler) HandleRatings(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	ticker, ok := tickerParam(w, r)
	if !ok {
		return
	}
	limit, ok := limitParam(w, r, 10)
	if !ok {
		return
	}
	ratings, err := h.Source.FetchRatings(r.Context(), ticker, limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, ratings)
}

// HandleFundamentals: GET /api/market/fundamentals?ticker=
func (h *Handler) HandleFundamentals(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	ticker, ok := tickerParam(w, r)
	if !ok {
		return
	}
	f, err := h.Source.FetchFundamentals(r.Context(), ticker)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, f)
}

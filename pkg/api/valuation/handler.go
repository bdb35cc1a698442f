package valuation

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"stockcheckertool/pkg/api/respond"
	"stockcheckertool/pkg/core/pipeline"
	"stockcheckertool/pkg/core/report"
	"stockcheckertool/pkg/core/store"
	coreValuation "stockcheckertool/pkg/core/valuation"
)

// Runner is the part of the pipeline the handler needs.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, error)
}

// HistoryStore reads persisted runs.
type HistoryStore interface {
	Get(ctx context.Context, id uuid.UUID) (*store.ValuationRecord, error)
	ListByTicker(ctx context.Context, ticker string, limit int) ([]store.ValuationRecord, error)
}

// Handler serves the /api/valuation endpoints.
type Handler struct {
	Runner  Runner
	History HistoryStore
}

func NewHandler(runner Runner, history HistoryStore) *Handler {
	return &Handler{Runner: runner, History: history}
}

// DCFRequest carries raw inputs for a stateless valuation.
type DCFRequest struct {
	Snapshot    coreValuation.FinancialSnapshot `json:"snapshot"`
	Market      coreValuation.MarketData        `json:"market"`
	Assumptions coreValuation.Assumptions       `json:"assumptions"`
}

type DCFResponse struct {
	Result   coreValuation.ValuationResult `json:"result"`
	Markdown string                        `json:"markdown"`
}

// HandleDCF values the posted inputs without fetching anything.
func (h *Handler) HandleDCF(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DCFRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	res, err := coreValuation.Valuate(req.Snapshot, req.Market, req.Assumptions)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, DCFResponse{
		Result:   res,
		Markdown: report.Markdown(req.Snapshot.Ticker, req.Snapshot.Currency, res),
	})
}

type ReportResponse struct {
	*pipeline.Outcome
	HTML string `json:"html"`
}

// HandleValuationReport fetches market data for a ticker, values it under
// the requested scenario and returns the result with a rendered report.
func (h *Handler) HandleValuationReport(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pipeline.Request
	if !respond.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Ticker) == "" {
		respond.BadRequest(w, "ticker is required")
		return
	}

	out, err := h.Runner.Run(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	html, err := report.RenderHTML(out.Markdown)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, ReportResponse{Outcome: out, HTML: html})
}

// SensitivityRequest is a DCFRequest plus the grid axes. Empty axes default
// to five points around the base rate and terminal growth.
type SensitivityRequest struct {
	DCFRequest
	WACCs           []float64 `json:"waccs"`
	TerminalGrowths []float64 `json:"terminal_growths"`
}

// HandleSensitivity returns a per-share value grid.
func (h *Handler) HandleSensitivity(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SensitivityRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	waccs := req.WACCs
	if len(waccs) == 0 {
		base, err := coreValuation.Valuate(req.Snapshot, req.Market, req.Assumptions)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		waccs = coreValuation.Around(base.WACC, 0.01, 2)
	}
	growths := req.TerminalGrowths
	if len(growths) == 0 {
		growths = coreValuation.Around(req.Assumptions.TerminalGrowthRate, 0.005, 2)
	}

	table, err := coreValuation.Sensitivity(req.Snapshot, req.Market, req.Assumptions, waccs, growths)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, table)
}

// HandleHistory lists persisted runs: GET /api/valuation/history?ticker=X&limit=N
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	ticker := r.URL.Query().Get("ticker")
	if strings.TrimSpace(ticker) == "" {
		respond.BadRequest(w, "ticker is required")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respond.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	if h.History == nil {
		respond.JSON(w, http.StatusOK, []store.ValuationRecord{})
		return
	}
	records, err := h.History.ListByTicker(r.Context(), ticker, limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if records == nil {
		records = []store.ValuationRecord{}
	}
	respond.JSON(w, http.StatusOK, records)
}

// HandleRecord returns one persisted run: GET /api/valuation/history/{id}
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respond.BadRequest(w, "id must be a UUID")
		return
	}
	if h.History == nil {
		respond.Error(w, r, store.ErrRecordNotFound)
		return
	}
	rec, err := h.History.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

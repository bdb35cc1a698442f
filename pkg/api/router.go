// Package api wires the HTTP handlers into a single mux.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apiConfig "stockcheckertool/pkg/api/config"
	apiMarket "stockcheckertool/pkg/api/market"
	"stockcheckertool/pkg/api/respond"
	apiValuation "stockcheckertool/pkg/api/valuation"
)

// Handlers groups the endpoint handlers registered by NewRouter.
type Handlers struct {
	Valuation *apiValuation.Handler
	Market    *apiMarket.Handler
	Config    *apiConfig.Handler
}

// Routes lists the registered endpoints for the startup banner.
var Routes = []string{
	"GET  /healthz",
	"GET  /api/config",
	"POST /api/config/switch",
	"POST /api/valuation/dcf",
	"POST /api/valuation/report",
	"POST /api/valuation/sensitivity",
	"GET  /api/valuation/history",
	"GET  /api/valuation/history/{id}",
	"GET  /api/market/fundamentals",
	"GET  /api/market/indicators",
	"GET  /api/market/news",
	"GET  /api/market/ratings",
}

// NewRouter registers every endpoint and wraps the mux with request logging.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if h.Config != nil {
		mux.HandleFunc("/api/config", h.Config.HandleConfig)
		mux.HandleFunc("/api/config/switch", h.Config.HandleSwitch)
	}
	if h.Valuation != nil {
		mux.HandleFunc("/api/valuation/dcf", h.Valuation.HandleDCF)
		mux.HandleFunc("/api/valuation/report", h.Valuation.HandleValuationReport)
		mux.HandleFunc("/api/valuation/sensitivity", h.Valuation.HandleSensitivity)
		mux.HandleFunc("/api/valuation/history", h.Valuation.HandleHistory)
		mux.HandleFunc("/api/valuation/history/{id}", h.Valuation.HandleRecord)
	}
	if h.Market != nil {
		mux.HandleFunc("/api/market/fundamentals", h.Market.HandleFundamentals)
		mux.HandleFunc("/api/market/indicators", h.Market.HandleIndicators)
		mux.HandleFunc("/api/market/news", h.Market.HandleNews)
		mux.HandleFunc("/api/market/ratings", h.Market.HandleRatings)
	}

	return withLogging(mux, log)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging attaches a request-scoped logger to the context and logs
// each request once it completes.
func withLogging(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := log.With().Str("request_id", uuid.NewString()).Logger()
		r = r.WithContext(reqLog.WithContext(r.Context()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		reqLog.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

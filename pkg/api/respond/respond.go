// Package respond holds the JSON, CORS and error helpers shared by the
// HTTP handlers.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"stockcheckertool/pkg/core/logging"
	"stockcheckertool/pkg/core/market"
	"stockcheckertool/pkg/core/pipeline"
	"stockcheckertool/pkg/core/store"
	"stockcheckertool/pkg/core/valuation"
)

// ErrorBody is the JSON error payload.
type ErrorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// CORS sets the headers for local frontends and answers preflight
// requests. It returns true when the request has been handled.
func CORS(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, valuation.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNoDiscountRate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, market.ErrNotFound), errors.Is(err, store.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as JSON with the status from StatusFor.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := ErrorBody{Error: err.Error()}
	var invalid *valuation.InvalidInputError
	if errors.As(err, &invalid) {
		body.Field = invalid.Field
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	JSON(w, status, body)
}

// BadRequest writes a 400 for undecodable input.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, ErrorBody{Error: msg})
}

// Decode reads a JSON body into v, writing a 400 on failure.
func Decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

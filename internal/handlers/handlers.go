// Package handlers wires the HTTP surface: parameter parsing, response
// shaping and the mapping from service errors to status codes. Handlers stay
// thin; aggregation lives in internal/options and fetching in
// internal/services.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"optionsflow/backend-go/internal/config"
	"optionsflow/backend-go/internal/options"
	"optionsflow/backend-go/internal/services"
)

// API carries the shared dependencies every handler needs.
type API struct {
	cfg     config.Config
	cache   services.Cache
	chain   *services.ChainService
	deribit *services.DeribitClient
	binance *services.BinanceClient
}

func New(cfg config.Config, cache services.Cache) *API {
	deribit := services.NewDeribitClient(cfg)
	return &API{
		cfg:     cfg,
		cache:   cache,
		chain:   services.NewChainService(cfg, deribit, cache),
		deribit: deribit,
		binance: services.NewBinanceClient(cfg),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorw("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// timeboxed derives a request-scoped deadline so one slow upstream cannot
// hold a connection past the configured timeout.
func (a *API) timeboxed(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), a.cfg.RequestTimeout)
}

func parseIntParam(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return def
	}
	return v
}

// parseExpirationFilter reads the optional ?expiration=YYYY-MM-DD query
// parameter. Absent or "all" means the whole chain.
func parseExpirationFilter(r *http.Request) (options.ExpirationFilter, bool) {
	raw := r.URL.Query().Get("expiration")
	if raw == "" || raw == "all" {
		return options.AllExpirations(), true
	}
	date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return options.ExpirationFilter{}, false
	}
	return options.SingleExpiration(date), true
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

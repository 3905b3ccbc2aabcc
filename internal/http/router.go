// Package http assembles the server's routing table and middleware chain.
package http

import (
	"net/http"

	"optionsflow/backend-go/internal/config"
	"optionsflow/backend-go/internal/handlers"
	"optionsflow/backend-go/internal/metrics"
	"optionsflow/backend-go/internal/services"
)

// NewRouter builds the mux with every API route behind the shared
// middleware chain. Prometheus scraping stays outside the rate limiter.
func NewRouter(cfg config.Config, cache services.Cache) http.Handler {
	metrics.Register()
	api := handlers.New(cfg, cache)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", api.Health)
	mux.HandleFunc("GET /api/v1/data/{currency}", api.Data)
	mux.HandleFunc("GET /api/v1/expirations/{currency}", api.Expirations)
	mux.HandleFunc("GET /api/v1/consolidated-metrics/{symbol}", api.Consolidated)
	mux.HandleFunc("GET /api/v1/sentiment/{symbol}", api.Sentiment)
	mux.HandleFunc("GET /api/v1/funding-rate-history/{symbol}", api.FundingHistory)
	mux.HandleFunc("GET /api/v1/dvol-history/{currency}", api.DvolHistory)
	mux.HandleFunc("GET /api/v1/order-book/{symbol}", api.OrderBook)
	mux.Handle("GET /metrics", metrics.Handler())

	var h http.Handler = mux
	h = withRateLimit(h, cfg.RateLimitPerMin)
	h = withRequestID(h)
	h = withLogging(h)
	h = withRecovery(h)
	h = withMetrics(h)
	h = withCORS(h)
	return h
}

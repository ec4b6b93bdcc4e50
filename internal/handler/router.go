package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/mocktrader/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware. deviationThreshold is the
// default for GET /instruments/{isin}/deviation and should match the one
// trades are checked against. gatherer backs GET /metrics and may be nil to
// leave the endpoint out.
func NewRouter(
	marketSvc *service.MarketService,
	tradeSvc *service.TradeService,
	webhookSvc *service.WebhookService,
	deviationThreshold float64,
	gatherer prometheus.Gatherer,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	instrumentH := NewInstrumentHandler(marketSvc, deviationThreshold)
	tradeH := NewTradeHandler(tradeSvc)
	webhookH := NewWebhookHandler(webhookSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Instrument and market data routes.
	r.Get("/instruments", instrumentH.Search)
	r.Get("/instruments/{isin}", instrumentH.Get)
	r.Get("/instruments/{isin}/quote", instrumentH.GetQuote)
	r.Get("/instruments/{isin}/deviation", instrumentH.ValidateDeviation)

	// Trade lifecycle routes.
	r.Post("/trades", tradeH.Create)
	r.Get("/trades", tradeH.History)
	r.Get("/trades/{trade_id}", tradeH.Get)
	r.Post("/trades/{trade_id}/execute", tradeH.Execute)
	r.Post("/trades/{trade_id}/confirm", tradeH.Confirm)
	r.Post("/trades/{trade_id}/cancel", tradeH.Cancel)
	r.Get("/trades/{trade_id}/status", tradeH.VerifyStatus)

	// Webhook routes.
	r.Post("/webhooks", webhookH.Upsert)
	r.Get("/webhooks", webhookH.List)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	return r
}

// requestLogging returns middleware that tags each request with an
// X-Request-ID (reusing the caller's if present) and logs its method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON rejects POST, PUT, and PATCH requests whose Content-Type
// is not application/json with 400 before the handler runs. Bodyless
// POSTs (the trade transition routes) are let through.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if r.ContentLength != 0 && !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

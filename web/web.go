// Package web provides the patient-facing JSON API.
// Stateless design - sessions are JWT tokens, no server-side session
// storage.
package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/caregate/caregate/adapters/auth"
	"github.com/caregate/caregate/adapters/metrics"
	"github.com/caregate/caregate/app"
	"github.com/caregate/caregate/ports"
)

// Handler provides the JSON API endpoints.
type Handler struct {
	tokens    *auth.TokenService
	accounts  *app.AccountService
	ledger    *app.LedgerService
	chat      *app.ChatService
	profiles  *app.ProfileService
	payments  ports.PaymentProvider
	webhooks  ports.PaymentWebhookHandler
	metrics   *metrics.Collector
	logger    zerolog.Logger
	baseURL   string
	priceIDs  map[string]string // tier -> provider price ID
	startTime time.Time
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Accounts   *app.AccountService
	Ledger     *app.LedgerService
	Chat       *app.ChatService
	Profiles   *app.ProfileService
	Payments   ports.PaymentProvider
	Webhooks   ports.PaymentWebhookHandler
	Metrics    *metrics.Collector
	Logger     zerolog.Logger
	JWTSecret  string
	TokenTTL   time.Duration
	BaseURL    string            // public base URL for payment redirects
	PriceTiers map[string]string // provider price ID -> tier
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	// Config maps price IDs to tiers; checkout needs the reverse.
	priceIDs := make(map[string]string, len(deps.PriceTiers))
	for priceID, tier := range deps.PriceTiers {
		priceIDs[tier] = priceID
	}
	return &Handler{
		tokens:    auth.NewTokenService(deps.JWTSecret, deps.TokenTTL),
		accounts:  deps.Accounts,
		ledger:    deps.Ledger,
		chat:      deps.Chat,
		profiles:  deps.Profiles,
		payments:  deps.Payments,
		webhooks:  deps.Webhooks,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		baseURL:   deps.BaseURL,
		priceIDs:  priceIDs,
		startTime: time.Now(),
	}
}

// RouterOptions toggles optional endpoint groups.
type RouterOptions struct {
	Metrics     bool
	MetricsPath string
	OpenAPI     bool
}

// Router returns the API router.
func (h *Handler) Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	// Public endpoints
	r.Get("/healthz", h.Health)
	r.Get("/version", h.Version)
	r.Post("/api/register", h.Register)
	r.Post("/api/login", h.Login)
	r.Get("/api/plans", h.Plans)

	// Payment provider webhooks (signature-verified, not JWT)
	r.Post("/webhooks/payment", h.PaymentWebhook)

	if opts.Metrics {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	if opts.OpenAPI {
		r.Get("/openapi.json", h.OpenAPISpec)
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/openapi.json"),
		))
	}

	// Authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Get("/api/me", h.Me)
		r.Get("/api/usage", h.Usage)
		r.Get("/api/usage/history", h.UsageHistory)

		r.Get("/api/profile", h.ProfileGet)
		r.Put("/api/profile", h.ProfilePut)

		r.Post("/api/chat", h.ChatSend)
		r.Get("/api/conversations", h.Conversations)
		r.Get("/api/conversations/{id}/messages", h.ConversationMessages)

		r.Post("/api/billing/checkout", h.CreateCheckout)
		r.Post("/api/billing/portal", h.CreatePortal)
	})

	return r
}

// requestLogger logs each request with outcome and duration.
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		if h.metrics != nil {
			h.metrics.RequestsInFlight.Inc()
			defer h.metrics.RequestsInFlight.Dec()
		}

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		h.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", duration).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")

		if h.metrics != nil {
			status := strconv.Itoa(ww.Status())
			path := routePattern(r)
			h.metrics.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			h.metrics.RequestDuration.WithLabelValues(r.Method, path, status).Observe(duration.Seconds())
		}
	})
}

// routePattern returns the chi route pattern so metrics aren't
// exploded by per-resource path values.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// respond writes a JSON response body.
func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			h.logger.Error().Err(err).Msg("encode response")
		}
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondError writes a JSON error body.
func (h *Handler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respond(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// decode parses a JSON request body into dst.
func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"commentiq-monitor/internal/infra/logging"
	"commentiq-monitor/internal/usecase"
)

// RateLimiter is the slice of the redis limiter the server needs.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type VerifyLimits struct {
	Requests int
	Window   time.Duration
}

type Server struct {
	checkoutUC usecase.CheckoutUseCase
	trackerUC  usecase.TrackerUseCase
	monitorUC  usecase.MonitorUseCase
	balanceUC  usecase.BalanceUseCase
	limiter    RateLimiter
	limits     VerifyLimits
	auth       *AuthManager
	apiKey     string
	log        *zerolog.Logger
}

func NewServer(
	checkoutUC usecase.CheckoutUseCase,
	trackerUC usecase.TrackerUseCase,
	monitorUC usecase.MonitorUseCase,
	balanceUC usecase.BalanceUseCase,
	limiter RateLimiter,
	limits VerifyLimits,
	auth *AuthManager,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	slog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		checkoutUC: checkoutUC,
		trackerUC:  trackerUC,
		monitorUC:  monitorUC,
		balanceUC:  balanceUC,
		limiter:    limiter,
		limits:     limits,
		auth:       auth,
		apiKey:     apiKey,
		log:        &slog,
	}
}

// Routes builds the full router: browser-facing pages, the JSON API behind
// the bearer key, and the ops endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/success", s.handleSuccess)
	r.Get("/account/balance", s.handleBalancePage)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Get("/analyses/{id}", s.handleAnalysisGet)
		r.Get("/balance", s.handleBalanceGet)
		r.Route("/monitors", func(r chi.Router) {
			r.Get("/", s.handleMonitorsList)
			r.Post("/", s.handleMonitorCreate)
			r.Get("/{id}", s.handleMonitorGet)
			r.Delete("/{id}", s.handleMonitorDelete)
		})
	})
	return r
}

// requireAPIKey provides simple Bearer token authentication for the JSON API.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogger tags the request context with chi's request id so every
// downstream log line carries the same trace_id.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/codequest/leaderboard/internal/app"
	"github.com/codequest/leaderboard/internal/domain/model"
	"github.com/codequest/leaderboard/pkg/logger"
	"github.com/codequest/leaderboard/pkg/metrics"
)

const defaultRequestTimeout = 15 * time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit persists a finished quiz.
	Submit(ctx context.Context, in model.QuizResultInput) (model.QuizResult, error)

	// List returns the ranked leaderboard.
	List(ctx context.Context) ([]model.LeaderboardEntry, error)

	// Status reports which storage backends are in use.
	Status(ctx context.Context) service.StorageStatus
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	resultsHandler     *ResultsHandler
	leaderboardHandler *LeaderboardHandler
	statusHandler      *StatusHandler

	requestTimeout time.Duration
	allowedOrigins []string
	logger         logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRequestTimeout bounds each request's context.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithAllowedOrigins sets the CORS origins allowed to call the API.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		resultsHandler:     NewResultsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		statusHandler:      NewStatusHandler(deps),
		requestTimeout:     defaultRequestTimeout,
		allowedOrigins:     []string{"*"},
		logger:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes and the middleware stack to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Use(requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(loggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.MethodNotAllowed(MetricsMiddleware(handleMethodNotAllowed, "method_not_allowed"))
	r.NotFound(MetricsMiddleware(handleNotFound, "not_found"))

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	r.Get("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	r.Post("/results", MetricsMiddleware(s.resultsHandler.HandlePostResult, "results"))
	r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
}

// Router returns a new chi router with every route registered.
func (s *Server) Router(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", nil)
}

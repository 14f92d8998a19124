package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/config"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/pipeline"
)

// Runner executes pipeline runs.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Report, error)
	Preview(ctx context.Context) (*pipeline.Report, error)
}

// RunLister lists archived runs for a day.
type RunLister interface {
	List(ctx context.Context, day time.Time) ([]string, error)
}

// Server holds the HTTP handlers and their dependencies
type Server struct {
	config  *config.Config
	runner  Runner
	archive RunLister
	logger  *slog.Logger
}

// NewServer creates a new HTTP server. archive may be nil.
func NewServer(cfg *config.Config, runner Runner, archive RunLister, logger *slog.Logger) *Server {
	return &Server{
		config:  cfg,
		runner:  runner,
		archive: archive,
		logger:  logging.Section(logger, logging.SectionServer),
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.corsMiddleware)
	api.Use(s.loggingMiddleware)

	api.HandleFunc("/health", s.healthHandler).Methods("GET")
	api.HandleFunc("/config", s.configHandler).Methods("GET")

	// Triggers
	api.Handle("/run", s.authMiddleware(http.HandlerFunc(s.runHandler))).Methods("POST")
	api.Handle("/preview", s.authMiddleware(http.HandlerFunc(s.previewHandler))).Methods("GET")
	api.Handle("/runs", s.authMiddleware(http.HandlerFunc(s.runsHandler))).Methods("GET")

	return r
}

// TriggerRun starts a run outside of a request, as the scheduler does.
func (s *Server) TriggerRun(ctx context.Context) {
	report, err := s.runner.Run(ctx)
	s.logger.Info("scheduled run finished", "run_id", runID(report), "exit_code", pipeline.ExitCode(err))
}

func runID(report *pipeline.Report) string {
	if report == nil {
		return ""
	}
	return report.RunID
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
		)
	})
}

// authMiddleware requires a bearer token matching RUN_AUTH_TOKEN. Without a
// configured token the protected routes are closed.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, msg := Authorize(r, s.config.RunAuthToken); status != http.StatusOK {
			writeError(w, status, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Authorize checks the request's bearer token against want and returns the
// HTTP status to answer with: 200 when allowed, 503 when no token is
// configured, 401 for a missing or malformed header and 403 for a mismatch.
func Authorize(r *http.Request, want string) (int, string) {
	if want == "" {
		return http.StatusServiceUnavailable, "run triggers are disabled: RUN_AUTH_TOKEN is not set"
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return http.StatusUnauthorized, "missing Authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return http.StatusUnauthorized, "invalid Authorization header format"
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(want)) != 1 {
		return http.StatusForbidden, "invalid token"
	}
	return http.StatusOK, ""
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

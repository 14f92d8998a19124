package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/pipeline"
)

const version = "v1.0.0"

type errorResponse struct {
	Error string `json:"error"`
}

type runResponse struct {
	Status   string           `json:"status"`
	ExitCode int              `json:"exit_code"`
	Report   *pipeline.Report `json:"report,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps a run error to an HTTP status. Upstream provider failures
// are reported as 502.
func statusFor(err error) int {
	switch pipeline.ExitCode(err) {
	case pipeline.ExitOK:
		return http.StatusOK
	case pipeline.ExitSourceUnavailable, pipeline.ExitGenerationUnavailable, pipeline.ExitPublishFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// healthHandler provides health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"version":   version,
	})
}

// configHandler returns the configuration without credentials
func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"config": s.config,
		"model":  s.config.Model(),
	})
}

// runHandler executes a full run and returns its report
func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.runner.Run(r.Context())
	s.writeRun(w, report, err)
}

// previewHandler fetches and summarizes without publishing
func (s *Server) previewHandler(w http.ResponseWriter, r *http.Request) {
	report, err := s.runner.Preview(r.Context())
	s.writeRun(w, report, err)
}

func (s *Server) writeRun(w http.ResponseWriter, report *pipeline.Report, err error) {
	resp := runResponse{
		Status:   "success",
		ExitCode: pipeline.ExitCode(err),
		Report:   report,
	}
	if err != nil {
		resp.Status = "failed"
		resp.Error = err.Error()
	}
	writeJSON(w, statusFor(err), resp)
}

// runsHandler lists archived runs for ?date=YYYY-MM-DD (today by default)
func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "run archive is not configured")
		return
	}

	day := time.Now().UTC()
	if date := r.URL.Query().Get("date"); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	names, err := s.archive.List(r.Context(), day)
	if err != nil {
		s.logger.Error("listing archived runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if names == nil {
		names = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":  day.Format("2006-01-02"),
		"runs":  names,
		"count": len(names),
	})
}

// Package cloudfunctions exposes the pipeline as a Cloud Function for Cloud
// Scheduler triggers.
package cloudfunctions

import (
	"encoding/json"
	"net/http"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/application"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/config"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/handlers"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/pipeline"
)

func init() {
	functions.HTTP("PostHeadlines", PostHeadlines)
}

type functionResponse struct {
	Status     string `json:"status"`
	ExitCode   int    `json:"exit_code"`
	RunID      string `json:"run_id,omitempty"`
	PostID     string `json:"post_id,omitempty"`
	APIVersion string `json:"api_version,omitempty"`
	Summary    string `json:"summary,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PostHeadlines runs the pipeline once. POST publishes; ?dry_run=true only
// fetches and summarizes.
func PostHeadlines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg, cfgErr := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, funcframework.LogWriter(ctx))

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if status, msg := handlers.Authorize(r, cfg.RunAuthToken); status != http.StatusOK {
		http.Error(w, msg, status)
		return
	}

	if cfgErr != nil {
		logger.Error("invalid configuration", "error_kind", pipeline.KindName(cfgErr), "error", cfgErr)
		respond(w, http.StatusInternalServerError, failed(cfgErr))
		return
	}

	dryRun := r.URL.Query().Get("dry_run") == "true"
	report, err := application.Run(ctx, cfg, logger, dryRun)

	resp := failed(err)
	status := http.StatusBadGateway
	if err == nil {
		resp.Status = "success"
		status = http.StatusOK
	} else if pipeline.ExitCode(err) == pipeline.ExitOther {
		status = http.StatusInternalServerError
	}
	if report != nil {
		resp.RunID = report.RunID
		resp.PostID = report.PostID
		resp.APIVersion = report.APIVersion
		resp.Summary = report.Summary
	}
	respond(w, status, resp)
}

func failed(err error) functionResponse {
	if err == nil {
		return functionResponse{}
	}
	return functionResponse{
		Status:    "failed",
		ExitCode:  pipeline.ExitCode(err),
		ErrorKind: pipeline.KindName(err),
		Error:     err.Error(),
	}
}

func respond(w http.ResponseWriter, status int, resp functionResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

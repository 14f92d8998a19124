package pipeline

import "time"

// StepTiming is the time spent in one state.
type StepTiming struct {
	Step     State         `json:"step"`
	Duration time.Duration `json:"duration_ns"`
}

// Report describes one run. It is returned for both successful and failed
// runs.
type Report struct {
	RunID      string       `json:"run_id"`
	State      State        `json:"state"`
	DryRun     bool         `json:"dry_run"`
	Source     string       `json:"source"`
	Summarizer string       `json:"summarizer"`
	Publisher  string       `json:"publisher,omitempty"`
	Headlines  []string     `json:"headlines"`
	Summary    string       `json:"summary,omitempty"`
	Truncated  bool         `json:"truncated,omitempty"`
	PostID     string       `json:"post_id,omitempty"`
	APIVersion string       `json:"api_version,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Timings    []StepTiming `json:"timings"`
	FailedIn   State        `json:"failed_in,omitempty"`
	ErrorKind  string       `json:"error_kind,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

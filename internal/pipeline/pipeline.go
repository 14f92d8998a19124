// Package pipeline runs one fetch → summarize → publish cycle and reports
// its outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/config"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/news"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/publisher"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/summarizer"
)

// State is a step of a run.
type State string

const (
	StateIdle              State = "idle"
	StateFetchingHeadlines State = "fetching_headlines"
	StateSummarizing       State = "summarizing"
	StatePublishing        State = "publishing"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// order ranks the non-terminal states; a run only ever moves forward.
var order = map[State]int{
	StateIdle:              0,
	StateFetchingHeadlines: 1,
	StateSummarizing:       2,
	StatePublishing:        3,
	StateDone:              4,
	StateFailed:            4,
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Recorder stores a finished run report.
type Recorder interface {
	Record(ctx context.Context, report *Report) error
}

// Options tunes a Pipeline.
type Options struct {
	MaxLength    int
	LengthPolicy string
	// StepTimeout bounds each step; zero leaves only the clients' own timeouts.
	StepTimeout time.Duration
	Recorder    Recorder
	Logger      *slog.Logger
}

// Pipeline wires a headline source, a summarizer and a publisher.
type Pipeline struct {
	source     news.Source
	summarizer summarizer.Summarizer
	publisher  publisher.Publisher
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a pipeline. The components are used strictly in sequence.
// A nil source skips the headline step and the summarizer writes from its
// topic prompt.
func New(source news.Source, s summarizer.Summarizer, p publisher.Publisher, opts Options) *Pipeline {
	if opts.LengthPolicy == "" {
		opts.LengthPolicy = config.PolicyTruncate
	}
	return &Pipeline{
		source:     source,
		summarizer: s,
		publisher:  p,
		opts:       opts,
		logger:     logging.Section(opts.Logger, logging.SectionPipeline),
		now:        time.Now,
	}
}

// Run executes a full run, publishing the post.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	return p.run(ctx, false)
}

// Preview fetches and summarizes without publishing.
func (p *Pipeline) Preview(ctx context.Context) (*Report, error) {
	return p.run(ctx, true)
}

type run struct {
	report *Report
	logger *slog.Logger
	now    func() time.Time
	mark   time.Time
}

func (r *run) advance(to State) {
	from := r.report.State
	if from.Terminal() || order[to] <= order[from] {
		panic(fmt.Sprintf("pipeline: invalid transition %s -> %s", from, to))
	}

	now := r.now()
	if from != StateIdle {
		r.report.Timings = append(r.report.Timings, StepTiming{Step: from, Duration: now.Sub(r.mark)})
	}
	r.mark = now
	r.report.State = to
	r.logger.Debug("state changed", "from", from, "to", to)
}

// finish moves the run to a terminal state and stamps its end time.
func (r *run) finish(to State) {
	r.advance(to)
	r.report.FinishedAt = r.now().UTC()
}

func (r *run) fail(kind error, err error) error {
	state := r.report.State
	runErr := &Error{Kind: kind, State: state, Err: err}

	r.finish(StateFailed)
	r.report.FailedIn = state
	r.report.ErrorKind = KindName(runErr)
	r.report.Error = err.Error()

	attrs := []any{"state", state, "error_kind", r.report.ErrorKind, "duration", r.report.Duration(), "error", err}
	var perr *publisher.ProviderError
	if errors.As(err, &perr) {
		attrs = append(attrs, perr.LogAttrs()...)
	}
	r.logger.Error("run failed", attrs...)
	return runErr
}

func (p *Pipeline) run(ctx context.Context, dryRun bool) (*Report, error) {
	runID := uuid.New().String()
	r := &run{
		report: &Report{
			RunID:      runID,
			State:      StateIdle,
			DryRun:     dryRun,
			Source:     p.sourceName(),
			Summarizer: p.summarizer.Name(),
			StartedAt:  p.now().UTC(),
		},
		logger: p.logger.With("run_id", runID),
		now:    p.now,
	}
	if !dryRun {
		r.report.Publisher = p.publisher.Name()
	}
	defer p.record(ctx, r)

	r.logger.Info("run started", "source", r.report.Source, "summarizer", r.report.Summarizer, "publisher", r.report.Publisher, "dry_run", dryRun)

	if p.source != nil {
		r.advance(StateFetchingHeadlines)
		headlines, err := p.fetch(ctx)
		if err != nil {
			return r.report, r.fail(ErrSourceUnavailable, err)
		}
		r.report.Headlines = news.Strings(headlines)
		r.logger.Info("headlines ready", "count", len(headlines))
	}

	r.advance(StateSummarizing)
	summary, err := p.summarize(ctx, r.report.Headlines)
	if err != nil {
		return r.report, r.fail(ErrGenerationUnavailable, err)
	}
	text, truncated, err := ApplyLengthPolicy(summary, p.opts.MaxLength, p.opts.LengthPolicy)
	if err != nil {
		r.report.Summary = summary
		return r.report, r.fail(ErrGenerationUnavailable, err)
	}
	if truncated {
		r.logger.Warn("summary truncated", "length", len([]rune(summary)), "max_length", p.opts.MaxLength)
	} else if p.opts.MaxLength > 0 && len([]rune(text)) > p.opts.MaxLength {
		r.logger.Warn("summary exceeds maximum length", "length", len([]rune(text)), "max_length", p.opts.MaxLength)
	}
	r.report.Summary = text
	r.report.Truncated = truncated
	r.logger.Info("summary ready", "summary", text)

	if dryRun {
		r.finish(StateDone)
		r.logger.Info("run completed", "dry_run", true, "duration", r.report.Duration())
		return r.report, nil
	}

	r.advance(StatePublishing)
	result, err := p.publish(ctx, text)
	if err != nil {
		return r.report, r.fail(ErrPublishFailed, err)
	}
	r.report.PostID = result.ID
	r.report.APIVersion = result.APIVersion

	r.finish(StateDone)
	r.logger.Info("run completed", "post_id", result.ID, "api_version", result.APIVersion, "publisher", result.Provider, "duration", r.report.Duration())
	return r.report, nil
}

func (p *Pipeline) sourceName() string {
	if p.source == nil {
		return "none"
	}
	return p.source.Name()
}

func (p *Pipeline) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.StepTimeout > 0 {
		return context.WithTimeout(ctx, p.opts.StepTimeout)
	}
	return context.WithCancel(ctx)
}

func (p *Pipeline) fetch(ctx context.Context) ([]news.Headline, error) {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	headlines, err := p.source.FetchHeadlines(ctx)
	if err != nil {
		return nil, err
	}
	if len(headlines) == 0 {
		return nil, fmt.Errorf("%w: %s returned no headlines", ErrSourceUnavailable, p.source.Name())
	}
	return headlines, nil
}

func (p *Pipeline) summarize(ctx context.Context, headlines []string) (string, error) {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	summary, err := p.summarizer.GenerateSummary(ctx, headlines)
	if err != nil {
		return "", err
	}
	if summary == "" {
		return "", fmt.Errorf("%w: %s returned an empty summary", ErrGenerationUnavailable, p.summarizer.Name())
	}
	return summary, nil
}

func (p *Pipeline) publish(ctx context.Context, text string) (*publisher.Result, error) {
	ctx, cancel := p.stepContext(ctx)
	defer cancel()

	result, err := p.publisher.Publish(ctx, text)
	if err != nil {
		return nil, err
	}
	if result == nil || result.ID == "" {
		return nil, fmt.Errorf("%w: %s returned no post id", ErrPublishFailed, p.publisher.Name())
	}
	return result, nil
}

// record hands the report to the recorder. Failures are logged only.
func (p *Pipeline) record(ctx context.Context, r *run) {
	if p.opts.Recorder == nil {
		return
	}
	// Recording must not be skipped because the run's context was cancelled.
	ctx = context.WithoutCancel(ctx)
	if p.opts.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.StepTimeout)
		defer cancel()
	}
	if err := p.opts.Recorder.Record(ctx, r.report); err != nil {
		r.logger.Warn("failed to record run", "error", err)
	}
}

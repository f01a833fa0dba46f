package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	"github.com/couchcryptid/radar-refl-stats/internal/observability"
	"github.com/google/uuid"
)

// State is a controller lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateDiscovering
	StateRunning
	StateSkipped
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateRunning:
		return "running"
	case StateSkipped:
		return "skipped"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateSkipped || s == StateDone || s == StateFailed
}

// SkipReason explains a Skipped outcome.
type SkipReason string

const (
	ReasonOutputAlreadyExists SkipReason = "output_already_exists"
	ReasonEmptyInputSet       SkipReason = "empty_input_set"
	ReasonAllFilesFailed      SkipReason = "all_files_failed"
)

// FileLister finds the scan files of a year.
type FileLister interface {
	Discover(ctx context.Context, year int) ([]string, error)
}

// FileAggregator runs extraction over a file set, emitting one result per path.
type FileAggregator interface {
	Aggregate(ctx context.Context, paths []string, g domain.Geometry) <-chan domain.FileResult
}

// RecordStore persists yearly output records.
type RecordStore interface {
	Exists(path string) (bool, error)
	Write(path string, rec *domain.OutputRecord) error
}

// Notifier publishes run summaries downstream.
type Notifier interface {
	PublishSummary(ctx context.Context, summary domain.RunSummary) error
}

const notifyTimeout = 5 * time.Second

// Controller orchestrates one year run: skip guards, fan-out, reduction and
// persistence. It is the failure boundary: Run never returns an error and
// never panics.
type Controller struct {
	lister     FileLister
	aggregator FileAggregator
	store      RecordStore
	notifier   Notifier
	outputDir  string
	logger     *slog.Logger
	metrics    *observability.Metrics
	state      atomic.Int32
	ready      atomic.Bool
}

// New creates a Controller writing under outputDir. Pass a nil notifier to
// disable run-summary publishing.
func New(l FileLister, a FileAggregator, s RecordStore, n Notifier, outputDir string, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	return &Controller{
		lister:     l,
		aggregator: a,
		store:      s,
		notifier:   n,
		outputDir:  outputDir,
		logger:     logger,
		metrics:    metrics,
	}
}

// OutputPath returns the artifact location for year.
func (c *Controller) OutputPath(year int) string {
	return filepath.Join(c.outputDir, fmt.Sprintf("zthresholds_%d.nc", year))
}

// State returns the state of the current or most recent run.
func (c *Controller) State() State { return State(c.state.Load()) }

// CheckReadiness returns nil once any year run has reached a terminal state.
func (c *Controller) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("no year run has completed yet")
	}
	return nil
}

// RunYears runs each year from first to last inclusive, stopping early if
// ctx is cancelled between years.
func (c *Controller) RunYears(ctx context.Context, first, last int) []domain.RunSummary {
	var out []domain.RunSummary
	for year := first; year <= last; year++ {
		if ctx.Err() != nil {
			c.logger.Info("batch interrupted", "next_year", year, "reason", ctx.Err())
			break
		}
		out = append(out, c.Run(ctx, year))
	}
	return out
}

// Run processes one year and returns its summary. Errors and panics end the
// run in StateFailed without writing output.
func (c *Controller) Run(ctx context.Context, year int) (summary domain.RunSummary) {
	summary = domain.RunSummary{
		RunID:      uuid.NewString(),
		Year:       year,
		OutputPath: c.OutputPath(year),
		StartedAt:  domain.Now(),
	}
	logger := c.logger.With("run_id", summary.RunID, "year", year)

	c.metrics.RunInProgress.Set(1)
	c.setState(StateIdle)

	defer func() {
		if r := recover(); r != nil {
			c.setState(StateFailed)
			summary.Error = fmt.Sprintf("panic: %v", r)
			logger.Error("year run failed",
				"state", StateFailed.String(),
				"output_path", summary.OutputPath,
				"error", summary.Error,
				"stack", string(debug.Stack()),
			)
		}
		summary.State = c.State().String()
		summary.FinishedAt = domain.Now()
		c.finish(ctx, logger, summary)
	}()

	c.run(ctx, logger, &summary)
	return summary
}

func (c *Controller) run(ctx context.Context, logger *slog.Logger, summary *domain.RunSummary) {
	path := summary.OutputPath

	exists, err := c.store.Exists(path)
	if err != nil {
		c.fail(logger, summary, fmt.Errorf("check output: %w", err))
		return
	}
	if exists {
		c.skip(logger, summary, ReasonOutputAlreadyExists)
		return
	}

	c.setState(StateDiscovering)
	paths, err := c.lister.Discover(ctx, summary.Year)
	if err != nil {
		c.fail(logger, summary, err)
		return
	}
	summary.FilesDiscovered = len(paths)
	if len(paths) == 0 {
		c.skip(logger, summary, ReasonEmptyInputSet)
		return
	}

	c.setState(StateRunning)
	g := domain.GeometryForYear(summary.Year)
	summary.Geometry = g.String()
	logger.Info("processing year", "files", len(paths), "geometry", summary.Geometry)

	acc := NewAccumulator(g)
	acc.Drain(c.aggregator.Aggregate(ctx, paths, g), func(err error) {
		logger.Warn("result not folded", "error", err)
	})
	counts := acc.Counts()
	counts.Discovered = len(paths)
	summary.FilesProcessed = counts.Processed
	summary.FilesFailed = counts.Failed

	if err := ctx.Err(); err != nil {
		c.fail(logger, summary, fmt.Errorf("run cancelled: %w", err))
		return
	}

	cube, err := acc.Result()
	if errors.Is(err, domain.ErrNoSuccessfulFiles) {
		c.skip(logger, summary, ReasonAllFilesFailed)
		return
	}
	if err != nil {
		c.fail(logger, summary, err)
		return
	}

	rec, err := domain.Assemble(cube, g, summary.Year, counts)
	if err != nil {
		c.fail(logger, summary, fmt.Errorf("assemble output: %w", err))
		return
	}
	if err := c.store.Write(path, rec); err != nil {
		c.fail(logger, summary, fmt.Errorf("write output: %w", err))
		return
	}

	c.setState(StateDone)
	logger.Info("yearly statistics written",
		"output_path", path,
		"total", counts.Processed,
		"files_failed", counts.Failed,
		"detections", cube.Total(),
	)
}

func (c *Controller) skip(logger *slog.Logger, summary *domain.RunSummary, reason SkipReason) {
	c.setState(StateSkipped)
	summary.Reason = string(reason)
	logger.Info("year skipped", "reason", summary.Reason, "output_path", summary.OutputPath)
}

func (c *Controller) fail(logger *slog.Logger, summary *domain.RunSummary, err error) {
	c.setState(StateFailed)
	summary.Error = err.Error()
	logger.Error("year run failed",
		"state", StateFailed.String(),
		"output_path", summary.OutputPath,
		"files_discovered", summary.FilesDiscovered,
		"error", err,
	)
}

func (c *Controller) finish(ctx context.Context, logger *slog.Logger, summary domain.RunSummary) {
	c.metrics.RunInProgress.Set(0)
	c.metrics.Runs.WithLabelValues(summary.State).Inc()
	c.metrics.RunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	c.ready.Store(true)

	if c.notifier == nil {
		return
	}
	// Publish even when the run was cancelled by shutdown.
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("publish run summary panicked", "panic", r)
		}
	}()
	if err := c.notifier.PublishSummary(nctx, summary); err != nil {
		logger.Warn("publish run summary failed", "error", err)
	}
}

func (c *Controller) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev != s {
		c.logger.Debug("controller state", "from", prev.String(), "to", s.String())
	}
}

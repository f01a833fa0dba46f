package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	"github.com/couchcryptid/radar-refl-stats/internal/observability"
	"golang.org/x/sync/errgroup"
)

// FileExtractor produces the histogram of a single scan file.
type FileExtractor interface {
	Extract(ctx context.Context, path string, g domain.Geometry) domain.FileResult
}

// Aggregator fans extraction out over a bounded worker pool.
type Aggregator struct {
	extractor   FileExtractor
	workers     int
	fileTimeout time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewAggregator creates an Aggregator. A zero fileTimeout disables the
// per-file deadline.
func NewAggregator(e FileExtractor, workers int, fileTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		extractor:   e,
		workers:     max(workers, 1),
		fileTimeout: fileTimeout,
		logger:      logger,
		metrics:     metrics,
	}
}

// Aggregate extracts every path and streams exactly one result per path, in
// completion order. The channel is unbuffered so a finished task holds its
// cube until the consumer takes it; it is closed once all tasks have reported.
// The consumer must drain it.
func (a *Aggregator) Aggregate(ctx context.Context, paths []string, g domain.Geometry) <-chan domain.FileResult {
	out := make(chan domain.FileResult)

	go func() {
		defer close(out)

		var eg errgroup.Group
		eg.SetLimit(a.workers)
		for _, path := range paths {
			eg.Go(func() error {
				out <- a.extractOne(ctx, path, g)
				return nil
			})
		}
		_ = eg.Wait() // tasks never return errors
	}()

	return out
}

func (a *Aggregator) extractOne(ctx context.Context, path string, g domain.Geometry) (res domain.FileResult) {
	a.metrics.WorkersBusy.Inc()
	start := domain.Now()

	defer func() {
		if r := recover(); r != nil {
			res = domain.FileResult{Path: path, Err: fmt.Errorf("panic during extraction: %v", r)}
		}
		a.metrics.WorkersBusy.Dec()
		a.metrics.ExtractDuration.Observe(domain.Since(start).Seconds())
		a.record(res)
	}()

	if a.fileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.fileTimeout)
		defer cancel()
	}

	res = a.extractor.Extract(ctx, path, g)
	res.Path = path
	if res.Err == nil && res.Cube == nil {
		res.Err = errors.New("extractor returned no histogram")
	}
	return res
}

func (a *Aggregator) record(res domain.FileResult) {
	if res.OK() {
		a.metrics.FilesProcessed.Inc()
		return
	}
	a.metrics.FilesFailed.Inc()
	a.logger.Warn("scan file skipped", "path", res.Path, "error", res.Err)
}

package pipeline

import (
	"fmt"

	"github.com/couchcryptid/radar-refl-stats/internal/domain"
)

// Accumulator folds per-file results into one yearly cube. It is not safe
// for concurrent use; a single consumer owns it.
type Accumulator struct {
	cube      *domain.Cube
	processed int
	failed    int
}

// NewAccumulator creates an empty accumulator shaped for g.
func NewAccumulator(g domain.Geometry) *Accumulator {
	return &Accumulator{cube: domain.NewCube(g)}
}

// Fold adds one result. Failed results only bump the failure tally; a cube
// of the wrong shape is counted as failed and returned as an error.
func (a *Accumulator) Fold(res domain.FileResult) error {
	if !res.OK() {
		a.failed++
		return nil
	}
	if err := a.cube.Add(res.Cube); err != nil {
		a.failed++
		return fmt.Errorf("fold %s: %w", res.Path, err)
	}
	a.processed++
	return nil
}

// Drain folds results until the channel closes. Fold errors are reported to
// onErr, which may be nil.
func (a *Accumulator) Drain(results <-chan domain.FileResult, onErr func(error)) {
	for res := range results {
		if err := a.Fold(res); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

// Counts returns the tallies folded so far.
func (a *Accumulator) Counts() domain.RunCounts {
	return domain.RunCounts{
		Discovered: a.processed + a.failed,
		Processed:  a.processed,
		Failed:     a.failed,
	}
}

// Result returns the yearly cube, or ErrNoSuccessfulFiles if nothing was folded.
func (a *Accumulator) Result() (*domain.Cube, error) {
	if a.processed == 0 {
		return nil, domain.ErrNoSuccessfulFiles
	}
	return a.cube, nil
}

// Reduce sums the successful cubes of results.
func Reduce(g domain.Geometry, results []domain.FileResult) (*domain.Cube, domain.RunCounts, error) {
	acc := NewAccumulator(g)
	for _, res := range results {
		if err := acc.Fold(res); err != nil {
			return nil, acc.Counts(), err
		}
	}
	cube, err := acc.Result()
	return cube, acc.Counts(), err
}

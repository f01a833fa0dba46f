package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/radar-refl-stats/internal/domain"
)

// ScanReader decodes one scan file.
type ScanReader interface {
	ReadScan(path, field string) (*domain.Scan, error)
}

// Extractor turns one scan file into a histogram cube.
type Extractor struct {
	reader ScanReader
	field  string
}

// NewExtractor creates an Extractor reading the named reflectivity field.
func NewExtractor(reader ScanReader, field string) *Extractor {
	return &Extractor{reader: reader, field: field}
}

// Extract reads path and bins it for g. Every failure, including
// cancellation of ctx, is returned as a failed FileResult rather than an error.
func (e *Extractor) Extract(ctx context.Context, path string, g domain.Geometry) domain.FileResult {
	if err := ctx.Err(); err != nil {
		return domain.FileResult{Path: path, Err: fmt.Errorf("not started: %w", err)}
	}

	scan, err := e.read(ctx, path)
	if err != nil {
		return domain.FileResult{Path: path, Err: err}
	}

	cube, err := domain.Accumulate(scan, g)
	if err != nil {
		return domain.FileResult{Path: path, Err: err}
	}
	return domain.FileResult{Path: path, Cube: cube}
}

type readResult struct {
	scan *domain.Scan
	err  error
}

// read runs ReadScan under ctx. On cancellation it returns at once and the
// abandoned read finishes in the background, releasing its own file handle.
func (e *Extractor) read(ctx context.Context, path string) (*domain.Scan, error) {
	done := make(chan readResult, 1)
	go func() {
		var res readResult
		defer func() {
			if r := recover(); r != nil {
				res = readResult{err: fmt.Errorf("panic during read: %v", r)}
			}
			done <- res
		}()
		res.scan, res.err = e.reader.ReadScan(path, e.field)
	}()

	select {
	case res := <-done:
		return res.scan, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("read abandoned: %w", ctx.Err())
	}
}

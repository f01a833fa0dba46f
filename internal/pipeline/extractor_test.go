package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	"github.com/couchcryptid/radar-refl-stats/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	scan  *domain.Scan
	err   error
	field string
	calls int
}

func (r *fakeReader) ReadScan(_ string, field string) (*domain.Scan, error) {
	r.calls++
	r.field = field
	return r.scan, r.err
}

func TestExtractor_Extract(t *testing.T) {
	reader := &fakeReader{scan: detectionScan(3, 61)}
	ext := pipeline.NewExtractor(reader, "reflectivity")

	res := ext.Extract(context.Background(), "/data/a.nc", domain.ModernGeometry)

	require.True(t, res.OK())
	assert.Equal(t, "/data/a.nc", res.Path)
	assert.Equal(t, "reflectivity", reader.field)
	for thr := range domain.NumThresholds {
		assert.Equal(t, int32(1), res.Cube.At(7, 3, 0, thr))
	}
	assert.Equal(t, int64(3), res.Cube.Total())
}

func TestExtractor_ReadFailure(t *testing.T) {
	ext := pipeline.NewExtractor(&fakeReader{err: domain.ErrMissingVariable}, "DBZ")

	res := ext.Extract(context.Background(), "/data/a.nc", domain.ModernGeometry)

	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, domain.ErrMissingVariable)
	assert.Equal(t, "/data/a.nc", res.Path)
}

func TestExtractor_MalformedScan(t *testing.T) {
	scan := detectionScan(3, 45)
	scan.SweepStart = scan.SweepStart[:2]
	scan.SweepEnd = scan.SweepEnd[:2]
	ext := pipeline.NewExtractor(&fakeReader{scan: scan}, "DBZ")

	res := ext.Extract(context.Background(), "/data/a.nc", domain.ModernGeometry)

	assert.ErrorIs(t, res.Err, domain.ErrMalformedGeometry)
}

func TestExtractor_CancelledBeforeRead(t *testing.T) {
	reader := &fakeReader{scan: detectionScan(3, 45)}
	ext := pipeline.NewExtractor(reader, "DBZ")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := ext.Extract(ctx, "/data/a.nc", domain.ModernGeometry)

	assert.True(t, errors.Is(res.Err, context.Canceled))
	assert.Zero(t, reader.calls)
}

// stuckReader blocks every read until release is closed.
type stuckReader struct {
	release chan struct{}
}

func (r *stuckReader) ReadScan(string, string) (*domain.Scan, error) {
	<-r.release
	return detectionScan(3, 45), nil
}

func newStuckReader(t *testing.T) *stuckReader {
	r := &stuckReader{release: make(chan struct{})}
	t.Cleanup(func() { close(r.release) })
	return r
}

func TestExtractor_DeadlineInterruptsRead(t *testing.T) {
	ext := pipeline.NewExtractor(newStuckReader(t), "DBZ")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := ext.Extract(ctx, "/data/a.nc", domain.ModernGeometry)
	elapsed := time.Since(start)

	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, "/data/a.nc", res.Path)
	assert.Less(t, elapsed, time.Second)
}

type panickyReader struct{}

func (panickyReader) ReadScan(string, string) (*domain.Scan, error) {
	panic("bad header")
}

func TestExtractor_ReadPanicIsFailure(t *testing.T) {
	ext := pipeline.NewExtractor(panickyReader{}, "DBZ")

	res := ext.Extract(context.Background(), "/data/a.nc", domain.ModernGeometry)

	assert.False(t, res.OK())
	assert.ErrorContains(t, res.Err, "bad header")
}

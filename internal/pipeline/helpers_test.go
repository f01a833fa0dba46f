package pipeline_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/couchcryptid/radar-refl-stats/internal/adapter/netcdf"
	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	"github.com/couchcryptid/radar-refl-stats/internal/observability"
	"github.com/couchcryptid/radar-refl-stats/internal/pipeline"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// logBuffer captures JSON log lines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) lines(containing ...string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, line := range strings.Split(b.buf.String(), "\n") {
		match := line != ""
		for _, s := range containing {
			match = match && strings.Contains(line, s)
		}
		if match {
			out = append(out, line)
		}
	}
	return out
}

func captureLogger() (*slog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// detectionScan is a three-sweep volume whose only echo is one gate of
// sweep 0. Gates are 250 m apart from a 125 m origin; sweep 0 spans
// azimuths 0.2 and 7.1 so the echo ray lands in modern azimuth bin 7.
func detectionScan(gate int, dbz float64) *domain.Scan {
	const gates = 12
	s := &domain.Scan{
		Range:      make([]float64, gates),
		Azimuth:    []float64{0.2, 7.1, 0.5, 0.5},
		SweepStart: []int{0, 2, 3},
		SweepEnd:   []int{1, 2, 3},
	}
	for i := range s.Range {
		s.Range[i] = 125 + float64(i)*250
	}
	s.Reflectivity = make([]float64, len(s.Azimuth)*gates)
	for i := range s.Reflectivity {
		s.Reflectivity[i] = math.NaN()
	}
	s.Reflectivity[1*gates+gate] = dbz
	return s
}

func writeScanFile(t *testing.T, path string, scan *domain.Scan) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, netcdf.WriteScan(path, scan, "DBZ", netcdf.ScanEncoding{Packed: true}))
}

func writeJunkFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("CDF? not really"), 0o644))
}

// countingStore wraps a RecordStore and counts writes.
type countingStore struct {
	pipeline.RecordStore
	mu     sync.Mutex
	writes int
}

func (s *countingStore) Write(path string, rec *domain.OutputRecord) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.RecordStore.Write(path, rec)
}

// fixture wires a controller over real files in temporary directories.
type fixture struct {
	inputDir  string
	outputDir string
	store     *countingStore
	logs      *logBuffer
	metrics   *observability.Metrics
	ctrl      *pipeline.Controller
}

func newFixture(t *testing.T, notifier pipeline.Notifier) *fixture {
	t.Helper()
	f := &fixture{
		inputDir:  t.TempDir(),
		outputDir: filepath.Join(t.TempDir(), "out"),
		store:     &countingStore{RecordStore: netcdf.NewRecordStore()},
		metrics:   newTestMetrics(),
	}
	var logger *slog.Logger
	logger, f.logs = captureLogger()

	disc, err := pipeline.NewDiscoverer(f.inputDir, "*.nc")
	require.NoError(t, err)
	agg := pipeline.NewAggregator(pipeline.NewExtractor(netcdf.NewScanReader(), "DBZ"), 2, 0, logger, f.metrics)
	f.ctrl = pipeline.New(disc, agg, f.store, notifier, f.outputDir, logger, f.metrics)
	return f
}

func (f *fixture) scanPath(year int, rel string) string {
	return filepath.Join(f.inputDir, strconv.Itoa(year), rel)
}

// recordingNotifier keeps every published summary.
type recordingNotifier struct {
	mu        sync.Mutex
	summaries []domain.RunSummary
	err       error
}

func (n *recordingNotifier) PublishSummary(_ context.Context, s domain.RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, s)
	return n.err
}

func cellIndex(g domain.Geometry, az, rg, thr int) int {
	return (az*g.RangeBins+rg)*domain.NumThresholds + thr
}

func sumInt32(v []int32) int64 {
	var n int64
	for _, x := range v {
		n += int64(x)
	}
	return n
}

package netcdf

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleScan() *domain.Scan {
	s := &domain.Scan{
		Range:      []float64{125, 375, 625},
		Azimuth:    []float64{0.5, 1.5, 0.4, 1.4, 0.6, 1.6, 0.7},
		SweepStart: []int{0, 2, 4},
		SweepEnd:   []int{1, 3, 6},
	}
	s.Reflectivity = make([]float64, len(s.Azimuth)*len(s.Range))
	for i := range s.Reflectivity {
		s.Reflectivity[i] = math.NaN()
	}
	s.Reflectivity[0] = 45
	s.Reflectivity[4] = 52.5
	s.Reflectivity[20] = -12
	return s
}

func TestScanRoundTrip(t *testing.T) {
	encodings := map[string]ScanEncoding{
		"float":           {},
		"packed":          {Packed: true},
		"unlimited":       {Unlimited: true},
		"packed-unlimited": {Packed: true, Unlimited: true},
	}

	for name, enc := range encodings {
		t.Run(name, func(t *testing.T) {
			want := sampleScan()
			path := filepath.Join(t.TempDir(), "scan.nc")
			require.NoError(t, WriteScan(path, want, "DBZ", enc))

			got, err := NewScanReader().ReadScan(path, "DBZ")
			require.NoError(t, err)

			assert.Equal(t, want.SweepStart, got.SweepStart)
			assert.Equal(t, want.SweepEnd, got.SweepEnd)
			assert.InDeltaSlice(t, want.Range, got.Range, 1e-3)
			assert.InDeltaSlice(t, want.Azimuth, got.Azimuth, 1e-3)
			require.Len(t, got.Reflectivity, len(want.Reflectivity))
			for i, w := range want.Reflectivity {
				if math.IsNaN(w) {
					assert.True(t, math.IsNaN(got.Reflectivity[i]), "gate %d should be missing", i)
					continue
				}
				assert.InDelta(t, w, got.Reflectivity[i], 1e-3, "gate %d", i)
			}
		})
	}
}

func TestReadScan_MissingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.nc")
	require.NoError(t, WriteScan(path, sampleScan(), "DBZ", ScanEncoding{}))

	_, err := NewScanReader().ReadScan(path, "reflectivity")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingVariable)
}

func TestReadScan_NotNetCDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.nc")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a netcdf file"), 0o644))

	_, err := NewScanReader().ReadScan(path, "DBZ")
	require.Error(t, err)
}

func TestReadScan_MissingFile(t *testing.T) {
	_, err := NewScanReader().ReadScan(filepath.Join(t.TempDir(), "nope.nc"), "DBZ")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRecordStore_WriteAndRead(t *testing.T) {
	g := domain.ModernGeometry
	cube := domain.NewCube(g)
	cube.Inc(7, 10, 0, 0)
	cube.Inc(7, 10, 0, 0)
	cube.Inc(359, 599, 2, 2)

	rec, err := domain.Assemble(cube, g, 2015, domain.RunCounts{Discovered: 2, Processed: 2})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "zthresholds_2015.nc")
	store := NewRecordStore()

	exists, err := store.Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Write(path, rec))

	exists, err = store.Exists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := ReadRecord(path)
	require.NoError(t, err)

	if diff := cmp.Diff(rec.Dimensions, got.Dimensions); diff != "" {
		t.Fatalf("dimensions mismatch (-want +got):\n%s", diff)
	}
	for _, want := range rec.Variables {
		v, ok := got.Variable(want.Name)
		require.True(t, ok, "variable %s", want.Name)
		assert.Equal(t, want.Dimensions, v.Dimensions)
		if diff := cmp.Diff(want.Data, v.Data); diff != "" {
			t.Fatalf("%s data mismatch (-want +got):\n%s", want.Name, diff)
		}
		desc, ok := v.Attribute("units")
		require.True(t, ok)
		wantDesc, _ := want.Attribute("units")
		assert.Equal(t, wantDesc, desc)
	}

	total, ok := got.Attribute(domain.AttrTotal)
	require.True(t, ok)
	assert.Equal(t, []int32{2}, total)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestRecordStore_FailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zthresholds_2015.nc")

	bad := &domain.OutputRecord{
		Dimensions: []domain.Dimension{{Name: "x", Length: 2}},
		Variables: []domain.Variable{
			{Name: "v", Dimensions: []string{"no-such-dim"}, Data: []int32{1, 2}},
		},
	}

	err := NewRecordStore().Write(path, bad)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordStore_UnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	rec, err := domain.Assemble(domain.NewCube(domain.LegacyGeometry), domain.LegacyGeometry, 2001, domain.RunCounts{})
	require.NoError(t, err)

	err = NewRecordStore().Write(filepath.Join(blocker, "zthresholds_2001.nc"), rec)
	require.Error(t, err)
}

package main

import (
	"path/filepath"
	"testing"

	"github.com/couchcryptid/radar-refl-stats/internal/adapter/netcdf"
	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, year int, counts domain.RunCounts, mutate func(*domain.Cube)) *domain.OutputRecord {
	t.Helper()
	g := domain.GeometryForYear(year)
	cube := domain.NewCube(g)
	cube.Inc(3, 4, 0, 0)
	cube.Inc(3, 4, 0, 1)
	if mutate != nil {
		mutate(cube)
	}
	rec, err := domain.Assemble(cube, g, year, counts)
	require.NoError(t, err)
	return rec
}

func failures(phases []*phase) []string {
	var out []string
	for _, p := range phases {
		out = append(out, p.errors...)
	}
	return out
}

func TestValidate_WellFormedRecord(t *testing.T) {
	rec := assemble(t, 2015, domain.RunCounts{Discovered: 3, Processed: 2, Failed: 1}, nil)
	assert.Empty(t, failures(validate(rec, domain.ModernGeometry)))
}

func TestValidate_GeometryMismatch(t *testing.T) {
	rec := assemble(t, 2015, domain.RunCounts{Discovered: 1, Processed: 1}, nil)
	errs := failures(validate(rec, domain.LegacyGeometry))
	assert.NotEmpty(t, errs)
}

func TestValidate_ThresholdOrdering(t *testing.T) {
	rec := assemble(t, 2015, domain.RunCounts{Discovered: 1, Processed: 1}, func(c *domain.Cube) {
		c.Inc(9, 9, 1, 2)
	})
	errs := failures(validate(rec, domain.ModernGeometry))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "zstats_elev1[9,9]")
}

func TestValidate_AttributeTally(t *testing.T) {
	rec := assemble(t, 2015, domain.RunCounts{Discovered: 5, Processed: 2, Failed: 1}, nil)
	errs := failures(validate(rec, domain.ModernGeometry))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "files_discovered")
}

func TestRun_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zthresholds_2004.nc")
	rec := assemble(t, 2004, domain.RunCounts{Discovered: 1, Processed: 1}, nil)
	require.NoError(t, netcdf.NewRecordStore().Write(path, rec))

	assert.Equal(t, 0, run(path))
	assert.Equal(t, 1, run(filepath.Join(t.TempDir(), "missing.nc")))
}

package netcdf

import (
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	"github.com/ctessum/cdf"
)

// CF/Radial variable names.
const (
	varRange      = "range"
	varAzimuth    = "azimuth"
	varSweepStart = "sweep_start_ray_index"
	varSweepEnd   = "sweep_end_ray_index"
)

// ScanReader decodes CF/Radial volumes. It holds no state; each call opens
// and closes its own file handle.
type ScanReader struct{}

// NewScanReader creates a ScanReader.
func NewScanReader() *ScanReader { return &ScanReader{} }

// ReadScan opens path read-only and decodes the range, azimuth, sweep index
// and reflectivity arrays.
func (r *ScanReader) ReadScan(path, field string) (*domain.Scan, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scan: %w", err)
	}
	defer fh.Close()

	f, err := cdf.Open(fh)
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	starts, err := readIndices(f, varSweepStart)
	if err != nil {
		return nil, err
	}
	ends, err := readIndices(f, varSweepEnd)
	if err != nil {
		return nil, err
	}

	// The ray axis is often the unlimited dimension; its length follows
	// from the last sweep's final ray.
	rays := 0
	for _, e := range ends {
		rays = max(rays, e+1)
	}

	rng, err := readPhysical(f, varRange, rays)
	if err != nil {
		return nil, err
	}
	az, err := readPhysical(f, varAzimuth, rays)
	if err != nil {
		return nil, err
	}
	refl, err := readPhysical(f, field, rays)
	if err != nil {
		return nil, err
	}

	return &domain.Scan{
		Range:        rng,
		Azimuth:      az,
		Reflectivity: refl,
		SweepStart:   starts,
		SweepEnd:     ends,
	}, nil
}

func readIndices(f *cdf.File, name string) ([]int, error) {
	if f.Header.IsRecordVariable(name) {
		return nil, fmt.Errorf("%w: %s must not use the record dimension", domain.ErrMalformedGeometry, name)
	}
	vals, err := readPhysical(f, name, 0)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: %s[%d] is missing", domain.ErrMalformedGeometry, name, i)
		}
		out[i] = int(v)
	}
	return out, nil
}

package domain

import (
	"fmt"
	"math"
)

// Scan is one decoded radar volume. Reflectivity is stored ray-major
// (len(Azimuth) rows of len(Range) gates); missing gates are NaN.
type Scan struct {
	Range        []float64 // gate distance, meters
	Azimuth      []float64 // per ray, degrees
	Reflectivity []float64 // dBZ
	SweepStart   []int     // first ray of each sweep
	SweepEnd     []int     // last ray of each sweep, inclusive
}

// Rays returns the number of rays in the volume.
func (s *Scan) Rays() int { return len(s.Azimuth) }

// Gates returns the number of range gates per ray.
func (s *Scan) Gates() int { return len(s.Range) }

// Validate checks that the arrays are mutually consistent.
func (s *Scan) Validate() error {
	if len(s.Range) == 0 {
		return fmt.Errorf("%w: empty range axis", ErrMalformedGeometry)
	}
	if len(s.Azimuth) == 0 {
		return fmt.Errorf("%w: no rays", ErrMalformedGeometry)
	}
	if len(s.Reflectivity) != len(s.Azimuth)*len(s.Range) {
		return fmt.Errorf("%w: reflectivity has %d values, want %d rays x %d gates",
			ErrMalformedGeometry, len(s.Reflectivity), len(s.Azimuth), len(s.Range))
	}
	if len(s.SweepStart) != len(s.SweepEnd) {
		return fmt.Errorf("%w: %d sweep starts but %d sweep ends", ErrMalformedGeometry, len(s.SweepStart), len(s.SweepEnd))
	}
	for _, r := range s.Range {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: non-finite range value", ErrMalformedGeometry)
		}
	}
	return nil
}

// SweepRays returns the half-open ray interval [start, end) of sweep i.
func (s *Scan) SweepRays(i int) (start, end int, err error) {
	if i < 0 || i >= len(s.SweepStart) {
		return 0, 0, fmt.Errorf("%w: sweep %d requested, volume has %d", ErrMalformedGeometry, i, len(s.SweepStart))
	}
	start, end = s.SweepStart[i], s.SweepEnd[i]+1
	if start < 0 || end > len(s.Azimuth) || start >= end {
		return 0, 0, fmt.Errorf("%w: sweep %d ray range [%d, %d) outside %d rays",
			ErrMalformedGeometry, i, start, end, len(s.Azimuth))
	}
	return start, end, nil
}

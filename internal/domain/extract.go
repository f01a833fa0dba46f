package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// AzimuthBin maps a ray azimuth to its grid column relative to the sweep's
// minimum azimuth. Rounding is half-to-even and the result wraps modulo the
// number of bins, so rays near a full turn from the minimum land on bin 0.
func AzimuthBin(azimuth, sweepMin float64, g Geometry) int {
	idx := int(math.RoundToEven((azimuth - sweepMin) / g.AzimuthWidth))
	idx %= g.AzimuthBins
	if idx < 0 {
		idx += g.AzimuthBins
	}
	return idx
}

// RangeBin maps a gate distance to its grid row relative to the first gate.
// It returns false for gates that fall outside the grid.
func RangeBin(gate, origin float64, g Geometry) (int, bool) {
	idx := int(math.Floor((gate - origin) / g.RangeBinSize))
	if idx < 0 || idx >= g.RangeBins {
		return 0, false
	}
	return idx, true
}

// Accumulate bins every gate exceeding each threshold in the first
// NumElevations sweeps of scan into a new cube shaped for g.
func Accumulate(scan *Scan, g Geometry) (*Cube, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := scan.Validate(); err != nil {
		return nil, err
	}

	gates := scan.Gates()
	rangeIdx := make([]int, gates)
	for i, r := range scan.Range {
		idx, ok := RangeBin(r, scan.Range[0], g)
		if !ok {
			idx = -1
		}
		rangeIdx[i] = idx
	}

	cube := NewCube(g)
	for elev := 0; elev < NumElevations; elev++ {
		start, end, err := scan.SweepRays(elev)
		if err != nil {
			return nil, err
		}
		azimuths := scan.Azimuth[start:end]
		if floats.HasNaN(azimuths) {
			return nil, fmt.Errorf("%w: sweep %d has missing azimuths", ErrMalformedGeometry, elev)
		}
		sweepMin, sweepMax := floats.Min(azimuths), floats.Max(azimuths)
		if math.IsInf(sweepMin, 0) || math.IsInf(sweepMax, 0) {
			return nil, fmt.Errorf("%w: sweep %d has non-finite azimuths", ErrMalformedGeometry, elev)
		}

		for ray := start; ray < end; ray++ {
			az := AzimuthBin(scan.Azimuth[ray], sweepMin, g)
			row := scan.Reflectivity[ray*gates : (ray+1)*gates]
			for gate, dbz := range row {
				rg := rangeIdx[gate]
				if rg < 0 || math.IsNaN(dbz) {
					continue
				}
				for thr, level := range Thresholds {
					if dbz > level {
						cube.Inc(az, rg, elev, thr)
					}
				}
			}
		}
	}
	return cube, nil
}

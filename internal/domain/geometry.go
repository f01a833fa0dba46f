package domain

import "fmt"

// modernEpochYear is the first year scanned with the 1° / 250 m geometry.
const modernEpochYear = 2008

// Geometry describes the polar output grid for one run.
type Geometry struct {
	AzimuthBins  int     // NA
	AzimuthWidth float64 // da, degrees
	RangeBinSize float64 // DR, meters
	RangeBins    int     // NR
}

var (
	// LegacyGeometry applies to volumes recorded before 2008.
	LegacyGeometry = Geometry{AzimuthBins: 240, AzimuthWidth: 1.5, RangeBinSize: 350, RangeBins: 429}

	// ModernGeometry applies from 2008 onwards.
	ModernGeometry = Geometry{AzimuthBins: 360, AzimuthWidth: 1, RangeBinSize: 250, RangeBins: 600}
)

// GeometryForYear selects the grid used for the given year.
func GeometryForYear(year int) Geometry {
	if year < modernEpochYear {
		return LegacyGeometry
	}
	return ModernGeometry
}

// Validate reports whether the grid parameters can index a cube.
func (g Geometry) Validate() error {
	if g.AzimuthBins <= 0 || g.RangeBins <= 0 {
		return fmt.Errorf("%w: non-positive bin count (azimuth=%d, range=%d)", ErrMalformedGeometry, g.AzimuthBins, g.RangeBins)
	}
	if g.AzimuthWidth <= 0 || g.RangeBinSize <= 0 {
		return fmt.Errorf("%w: non-positive bin width (azimuth=%g, range=%g)", ErrMalformedGeometry, g.AzimuthWidth, g.RangeBinSize)
	}
	return nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%.1f° / %dx%gm", g.AzimuthBins, g.AzimuthWidth, g.RangeBins, g.RangeBinSize)
}

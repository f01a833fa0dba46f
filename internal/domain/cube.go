package domain

import (
	"fmt"
	"math"
)

const (
	// NumElevations is the number of lowest sweeps analyzed per volume.
	NumElevations = 3

	// NumThresholds is the number of reflectivity exceedance levels.
	NumThresholds = 3
)

// Thresholds are the exceedance levels in dBZ, index-aligned with the cube's
// threshold axis.
var Thresholds = [NumThresholds]float64{40, 50, 60}

// Cube is a 4-D exceedance histogram indexed
// [azimuthBin][rangeBin][elevation][threshold], stored flat in row-major order.
//
// Counts are int32 and saturate at math.MaxInt32 instead of wrapping.
type Cube struct {
	azimuthBins int
	rangeBins   int
	counts      []int32
}

// NewCube allocates a zeroed cube shaped for g.
func NewCube(g Geometry) *Cube {
	return &Cube{
		azimuthBins: g.AzimuthBins,
		rangeBins:   g.RangeBins,
		counts:      make([]int32, g.AzimuthBins*g.RangeBins*NumElevations*NumThresholds),
	}
}

// Shape returns the azimuth and range extents.
func (c *Cube) Shape() (azimuthBins, rangeBins int) {
	return c.azimuthBins, c.rangeBins
}

func (c *Cube) index(az, rg, elev, thr int) int {
	return ((az*c.rangeBins+rg)*NumElevations+elev)*NumThresholds + thr
}

// Inc adds one detection to a cell.
func (c *Cube) Inc(az, rg, elev, thr int) {
	i := c.index(az, rg, elev, thr)
	if c.counts[i] < math.MaxInt32 {
		c.counts[i]++
	}
}

// At returns the count of a cell.
func (c *Cube) At(az, rg, elev, thr int) int32 {
	return c.counts[c.index(az, rg, elev, thr)]
}

// Total returns the sum over all cells, useful for logging.
func (c *Cube) Total() int64 {
	var n int64
	for _, v := range c.counts {
		n += int64(v)
	}
	return n
}

// Add folds other into c element-wise. Saturating addition keeps the
// operation associative and commutative over non-negative counts.
func (c *Cube) Add(other *Cube) error {
	if c.azimuthBins != other.azimuthBins || c.rangeBins != other.rangeBins {
		return fmt.Errorf("%w: cube shape %dx%d cannot absorb %dx%d",
			ErrMalformedGeometry, c.azimuthBins, c.rangeBins, other.azimuthBins, other.rangeBins)
	}
	for i, v := range other.counts {
		c.counts[i] = saturatingAdd(c.counts[i], v)
	}
	return nil
}

// Elevation copies one elevation out of the cube as a flat
// [azimuth][range][threshold] array.
func (c *Cube) Elevation(elev int) []int32 {
	out := make([]int32, c.azimuthBins*c.rangeBins*NumThresholds)
	for az := 0; az < c.azimuthBins; az++ {
		for rg := 0; rg < c.rangeBins; rg++ {
			src := c.index(az, rg, elev, 0)
			dst := (az*c.rangeBins + rg) * NumThresholds
			copy(out[dst:dst+NumThresholds], c.counts[src:src+NumThresholds])
		}
	}
	return out
}

// Equal reports whether two cubes have identical shape and counts.
func (c *Cube) Equal(other *Cube) bool {
	if c.azimuthBins != other.azimuthBins || c.rangeBins != other.rangeBins {
		return false
	}
	for i := range c.counts {
		if c.counts[i] != other.counts[i] {
			return false
		}
	}
	return true
}

func saturatingAdd(a, b int32) int32 {
	s := int64(a) + int64(b)
	if s > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(s)
}

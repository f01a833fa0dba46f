package domain

import "fmt"

// rangeOrigin is the center of the first nominal range bin, in meters.
const rangeOrigin = 150

// Dimension names used in the output record.
const (
	DimAzimuth   = "azimuth"
	DimRange     = "range"
	DimThreshold = "threshold"
)

// Global attribute names.
const (
	AttrTotal           = "total"
	AttrYear            = "year"
	AttrFilesDiscovered = "files_discovered"
	AttrFilesFailed     = "files_failed"
)

// Dimension is a named axis length.
type Dimension struct {
	Name   string
	Length int
}

// Attribute is a named value: a string or a []int32 / []float64.
type Attribute struct {
	Name  string
	Value any
}

// Variable is one array of the output record. Data is []int32 or []float64.
type Variable struct {
	Name       string
	Dimensions []string
	Attributes []Attribute
	Data       any
}

// Attribute looks up a variable attribute by name.
func (v *Variable) Attribute(name string) (any, bool) {
	return lookupAttribute(v.Attributes, name)
}

// OutputRecord is the yearly statistics product, laid out as a
// self-describing array dataset.
type OutputRecord struct {
	Dimensions []Dimension
	Variables  []Variable
	Attributes []Attribute
}

// Variable looks up a variable by name.
func (r *OutputRecord) Variable(name string) (*Variable, bool) {
	for i := range r.Variables {
		if r.Variables[i].Name == name {
			return &r.Variables[i], true
		}
	}
	return nil, false
}

// Attribute looks up a global attribute by name.
func (r *OutputRecord) Attribute(name string) (any, bool) {
	return lookupAttribute(r.Attributes, name)
}

// Dimension returns the length of the named dimension, or -1.
func (r *OutputRecord) Dimension(name string) int {
	for _, d := range r.Dimensions {
		if d.Name == name {
			return d.Length
		}
	}
	return -1
}

func lookupAttribute(attrs []Attribute, name string) (any, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// ElevationVariable names the sub-cube of elevation elev.
func ElevationVariable(elev int) string {
	return fmt.Sprintf("zstats_elev%d", elev)
}

// RunCounts carries the file tallies recorded in the output.
type RunCounts struct {
	Discovered int
	Processed  int
	Failed     int
}

// AzimuthCoordinates returns [0, da, 2da, ...] with NA entries.
func AzimuthCoordinates(g Geometry) []float64 {
	out := make([]float64, g.AzimuthBins)
	for i := range out {
		out[i] = float64(i) * g.AzimuthWidth
	}
	return out
}

// RangeCoordinates returns [150, 150+DR, ...] with NR entries.
func RangeCoordinates(g Geometry) []int32 {
	out := make([]int32, g.RangeBins)
	for i := range out {
		out[i] = int32(rangeOrigin + float64(i)*g.RangeBinSize)
	}
	return out
}

// ThresholdCoordinates returns the threshold axis values.
func ThresholdCoordinates() []int32 {
	out := make([]int32, NumThresholds)
	for i, t := range Thresholds {
		out[i] = int32(t)
	}
	return out
}

// Assemble lays the yearly cube out as an output record.
func Assemble(cube *Cube, g Geometry, year int, counts RunCounts) (*OutputRecord, error) {
	na, nr := cube.Shape()
	if na != g.AzimuthBins || nr != g.RangeBins {
		return nil, fmt.Errorf("%w: cube is %dx%d, geometry %s", ErrMalformedGeometry, na, nr, g)
	}

	rec := &OutputRecord{
		Dimensions: []Dimension{
			{Name: DimAzimuth, Length: g.AzimuthBins},
			{Name: DimRange, Length: g.RangeBins},
			{Name: DimThreshold, Length: NumThresholds},
		},
	}

	cubeDims := []string{DimAzimuth, DimRange, DimThreshold}
	for elev := 0; elev < NumElevations; elev++ {
		rec.Variables = append(rec.Variables, Variable{
			Name:       ElevationVariable(elev),
			Dimensions: cubeDims,
			Attributes: []Attribute{
				{Name: "units", Value: "1"},
				{Name: "description", Value: "Count volumes with reflectivity above threshold"},
			},
			Data: cube.Elevation(elev),
		})
	}

	rec.Variables = append(rec.Variables,
		Variable{
			Name:       DimAzimuth,
			Dimensions: []string{DimAzimuth},
			Attributes: []Attribute{
				{Name: "units", Value: "degrees"},
				{Name: "standard_name", Value: "beam_azimuth_angle"},
				{Name: "long_name", Value: "azimuth_angle_from_true_north"},
				{Name: "axis", Value: "radial_azimuth_coordinate"},
			},
			Data: AzimuthCoordinates(g),
		},
		Variable{
			Name:       DimRange,
			Dimensions: []string{DimRange},
			Attributes: []Attribute{
				{Name: "units", Value: "meters"},
				{Name: "standard_name", Value: "projection_range_coordinate"},
				{Name: "long_name", Value: "range_to_measurement_volume"},
				{Name: "axis", Value: "radial_range_coordinate"},
				{Name: "spacing_is_constant", Value: "true"},
			},
			Data: RangeCoordinates(g),
		},
		Variable{
			Name:       DimThreshold,
			Dimensions: []string{DimThreshold},
			Attributes: []Attribute{
				{Name: "units", Value: "dBZ"},
				{Name: "description", Value: "Reflectivity threshold"},
			},
			Data: ThresholdCoordinates(),
		},
	)

	rec.Attributes = []Attribute{
		{Name: "Conventions", Value: "CF-1.6"},
		{Name: AttrTotal, Value: []int32{int32(counts.Processed)}},
		{Name: AttrYear, Value: []int32{int32(year)}},
		{Name: AttrFilesDiscovered, Value: []int32{int32(counts.Discovered)}},
		{Name: AttrFilesFailed, Value: []int32{int32(counts.Failed)}},
	}
	return rec, nil
}

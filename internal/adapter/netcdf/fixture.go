package netcdf

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	"github.com/ctessum/cdf"
)

const (
	packedScale = 0.01
	packedFill  = int16(math.MinInt16)
	floatFill   = float32(-9999)
)

// ScanEncoding selects how WriteScan stores a volume.
type ScanEncoding struct {
	Packed    bool // reflectivity as int16 with scale_factor, instead of float32
	Unlimited bool // ray axis as the record dimension
}

// WriteScan stores scan as a minimal CF/Radial file. It backs the fixture
// generator and round-trip tests of ScanReader.
func WriteScan(path string, scan *domain.Scan, field string, enc ScanEncoding) (err error) {
	if err := scan.Validate(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build scan header: %v", r)
		}
	}()

	rays, gates, sweeps := scan.Rays(), scan.Gates(), len(scan.SweepStart)
	timeLen := rays
	if enc.Unlimited {
		timeLen = 0
	}

	h := cdf.NewHeader([]string{"time", "range", "sweep"}, []int{timeLen, gates, sweeps})
	h.AddAttribute("", "Conventions", "CF/Radial")
	h.AddAttribute("", "title", "synthetic PPI volume")

	h.AddVariable(varAzimuth, []string{"time"}, []float32{})
	h.AddAttribute(varAzimuth, "units", "degrees")
	h.AddAttribute(varAzimuth, "standard_name", "beam_azimuth_angle")

	h.AddVariable(varRange, []string{"range"}, []float32{})
	h.AddAttribute(varRange, "units", "meters")
	h.AddAttribute(varRange, "standard_name", "projection_range_coordinate")

	if enc.Packed {
		h.AddVariable(field, []string{"time", "range"}, []int16{})
		h.AddAttribute(field, "scale_factor", []float32{packedScale})
		h.AddAttribute(field, "add_offset", []float32{0})
		h.AddAttribute(field, "_FillValue", []int16{packedFill})
	} else {
		h.AddVariable(field, []string{"time", "range"}, []float32{})
		h.AddAttribute(field, "_FillValue", []float32{floatFill})
	}
	h.AddAttribute(field, "units", "dBZ")

	h.AddVariable(varSweepStart, []string{"sweep"}, []int32{})
	h.AddVariable(varSweepEnd, []string{"sweep"}, []int32{})

	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("invalid scan header: %w", errors.Join(errs...))
	}

	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create scan: %w", err)
	}
	defer func() {
		if cerr := fh.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close scan: %w", cerr)
		}
	}()

	f, err := cdf.Create(fh, h)
	if err != nil {
		return fmt.Errorf("write scan header: %w", err)
	}

	if err := writeVar(f, varAzimuth, toFloat32(scan.Azimuth), rays); err != nil {
		return err
	}
	if err := writeVar(f, varRange, toFloat32(scan.Range), gates); err != nil {
		return err
	}
	if enc.Packed {
		err = writeVar(f, field, packInt16(scan.Reflectivity), len(scan.Reflectivity))
	} else {
		err = writeVar(f, field, fillFloat32(scan.Reflectivity), len(scan.Reflectivity))
	}
	if err != nil {
		return err
	}
	if err := writeVar(f, varSweepStart, toInt32(scan.SweepStart), sweeps); err != nil {
		return err
	}
	if err := writeVar(f, varSweepEnd, toInt32(scan.SweepEnd), sweeps); err != nil {
		return err
	}

	if enc.Unlimited {
		if err := cdf.UpdateNumRecs(fh); err != nil {
			return fmt.Errorf("update record count: %w", err)
		}
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func fillFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		if math.IsNaN(x) {
			out[i] = floatFill
			continue
		}
		out[i] = float32(x)
	}
	return out
}

func packInt16(v []float64) []int16 {
	out := make([]int16, len(v))
	for i, x := range v {
		if math.IsNaN(x) {
			out[i] = packedFill
			continue
		}
		out[i] = int16(math.Round(x / packedScale))
	}
	return out
}

func toInt32(v []int) []int32 {
	out := make([]int32, len(v))
	for i, x := range v {
		out[i] = int32(x)
	}
	return out
}

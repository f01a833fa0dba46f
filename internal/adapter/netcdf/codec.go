// Package netcdf reads CF/Radial scan volumes and writes yearly statistics
// records in the NetCDF classic format.
package netcdf

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	"github.com/ctessum/cdf"
)

// readVar reads the whole of variable name. For record variables the outer
// length is taken from records, since the header does not store it.
func readVar(f *cdf.File, name string, records int) (any, error) {
	h := f.Header
	lengths := h.Lengths(name)
	if lengths == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingVariable, name)
	}

	begin := make([]int, len(lengths))
	end := make([]int, len(lengths))
	n := 1
	for i, l := range lengths {
		if i == 0 && h.IsRecordVariable(name) {
			l = records
		}
		if l == 0 {
			return h.ZeroValue(name, 0), nil
		}
		end[i] = l - 1
		n *= l
	}

	r := f.Reader(name, begin, end)
	buf := r.Zero(n)
	got, err := r.Read(buf)
	if err != nil && !(errors.Is(err, io.EOF) && got == n) {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return buf, nil
}

// writeVar writes the whole of variable name. A short final stripe reports
// io.EOF even when every element landed, so that case is not an error.
func writeVar(f *cdf.File, name string, values any, n int) error {
	w := f.Writer(name, nil, nil)
	if w == nil {
		return fmt.Errorf("%w: %s", domain.ErrMissingVariable, name)
	}
	got, err := w.Write(values)
	if err != nil && !(errors.Is(err, io.EOF) && got == n) {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// toFloat64 widens any numeric NetCDF slice. NetCDF BYTE is signed unless
// the variable declares _Unsigned = "true".
func toFloat64(values any, unsigned bool) ([]float64, error) {
	switch v := values.(type) {
	case []uint8:
		out := make([]float64, len(v))
		for i, x := range v {
			if unsigned {
				out[i] = float64(x)
			} else {
				out[i] = float64(int8(x))
			}
		}
		return out, nil
	case []int16:
		out := make([]float64, len(v))
		for i, x := range v {
			if unsigned {
				out[i] = float64(uint16(x))
			} else {
				out[i] = float64(x)
			}
		}
		return out, nil
	case []int32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	case []float64:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", values)
	}
}

// scalarFloat converts a single fill value returned by the header.
func scalarFloat(v any, unsigned bool) (float64, bool) {
	switch x := v.(type) {
	case int8:
		return float64(x), true
	case uint8:
		if unsigned {
			return float64(x), true
		}
		return float64(int8(x)), true
	case int16:
		if unsigned {
			return float64(uint16(x)), true
		}
		return float64(x), true
	case int32:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// packing describes how stored values map to physical ones.
type packing struct {
	unsigned bool
	scale    float64
	offset   float64
	missing  []float64
}

func packingOf(h *cdf.Header, name string) packing {
	p := packing{scale: 1}
	if s, ok := h.GetAttribute(name, "_Unsigned").(string); ok && (s == "true" || s == "True") {
		p.unsigned = true
	}
	if v := attributeFloat(h, name, "scale_factor", false); len(v) > 0 {
		p.scale = v[0]
	}
	if v := attributeFloat(h, name, "add_offset", false); len(v) > 0 {
		p.offset = v[0]
	}
	p.missing = append(p.missing, attributeFloat(h, name, "_FillValue", p.unsigned)...)
	p.missing = append(p.missing, attributeFloat(h, name, "missing_value", p.unsigned)...)
	if fv, ok := scalarFloat(h.FillValue(name), p.unsigned); ok {
		p.missing = append(p.missing, fv)
	}
	return p
}

func attributeFloat(h *cdf.Header, name, attr string, unsigned bool) []float64 {
	v := h.GetAttribute(name, attr)
	if v == nil {
		return nil
	}
	out, err := toFloat64(v, unsigned)
	if err != nil {
		return nil
	}
	return out
}

// decode applies missing-value masking and unpacking in place.
func (p packing) decode(raw []float64) []float64 {
	out := raw
	for i, v := range raw {
		if math.IsNaN(v) || p.isMissing(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = v*p.scale + p.offset
	}
	return out
}

func (p packing) isMissing(v float64) bool {
	for _, m := range p.missing {
		if v == m {
			return true
		}
		// Float fill values survive a float32 round trip only approximately.
		if math.Abs(m) > 1e30 && math.Abs(v-m) <= math.Abs(m)*1e-6 {
			return true
		}
	}
	return false
}

// readPhysical reads a numeric variable and returns decoded float64 values.
func readPhysical(f *cdf.File, name string, records int) ([]float64, error) {
	raw, err := readVar(f, name, records)
	if err != nil {
		return nil, err
	}
	if _, isChar := raw.(string); isChar {
		return nil, fmt.Errorf("%w: %s is a character variable", domain.ErrMalformedGeometry, name)
	}
	p := packingOf(f.Header, name)
	vals, err := toFloat64(raw, p.unsigned)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return p.decode(vals), nil
}

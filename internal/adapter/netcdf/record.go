package netcdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/radar-refl-stats/internal/domain"
	"github.com/ctessum/cdf"
)

// RecordStore persists yearly output records as NetCDF files.
// Writes go to a temporary sibling file that is renamed into place only
// once complete, so a failed write never leaves a partial artifact.
type RecordStore struct{}

// NewRecordStore creates a RecordStore.
func NewRecordStore() *RecordStore { return &RecordStore{} }

// Exists reports whether an artifact is already present at path.
func (s *RecordStore) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat output: %w", err)
}

// Write encodes rec and atomically places it at path.
func (s *RecordStore) Write(path string, rec *domain.OutputRecord) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = encodeRecord(tmp, rec); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output into place: %w", err)
	}
	return nil
}

func encodeRecord(fh *os.File, rec *domain.OutputRecord) (err error) {
	// The header builder panics on invalid names or value types.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build output header: %v", r)
		}
	}()

	names := make([]string, len(rec.Dimensions))
	lengths := make([]int, len(rec.Dimensions))
	for i, d := range rec.Dimensions {
		names[i] = d.Name
		lengths[i] = d.Length
	}

	h := cdf.NewHeader(names, lengths)
	for _, v := range rec.Variables {
		h.AddVariable(v.Name, v.Dimensions, v.Data)
		for _, a := range v.Attributes {
			h.AddAttribute(v.Name, a.Name, a.Value)
		}
	}
	for _, a := range rec.Attributes {
		h.AddAttribute("", a.Name, a.Value)
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("invalid output header: %w", errors.Join(errs...))
	}

	f, err := cdf.Create(fh, h)
	if err != nil {
		return fmt.Errorf("write output header: %w", err)
	}
	for _, v := range rec.Variables {
		n, err := valueLen(v.Data)
		if err != nil {
			return fmt.Errorf("variable %s: %w", v.Name, err)
		}
		if err := writeVar(f, v.Name, v.Data, n); err != nil {
			return err
		}
	}
	return nil
}

func valueLen(v any) (int, error) {
	switch x := v.(type) {
	case []int32:
		return len(x), nil
	case []float64:
		return len(x), nil
	case []float32:
		return len(x), nil
	case []int16:
		return len(x), nil
	case []uint8:
		return len(x), nil
	}
	return 0, fmt.Errorf("unsupported value type %T", v)
}

// ReadRecord decodes a statistics file written by RecordStore.
func ReadRecord(path string) (*domain.OutputRecord, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record: %w", err)
	}
	defer fh.Close()

	f, err := cdf.Open(fh)
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	h := f.Header

	rec := &domain.OutputRecord{}
	dimLengths := h.Lengths("")
	for i, name := range h.Dimensions("") {
		rec.Dimensions = append(rec.Dimensions, domain.Dimension{Name: name, Length: dimLengths[i]})
	}
	for _, name := range h.Variables() {
		data, err := readVar(f, name, 0)
		if err != nil {
			return nil, err
		}
		v := domain.Variable{Name: name, Dimensions: h.Dimensions(name), Data: data}
		for _, a := range h.Attributes(name) {
			v.Attributes = append(v.Attributes, domain.Attribute{Name: a, Value: h.GetAttribute(name, a)})
		}
		rec.Variables = append(rec.Variables, v)
	}
	for _, a := range h.Attributes("") {
		rec.Attributes = append(rec.Attributes, domain.Attribute{Name: a, Value: h.GetAttribute("", a)})
	}
	return rec, nil
}

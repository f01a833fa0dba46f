// Command validate checks a yearly statistics file written by reflstats:
// dimensions against the year's grid geometry, coordinate values, global
// attributes, and count invariants across thresholds.
//
// Usage:
//
//	go run ./cmd/validate -file /data/out/zthresholds_2015.nc
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/radar-refl-stats/internal/adapter/netcdf"
	"github.com/couchcryptid/radar-refl-stats/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	file := flag.String("file", "", "path to a zthresholds_{year}.nc file")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*file))
}

func run(path string) int {
	fmt.Println("=== Reflectivity Statistics Validation ===")
	fmt.Println()

	rec, err := netcdf.ReadRecord(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read %s: %v\n", path, err)
		return 1
	}

	year, ok := scalarAttr(rec, domain.AttrYear)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s has no %q attribute\n", path, domain.AttrYear)
		return 1
	}
	g := domain.GeometryForYear(int(year))

	phases := validate(rec, g)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	total, _ := scalarAttr(rec, domain.AttrTotal)
	fmt.Printf("Year %d, geometry %s, %d files summed\n", year, g, total)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validate(rec *domain.OutputRecord, g domain.Geometry) []*phase {
	return []*phase{
		validateDimensions(rec, g),
		validateCoordinates(rec, g),
		validateAttributes(rec),
		validateCounts(rec, g),
	}
}

func validateDimensions(rec *domain.OutputRecord, g domain.Geometry) *phase {
	p := &phase{name: "Phase 1: Dimensions match geometry"}
	want := map[string]int{
		domain.DimAzimuth:   g.AzimuthBins,
		domain.DimRange:     g.RangeBins,
		domain.DimThreshold: domain.NumThresholds,
	}
	for name, n := range want {
		if got := rec.Dimension(name); got != n {
			p.errorf("dimension %s: got %d, want %d", name, got, n)
		}
	}
	for e := 0; e < domain.NumElevations; e++ {
		name := domain.ElevationVariable(e)
		v, ok := rec.Variable(name)
		if !ok {
			p.errorf("variable %s missing", name)
			continue
		}
		want := []string{domain.DimAzimuth, domain.DimRange, domain.DimThreshold}
		if fmt.Sprint(v.Dimensions) != fmt.Sprint(want) {
			p.errorf("variable %s dimensions %v, want %v", name, v.Dimensions, want)
		}
	}
	return p
}

func validateCoordinates(rec *domain.OutputRecord, g domain.Geometry) *phase {
	p := &phase{name: "Phase 2: Coordinate values"}

	if v, ok := rec.Variable(domain.DimAzimuth); !ok {
		p.errorf("azimuth coordinate missing")
	} else if az, ok := v.Data.([]float64); !ok {
		p.errorf("azimuth coordinate has type %T", v.Data)
	} else {
		for i, want := range domain.AzimuthCoordinates(g) {
			if i >= len(az) || math.Abs(az[i]-want) > 1e-9 {
				p.errorf("azimuth[%d]: want %g", i, want)
				break
			}
		}
	}

	checkInts := func(name string, want []int32) {
		v, ok := rec.Variable(name)
		if !ok {
			p.errorf("%s coordinate missing", name)
			return
		}
		got, ok := v.Data.([]int32)
		if !ok {
			p.errorf("%s coordinate has type %T", name, v.Data)
			return
		}
		if len(got) != len(want) {
			p.errorf("%s coordinate has %d values, want %d", name, len(got), len(want))
			return
		}
		for i := range want {
			if got[i] != want[i] {
				p.errorf("%s[%d]: got %d, want %d", name, i, got[i], want[i])
				return
			}
		}
	}
	checkInts(domain.DimRange, domain.RangeCoordinates(g))
	checkInts(domain.DimThreshold, domain.ThresholdCoordinates())
	return p
}

func validateAttributes(rec *domain.OutputRecord) *phase {
	p := &phase{name: "Phase 3: Global attributes"}
	total, okT := scalarAttr(rec, domain.AttrTotal)
	discovered, okD := scalarAttr(rec, domain.AttrFilesDiscovered)
	failed, okF := scalarAttr(rec, domain.AttrFilesFailed)
	if !okT {
		p.errorf("attribute %s missing", domain.AttrTotal)
		return p
	}
	if total < 1 {
		p.errorf("total is %d; a written record needs at least one file", total)
	}
	if okD && okF && discovered != total+failed {
		p.errorf("files_discovered %d != total %d + files_failed %d", discovered, total, failed)
	}
	return p
}

func validateCounts(rec *domain.OutputRecord, g domain.Geometry) *phase {
	p := &phase{name: "Phase 4: Count invariants"}
	n := g.AzimuthBins * g.RangeBins * domain.NumThresholds
	for e := 0; e < domain.NumElevations; e++ {
		name := domain.ElevationVariable(e)
		v, ok := rec.Variable(name)
		if !ok {
			continue
		}
		counts, ok := v.Data.([]int32)
		if !ok || len(counts) != n {
			p.errorf("%s: want %d int32 values, got %T of length %d", name, n, v.Data, valueLen(v.Data))
			continue
		}
		// A gate above a higher threshold is also above every lower one.
		for cell := 0; cell < n; cell += domain.NumThresholds {
			c := counts[cell : cell+domain.NumThresholds]
			if c[0] < 0 || c[1] > c[0] || c[2] > c[1] {
				az := cell / domain.NumThresholds / g.RangeBins
				rg := cell / domain.NumThresholds % g.RangeBins
				p.errorf("%s[%d,%d]: counts %v not non-increasing across thresholds", name, az, rg, c)
				break
			}
		}
	}
	return p
}

func scalarAttr(rec *domain.OutputRecord, name string) (int64, bool) {
	v, ok := rec.Attribute(name)
	if !ok {
		return 0, false
	}
	vals, ok := v.([]int32)
	if !ok || len(vals) != 1 {
		return 0, false
	}
	return int64(vals[0]), true
}

func valueLen(v any) int {
	switch x := v.(type) {
	case []int32:
		return len(x)
	case []float64:
		return len(x)
	}
	return 0
}

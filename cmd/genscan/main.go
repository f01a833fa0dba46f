// Command genscan writes synthetic CF/Radial PPI volumes for one year, laid
// out the way reflstats expects to discover them. Each volume carries a fixed
// set of clutter targets plus random weather echoes, so a yearly run shows the
// clutter cells standing out against a diffuse background.
//
// Usage:
//
//	go run ./cmd/genscan -out-dir /tmp/ppi -year 2015 -days 3 -scans-per-day 4
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/couchcryptid/radar-refl-stats/internal/adapter/netcdf"
	"github.com/couchcryptid/radar-refl-stats/internal/domain"
)

const (
	gateSpacing = 250.0
	firstGate   = 125.0
	sweeps      = 3
)

// clutterTarget is a fixed echo that appears in every volume.
type clutterTarget struct {
	azimuth float64
	gate    int
	dbz     float64
}

type options struct {
	outDir      string
	year        int
	days        int
	scansPerDay int
	gates       int
	seed        uint64
	field       string
	packed      bool
	unlimited   bool
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var o options
	flag.StringVar(&o.outDir, "out-dir", "", "input root to populate ({out-dir}/{year}/{yyyymmdd}/...)")
	flag.IntVar(&o.year, "year", 0, "year of the generated volumes")
	flag.IntVar(&o.days, "days", 2, "number of days to generate, starting 1 January")
	flag.IntVar(&o.scansPerDay, "scans-per-day", 4, "volumes per day")
	flag.IntVar(&o.gates, "gates", 240, "range gates per ray")
	flag.Uint64Var(&o.seed, "seed", 1, "random seed")
	flag.StringVar(&o.field, "field", "DBZ", "reflectivity variable name")
	flag.BoolVar(&o.packed, "packed", true, "store reflectivity as scaled int16")
	flag.BoolVar(&o.unlimited, "unlimited", false, "use an unlimited time dimension")
	flag.Parse()

	if o.outDir == "" || o.year <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out-dir, -year")
	}
	if o.days < 1 || o.scansPerDay < 1 || o.gates < 1 {
		return fmt.Errorf("-days, -scans-per-day and -gates must be positive")
	}

	g := domain.GeometryForYear(o.year)
	rng := rand.New(rand.NewPCG(o.seed, uint64(o.year)))
	clutter := []clutterTarget{
		{azimuth: 42, gate: o.gates / 10, dbz: 58},
		{azimuth: 137.5, gate: o.gates / 4, dbz: 63},
		{azimuth: 301, gate: o.gates / 2, dbz: 47},
	}
	enc := netcdf.ScanEncoding{Packed: o.packed, Unlimited: o.unlimited}

	start := time.Date(o.year, time.January, 1, 0, 0, 0, 0, time.UTC)
	interval := 24 * time.Hour / time.Duration(o.scansPerDay)
	var written int
	for d := 0; d < o.days; d++ {
		day := start.AddDate(0, 0, d)
		for s := 0; s < o.scansPerDay; s++ {
			ts := day.Add(time.Duration(s) * interval)
			path := filepath.Join(o.outDir, fmt.Sprint(o.year), ts.Format("20060102"),
				fmt.Sprintf("cfrad.%s_PPI.nc", ts.Format("20060102_150405")))
			scan := synthesize(rng, g, o.gates, clutter)
			if err := netcdf.WriteScan(path, scan, o.field, enc); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			written++
		}
	}

	log.Printf("wrote %d volumes for %d (%s) under %s", written, o.year, g, o.outDir)
	return nil
}

// synthesize builds one volume of three full-circle sweeps. Each sweep starts
// at a small random azimuth offset, as real antenna scans do.
func synthesize(rng *rand.Rand, g domain.Geometry, gates int, clutter []clutterTarget) *domain.Scan {
	rays := g.AzimuthBins
	s := &domain.Scan{Range: make([]float64, gates)}
	for i := range s.Range {
		s.Range[i] = firstGate + float64(i)*gateSpacing
	}

	for sweep := 0; sweep < sweeps; sweep++ {
		offset := rng.Float64() * g.AzimuthWidth * 0.4
		s.SweepStart = append(s.SweepStart, len(s.Azimuth))
		for r := 0; r < rays; r++ {
			s.Azimuth = append(s.Azimuth, math.Mod(offset+float64(r)*g.AzimuthWidth, 360))
		}
		s.SweepEnd = append(s.SweepEnd, len(s.Azimuth)-1)
	}

	s.Reflectivity = make([]float64, len(s.Azimuth)*gates)
	for i := range s.Reflectivity {
		s.Reflectivity[i] = math.NaN()
	}

	// Diffuse weather: a few random cells of varying strength.
	for cell := 0; cell < 20; cell++ {
		ray, gate := rng.IntN(len(s.Azimuth)), rng.IntN(gates)
		s.Reflectivity[ray*gates+gate] = 20 + rng.Float64()*45
	}

	// Clutter on the lowest sweep only, at every scan.
	for _, c := range clutter {
		if c.gate >= gates {
			continue
		}
		ray := s.SweepStart[0] + int(math.Round(c.azimuth/g.AzimuthWidth))%rays
		s.Reflectivity[ray*gates+c.gate] = c.dbz
	}
	return s
}

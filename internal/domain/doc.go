// Package domain models yearly reflectivity exceedance statistics for a
// scanning weather radar.
//
// # Data Source
//
// Input volumes are CF/Radial files: one file per volume scan, grouped under a
// directory per year. Each volume holds several fixed-elevation sweeps stored
// back to back along the ray axis; only the lowest three are analyzed.
//
// Arrays used:
//
//	range                  gate distance in meters, monotonic, first gate > 0
//	azimuth                per-ray pointing angle in degrees, 0–360 wrapping
//	DBZ                    reflectivity (ray × gate) in dBZ, with missing gates
//	sweep_start_ray_index  first ray of each sweep
//	sweep_end_ray_index    last ray of each sweep (inclusive)
//
// # Grid Geometry
//
// The radar's processing changed in 2008, and the output grid follows it:
//
//	before 2008:  240 azimuth bins × 1.5°,  429 range bins × 350 m
//	2008 onward:  360 azimuth bins × 1°,    600 range bins × 250 m
//
// Azimuth bins are counted from the sweep's smallest azimuth rather than true
// north, rounded half-to-even and wrapped modulo the bin count. Range bins are
// floored from the first gate; gates beyond the last bin are dropped.
//
// # Counting
//
// A gate counts once per threshold (40, 50, 60 dBZ) it strictly exceeds.
// Several gates falling in one cell within a volume each add one. The yearly
// histogram is the element-wise sum over every volume that decoded cleanly, so
// volumes may be processed in any order or partition.
//
// # Output
//
// One record per year, "zthresholds_<year>.nc", with sub-cubes zstats_elev0..2
// (azimuth × range × threshold), the three coordinate axes, and a global
// "total" attribute holding the number of volumes that contributed.
package domain

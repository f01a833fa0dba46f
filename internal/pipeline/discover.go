package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strconv"
)

// Discoverer lists the scan files of a year under {root}/{year}.
type Discoverer struct {
	root    string
	pattern string
}

// NewDiscoverer creates a Discoverer matching file names against pattern
// (filepath.Match syntax).
func NewDiscoverer(root, pattern string) (*Discoverer, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid scan pattern %q: %w", pattern, err)
	}
	return &Discoverer{root: root, pattern: pattern}, nil
}

// Discover walks the year directory recursively and returns matching regular
// files in lexical order. A missing year directory yields no files.
func (d *Discoverer) Discover(ctx context.Context, year int) ([]string, error) {
	dir := filepath.Join(d.root, strconv.Itoa(year))

	var paths []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if t := entry.Type(); !t.IsRegular() && t&fs.ModeSymlink == 0 {
			return nil
		}
		if ok, _ := filepath.Match(d.pattern, entry.Name()); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover scans in %s: %w", dir, err)
	}

	slices.Sort(paths)
	return paths, nil
}

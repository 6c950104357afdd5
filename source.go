// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceUnit identifies one source file for one pipeline stage.
// It is created fresh on every build request and never mutated.
type SourceUnit struct {
	// Name is the filename as requested, relative to the source root.
	Name string

	// Path is the resolved filesystem location.
	Path string

	// Stage is the pipeline stage the source compiles to.
	Stage Stage

	// ModTime is the modification time observed at resolution.
	ModTime time.Time
}

// Stem returns the filename without its extension.
func (u SourceUnit) Stem() string {
	return strings.TrimSuffix(u.Name, filepath.Ext(u.Name))
}

// ReadSource reads the full source text of the unit.
func (u SourceUnit) ReadSource() (string, error) {
	data, err := os.ReadFile(u.Path)
	if err != nil {
		return "", fmt.Errorf("read %s source %s: %w", u.Stage, u.Path, err)
	}
	return string(data), nil
}

// ResolveSource locates name under root for the given stage.
// Sources live directly in root: a name containing a path separator fails
// with ErrInvalidSourceName, since entry names are derived from stems
// alone. It fails with ErrSourceNotFound if the file is absent or not a
// regular file, and with ErrStageMismatch if the extension does not fit
// the stage.
func ResolveSource(root, name string, stage Stage) (SourceUnit, error) {
	if !ValidSourceName(name) {
		return SourceUnit{}, fmt.Errorf("%w: %q must be a file name in the source root", ErrInvalidSourceName, name)
	}
	if !stage.Accepts(name) {
		return SourceUnit{}, fmt.Errorf("%w: %s is not a %s source (want %s)",
			ErrStageMismatch, name, stage, strings.Join(stage.Extensions(), " or "))
	}
	path := filepath.Join(root, name)
	info, err := os.Stat(path)
	if err != nil {
		return SourceUnit{}, fmt.Errorf("%w: %s: %v", ErrSourceNotFound, path, err)
	}
	if !info.Mode().IsRegular() {
		return SourceUnit{}, fmt.Errorf("%w: %s is not a regular file", ErrSourceNotFound, path)
	}
	return SourceUnit{
		Name:    name,
		Path:    path,
		Stage:   stage,
		ModTime: info.ModTime(),
	}, nil
}

// ValidSourceName reports whether name is a plain file name: non-empty,
// not "." or "..", and free of path separators.
func ValidSourceName(name string) bool {
	switch name {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// ResolveSources resolves one source per variant stage, positionally.
func ResolveSources(root string, variant Variant, names []string) ([]SourceUnit, error) {
	if len(names) != len(variant) {
		return nil, fmt.Errorf("%w: %s needs %d sources, got %d",
			ErrStageMismatch, variant, len(variant), len(names))
	}
	units := make([]SourceUnit, len(names))
	for i, name := range names {
		u, err := ResolveSource(root, name, variant[i])
		if err != nil {
			return nil, err
		}
		units[i] = u
	}
	return units, nil
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package manifest loads the list of programs a cache generator builds.
//
// A manifest names the source and cache roots and, per program, its
// variant and ordered source files:
//
//	source_root = "Assets/Shaders"
//	cache_root  = "Assets/ShaderCache"
//
//	[[programs]]
//	name    = "cube"
//	variant = "mesh"
//	sources = ["cube.mesh", "base.frag"]
//
// TOML and YAML are accepted, chosen by file extension.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/progcache"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Manifest errors.
var (
	// ErrUnsupportedFormat is returned for a manifest extension other than
	// .toml, .yaml or .yml.
	ErrUnsupportedFormat = errors.New("manifest: unsupported format")

	// ErrInvalid is returned when a manifest fails validation.
	ErrInvalid = errors.New("manifest: invalid")
)

// Program is one program entry.
type Program struct {
	Name    string   `toml:"name" yaml:"name"`
	Variant string   `toml:"variant" yaml:"variant"`
	Sources []string `toml:"sources" yaml:"sources"`
}

// Stages returns the program's stage order.
func (p Program) Stages() (progcache.Variant, error) {
	v, ok := progcache.VariantByName(p.Variant)
	if !ok {
		return nil, fmt.Errorf("%w: program %q: unknown variant %q", ErrInvalid, p.Name, p.Variant)
	}
	return v, nil
}

// Entry returns the cache entry stem of the program, without extension.
func (p Program) Entry() string {
	stems := make([]string, len(p.Sources))
	for i, src := range p.Sources {
		stems[i] = strings.TrimSuffix(src, filepath.Ext(src))
	}
	return strings.Join(stems, progcache.ArtifactSeparator)
}

// owner identifies what an entry holds: the stage order and the sources.
func (p Program) owner(v progcache.Variant) string {
	return v.String() + " " + strings.Join(p.Sources, ",")
}

// Manifest lists the roots and programs of one shader asset tree.
type Manifest struct {
	SourceRoot string    `toml:"source_root" yaml:"source_root"`
	CacheRoot  string    `toml:"cache_root" yaml:"cache_root"`
	Extension  string    `toml:"extension,omitempty" yaml:"extension,omitempty"`
	Programs   []Program `toml:"programs" yaml:"programs"`
}

// Load reads and validates the manifest at file. Roots are expanded for
// "~" and resolved against the manifest's directory.
func Load(file string) (*Manifest, error) {
	file, err := homedir.Expand(file)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	m, err := Parse(data, filepath.Ext(file))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if err := m.resolve(filepath.Dir(file)); err != nil {
		return nil, err
	}
	return m, nil
}

// Parse decodes and validates a manifest. ext selects the decoder and
// includes the dot. Roots are left as written.
func Parse(data []byte, ext string) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(ext) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("manifest: decode toml: %w", err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("manifest: decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks program names, variants, source names and counts, and
// that programs built from different sources never share a cache entry.
func (m *Manifest) Validate() error {
	if len(m.Programs) == 0 {
		return fmt.Errorf("%w: no programs", ErrInvalid)
	}
	seen := make(map[string]bool, len(m.Programs))
	entries := make(map[string]string, len(m.Programs))
	for i, p := range m.Programs {
		if p.Name == "" {
			return fmt.Errorf("%w: program %d has no name", ErrInvalid, i)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate program %q", ErrInvalid, p.Name)
		}
		seen[p.Name] = true

		v, err := p.Stages()
		if err != nil {
			return err
		}
		if len(p.Sources) != len(v) {
			return fmt.Errorf("%w: program %q: variant %v needs %d sources, got %d",
				ErrInvalid, p.Name, v, len(v), len(p.Sources))
		}
		for j, src := range p.Sources {
			if !progcache.ValidSourceName(src) {
				return fmt.Errorf("%w: program %q: source %q must be a file name in the source root",
					ErrInvalid, p.Name, src)
			}
			if !v[j].Accepts(src) {
				return fmt.Errorf("%w: program %q: %q is not a %v source", ErrInvalid, p.Name, src, v[j])
			}
		}

		// Entries are named by source stems only, so different sources can
		// derive the same name.
		entry, owner := p.Entry(), p.owner(v)
		if other, ok := entries[entry]; ok && other != owner {
			return fmt.Errorf("%w: program %q: cache entry %q is already used by %s",
				ErrInvalid, p.Name, entry, other)
		}
		entries[entry] = owner
	}
	return nil
}

// resolve expands and anchors the roots at dir.
func (m *Manifest) resolve(dir string) error {
	for _, root := range []*string{&m.SourceRoot, &m.CacheRoot} {
		if *root == "" {
			continue
		}
		p, err := homedir.Expand(*root)
		if err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		*root = filepath.Clean(p)
	}
	if m.SourceRoot == "" {
		m.SourceRoot = filepath.Join(dir, progcache.DefaultSourceRoot)
	}
	return nil
}

// Config returns the pipeline configuration described by the manifest.
func (m *Manifest) Config() progcache.Config {
	return progcache.Config{
		SourceRoot: m.SourceRoot,
		CacheRoot:  m.CacheRoot,
		Extension:  m.Extension,
	}
}

// ByVariant groups programs by stage order, keyed by Variant.String(), in
// manifest order.
func (m *Manifest) ByVariant() map[string][]Program {
	groups := make(map[string][]Program)
	for _, p := range m.Programs {
		v, err := p.Stages()
		if err != nil {
			continue
		}
		groups[v.String()] = append(groups[v.String()], p)
	}
	return groups
}

// Using returns the programs that read the source file name.
func (m *Manifest) Using(name string) []Program {
	var out []Program
	for _, p := range m.Programs {
		for _, src := range p.Sources {
			if src == name {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

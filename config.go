// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import (
	"path/filepath"
	"strings"
)

// Default configuration values.
const (
	// DefaultSourceRoot is where shader sources are looked up.
	DefaultSourceRoot = "Assets/Shaders"

	// DefaultCacheRoot is where linked program binaries are persisted.
	DefaultCacheRoot = "Assets/ShaderCache"

	// DefaultExtension is appended to artifact names.
	DefaultExtension = ".bin"
)

// Config holds the filesystem locations a Pipeline works with.
type Config struct {
	// SourceRoot is the directory source filenames are resolved against.
	SourceRoot string

	// CacheRoot is the directory cache entries are written to.
	CacheRoot string

	// Extension is the cache entry file extension, including the dot.
	Extension string
}

// DefaultConfig returns the default configuration: sources under
// Assets/Shaders and binaries under the sibling Assets/ShaderCache.
func DefaultConfig() Config {
	return Config{
		SourceRoot: DefaultSourceRoot,
		CacheRoot:  DefaultCacheRoot,
		Extension:  DefaultExtension,
	}
}

// withDefaults fills empty fields from DefaultConfig. An empty CacheRoot
// becomes a ShaderCache sibling of the source root.
func (c Config) withDefaults() Config {
	if c.SourceRoot == "" {
		c.SourceRoot = DefaultSourceRoot
	}
	if c.CacheRoot == "" {
		c.CacheRoot = filepath.Join(filepath.Dir(filepath.Clean(c.SourceRoot)), "ShaderCache")
	}
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	if !strings.HasPrefix(c.Extension, ".") {
		c.Extension = "." + c.Extension
	}
	return c
}

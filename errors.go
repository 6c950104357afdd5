// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrSourceNotFound is returned when a source file does not exist under the
	// source root or is not a regular file.
	ErrSourceNotFound = errors.New("progcache: source not found")

	// ErrInvalidSourceName is returned when a source name is not a plain file
	// name directly under the source root.
	ErrInvalidSourceName = errors.New("progcache: invalid source name")

	// ErrStageMismatch is returned when the sources given to a build do not fit
	// the pipeline variant (wrong count or extension), or the variant itself is
	// malformed.
	ErrStageMismatch = errors.New("progcache: stage mismatch")

	// ErrNilDevice is returned when a pipeline or store is created without a device.
	ErrNilDevice = errors.New("progcache: device is nil")

	// ErrUnknownProgram is returned by Refresh for a program that was never built.
	ErrUnknownProgram = errors.New("progcache: unknown program")

	// ErrClosed is returned when building on a closed pipeline.
	ErrClosed = errors.New("progcache: pipeline is closed")

	// ErrNotLinked is returned when an unlinked artifact is activated or saved.
	ErrNotLinked = errors.New("progcache: artifact is not linked")

	// ErrEntryConflict is returned when two different source combinations
	// derive the same cache entry name on one store.
	ErrEntryConflict = errors.New("progcache: cache entry claimed by other sources")

	// ErrFormatChanged is returned when a cache entry was written under a
	// binary format the device no longer reports.
	ErrFormatChanged = errors.New("progcache: binary format changed")

	// ErrNotCompiled is returned when an uncompiled unit is attached for linking.
	ErrNotCompiled = errors.New("progcache: unit is not compiled")
)

// CompileError reports a non-success compile status for one stage.
type CompileError struct {
	Stage Stage
	Path  string
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("progcache: compile %s stage %s: %s", e.Stage, e.Path, strings.TrimSpace(e.Log))
}

// LinkError reports a non-success link status. Stages lists the stage
// combination that was attempted, in attach order.
type LinkError struct {
	Stages Variant
	Log    string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("progcache: link %s: %s", e.Stages, strings.TrimSpace(e.Log))
}

// CacheReadError reports an unreadable, corrupt or incompatible cache entry.
// Pipelines recover from it by rebuilding; it never reaches Build callers.
type CacheReadError struct {
	Name string
	Err  error
}

func (e *CacheReadError) Error() string {
	return fmt.Sprintf("progcache: read cache entry %s: %v", e.Name, e.Err)
}

func (e *CacheReadError) Unwrap() error { return e.Err }

// CacheWriteError reports a failure to persist a linked program. The build
// that produced it still succeeds; the program is simply not cached.
type CacheWriteError struct {
	Name string
	Err  error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("progcache: write cache entry %s: %v", e.Name, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }

// BuildError is returned by Pipeline.Build. State is the build state that
// was active when the failure happened.
type BuildError struct {
	Program string
	State   BuildState
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("progcache: build %q failed while %s: %v", e.Program, e.State, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

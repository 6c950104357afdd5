// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import "fmt"

// CompiledUnit is the compiled but unlinked form of a SourceUnit.
// It owns a native shader handle until Release is called.
type CompiledUnit struct {
	device   Device
	handle   Handle
	stage    Stage
	path     string
	compiled bool
	log      string
}

// Compile compiles source for unit on the device.
//
// On a non-success status the native handle is released immediately and a
// *CompileError carrying the diagnostic log is returned alongside the
// uncompiled unit. Compile performs no file writes.
func Compile(device Device, unit SourceUnit, source string) (*CompiledUnit, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	h, err := device.CreateShader(unit.Stage, unit.Name)
	if err != nil {
		return nil, fmt.Errorf("create %s shader %s: %w", unit.Stage, unit.Path, err)
	}
	cu := &CompiledUnit{
		device: device,
		handle: h,
		stage:  unit.Stage,
		path:   unit.Path,
	}
	ok, log := device.CompileShader(h, source)
	cu.log = log
	if !ok {
		cu.Release()
		return cu, &CompileError{Stage: unit.Stage, Path: unit.Path, Log: log}
	}
	cu.compiled = true
	return cu, nil
}

// Handle returns the native shader handle, or InvalidHandle once released.
func (u *CompiledUnit) Handle() Handle { return u.handle }

// Stage returns the stage inherited from the source unit.
func (u *CompiledUnit) Stage() Stage { return u.stage }

// Path returns the source path the unit was compiled from.
func (u *CompiledUnit) Path() string { return u.path }

// Compiled reports whether compilation succeeded and the handle is still held.
func (u *CompiledUnit) Compiled() bool { return u.compiled }

// Log returns the compiler diagnostic log, which may be non-empty on success.
func (u *CompiledUnit) Log() string { return u.log }

// Release deletes the native shader. It is safe to call more than once.
func (u *CompiledUnit) Release() {
	if u == nil || u.handle == InvalidHandle {
		return
	}
	u.device.DeleteShader(u.handle)
	u.handle = InvalidHandle
	u.compiled = false
}

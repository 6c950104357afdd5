// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import "fmt"

// Origin tells how a LinkedArtifact came to be.
type Origin uint8

const (
	// OriginCompiled means the program was compiled and linked from sources.
	OriginCompiled Origin = iota + 1

	// OriginCache means the program was materialized from a cache entry.
	OriginCache
)

// String returns "compiled" or "cache".
func (o Origin) String() string {
	switch o {
	case OriginCompiled:
		return "compiled"
	case OriginCache:
		return "cache"
	default:
		return "unknown"
	}
}

// LinkedArtifact is an executable program produced by linking compiled
// stages or by loading a cached binary. Only linked artifacts are handed to
// callers.
type LinkedArtifact struct {
	device Device
	handle Handle
	stages Variant
	origin Origin
	linked bool
	log    string
}

// Link attaches units in the given order, links them into one program and
// detaches them again. The units keep ownership of their shader handles.
//
// Every unit must be compiled and the units must follow pipeline order
// (Task → Mesh → Fragment, or Mesh → Fragment). On a non-success status the
// program handle is released and a *LinkError naming the attempted stage
// combination is returned together with the unlinked artifact.
func Link(device Device, units []*CompiledUnit) (*LinkedArtifact, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	stages := make(Variant, len(units))
	for i, u := range units {
		if u == nil || !u.Compiled() {
			return nil, fmt.Errorf("%w: stage %d", ErrNotCompiled, i)
		}
		stages[i] = u.Stage()
	}
	if err := stages.Validate(); err != nil {
		return nil, err
	}

	program, err := device.CreateProgram()
	if err != nil {
		return nil, fmt.Errorf("create program for %s: %w", stages, err)
	}
	for _, u := range units {
		device.AttachShader(program, u.Handle())
	}
	ok, log := device.LinkProgram(program)
	for _, u := range units {
		device.DetachShader(program, u.Handle())
	}

	a := &LinkedArtifact{
		device: device,
		handle: program,
		stages: stages,
		origin: OriginCompiled,
		log:    log,
	}
	if !ok {
		a.Release()
		return a, &LinkError{Stages: stages, Log: log}
	}
	a.linked = true
	return a, nil
}

// Handle returns the native program handle, or InvalidHandle once released.
func (a *LinkedArtifact) Handle() Handle { return a.handle }

// Stages returns the stage combination of the program.
func (a *LinkedArtifact) Stages() Variant { return a.stages }

// Linked reports whether the artifact holds a usable program.
func (a *LinkedArtifact) Linked() bool { return a.linked }

// Origin reports whether the program was compiled or loaded from cache.
func (a *LinkedArtifact) Origin() Origin { return a.origin }

// Log returns the linker diagnostic log.
func (a *LinkedArtifact) Log() string { return a.log }

// Activate binds the program for subsequent draw calls.
func (a *LinkedArtifact) Activate() error {
	if a == nil || !a.linked {
		return ErrNotLinked
	}
	a.device.UseProgram(a.handle)
	return nil
}

// Release deletes the native program. It is safe to call more than once.
func (a *LinkedArtifact) Release() {
	if a == nil || a.handle == InvalidHandle {
		return
	}
	a.device.DeleteProgram(a.handle)
	a.handle = InvalidHandle
	a.linked = false
}

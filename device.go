// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

// Handle is an opaque native object id issued by a Device.
// The zero Handle is never valid.
type Handle uint64

// InvalidHandle is the zero, never-issued handle.
const InvalidHandle Handle = 0

// BinaryFormat tags the encoding of a program binary. Tags are not assumed
// stable across driver versions, so a Device reports its current tag on
// every call to BinaryFormat.
type BinaryFormat uint32

// Device is the graphics layer that physically compiles, links and binds
// programs. progcache decides whether to invoke it and how to persist what
// it produces; it never compiles anything itself.
//
// A Device is used from a single goroutine at a time.
//
// See backend/native for an implementation on top of gogpu/wgpu.
type Device interface {
	// CreateShader allocates an empty shader object for the stage.
	CreateShader(stage Stage, label string) (Handle, error)

	// CompileShader compiles source into the shader and reports the
	// compile status with its diagnostic log.
	CompileShader(shader Handle, source string) (ok bool, log string)

	// DeleteShader releases a shader object.
	DeleteShader(shader Handle)

	// CreateProgram allocates an empty program object.
	CreateProgram() (Handle, error)

	// AttachShader attaches a compiled shader to a program before linking.
	AttachShader(program, shader Handle)

	// DetachShader detaches a shader after linking.
	DetachShader(program, shader Handle)

	// LinkProgram links the attached shaders and reports the link status
	// with its diagnostic log.
	LinkProgram(program Handle) (ok bool, log string)

	// DeleteProgram releases a program object.
	DeleteProgram(program Handle)

	// ProgramBinary serializes a linked program. The blob need not carry
	// its own format tag; ArtifactStore records the returned tag with it.
	ProgramBinary(program Handle) (BinaryFormat, []byte, error)

	// BinaryFormat returns the binary format tag the device currently loads.
	BinaryFormat() BinaryFormat

	// LoadProgramBinary materializes a program from a serialized binary and
	// reports the resulting link status with its diagnostic log.
	LoadProgramBinary(program Handle, format BinaryFormat, blob []byte) (ok bool, log string)

	// UseProgram binds the program for subsequent draw calls.
	UseProgram(program Handle)
}

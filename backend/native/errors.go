// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNilHALDevice is returned when a Device is created without a HAL device.
	ErrNilHALDevice = errors.New("native: HAL device is nil")

	// ErrNoAdapter is returned when the HAL instance exposes no adapter.
	ErrNoAdapter = errors.New("native: no adapter available")

	// ErrNoHALProvider is returned when a device provider does not expose HAL types.
	ErrNoHALProvider = errors.New("native: provider does not expose HAL types")

	// ErrUnknownHandle is returned for a handle the device never issued or already released.
	ErrUnknownHandle = errors.New("native: unknown handle")

	// ErrProgramNotLinked is returned when serializing a program that is not linked.
	ErrProgramNotLinked = errors.New("native: program is not linked")

	// ErrBinaryTruncated is returned when a program binary is shorter than its header says.
	ErrBinaryTruncated = errors.New("native: program binary truncated")

	// ErrBinaryMagic is returned when a program binary does not start with the container magic.
	ErrBinaryMagic = errors.New("native: not a program binary")

	// ErrBinaryVersion is returned for an unsupported container version.
	ErrBinaryVersion = errors.New("native: unsupported program binary version")

	// ErrBinaryChecksum is returned when the container checksum does not match.
	ErrBinaryChecksum = errors.New("native: program binary checksum mismatch")

	// ErrBinaryFormat is returned when the binary was written for a different format tag.
	ErrBinaryFormat = errors.New("native: program binary format mismatch")
)

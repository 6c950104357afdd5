// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"hash/fnv"

	"github.com/gogpu/progcache"
	"github.com/gogpu/wgpu/hal"
)

// ShaderModule is one compiled stage: its SPIR-V code and, once created,
// the HAL module built from it.
type ShaderModule struct {
	// label is an optional debug name.
	label string

	// stage is the pipeline stage the module was compiled for.
	stage progcache.Stage

	// spirv is the compiled SPIR-V code.
	spirv []uint32

	// codeHash is a hash of the SPIR-V bytecode.
	codeHash uint64

	// halModule is the underlying shader module.
	halModule hal.ShaderModule
}

// newShaderModule creates a HAL module from SPIR-V code and wraps it.
func newShaderModule(device hal.Device, label string, stage progcache.Stage, spirv []uint32) (*ShaderModule, error) {
	m, err := CreateShaderModule(device, label, spirv)
	if err != nil {
		return nil, err
	}
	return &ShaderModule{
		label:     label,
		stage:     stage,
		spirv:     spirv,
		codeHash:  hashBytes(wordsToBytes(spirv)),
		halModule: m,
	}, nil
}

// Label returns the shader module's debug label.
func (m *ShaderModule) Label() string { return m.label }

// Stage returns the stage the module was compiled for.
func (m *ShaderModule) Stage() progcache.Stage { return m.stage }

// SPIRV returns the module's SPIR-V words.
func (m *ShaderModule) SPIRV() []uint32 { return m.spirv }

// CodeHash returns the hash of the shader bytecode.
func (m *ShaderModule) CodeHash() uint64 { return m.codeHash }

// Raw returns the underlying HAL shader module, or nil once destroyed.
func (m *ShaderModule) Raw() hal.ShaderModule { return m.halModule }

// destroy releases the HAL module.
func (m *ShaderModule) destroy(device hal.Device) {
	if m.halModule == nil {
		return
	}
	device.DestroyShaderModule(m.halModule)
	m.halModule = nil
}

// hashBytes computes an FNV-1a hash of a byte slice.
func hashBytes(data []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(data)
	return h.Sum64()
}

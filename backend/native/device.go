// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/progcache"
	"github.com/gogpu/progcache/internal/spvcache"
	"github.com/gogpu/wgpu/hal"
)

// DefaultBinaryFormat is the format tag of SPIR-V program containers
// written by this package ("SPV1").
const DefaultBinaryFormat progcache.BinaryFormat = 0x31565053

// shader is a shader object: created empty, then compiled.
type shader struct {
	stage  progcache.Stage
	label  string
	module *ShaderModule
}

// program is a program object. Linking or loading a binary gives it its
// own shader modules, so the shaders it was linked from may be deleted.
type program struct {
	attached []progcache.Handle
	modules  []*ShaderModule
	linked   bool
}

// DeviceStats holds device counters.
type DeviceStats struct {
	Compiles        uint64
	CompileFailures uint64
	Links           uint64
	BinaryLoads     uint64

	// SPIRVReuses counts compiles served from the SPIR-V cache without naga.
	SPIRVReuses uint64
	// SPIRVCached is the number of translated sources currently kept.
	SPIRVCached int
	// SPIRVEvictions counts translations dropped to stay within capacity.
	SPIRVEvictions uint64
}

// Device implements progcache.Device on a HAL device. WGSL sources are
// compiled to SPIR-V with naga; a linked program is the ordered set of its
// stage modules and serializes to a checksummed SPIR-V container.
//
// Thread Safety:
// Device is safe for concurrent use. Object tables are protected by a mutex
// and statistics are updated atomically.
type Device struct {
	mu sync.Mutex

	hal     hal.Device
	release func()
	format  progcache.BinaryFormat
	spv     *spvcache.Cache
	spvSize int

	next     progcache.Handle
	shaders  map[progcache.Handle]*shader
	programs map[progcache.Handle]*program
	active   progcache.Handle

	compiles        uint64
	compileFailures uint64
	links           uint64
	loads           uint64
}

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithBinaryFormat overrides the format tag the device writes and accepts.
// Changing it invalidates every previously written program binary.
func WithBinaryFormat(format progcache.BinaryFormat) DeviceOption {
	return func(d *Device) {
		d.format = format
	}
}

// WithSPIRVCache sets how many translated WGSL sources the device keeps so
// identical sources skip naga. A negative size disables the cache.
func WithSPIRVCache(size int) DeviceOption {
	return func(d *Device) {
		d.spvSize = size
	}
}

// NewDevice wraps a HAL device. The caller keeps ownership of device;
// Destroy releases only the objects this Device created.
func NewDevice(device hal.Device, opts ...DeviceOption) (*Device, error) {
	if device == nil {
		return nil, ErrNilHALDevice
	}
	d := &Device{
		hal:      device,
		format:   DefaultBinaryFormat,
		shaders:  make(map[progcache.Handle]*shader),
		programs: make(map[progcache.Handle]*program),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.spvSize >= 0 {
		d.spv = spvcache.New(d.spvSize)
	}
	return d, nil
}

// SetLogger sets the logger for the native backend.
func (d *Device) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// HAL returns the underlying HAL device.
func (d *Device) HAL() hal.Device { return d.hal }

func (d *Device) alloc() progcache.Handle {
	d.next++
	return d.next
}

// CreateShader allocates an empty shader object.
func (d *Device) CreateShader(stage progcache.Stage, label string) (progcache.Handle, error) {
	if !stage.IsValid() {
		return progcache.InvalidHandle, fmt.Errorf("native: unknown stage %v", stage)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.alloc()
	d.shaders[h] = &shader{stage: stage, label: label}
	return h, nil
}

// CompileShader compiles WGSL source with naga and creates the HAL module.
func (d *Device) CompileShader(h progcache.Handle, source string) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.shaders[h]
	if !ok {
		return false, ErrUnknownHandle.Error()
	}
	atomic.AddUint64(&d.compiles, 1)
	if s.module != nil {
		s.module.destroy(d.hal)
		s.module = nil
	}

	spirv, err := d.translate(source)
	if err != nil {
		atomic.AddUint64(&d.compileFailures, 1)
		return false, fmt.Sprintf("%s: %v", s.label, err)
	}
	m, err := newShaderModule(d.hal, s.label, s.stage, spirv)
	if err != nil {
		atomic.AddUint64(&d.compileFailures, 1)
		return false, fmt.Sprintf("%s: create shader module: %v", s.label, err)
	}
	s.module = m
	slogger().Debug("native: shader compiled", "label", s.label, "stage", s.stage.String(), "words", len(spirv))
	return true, ""
}

// translate returns the SPIR-V for a WGSL source, from the cache if possible.
func (d *Device) translate(source string) ([]uint32, error) {
	if d.spv == nil {
		return CompileShaderToSPIRV(source)
	}
	key := spvcache.KeyOf(source)
	if words, ok := d.spv.Get(key); ok {
		return words, nil
	}
	words, err := CompileShaderToSPIRV(source)
	if err != nil {
		return nil, err
	}
	d.spv.Put(key, words)
	return words, nil
}

// DeleteShader releases a shader object and its HAL module.
func (d *Device) DeleteShader(h progcache.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.shaders[h]
	if !ok {
		return
	}
	if s.module != nil {
		s.module.destroy(d.hal)
	}
	delete(d.shaders, h)
}

// CreateProgram allocates an empty program object.
func (d *Device) CreateProgram() (progcache.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.alloc()
	d.programs[h] = &program{}
	return h, nil
}

// AttachShader attaches a shader to a program.
func (d *Device) AttachShader(ph, sh progcache.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.programs[ph]; ok {
		p.attached = append(p.attached, sh)
	}
}

// DetachShader detaches a shader from a program.
func (d *Device) DetachShader(ph, sh progcache.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[ph]
	if !ok {
		return
	}
	for i, h := range p.attached {
		if h == sh {
			p.attached = append(p.attached[:i], p.attached[i+1:]...)
			return
		}
	}
}

// LinkProgram checks the attached stages and gives the program its own
// copy of every stage module.
func (d *Device) LinkProgram(ph progcache.Handle) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[ph]
	if !ok {
		return false, ErrUnknownHandle.Error()
	}
	atomic.AddUint64(&d.links, 1)
	d.releaseModules(p)

	code := make([]stageCode, 0, len(p.attached))
	for _, sh := range p.attached {
		s, ok := d.shaders[sh]
		if !ok {
			return false, fmt.Sprintf("attached shader %d does not exist", sh)
		}
		if s.module == nil {
			return false, fmt.Sprintf("%s stage %s is not compiled", s.stage, s.label)
		}
		code = append(code, stageCode{stage: s.stage, spirv: s.module.SPIRV()})
	}
	if err := d.instantiate(p, code); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// instantiate validates the stage combination and creates the program's
// HAL modules. Called with d.mu held.
func (d *Device) instantiate(p *program, code []stageCode) error {
	stages := make(progcache.Variant, len(code))
	for i, c := range code {
		stages[i] = c.stage
	}
	if err := stages.Validate(); err != nil {
		return err
	}
	modules := make([]*ShaderModule, 0, len(code))
	for _, c := range code {
		m, err := newShaderModule(d.hal, "program "+c.stage.String(), c.stage, c.spirv)
		if err != nil {
			for _, created := range modules {
				created.destroy(d.hal)
			}
			return fmt.Errorf("create %s module: %w", c.stage, err)
		}
		modules = append(modules, m)
	}
	p.modules = modules
	p.linked = true
	return nil
}

// releaseModules destroys a program's modules. Called with d.mu held.
func (d *Device) releaseModules(p *program) {
	for _, m := range p.modules {
		m.destroy(d.hal)
	}
	p.modules = nil
	p.linked = false
}

// DeleteProgram releases a program object and its modules.
func (d *Device) DeleteProgram(ph progcache.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[ph]
	if !ok {
		return
	}
	d.releaseModules(p)
	delete(d.programs, ph)
	if d.active == ph {
		d.active = progcache.InvalidHandle
	}
}

// ProgramBinary serializes a linked program into a SPIR-V container.
func (d *Device) ProgramBinary(ph progcache.Handle) (progcache.BinaryFormat, []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[ph]
	if !ok {
		return 0, nil, ErrUnknownHandle
	}
	if !p.linked {
		return 0, nil, ErrProgramNotLinked
	}
	code := make([]stageCode, len(p.modules))
	for i, m := range p.modules {
		code[i] = stageCode{stage: m.Stage(), spirv: m.SPIRV()}
	}
	return d.format, encodeProgram(d.format, code), nil
}

// BinaryFormat returns the format tag the device currently accepts.
func (d *Device) BinaryFormat() progcache.BinaryFormat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format
}

// LoadProgramBinary materializes a program from a SPIR-V container without
// recompiling any source. The binary is rejected if it is truncated,
// corrupt, or was written for a format tag other than format.
func (d *Device) LoadProgramBinary(ph progcache.Handle, format progcache.BinaryFormat, blob []byte) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[ph]
	if !ok {
		return false, ErrUnknownHandle.Error()
	}
	atomic.AddUint64(&d.loads, 1)
	d.releaseModules(p)

	written, code, err := decodeProgram(blob)
	if err != nil {
		return false, err.Error()
	}
	if written != format {
		return false, fmt.Sprintf("%v: binary %#08x, device %#08x", ErrBinaryFormat, uint32(written), uint32(format))
	}
	if err := d.instantiate(p, code); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// UseProgram records the program as active for subsequent draws.
func (d *Device) UseProgram(ph progcache.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.programs[ph]; !ok {
		slogger().Warn("native: UseProgram with unknown handle", "handle", uint64(ph))
		return
	}
	d.active = ph
}

// Active returns the program bound by the last UseProgram call.
func (d *Device) Active() progcache.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Modules returns the stage modules of a linked program, in stage order.
// The renderer builds its HAL pipelines from them.
func (d *Device) Modules(ph progcache.Handle) []*ShaderModule {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[ph]
	if !ok || !p.linked {
		return nil
	}
	return append([]*ShaderModule(nil), p.modules...)
}

// Stats returns device counters.
func (d *Device) Stats() DeviceStats {
	st := DeviceStats{
		Compiles:        atomic.LoadUint64(&d.compiles),
		CompileFailures: atomic.LoadUint64(&d.compileFailures),
		Links:           atomic.LoadUint64(&d.links),
		BinaryLoads:     atomic.LoadUint64(&d.loads),
	}
	if d.spv != nil {
		spv := d.spv.Stats()
		st.SPIRVReuses = spv.Hits
		st.SPIRVCached = spv.Len
		st.SPIRVEvictions = spv.Evictions
	}
	return st
}

// Destroy releases every shader and program object, drops the translated
// SPIR-V, then the HAL resources the Device opened itself (see OpenNoop).
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.spv != nil {
		d.spv.Clear()
	}
	for h, s := range d.shaders {
		if s.module != nil {
			s.module.destroy(d.hal)
		}
		delete(d.shaders, h)
	}
	for h, p := range d.programs {
		d.releaseModules(p)
		delete(d.programs, h)
	}
	d.active = progcache.InvalidHandle
	if d.release != nil {
		d.release()
		d.release = nil
	}
}

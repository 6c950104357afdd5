// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
)

// Stats holds pipeline counters.
type Stats struct {
	// Hits counts builds served from a cache entry.
	Hits uint64

	// Misses counts builds that compiled and linked, including recovered
	// cache read failures and forced refreshes.
	Misses uint64

	// ReadFailures counts cache entries that failed to load and were rebuilt.
	ReadFailures uint64

	// WriteFailures counts linked programs that could not be persisted.
	WriteFailures uint64

	// Failures counts builds that ended in StateFailed.
	Failures uint64
}

// slot is the current program registered under one name.
type slot struct {
	artifact *LinkedArtifact
	sources  []string
}

// Pipeline builds programs of one Variant, reusing cached binaries when no
// source changed since the entry was written.
//
// Each program name owns a slot. A successful build replaces the slot's
// artifact and releases the previous one; a failed build leaves the
// previous artifact in place.
//
// Thread Safety:
// Builds on one Pipeline are serialized by a mutex and run entirely on the
// caller's goroutine. Two pipelines must not write the same artifact name
// concurrently.
type Pipeline struct {
	mu sync.Mutex

	cfg     Config
	device  Device
	variant Variant
	store   *ArtifactStore
	logger  *slog.Logger

	slots  map[string]*slot
	traces map[string][]BuildState
	stats  Stats
	closed bool
}

// NewPipeline creates a pipeline for variant using device to compile,
// link and load programs.
func NewPipeline(cfg Config, device Device, variant Variant, opts ...Option) (*Pipeline, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if err := variant.Validate(); err != nil {
		return nil, err
	}
	o := pipelineOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.withDefaults()
	store := o.store
	if store == nil {
		var err error
		if store, err = NewArtifactStore(cfg.CacheRoot, device); err != nil {
			return nil, err
		}
	}

	p := &Pipeline{
		cfg:     cfg,
		device:  device,
		variant: slices.Clone(variant),
		store:   store,
		logger:  o.logger,
		slots:   make(map[string]*slot),
		traces:  make(map[string][]BuildState),
	}
	propagateLogger(device, p.log())
	return p, nil
}

// log returns the pipeline logger, falling back to the package default.
func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return Logger()
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Variant returns the stage list the pipeline builds.
func (p *Pipeline) Variant() Variant { return slices.Clone(p.variant) }

// Store returns the artifact store.
func (p *Pipeline) Store() *ArtifactStore { return p.store }

// Build resolves sources (one filename per variant stage, in stage order),
// and either loads the program from its cache entry or compiles and links
// it, persisting the result. The returned artifact is linked and becomes
// the program's current slot.
//
// Errors are *BuildError values wrapping ErrSourceNotFound,
// ErrInvalidSourceName, ErrStageMismatch, ErrEntryConflict, *CompileError
// or *LinkError. Cache failures are never
// returned: unreadable entries are rebuilt and write failures are logged.
func (p *Pipeline) Build(program string, sources ...string) (*LinkedArtifact, error) {
	return p.build(program, sources, false)
}

// Refresh recompiles and relinks a previously built program from its
// sources, ignoring the cache entry, and overwrites the entry.
func (p *Pipeline) Refresh(program string) (*LinkedArtifact, error) {
	p.mu.Lock()
	s, ok := p.slots[program]
	var sources []string
	if ok {
		sources = slices.Clone(s.sources)
	}
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, program)
	}
	return p.build(program, sources, true)
}

func (p *Pipeline) build(program string, sources []string, force bool) (*LinkedArtifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, &BuildError{Program: program, State: StateResolving, Err: ErrClosed}
	}

	run := newBuildRun(program)
	a, err := p.run(run, sources, force)
	p.traces[program] = run.trace
	if err != nil {
		p.stats.Failures++
		if _, ok := p.slots[program]; ok {
			p.log().Warn("progcache: build failed, keeping previous program",
				"program", program, "error", err)
		}
		return nil, err
	}

	if old, ok := p.slots[program]; ok && old.artifact != a {
		old.artifact.Release()
	}
	p.slots[program] = &slot{artifact: a, sources: slices.Clone(sources)}
	p.log().Info("progcache: program ready",
		"program", program, "origin", a.Origin().String(), "stages", p.variant.String())
	return a, nil
}

// run drives one build through its states. Intermediate shader handles are
// owned by the run and released before it returns.
func (p *Pipeline) run(run *buildRun, sources []string, force bool) (*LinkedArtifact, error) {
	units, err := ResolveSources(p.cfg.SourceRoot, p.variant, sources)
	if err != nil {
		return nil, run.fail(err)
	}

	run.transition(StateDeciding)
	name := ArtifactName(units, p.cfg.Extension)
	if err := p.store.Claim(name, units); err != nil {
		return nil, run.fail(err)
	}
	entryTime, exists := p.store.Stat(name)
	decision := Rebuild
	if !force {
		decision = Decide(entryTime, exists, units)
	}
	p.log().Debug("progcache: cache decision",
		"program", run.program, "entry", name, "exists", exists, "forced", force,
		"decision", decision.String())

	if decision == UseCached {
		run.transition(StateLoading)
		a, err := p.store.Load(name, p.variant)
		if err == nil {
			p.stats.Hits++
			run.transition(StateReady)
			return a, nil
		}
		p.stats.ReadFailures++
		p.log().Warn("progcache: cache entry unusable, rebuilding",
			"program", run.program, "entry", name, "error", err)
	}
	p.stats.Misses++

	run.transition(StateCompiling)
	// Arena indexed by stage position; every handle in it is released on
	// return, whether linking succeeded or not.
	compiled := make([]*CompiledUnit, 0, len(units))
	defer func() {
		for _, cu := range compiled {
			cu.Release()
		}
	}()
	for _, u := range units {
		src, err := u.ReadSource()
		if err != nil {
			return nil, run.fail(err)
		}
		p.log().Debug("progcache: compiling", "program", run.program, "stage", u.Stage.String(), "path", u.Path)
		cu, err := Compile(p.device, u, src)
		if err != nil {
			return nil, run.fail(err)
		}
		compiled = append(compiled, cu)
	}

	run.transition(StateLinking)
	a, err := Link(p.device, compiled)
	if err != nil {
		return nil, run.fail(err)
	}
	if err := p.store.Save(name, a); err != nil {
		p.stats.WriteFailures++
		p.log().Warn("progcache: program not persisted", "program", run.program, "error", err)
	}
	run.transition(StateReady)
	return a, nil
}

// Program returns the current artifact of a program slot.
func (p *Pipeline) Program(program string) (*LinkedArtifact, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[program]
	if !ok {
		return nil, false
	}
	return s.artifact, true
}

// Sources returns the filenames a program slot was last built from.
func (p *Pipeline) Sources(program string) ([]string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[program]
	if !ok {
		return nil, false
	}
	return slices.Clone(s.sources), true
}

// Programs returns the names of all program slots, sorted.
func (p *Pipeline) Programs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.slots))
	for name := range p.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trace returns the states visited by the most recent build of program.
func (p *Pipeline) Trace(program string) []BuildState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.traces[program])
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Close releases every program slot. Builds after Close fail with ErrClosed.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for name, s := range p.slots {
		s.artifact.Release()
		delete(p.slots, name)
	}
	p.closed = true
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import "fmt"

// BuildState is a state of a single Pipeline.Build call.
//
//	Resolving → Deciding → Loading ─────────────→ Ready
//	                   │       └─→ Compiling → Linking → Ready
//	                   └─────────→ Compiling
//	any non-terminal state → Failed
type BuildState uint8

const (
	StateResolving BuildState = iota + 1
	StateDeciding
	StateLoading
	StateCompiling
	StateLinking
	StateReady
	StateFailed
)

// String returns the lower-case state name.
func (s BuildState) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateDeciding:
		return "deciding"
	case StateLoading:
		return "loading"
	case StateCompiling:
		return "compiling"
	case StateLinking:
		return "linking"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("BuildState(%d)", uint8(s))
	}
}

// IsTerminal reports whether the state ends a build.
func (s BuildState) IsTerminal() bool {
	return s == StateReady || s == StateFailed
}

func isAllowedTransition(from, to BuildState) bool {
	if to == StateFailed {
		return !from.IsTerminal()
	}
	switch from {
	case StateResolving:
		return to == StateDeciding
	case StateDeciding:
		return to == StateLoading || to == StateCompiling
	case StateLoading:
		// A failed load falls back to compiling.
		return to == StateReady || to == StateCompiling
	case StateCompiling:
		return to == StateLinking
	case StateLinking:
		return to == StateReady
	default:
		return false
	}
}

// buildRun tracks the state of one in-flight build and the path it took.
type buildRun struct {
	program string
	state   BuildState
	trace   []BuildState
}

func newBuildRun(program string) *buildRun {
	return &buildRun{
		program: program,
		state:   StateResolving,
		trace:   []BuildState{StateResolving},
	}
}

// transition moves the run to the next state. An invalid transition is an
// internal invariant violation and panics.
func (r *buildRun) transition(to BuildState) {
	if !isAllowedTransition(r.state, to) {
		panic(fmt.Sprintf("progcache: disallowed build transition for %q: %s -> %s", r.program, r.state, to))
	}
	r.state = to
	r.trace = append(r.trace, to)
}

// fail wraps err in a *BuildError for the current state and moves to Failed.
func (r *buildRun) fail(err error) error {
	failed := r.state
	r.transition(StateFailed)
	return &BuildError{Program: r.program, State: failed, Err: err}
}

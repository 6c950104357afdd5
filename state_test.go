// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import (
	"errors"
	"testing"
)

func TestBuildStateTransitions(t *testing.T) {
	tests := []struct {
		from, to BuildState
		want     bool
	}{
		{StateResolving, StateDeciding, true},
		{StateResolving, StateCompiling, false},
		{StateDeciding, StateLoading, true},
		{StateDeciding, StateCompiling, true},
		{StateDeciding, StateReady, false},
		{StateLoading, StateReady, true},
		{StateLoading, StateCompiling, true},
		{StateLoading, StateLinking, false},
		{StateCompiling, StateLinking, true},
		{StateCompiling, StateReady, false},
		{StateLinking, StateReady, true},
		{StateLinking, StateFailed, true},
		{StateReady, StateFailed, false},
		{StateFailed, StateFailed, false},
		{StateReady, StateResolving, false},
	}
	for _, tt := range tests {
		if got := isAllowedTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("%s -> %s allowed = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestBuildRunFail(t *testing.T) {
	r := newBuildRun("cube")
	r.transition(StateDeciding)
	r.transition(StateCompiling)

	cause := errors.New("boom")
	err := r.fail(cause)
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BuildError, got %T", err)
	}
	if be.State != StateCompiling || be.Program != "cube" || !errors.Is(err, cause) {
		t.Errorf("BuildError = %+v", be)
	}
	if r.state != StateFailed {
		t.Errorf("state = %s, want failed", r.state)
	}
}

func TestBuildRunDisallowedTransitionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on disallowed transition")
		}
	}()
	r := newBuildRun("cube")
	r.transition(StateReady)
}

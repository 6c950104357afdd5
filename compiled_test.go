// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import (
	"errors"
	"strings"
	"testing"
)

func TestCompile(t *testing.T) {
	dev := newMockDevice()
	unit := SourceUnit{Name: "cube.mesh", Path: "/src/cube.mesh", Stage: StageMesh}

	cu, err := Compile(dev, unit, "void main() {}")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !cu.Compiled() {
		t.Error("expected compiled unit")
	}
	if cu.Stage() != StageMesh {
		t.Errorf("Stage() = %v, want Mesh", cu.Stage())
	}
	if cu.Handle() == InvalidHandle {
		t.Error("expected a live handle")
	}

	cu.Release()
	cu.Release()
	if dev.liveShaders() != 0 {
		t.Errorf("expected shader released, %d live", dev.liveShaders())
	}
	if cu.Compiled() {
		t.Error("released unit must not report compiled")
	}
}

func TestCompileFailureReleasesHandle(t *testing.T) {
	dev := newMockDevice()
	unit := SourceUnit{Name: "base.frag", Path: "/src/base.frag", Stage: StageFragment}

	cu, err := Compile(dev, unit, "syntax error here")
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompileError, got %v", err)
	}
	if ce.Stage != StageFragment || ce.Path != "/src/base.frag" {
		t.Errorf("CompileError = %+v", ce)
	}
	if !strings.Contains(ce.Log, "syntax error") {
		t.Errorf("CompileError.Log = %q", ce.Log)
	}
	if cu == nil || cu.Compiled() || cu.Handle() != InvalidHandle {
		t.Error("failed unit must be uncompiled with no handle")
	}
	if dev.liveShaders() != 0 {
		t.Errorf("expected no live shaders, got %d", dev.liveShaders())
	}
}

func TestCompileNilDevice(t *testing.T) {
	if _, err := Compile(nil, SourceUnit{}, ""); !errors.Is(err, ErrNilDevice) {
		t.Errorf("expected ErrNilDevice, got %v", err)
	}
}

func compileAll(t *testing.T, dev *mockDevice, stages ...Stage) []*CompiledUnit {
	t.Helper()
	units := make([]*CompiledUnit, len(stages))
	for i, s := range stages {
		cu, err := Compile(dev, SourceUnit{Name: s.String(), Path: s.String(), Stage: s}, "src "+s.String())
		if err != nil {
			t.Fatalf("Compile(%v): %v", s, err)
		}
		units[i] = cu
	}
	return units
}

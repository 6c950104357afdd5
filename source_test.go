// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveSource(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Unix(100, 0)
	writeSource(t, dir, "cube.mesh", "mesh", mtime)
	if err := os.Mkdir(filepath.Join(dir, "dir.frag"), 0o755); err != nil {
		t.Fatal(err)
	}

	u, err := ResolveSource(dir, "cube.mesh", StageMesh)
	if err != nil {
		t.Fatalf("ResolveSource() error = %v", err)
	}
	if u.Path != filepath.Join(dir, "cube.mesh") || u.Stage != StageMesh || u.Stem() != "cube" {
		t.Errorf("unexpected unit %+v", u)
	}
	if !u.ModTime.Equal(mtime) {
		t.Errorf("ModTime = %v, want %v", u.ModTime, mtime)
	}
	src, err := u.ReadSource()
	if err != nil || src != "mesh" {
		t.Errorf("ReadSource() = %q, %v", src, err)
	}

	if _, err := ResolveSource(dir, "sky.mesh", StageMesh); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("missing file: %v", err)
	}
	if _, err := ResolveSource(dir, "dir.frag", StageFragment); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("directory: %v", err)
	}
	if _, err := ResolveSource(dir, "cube.mesh", StageFragment); !errors.Is(err, ErrStageMismatch) {
		t.Errorf("wrong stage: %v", err)
	}
}

func TestResolveSourceRejectsPaths(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeSource(t, filepath.Join(dir, "sub"), "cube.mesh", "mesh", time.Unix(1, 0))

	for _, name := range []string{"sub/cube.mesh", `sub\cube.mesh`, "../cube.mesh", "..", ".", ""} {
		if _, err := ResolveSource(dir, name, StageMesh); !errors.Is(err, ErrInvalidSourceName) {
			t.Errorf("ResolveSource(%q) = %v, want ErrInvalidSourceName", name, err)
		}
	}
	if !ValidSourceName("cube.mesh") || !ValidSourceName("a_b.frag") {
		t.Error("plain file names must be valid")
	}
}

func TestResolveSourcesTaskAcceptsMesh(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "amp.mesh", "task", time.Unix(1, 0))
	writeSource(t, dir, "hair.mesh", "mesh", time.Unix(1, 0))
	writeSource(t, dir, "hair.frag", "frag", time.Unix(1, 0))

	us, err := ResolveSources(dir, TaskMeshVariant, []string{"amp.mesh", "hair.mesh", "hair.frag"})
	if err != nil {
		t.Fatalf("ResolveSources() error = %v", err)
	}
	want := []Stage{StageTask, StageMesh, StageFragment}
	for i, u := range us {
		if u.Stage != want[i] {
			t.Errorf("unit %d stage = %v, want %v", i, u.Stage, want[i])
		}
	}
}

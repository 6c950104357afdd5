package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gogpu/progcache/backend/native"
	"github.com/gogpu/progcache/internal/manifest"
)

const meshWGSL = `
@vertex
fn main() -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`

const fragWGSL = `
@fragment
fn main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`

const testManifest = `
source_root = "Shaders"
cache_root  = "ShaderCache"

[[programs]]
name    = "cube"
variant = "mesh"
sources = ["cube.mesh", "base.frag"]

[[programs]]
name    = "sphere"
variant = "mesh"
sources = ["sphere.mesh", "base.frag"]

[[programs]]
name    = "quad"
variant = "vertex"
sources = ["quad.vert", "flat.frag"]
`

// setupTree writes a manifest and its sources, all dated in the past.
func setupTree(t *testing.T) *manifest.Manifest {
	t.Helper()
	for _, src := range []string{meshWGSL, fragWGSL} {
		if _, err := native.CompileShaderToSPIRV(src); err != nil {
			if strings.Contains(err.Error(), "not yet implemented") || strings.Contains(err.Error(), "not supported") {
				t.Skipf("Skipping: naga feature not yet implemented: %v", err)
			}
			t.Fatalf("test shader does not compile: %v", err)
		}
	}

	dir := t.TempDir()
	shaders := filepath.Join(dir, "Shaders")
	if err := os.MkdirAll(shaders, 0o755); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	files := map[string]string{
		"cube.mesh":   meshWGSL,
		"sphere.mesh": meshWGSL,
		"quad.vert":   meshWGSL,
		"base.frag":   fragWGSL,
		"flat.frag":   fragWGSL,
	}
	for name, code := range files {
		path := filepath.Join(shaders, name)
		if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(dir, "shaders.toml")
	if err := os.WriteFile(path, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("manifest.Load: %v", err)
	}
	return m
}

func newTestGenerator(t *testing.T, m *manifest.Manifest) *generator {
	t.Helper()
	device, err := native.OpenNoop()
	if err != nil {
		t.Fatalf("OpenNoop: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g, err := newGenerator(m, device, logger)
	if err != nil {
		device.Destroy()
		t.Fatalf("newGenerator: %v", err)
	}
	t.Cleanup(func() {
		g.close()
		device.Destroy()
	})
	return g
}

func TestGeneratorSharesStore(t *testing.T) {
	g := newTestGenerator(t, setupTree(t))
	if len(g.pipelines) != 2 {
		t.Fatalf("expected 2 pipelines, got %d", len(g.pipelines))
	}
	var root string
	for _, p := range g.pipelines {
		if root == "" {
			root = p.Store().Root()
		}
		if p.Store().Root() != root {
			t.Error("pipelines must share one store")
		}
	}
}

func TestGeneratorBuildAll(t *testing.T) {
	m := setupTree(t)
	g := newTestGenerator(t, m)

	res := g.buildAll(false)
	if res != (result{Compiled: 3}) {
		t.Fatalf("first pass = %+v, want 3 compiled", res)
	}
	for _, name := range []string{"cube_base.bin", "sphere_base.bin", "quad_flat.bin"} {
		if _, err := os.Stat(filepath.Join(m.CacheRoot, name)); err != nil {
			t.Errorf("missing cache entry %s: %v", name, err)
		}
	}

	// A fresh generator finds every entry up to date.
	g2 := newTestGenerator(t, m)
	if res := g2.buildAll(false); res != (result{Cached: 3}) {
		t.Errorf("second pass = %+v, want 3 cached", res)
	}
	if st := g2.stats(); st.Hits != 3 || st.Misses != 0 {
		t.Errorf("stats = %+v", st)
	}

	g3 := newTestGenerator(t, m)
	if res := g3.buildAll(true); res != (result{Compiled: 3}) {
		t.Errorf("forced pass = %+v, want 3 compiled", res)
	}
}

func TestGeneratorBuildAllReportsFailures(t *testing.T) {
	m := setupTree(t)
	if err := os.WriteFile(filepath.Join(m.SourceRoot, "flat.frag"), []byte("fn ("), 0o644); err != nil {
		t.Fatal(err)
	}
	g := newTestGenerator(t, m)
	if res := g.buildAll(false); res.Failed != 1 || res.Compiled != 2 {
		t.Errorf("result = %+v, want 2 compiled and 1 failed", res)
	}
}

func TestGeneratorRebuild(t *testing.T) {
	m := setupTree(t)
	g := newTestGenerator(t, m)
	g.buildAll(false)

	got := g.rebuild(filepath.Join(m.SourceRoot, "base.frag"))
	if strings.Join(got, ",") != "cube,sphere" {
		t.Errorf("rebuild(base.frag) = %v, want [cube sphere]", got)
	}
	if got := g.rebuild(filepath.Join(m.SourceRoot, "unused.frag")); len(got) != 0 {
		t.Errorf("rebuild(unused.frag) = %v", got)
	}
}

func TestGeneratorRebuildRecoversFailedProgram(t *testing.T) {
	m := setupTree(t)
	flat := filepath.Join(m.SourceRoot, "flat.frag")
	if err := os.WriteFile(flat, []byte("fn ("), 0o644); err != nil {
		t.Fatal(err)
	}
	g := newTestGenerator(t, m)
	g.buildAll(false)

	if err := os.WriteFile(flat, []byte(fragWGSL), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := g.rebuild(flat); len(got) != 1 || got[0] != "quad" {
		t.Errorf("rebuild(flat.frag) = %v, want [quad]", got)
	}
}

func TestSourceChanged(t *testing.T) {
	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"base.frag", fsnotify.Write, true},
		{"cube.mesh", fsnotify.Create, true},
		{"hair.task", fsnotify.Rename, true},
		{"quad.vert", fsnotify.Write | fsnotify.Chmod, true},
		{"base.frag", fsnotify.Remove, false},
		{"base.frag", fsnotify.Chmod, false},
		{"base.frag.swp", fsnotify.Write, false},
		{"notes.txt", fsnotify.Create, false},
	}
	for _, tt := range tests {
		if got := sourceChanged(fsnotify.Event{Name: tt.name, Op: tt.op}); got != tt.want {
			t.Errorf("sourceChanged(%s, %v) = %v, want %v", tt.name, tt.op, got, tt.want)
		}
	}
}

func TestGeneratorWatch(t *testing.T) {
	m := setupTree(t)
	g := newTestGenerator(t, m)
	if res := g.buildAll(false); res.Compiled != 3 {
		t.Fatalf("first pass = %+v", res)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.watch(ctx) }()

	// The watcher registers asynchronously; keep editing until a rebuild
	// of cube and sphere shows up.
	base := filepath.Join(m.SourceRoot, "base.frag")
	deadline := time.After(10 * time.Second)
	for g.stats().Misses < 5 {
		if err := os.WriteFile(base, []byte(fragWGSL), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case <-deadline:
			t.Fatalf("no rebuild after editing base.frag: %+v", g.stats())
		case err := <-done:
			t.Fatalf("watch returned early: %v", err)
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("watch() = %v after cancel, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestGeneratorWatchErrors(t *testing.T) {
	m := setupTree(t)
	g := newTestGenerator(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.watch(ctx); err != nil {
		t.Errorf("watch() with a cancelled context = %v, want nil", err)
	}

	m.SourceRoot = filepath.Join(t.TempDir(), "missing")
	if err := g.watch(context.Background()); err == nil {
		t.Error("watch() of a missing source root must fail")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false)
	logger.Debug("hidden")
	logger.Info("progcache: program ready", "program", "cube")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug records must be dropped unless verbose")
	}
	if !strings.Contains(out, "level=INFO") || !strings.Contains(out, "program=cube") {
		t.Errorf("unexpected output: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("non-terminal output must not be colored: %q", out)
	}
	if strings.Contains(out, "time=") {
		t.Errorf("time must be omitted: %q", out)
	}

	buf.Reset()
	newLogger(&buf, true).Debug("shown")
	if !strings.Contains(buf.String(), "level=DEBUG") {
		t.Errorf("verbose logger dropped debug: %q", buf.String())
	}
}

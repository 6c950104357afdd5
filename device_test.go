// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Test Helpers
// =============================================================================

type mockShader struct {
	stage    Stage
	label    string
	source   string
	compiled bool
}

type mockProgram struct {
	attached []Handle
	sources  []string
	linked   bool
}

// mockDevice is a test double for Device. It "compiles" any source that
// does not contain the word "error" and serializes programs as text.
type mockDevice struct {
	next     Handle
	shaders  map[Handle]*mockShader
	programs map[Handle]*mockProgram
	format   BinaryFormat

	// linkFail makes LinkProgram fail with this log when non-empty.
	linkFail string
	// binaryErr is returned by ProgramBinary when set.
	binaryErr error

	// compiled records shader labels in compile order.
	compiled []string
	links    int
	loads    int
	used     Handle
}

func newMockDevice() *mockDevice {
	return &mockDevice{
		shaders:  make(map[Handle]*mockShader),
		programs: make(map[Handle]*mockProgram),
		format:   0x4d4f434b,
	}
}

func (d *mockDevice) alloc() Handle {
	d.next++
	return d.next
}

func (d *mockDevice) CreateShader(stage Stage, label string) (Handle, error) {
	h := d.alloc()
	d.shaders[h] = &mockShader{stage: stage, label: label}
	return h, nil
}

func (d *mockDevice) CompileShader(shader Handle, source string) (bool, string) {
	s := d.shaders[shader]
	s.source = source
	d.compiled = append(d.compiled, s.label)
	if strings.Contains(source, "error") {
		return false, fmt.Sprintf("%s:1: syntax error", s.label)
	}
	s.compiled = true
	return true, ""
}

func (d *mockDevice) DeleteShader(shader Handle) { delete(d.shaders, shader) }

func (d *mockDevice) CreateProgram() (Handle, error) {
	h := d.alloc()
	d.programs[h] = &mockProgram{}
	return h, nil
}

func (d *mockDevice) AttachShader(program, shader Handle) {
	p := d.programs[program]
	p.attached = append(p.attached, shader)
}

func (d *mockDevice) DetachShader(program, shader Handle) {
	p := d.programs[program]
	for i, h := range p.attached {
		if h == shader {
			p.attached = append(p.attached[:i], p.attached[i+1:]...)
			return
		}
	}
}

func (d *mockDevice) LinkProgram(program Handle) (bool, string) {
	d.links++
	if d.linkFail != "" {
		return false, d.linkFail
	}
	p := d.programs[program]
	for _, h := range p.attached {
		s, ok := d.shaders[h]
		if !ok || !s.compiled {
			return false, "attached shader is not compiled"
		}
		p.sources = append(p.sources, s.source)
	}
	p.linked = true
	return true, ""
}

func (d *mockDevice) DeleteProgram(program Handle) { delete(d.programs, program) }

func (d *mockDevice) ProgramBinary(program Handle) (BinaryFormat, []byte, error) {
	if d.binaryErr != nil {
		return 0, nil, d.binaryErr
	}
	p := d.programs[program]
	blob := fmt.Sprintf("mock:%d:%s#end", d.format, strings.Join(p.sources, "|"))
	return d.format, []byte(blob), nil
}

func (d *mockDevice) BinaryFormat() BinaryFormat { return d.format }

func (d *mockDevice) LoadProgramBinary(program Handle, format BinaryFormat, blob []byte) (bool, string) {
	d.loads++
	s := string(blob)
	prefix := fmt.Sprintf("mock:%d:", format)
	if !strings.HasPrefix(s, prefix) {
		return false, "binary format mismatch"
	}
	if !strings.HasSuffix(s, "#end") {
		return false, "truncated binary"
	}
	p := d.programs[program]
	p.sources = strings.Split(strings.TrimSuffix(strings.TrimPrefix(s, prefix), "#end"), "|")
	p.linked = true
	return true, ""
}

func (d *mockDevice) UseProgram(program Handle) { d.used = program }

// liveShaders returns the number of shader handles not yet deleted.
func (d *mockDevice) liveShaders() int { return len(d.shaders) }

// writeSource writes a source file and pins its modification time.
func writeSource(t *testing.T, dir, name, content string, mtime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
}

// touch sets the modification time of path.
func touch(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// modTime returns the modification time of path.
func modTime(t *testing.T, path string) time.Time {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.ModTime()
}

// testConfig returns a config with source and cache roots in a temp dir.
func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "Shaders")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	return Config{
		SourceRoot: src,
		CacheRoot:  filepath.Join(dir, "ShaderCache"),
		Extension:  ".bin",
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Stage identifies one compilation unit kind within a program.
//
// The numeric value is the stage's position in pipeline order, so stages of a
// valid Variant are strictly increasing.
type Stage uint8

const (
	// StageTask is the optional amplification stage preceding a mesh stage.
	StageTask Stage = iota + 1

	// StageVertex is the classic vertex stage.
	StageVertex

	// StageMesh is the mesh stage.
	StageMesh

	// StageFragment is the final fragment stage.
	StageFragment
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageTask:
		return "Task"
	case StageVertex:
		return "Vertex"
	case StageMesh:
		return "Mesh"
	case StageFragment:
		return "Fragment"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	return s >= StageTask && s <= StageFragment
}

// Extensions returns the source file extensions accepted for the stage.
// Task sources may use either ".task" or ".mesh".
func (s Stage) Extensions() []string {
	switch s {
	case StageTask:
		return []string{".task", ".mesh"}
	case StageVertex:
		return []string{".vert"}
	case StageMesh:
		return []string{".mesh"}
	case StageFragment:
		return []string{".frag"}
	default:
		return nil
	}
}

// Accepts reports whether filename carries an extension valid for the stage.
func (s Stage) Accepts(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range s.Extensions() {
		if e == ext {
			return true
		}
	}
	return false
}

// StageForExtension maps a source file extension to its default stage.
// ".mesh" maps to StageMesh; a Task source is only recognised positionally
// within a TaskMeshVariant.
func StageForExtension(ext string) (Stage, bool) {
	switch strings.ToLower(ext) {
	case ".task":
		return StageTask, true
	case ".vert":
		return StageVertex, true
	case ".mesh":
		return StageMesh, true
	case ".frag":
		return StageFragment, true
	default:
		return 0, false
	}
}

// Variant is the ordered list of stages that make up one kind of program.
type Variant []Stage

// Predefined program variants.
var (
	// MeshVariant is the 2-stage mesh pipeline: Mesh → Fragment.
	MeshVariant = Variant{StageMesh, StageFragment}

	// TaskMeshVariant is the 3-stage pipeline: Task → Mesh → Fragment.
	TaskMeshVariant = Variant{StageTask, StageMesh, StageFragment}

	// VertexVariant is the classic 2-stage pipeline: Vertex → Fragment.
	VertexVariant = Variant{StageVertex, StageFragment}
)

// Validate checks that the variant names known stages in strictly increasing
// pipeline order and ends with a fragment stage.
func (v Variant) Validate() error {
	if len(v) < 2 {
		return fmt.Errorf("%w: variant needs at least 2 stages, got %d", ErrStageMismatch, len(v))
	}
	for i, s := range v {
		if !s.IsValid() {
			return fmt.Errorf("%w: unknown stage %v at position %d", ErrStageMismatch, s, i)
		}
		if i > 0 && s <= v[i-1] {
			return fmt.Errorf("%w: stage %v cannot follow %v", ErrStageMismatch, s, v[i-1])
		}
	}
	if v[len(v)-1] != StageFragment {
		return fmt.Errorf("%w: variant must end with Fragment, got %v", ErrStageMismatch, v[len(v)-1])
	}
	if v[0] == StageTask && v[1] != StageMesh {
		return fmt.Errorf("%w: Task must be followed by Mesh", ErrStageMismatch)
	}
	if v.Contains(StageVertex) && v.Contains(StageMesh) {
		return fmt.Errorf("%w: Vertex and Mesh stages are exclusive", ErrStageMismatch)
	}
	return nil
}

// Contains reports whether the variant includes stage s.
func (v Variant) Contains(s Stage) bool {
	for _, vs := range v {
		if vs == s {
			return true
		}
	}
	return false
}

// String joins the stage names with arrows, e.g. "Task→Mesh→Fragment".
func (v Variant) String() string {
	names := make([]string, len(v))
	for i, s := range v {
		names[i] = s.String()
	}
	return strings.Join(names, "→")
}

// VariantByName returns a predefined variant: "mesh", "task" or "vertex".
func VariantByName(name string) (Variant, bool) {
	switch strings.ToLower(name) {
	case "mesh", "":
		return MeshVariant, true
	case "task", "task-mesh":
		return TaskMeshVariant, true
	case "vertex":
		return VertexVariant, true
	default:
		return nil, false
	}
}

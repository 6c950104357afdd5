// Package progcache turns shader sources into linked, GPU-loadable program
// binaries and keeps them in an on-disk cache, so unchanged programs are
// loaded instead of recompiled.
//
// # Overview
//
// A program is built from one source file per pipeline stage. The stage
// combination is a [Variant]:
//
//   - [MeshVariant]: Mesh → Fragment ("cube.mesh", "base.frag")
//   - [TaskMeshVariant]: Task → Mesh → Fragment
//   - [VertexVariant]: Vertex → Fragment
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/progcache"
//	    "github.com/gogpu/progcache/backend/native"
//	)
//
//	dev, err := native.OpenNoop()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Destroy()
//
//	p, err := progcache.NewPipeline(progcache.DefaultConfig(), dev, progcache.MeshVariant)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cube, err := p.Build("cube", "cube.mesh", "base.frag")
//	if err != nil {
//	    log.Fatal(err) // previous "cube" program, if any, stays in place
//	}
//	_ = cube.Activate()
//
// # Build States
//
// Every [Pipeline.Build] walks a fixed state machine:
//
//	Resolving → Deciding → {Loading | Compiling → Linking} → Ready | Failed
//
// Resolving stats every source under the source root. Deciding compares the
// source modification times against the cache entry ([Decide]); the entry is
// reused only if no source is strictly newer. Loading materializes the
// cached binary; if that fails for any reason the build falls back to
// Compiling. Compiling runs stages in pipeline order and stops at the first
// [CompileError]. Linking produces the [LinkedArtifact] and saves it, which
// is the only path that writes to the cache.
//
// # Cache Entries
//
// One file per program under the cache root, named after the source stems
// in stage order: ("cube.mesh", "base.frag") → "cube_base.bin". Sources are
// plain file names directly in the source root, and an [ArtifactStore]
// refuses to let two different source combinations share a name
// ([ErrEntryConflict]). The file holds a small header with the format tag
// the [Device] reported at save time, followed by the program binary; a
// load under a different tag is refused before the binary reaches the
// device. Entries are never deleted by this package.
//
// # Devices
//
// progcache never compiles anything itself. A [Device] performs the actual
// compile, link, serialize and bind calls; backend/native provides one on
// top of gogpu/wgpu, compiling WGSL with gogpu/naga.
package progcache

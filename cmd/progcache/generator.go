// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/gogpu/progcache"
	"github.com/gogpu/progcache/internal/manifest"
)

// result counts the outcome of a generation pass.
type result struct {
	Compiled int
	Cached   int
	Failed   int
}

// generator builds the programs of one manifest. Programs of the same
// variant share a pipeline and all pipelines share one artifact store.
type generator struct {
	manifest  *manifest.Manifest
	logger    *slog.Logger
	pipelines map[string]*progcache.Pipeline
}

func newGenerator(m *manifest.Manifest, device progcache.Device, logger *slog.Logger) (*generator, error) {
	g := &generator{
		manifest:  m,
		logger:    logger,
		pipelines: make(map[string]*progcache.Pipeline),
	}
	var store *progcache.ArtifactStore
	for key, programs := range m.ByVariant() {
		v, err := programs[0].Stages()
		if err != nil {
			g.close()
			return nil, err
		}
		opts := []progcache.Option{progcache.WithLogger(logger)}
		if store != nil {
			opts = append(opts, progcache.WithStore(store))
		}
		p, err := progcache.NewPipeline(m.Config(), device, v, opts...)
		if err != nil {
			g.close()
			return nil, fmt.Errorf("pipeline %v: %w", v, err)
		}
		store = p.Store()
		g.pipelines[key] = p
	}
	return g, nil
}

// pipeline returns the pipeline building p.
func (g *generator) pipeline(p manifest.Program) (*progcache.Pipeline, error) {
	v, err := p.Stages()
	if err != nil {
		return nil, err
	}
	pl, ok := g.pipelines[v.String()]
	if !ok {
		return nil, fmt.Errorf("no pipeline for variant %v", v)
	}
	return pl, nil
}

// buildAll builds every manifest program in order. With force, programs
// served from the cache are recompiled and their entries rewritten.
func (g *generator) buildAll(force bool) result {
	var res result
	for _, prog := range g.manifest.Programs {
		pl, err := g.pipeline(prog)
		if err != nil {
			g.logger.Error("progcache: skipping program", "program", prog.Name, "error", err)
			res.Failed++
			continue
		}
		a, err := pl.Build(prog.Name, prog.Sources...)
		if err == nil && force && a.Origin() == progcache.OriginCache {
			a, err = pl.Refresh(prog.Name)
		}
		if err != nil {
			g.logger.Error("progcache: build failed", "program", prog.Name, "error", err)
			res.Failed++
			continue
		}
		if a.Origin() == progcache.OriginCache {
			res.Cached++
		} else {
			res.Compiled++
		}
	}
	return res
}

// rebuild recompiles every program that reads the source file at path and
// returns the names of the programs rebuilt successfully.
func (g *generator) rebuild(path string) []string {
	rel, err := filepath.Rel(g.manifest.SourceRoot, path)
	if err != nil {
		return nil
	}
	var rebuilt []string
	for _, prog := range g.manifest.Using(filepath.ToSlash(rel)) {
		pl, err := g.pipeline(prog)
		if err != nil {
			continue
		}
		_, err = pl.Refresh(prog.Name)
		if errors.Is(err, progcache.ErrUnknownProgram) {
			// Never built successfully; try again from scratch.
			_, err = pl.Build(prog.Name, prog.Sources...)
		}
		if err != nil {
			g.logger.Error("progcache: rebuild failed", "program", prog.Name, "error", err)
			continue
		}
		g.logger.Info("progcache: program refreshed", "program", prog.Name, "source", rel)
		rebuilt = append(rebuilt, prog.Name)
	}
	return rebuilt
}

// sourceChanged reports whether an event may have changed a shader source.
// Files without a shader extension, such as editor swap files, are ignored.
func sourceChanged(event fsnotify.Event) bool {
	if _, ok := progcache.StageForExtension(filepath.Ext(event.Name)); !ok {
		return false
	}
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Rename == fsnotify.Rename
}

// watch rebuilds affected programs whenever a file in the source root
// changes, until ctx is done. Sources live directly in the source root, so
// the watch is not recursive.
func (g *generator) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(g.manifest.SourceRoot); err != nil {
		return err
	}
	g.logger.Info("progcache: watching sources", "dir", g.manifest.SourceRoot)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if sourceChanged(event) {
				g.rebuild(event.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			g.logger.Warn("progcache: watch error", "error", err)
		}
	}
}

// stats sums pipeline statistics.
func (g *generator) stats() progcache.Stats {
	var total progcache.Stats
	for _, p := range g.pipelines {
		s := p.Stats()
		total.Hits += s.Hits
		total.Misses += s.Misses
		total.ReadFailures += s.ReadFailures
		total.WriteFailures += s.WriteFailures
		total.Failures += s.Failures
	}
	return total
}

func (g *generator) close() {
	for _, p := range g.pipelines {
		p.Close()
	}
}

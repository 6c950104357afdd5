// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import "log/slog"

// Option configures a Pipeline during creation.
//
// Example:
//
//	// Default: logs through progcache.Logger(), store under cfg.CacheRoot
//	p, err := progcache.NewPipeline(cfg, dev, progcache.MeshVariant)
//
//	// Dedicated logger
//	p, err := progcache.NewPipeline(cfg, dev, progcache.MeshVariant,
//	    progcache.WithLogger(slog.Default()))
type Option func(*pipelineOptions)

// pipelineOptions holds optional configuration for Pipeline creation.
type pipelineOptions struct {
	logger *slog.Logger
	store  *ArtifactStore
}

// WithLogger sets a pipeline-specific logger instead of the package default.
// The logger is also handed to the device if it accepts one.
func WithLogger(l *slog.Logger) Option {
	return func(o *pipelineOptions) {
		o.logger = l
	}
}

// WithStore shares an existing ArtifactStore, for example between a
// MeshVariant and a TaskMeshVariant pipeline writing to the same cache root.
// The store must wrap the same device as the pipeline. Entries are named by
// source stems only; a build whose sources derive a name already claimed by
// other sources on the shared store fails with ErrEntryConflict.
func WithStore(s *ArtifactStore) Option {
	return func(o *pipelineOptions) {
		o.store = s
	}
}

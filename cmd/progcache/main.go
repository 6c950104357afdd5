// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command progcache pre-generates shader program caches for every program
// listed in a manifest, and optionally keeps them fresh while sources are
// edited.
//
// Usage:
//
//	progcache [-manifest shaders.toml] [-force] [-watch] [-v]
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/progcache"
	"github.com/gogpu/progcache/backend/native"
	"github.com/gogpu/progcache/internal/manifest"
)

func main() {
	var (
		manifestPath = flag.String("manifest", "shaders.toml", "program manifest (.toml, .yaml or .yml)")
		force        = flag.Bool("force", false, "recompile every program, ignoring cache entries")
		watchSources = flag.Bool("watch", false, "rebuild programs when their sources change")
		verbose      = flag.Bool("v", false, "log build details")
	)
	flag.Parse()

	logger := newLogger(os.Stderr, *verbose)
	progcache.SetLogger(logger)

	m, err := manifest.Load(*manifestPath)
	if err != nil {
		log.Fatalf("progcache: %v", err)
	}

	device, err := native.OpenNoop()
	if err != nil {
		log.Fatalf("progcache: open device: %v", err)
	}
	defer device.Destroy()

	g, err := newGenerator(m, device, logger)
	if err != nil {
		log.Fatalf("progcache: %v", err)
	}
	defer g.close()

	res := g.buildAll(*force)
	st := g.stats()
	logger.Info("progcache: caches generated",
		"compiled", res.Compiled, "cached", res.Cached, "failed", res.Failed,
		"read_failures", st.ReadFailures, "write_failures", st.WriteFailures)

	if *watchSources {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := g.watch(ctx); err != nil {
			log.Fatalf("progcache: watch: %v", err)
		}
		return
	}
	if res.Failed > 0 {
		g.close()
		device.Destroy()
		os.Exit(1)
	}
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package progcache

import "time"

// Decision is the outcome of comparing sources against a cache entry.
type Decision uint8

const (
	// Rebuild means the program must be compiled and linked from sources.
	Rebuild Decision = iota

	// UseCached means the cache entry is at least as new as every source.
	UseCached
)

// String returns "rebuild" or "use-cached".
func (d Decision) String() string {
	if d == UseCached {
		return "use-cached"
	}
	return "rebuild"
}

// Decide returns UseCached if the entry exists and no source was modified
// strictly after the entry's modification time; otherwise Rebuild.
// A missing entry always yields Rebuild.
func Decide(entryTime time.Time, entryExists bool, sources []SourceUnit) Decision {
	if !entryExists || len(sources) == 0 {
		return Rebuild
	}
	for _, s := range sources {
		if s.ModTime.After(entryTime) {
			return Rebuild
		}
	}
	return UseCached
}

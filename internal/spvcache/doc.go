// Package spvcache provides a bounded LRU cache of compiled SPIR-V keyed by
// the digest of the WGSL source it was compiled from.
//
// The native backend consults it before invoking naga, so a source shared
// by several programs (a common fragment stage, say) is translated once:
//
//	c := spvcache.New(64)
//	key := spvcache.KeyOf(wgsl)
//	if words, ok := c.Get(key); ok {
//		return words
//	}
//	words := compile(wgsl)
//	c.Put(key, words)
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package spvcache

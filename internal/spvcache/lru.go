// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package spvcache

// lruNode is an entry in the recency list. It carries its key so eviction
// can remove the map entry in O(1).
type lruNode struct {
	key   Key
	words []uint32
	prev  *lruNode
	next  *lruNode
}

// lruList is a doubly-linked recency list; head is the most recently used.
// Not thread-safe.
type lruList struct {
	head *lruNode
	tail *lruNode
	len  int
}

func (l *lruList) pushFront(n *lruNode) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
	l.len++
}

func (l *lruList) moveToFront(n *lruNode) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.pushFront(n)
}

// removeOldest unlinks and returns the least recently used node, or nil.
func (l *lruList) removeOldest() *lruNode {
	n := l.tail
	if n != nil {
		l.unlink(n)
	}
	return n
}

func (l *lruList) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	l.len--
}

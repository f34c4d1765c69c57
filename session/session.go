// Package session implements the session map: a striped hash map keyed by
// 64-bit session id, where each entry owns a growable vector of
// (request-id, timestamp) pairs appended to by concurrent scan workers.
// No ordering or deduplication happens at append time; that is deferred
// to the path-graph builder's per-session sort.
//
// Grounded in the same striped-bucket discipline as package intern, scaled
// up to the much larger SessionMapNBuckets spec.md calls for.
package session

import "sync"

// SessionMapNBuckets is the fixed bucket count for the session map.
const SessionMapNBuckets = 65536

const initialCapacity = 8

// Request is one (request-id, timestamp) observation appended to a
// session's vector during scanning.
type Request struct {
	RequestID   uint32
	TimestampMs int64
}

type entry struct {
	sessionID uint64
	requests  []Request
}

type bucket struct {
	mu      sync.Mutex
	entries []entry
}

// Map is the striped session map. The zero value is not ready; call New.
type Map struct {
	buckets [SessionMapNBuckets]bucket
}

// New constructs an empty Map.
func New() *Map {
	return &Map{}
}

// mix performs one FNV-1a-style round over the session id's 8 raw bytes
// to choose a bucket, per spec.md §4.5 step 1.
func mix(sessionID uint64) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for i := 0; i < 8; i++ {
		h ^= (sessionID >> (8 * i)) & 0xff
		h *= prime
	}
	return h
}

// Amend appends (requestID, timestampMs) to the session's request
// vector, creating the session entry with initial capacity 8 if it did
// not already exist. Safe for concurrent use.
func (m *Map) Amend(sessionID uint64, timestampMs int64, requestID uint32) {
	idx := mix(sessionID) & (SessionMapNBuckets - 1)
	b := &m.buckets[idx]

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.entries {
		if b.entries[i].sessionID == sessionID {
			b.entries[i].requests = append(b.entries[i].requests, Request{RequestID: requestID, TimestampMs: timestampMs})
			return
		}
	}
	reqs := make([]Request, 0, initialCapacity)
	reqs = append(reqs, Request{RequestID: requestID, TimestampMs: timestampMs})
	b.entries = append(b.entries, entry{sessionID: sessionID, requests: reqs})
}

// Entry is a read-only snapshot of one session, handed to the graph
// builder after the join barrier.
type Entry struct {
	SessionID uint64
	Requests  []Request
}

// Len returns the number of distinct sessions recorded.
func (m *Map) Len() int {
	n := 0
	for i := range m.buckets {
		n += len(m.buckets[i].entries)
	}
	return n
}

// Each invokes fn once per session entry, in arbitrary (bucket) order.
// Must only be called after every worker that could call Amend has
// joined: it does not take any locks.
func (m *Map) Each(fn func(Entry)) {
	for i := range m.buckets {
		for _, e := range m.buckets[i].entries {
			fn(Entry{SessionID: e.sessionID, Requests: e.requests})
		}
	}
}

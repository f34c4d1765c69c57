// Package intern implements the request interner: a striped hash set,
// keyed by canonicalised request bytes, that assigns every distinct
// request a dense monotonic RequestId. Concurrent workers call Intern
// from many goroutines; each bucket carries its own lock so contention is
// limited to requests that collide in the same bucket, the same
// striped-locking discipline gravwell's filewatch state tracker and
// session-file writers use for concurrent follower updates.
package intern

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/traceflow/callgraph/fnvhash"
)

// Buckets is the number of striped hash buckets; must be a power of two.
const Buckets = 256

// InvalidRequestID is the sentinel denoting "no successor" in the graph
// builder.
const InvalidRequestID = ^uint32(0)

// entry is one interned request. Once inserted, Bytes is never mutated —
// readers of a completed entry need no lock.
type entry struct {
	bytes []byte
	hash  uint64
	id    uint32
}

type bucket struct {
	mu      sync.Mutex
	entries []entry
}

// Interner is the striped request set. The zero value is not ready for
// use; call New.
type Interner struct {
	buckets [Buckets]bucket
	nextID  atomic.Uint32
}

// New constructs an empty Interner.
func New() *Interner {
	return &Interner{}
}

// Intern returns the dense RequestId for canonical, interning it if this
// is the first time it has been seen. Safe for concurrent use from any
// number of goroutines.
func (in *Interner) Intern(canonical []byte) uint32 {
	h := fnvhash.Sum64(canonical)
	b := &in.buckets[h&(Buckets-1)]

	b.mu.Lock()
	for i := range b.entries {
		if b.entries[i].hash == h && bytes.Equal(b.entries[i].bytes, canonical) {
			id := b.entries[i].id
			b.mu.Unlock()
			return id
		}
	}
	id := in.nextID.Add(1) - 1
	owned := make([]byte, len(canonical))
	copy(owned, canonical)
	b.entries = append(b.entries, entry{bytes: owned, hash: h, id: id})
	b.mu.Unlock()
	return id
}

// Len returns the number of distinct requests interned so far.
func (in *Interner) Len() int {
	return int(in.nextID.Load())
}

// RequestRecord is one row of the dense request table: the canonical
// bytes and hash for a given RequestId.
type RequestRecord struct {
	Bytes []byte
	Hash  uint64
}

// Table builds the dense [0,N) request-id -> {bytes,hash} array. Must be
// called only after every worker that could call Intern has joined: it is
// not safe to call concurrently with Intern.
func (in *Interner) Table() []RequestRecord {
	n := in.Len()
	out := make([]RequestRecord, n)
	for i := range in.buckets {
		for _, e := range in.buckets[i].entries {
			out[e.id] = RequestRecord{Bytes: e.bytes, Hash: e.hash}
		}
	}
	return out
}

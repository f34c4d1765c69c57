// Package fnvhash provides the single hash primitive used across the
// scanning core: a streaming FNV-1a 64-bit hash over arbitrary byte spans.
// The request interner and the session-id builder build on Sum64 and
// NewState64; the session map's bucket selection runs its own single
// FNV-1a round over the 8 bytes of a session id.
package fnvhash

import "hash/fnv"

// Sum64 computes the FNV-1a 64-bit hash of b in one shot.
func Sum64(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

// State64 is a running FNV-1a accumulator, used to mix several disjoint
// byte spans (e.g. the ordered session-key fields of a line) into one
// hash without concatenating them first.
type State64 struct {
	h hash64a
}

type hash64a interface {
	Write(p []byte) (n int, err error)
	Sum64() uint64
}

// NewState64 returns a fresh accumulator seeded at the FNV offset basis.
func NewState64() State64 {
	return State64{h: fnv.New64a()}
}

// Write mixes b into the running hash. It never fails.
func (s *State64) Write(b []byte) {
	s.h.Write(b)
}

// WriteByte mixes a single byte into the running hash.
func (s *State64) WriteByte(c byte) {
	s.h.Write([]byte{c})
}

// Sum64 returns the current accumulated hash.
func (s State64) Sum64() uint64 {
	return s.h.Sum64()
}

package session

import "github.com/traceflow/callgraph/fnvhash"

// IDBuilder accumulates the session-key field bytes of a line, in scan-plan
// order, into one FNV-1a session id.
type IDBuilder struct {
	state fnvhash.State64
}

// NewIDBuilder returns a fresh accumulator.
func NewIDBuilder() IDBuilder {
	return IDBuilder{state: fnvhash.NewState64()}
}

// MixIPAddr mixes only the bytes of ip up to (excluding) the first
// ':'/whitespace separator — the port, if present, is excluded.
func (b *IDBuilder) MixIPAddr(ip []byte) {
	end := 0
	for end < len(ip) {
		c := ip[end]
		if c == ':' || c == ' ' || c == '\t' || c == '\v' {
			break
		}
		end++
	}
	b.state.Write(ip[:end])
}

// MixBytes mixes an arbitrary session-key field (e.g. a user agent) in
// whole.
func (b *IDBuilder) MixBytes(field []byte) {
	b.state.Write(field)
}

// SessionID returns the accumulated 64-bit session id.
func (b IDBuilder) SessionID() uint64 {
	return b.state.Sum64()
}

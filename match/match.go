// Package match is a thin wrapper over the standard regexp engine, used by
// schema classification and truncation canonicalisation. It exists so both
// callers share one compile-once-match-many discipline and one error type,
// the way timegrinder.Processor wraps regexp.Regexp for its own extraction
// patterns.
package match

import (
	"fmt"
	"regexp"
)

// Pattern wraps a compiled regular expression together with the source
// text it was built from, so diagnostics can report what failed to compile.
type Pattern struct {
	src string
	re  *regexp.Regexp
}

// Compile builds a Pattern from a POSIX-ish Go regexp source string. The
// caller's FieldKind patterns and the truncation engine's user patterns
// both funnel through here so a single error type covers both.
func Compile(src string) (Pattern, error) {
	re, err := regexp.Compile(src)
	if err != nil {
		return Pattern{}, fmt.Errorf("compiling pattern %q: %w", src, err)
	}
	return Pattern{src: src, re: re}, nil
}

// MustCompile panics on a bad pattern; used only for the fixed,
// known-good field-classification patterns built in at startup.
func MustCompile(src string) Pattern {
	p, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pattern's source text.
func (p Pattern) String() string { return p.src }

// MatchAnywhere reports whether the pattern matches anywhere in b.
func (p Pattern) MatchAnywhere(b []byte) bool {
	return p.re.Match(b)
}

// FindIndex returns the leftmost match's [start,end) byte range in b, or
// ok=false if there is none.
func (p Pattern) FindIndex(b []byte) (start, end int, ok bool) {
	loc := p.re.FindIndex(b)
	if loc == nil {
		return 0, 0, false
	}
	return loc[0], loc[1], true
}

// ReplaceAll substitutes every non-overlapping match of p in b with alias,
// scanning left to right exactly once (the caller is responsible for
// iterating if further matches can appear inside the replaced text). alias
// is inserted literally: a '$' in it is not expanded as a group reference.
func (p Pattern) ReplaceAll(b, alias []byte) []byte {
	return p.re.ReplaceAllLiteral(b, alias)
}

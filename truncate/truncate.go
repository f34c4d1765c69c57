// Package truncate implements the canonicalisation engine: a small,
// ordered table of regular-expression patterns with aliases, loaded from a
// user-supplied pattern file and applied to raw interned-request bytes so
// requests differing only in variable tokens (UUIDs, numeric ids, ...)
// collapse onto one canonical form.
//
// Grounded in filewatch's regex-based line splitter (compile-once,
// match-many over a byte buffer) generalised from "find a line boundary"
// to "find and substitute a variable token".
package truncate

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/traceflow/callgraph/match"
)

// MaxPatterns bounds the number of truncation patterns loaded from a file.
const MaxPatterns = 512

// Pattern is one compiled truncation rule: every match of Compiled in a
// request is replaced by Alias.
type Pattern struct {
	Compiled match.Pattern
	Alias    []byte
}

// Table is the ordered set of truncation patterns, compiled once and
// shared read-only across all scan workers.
type Table struct {
	patterns []Pattern
}

// Load reads a truncation pattern file: one pattern per non-comment,
// non-blank line. A line of the form "$NAME = PATTERN" names an alias;
// otherwise the alias is the pattern's own source text (the match is
// replaced by itself, i.e. a literal marker).
func Load(r io.Reader) (*Table, error) {
	scn := bufio.NewScanner(r)
	t := &Table{}
	for scn.Scan() {
		line := strings.TrimSpace(scn.Text())
		if line == "" {
			continue
		}
		if line[0] == '#' {
			continue
		}
		if len(t.patterns) >= MaxPatterns {
			break
		}
		alias, src, err := splitAliasPattern(line)
		if err != nil {
			return nil, err
		}
		pat, err := match.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("truncate: %w", err)
		}
		t.patterns = append(t.patterns, Pattern{Compiled: pat, Alias: []byte(alias)})
	}
	if err := scn.Err(); err != nil {
		return nil, fmt.Errorf("truncate: reading pattern file: %w", err)
	}
	return t, nil
}

// splitAliasPattern splits a "$NAME = PATTERN" line into (alias, pattern),
// or returns (pattern, pattern) if no "$NAME =" prefix is present.
func splitAliasPattern(line string) (alias, pattern string, err error) {
	if !strings.HasPrefix(line, "$") {
		return line, line, nil
	}
	eqIdx := strings.IndexByte(line, '=')
	if eqIdx < 0 {
		return "", "", fmt.Errorf("truncate: malformed alias line %q, expected $NAME = PATTERN", line)
	}
	name := strings.TrimSpace(line[:eqIdx])
	pattern = strings.TrimSpace(line[eqIdx+1:])
	if pattern == "" {
		return "", "", fmt.Errorf("truncate: empty pattern in alias line %q", line)
	}
	return name, pattern, nil
}

// Empty reports whether the table has no patterns loaded.
func (t *Table) Empty() bool {
	return t == nil || len(t.patterns) == 0
}

// Canonicalise finds the first pattern (in file order) that matches
// anywhere in raw; if none match, raw is returned unchanged. Otherwise
// every match of THAT pattern is replaced, left to right, repeatedly,
// until none remain — matches of other patterns inside the result are
// not rescanned, per spec.md §4.3.
func (t *Table) Canonicalise(raw []byte) []byte {
	if t.Empty() {
		return raw
	}
	for _, p := range t.patterns {
		if !p.Compiled.MatchAnywhere(raw) {
			continue
		}
		cur := raw
		for {
			next := p.Compiled.ReplaceAll(cur, p.Alias)
			if bytes.Equal(next, cur) {
				return next
			}
			cur = next
			if !p.Compiled.MatchAnywhere(cur) {
				return cur
			}
		}
	}
	return raw
}

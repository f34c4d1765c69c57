// Package tokenize splits one log line into positional field views without
// copying: every FieldView is a sub-slice of the caller's buffer. It
// implements the SEEK -> STANDALONE | QUOTED state machine from spec.md
// §4.1/§4.7, the same zero-copy discipline gravwell's filewatch readers use
// when scanning a memory-mapped file for line boundaries (see
// filewatch/regex.go's splitter).
package tokenize

// NallFieldsMax bounds the number of fields kept per line; additional
// fields on an over-wide line are dropped and reported through Tokenise's
// truncated result.
const NallFieldsMax = 512

const (
	space      = ' '
	tab        = '\t'
	vtab       = '\v'
	newline    = '\n'
	quote      = '"'
)

// FieldView is a zero-copy view into a tokenised line: a pointer+length
// pair expressed as a Go slice.
type FieldView struct {
	Data []byte
}

func isSeparator(c byte) bool {
	return c == space || c == tab || c == vtab
}

// Tokenise scans buf starting at start, splitting one line into field
// views. It stops at the first newline (there is no escaping, so this
// includes a newline inside a quoted field) or at end-of-buffer.
//
// complete reports whether the line was terminated by a newline (false
// means end-of-buffer was hit first, i.e. the final, possibly partial,
// line of a chunk). truncated reports whether more than maxFields fields
// were seen and the excess was dropped. next is the cursor to resume
// tokenising the following line from.
func Tokenise(buf []byte, start, maxFields int) (fields []FieldView, next int, complete bool, truncated bool) {
	n := len(buf)
	i := start

	appendField := func(b []byte) {
		if len(fields) < maxFields {
			fields = append(fields, FieldView{Data: b})
		} else {
			truncated = true
		}
	}

	for i < n {
		c := buf[i]
		switch {
		case c == newline:
			return fields, i + 1, true, truncated
		case isSeparator(c):
			i++
		case c == quote:
			i++
			fieldStart := i
			for i < n && buf[i] != quote && buf[i] != newline {
				i++
			}
			fieldEnd := i
			if i < n && buf[i] == newline {
				// embedded newline aborts the quoted field; treat the
				// line as terminated here per spec.md's documented,
				// unspecified-but-bounded handling.
				appendField(buf[fieldStart:fieldEnd])
				return fields, i + 1, true, truncated
			}
			appendField(buf[fieldStart:fieldEnd])
			if i < n {
				i++ // consume closing quote
			}
		default:
			fieldStart := i
			for i < n && buf[i] != space && buf[i] != tab && buf[i] != vtab && buf[i] != newline {
				i++
			}
			appendField(buf[fieldStart:i])
		}
	}
	return fields, i, false, truncated
}

// SkipToNextLine returns the index just past the next newline at or after
// start, or len(buf) if none remains. Workers use this to resynchronise
// onto a line boundary after being handed an arbitrary chunk start.
func SkipToNextLine(buf []byte, start int) int {
	for i := start; i < len(buf); i++ {
		if buf[i] == newline {
			return i + 1
		}
	}
	return len(buf)
}

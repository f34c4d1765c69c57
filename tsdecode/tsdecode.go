// Package tsdecode holds the fast, ad-hoc timestamp fragment decoders used
// by the scan workers. They are deliberately approximate: calendar math
// treats every month as a constant 30 days and every 4th year as a leap
// year, the way a hand-rolled C parser would, rather than calling into a
// fully correct calendar library. This keeps the hot scanning loop free of
// allocation and branchy lookup tables, at the cost of being wrong about
// absolute wall-clock time far from the epoch. Only relative (same-day,
// same-month) orderings and deltas are guaranteed meaningful, which is all
// the path-graph builder ever uses a timestamp for.
//
// Grounded in timegrinder's Processor pattern (gravwell/gravwell's
// timegrinder package), simplified down to exactly the fragment kinds
// spec'd for access logs: a full RFC3339 instant, a bare date, and a bare
// time-of-day, combined by the caller per the scan plan.
package tsdecode

const (
	msPerSecond = 1000
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour

	// approxDaysPerMonth is the constant-month-length approximation
	// spec.md calls out explicitly: calendar correctness is not a goal,
	// consistent same-day/same-month deltas are.
	approxDaysPerMonth = 30
)

// digit converts a single ASCII digit byte to its value, or -1 if it is not
// a digit. No bounds checking beyond the byte test itself.
func digit(c byte) int {
	if c < '0' || c > '9' {
		return -1
	}
	return int(c - '0')
}

// digits2 parses exactly two ASCII digits at b[0:2].
func digits2(b []byte) (v int, ok bool) {
	if len(b) < 2 {
		return 0, false
	}
	d0, d1 := digit(b[0]), digit(b[1])
	if d0 < 0 || d1 < 0 {
		return 0, false
	}
	return d0*10 + d1, true
}

// digits4 parses exactly four ASCII digits at b[0:4].
func digits4(b []byte) (v int, ok bool) {
	if len(b) < 4 {
		return 0, false
	}
	for i := 0; i < 4; i++ {
		d := digit(b[i])
		if d < 0 {
			return 0, false
		}
		v = v*10 + d
	}
	return v, true
}

// approxDaysFromEpoch converts a (year, month, day) triple into an
// approximate day count using a constant 30-day month and a 4-year leap
// cycle. year is the full four digit year (e.g. 2024). month and day are
// both 1-based.
func approxDaysFromEpoch(year, month, day int) int64 {
	yearsFromEpoch := int64(year - 1970)
	days := yearsFromEpoch*365 + yearsFromEpoch/4
	days += int64(month-1) * approxDaysPerMonth
	days += int64(day - 1)
	return days
}

// ParseDate decodes a "YYYY-MM-DD" fragment at the start of b into an
// approximate day count since the epoch. ok is false if b does not begin
// with that shape.
func ParseDate(b []byte) (days int64, ok bool) {
	if len(b) < 10 {
		return 0, false
	}
	year, ok1 := digits4(b[0:4])
	if !ok1 || b[4] != '-' {
		return 0, false
	}
	month, ok2 := digits2(b[5:7])
	if !ok2 || b[7] != '-' {
		return 0, false
	}
	day, ok3 := digits2(b[8:10])
	if !ok3 {
		return 0, false
	}
	return approxDaysFromEpoch(year, month, day), true
}

// ParseTimeOfDay decodes an "HH:MM:SS" fragment, with an optional
// ".fraction" suffix (truncated to milliseconds), into milliseconds since
// midnight.
func ParseTimeOfDay(b []byte) (tod int64, ok bool) {
	if len(b) < 8 {
		return 0, false
	}
	hh, ok1 := digits2(b[0:2])
	if !ok1 || b[2] != ':' {
		return 0, false
	}
	mm, ok2 := digits2(b[3:5])
	if !ok2 || b[5] != ':' {
		return 0, false
	}
	ss, ok3 := digits2(b[6:8])
	if !ok3 {
		return 0, false
	}
	tod = int64(hh)*msPerHour + int64(mm)*msPerMinute + int64(ss)*msPerSecond
	rest := b[8:]
	if len(rest) > 0 && rest[0] == '.' {
		rest = rest[1:]
		var frac int64
		digitsSeen := 0
		for digitsSeen < 9 && digitsSeen < len(rest) {
			d := digit(rest[digitsSeen])
			if d < 0 {
				break
			}
			frac = frac*10 + int64(d)
			digitsSeen++
		}
		if digitsSeen > 0 {
			// normalize to milliseconds regardless of fraction width
			for digitsSeen < 3 {
				frac *= 10
				digitsSeen++
			}
			for digitsSeen > 3 {
				frac /= 10
				digitsSeen--
			}
			tod += frac
		}
	}
	return tod, true
}

// ParseRFC3339 decodes a full "YYYY-MM-DDTHH:MM:SS[.fff](Z|±HH:MM)?"
// instant at the start of b into approximate milliseconds since the
// epoch. The trailing zone offset, if present, is applied as a flat
// millisecond shift; it does not re-run calendar math across a day
// boundary.
func ParseRFC3339(b []byte) (ms int64, ok bool) {
	if len(b) < 19 || (b[10] != 'T' && b[10] != ' ') {
		return 0, false
	}
	days, ok1 := ParseDate(b[0:10])
	if !ok1 {
		return 0, false
	}
	tod, ok2 := ParseTimeOfDay(b[11:])
	if !ok2 {
		return 0, false
	}
	ms = days*msPerDay + tod

	if off, offOK := parseZoneOffset(b[11:]); offOK {
		ms -= off
	}
	return ms, true
}

// parseZoneOffset scans past the HH:MM:SS[.frac] payload looking for a
// trailing Z or ±HH:MM zone designator, returning the offset in
// milliseconds east of UTC.
func parseZoneOffset(b []byte) (offsetMs int64, ok bool) {
	i := 8
	if i >= len(b) {
		return 0, false
	}
	if b[i] == '.' {
		i++
		for i < len(b) && digit(b[i]) >= 0 {
			i++
		}
	}
	if i >= len(b) {
		return 0, false
	}
	switch b[i] {
	case 'Z', 'z':
		return 0, true
	case '+', '-':
		sign := int64(1)
		if b[i] == '-' {
			sign = -1
		}
		rest := b[i+1:]
		hh, ok1 := digits2(rest)
		if !ok1 || len(rest) < 5 || rest[2] != ':' {
			return 0, false
		}
		mm, ok2 := digits2(rest[3:5])
		if !ok2 {
			return 0, false
		}
		return sign * (int64(hh)*msPerHour + int64(mm)*msPerMinute), true
	}
	return 0, false
}

// Combine merges a date fragment's day count with a time-of-day
// fragment's millisecond offset into one absolute millisecond value, for
// scan plans that carry `date` and `time` as separate fields.
func Combine(days, todMs int64) int64 {
	return days*msPerDay + todMs
}

// Package scan is the worker pool (spec.md §4.7): it partitions a byte
// source into near-equal chunks and fans an errgroup.Group of goroutines
// out over them, each one tokenising, classifying, canonicalising, and
// interning every line before appending it to the shared session map.
// Grounded in the teacher's muxer/filewatch split of "many workers, two
// shared concurrent tables, no cross-worker channel", generalised from
// gravwell's per-tag entry routing to this pipeline's per-chunk scanning.
package scan

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/traceflow/callgraph/gwlog"
	"github.com/traceflow/callgraph/intern"
	"github.com/traceflow/callgraph/metrics"
	"github.com/traceflow/callgraph/schema"
	"github.com/traceflow/callgraph/session"
	"github.com/traceflow/callgraph/tokenize"
	"github.com/traceflow/callgraph/truncate"
	"github.com/traceflow/callgraph/tsdecode"
)

// minBytesForConcurrency is the §4.7 threshold below which nthreads is
// forced to 1 regardless of what the caller requested.
const minBytesForConcurrency = 4 * 1024 * 1024

// DefaultFallbackCPUs is used when runtime.NumCPU reports nothing usable.
const DefaultFallbackCPUs = 4

// Result is the product of one full scan: the populated interner and
// session map, plus counts useful for a final summary log line.
type Result struct {
	Interner     *intern.Interner
	Sessions     *session.Map
	LinesOK      int64
	LinesSkipped int64
}

// Resolve applies §4.7's thread-count rule: inputs under 4 MiB always run
// single-threaded; otherwise requested is used as-is if > 0, else the
// logical CPU count (falling back to DefaultFallbackCPUs if that is 0).
func Resolve(inputLen int, requested int) int {
	if inputLen < minBytesForConcurrency {
		return 1
	}
	if requested > 0 {
		return requested
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return DefaultFallbackCPUs
}

// chunk is one worker's [start,end) byte range within buf.
type chunk struct {
	start, end int
}

// partition splits [0,len(buf)) into n near-equal chunks, the last
// absorbing any remainder, per §4.7.
func partition(n int, total int) []chunk {
	if n < 1 {
		n = 1
	}
	if total == 0 {
		return []chunk{{0, 0}}
	}
	size := total / n
	if size == 0 {
		size = total
		n = 1
	}
	chunks := make([]chunk, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i == n-1 {
			end = total
		}
		chunks = append(chunks, chunk{start: start, end: end})
		start = end
	}
	return chunks
}

// Run executes the worker pool over buf using plan and the (already
// loaded) truncation table, returning the joined interner and session map.
// nthreads should already have passed through Resolve.
func Run(ctx context.Context, buf []byte, plan *schema.ScanPlan, tbl *truncate.Table, nthreads int, log *gwlog.Logger, rec *metrics.Recorder) (*Result, error) {
	in := intern.New()
	sessions := session.New()
	chunks := partition(nthreads, len(buf))

	g, gctx := errgroup.WithContext(ctx)
	results := make([]workerStats, len(chunks))

	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			start := time.Now()
			stats, err := scanChunk(buf, c, i == 0, plan, tbl, in, sessions, log)
			if rec != nil {
				rec.ChunkDuration.Observe(time.Since(start).Seconds())
			}
			results[i] = stats
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var res Result
	res.Interner = in
	res.Sessions = sessions
	for _, s := range results {
		res.LinesOK += s.ok
		res.LinesSkipped += s.skipped
	}
	if rec != nil {
		rec.LinesScanned.Add(float64(res.LinesOK))
		rec.LinesSkipped.Add(float64(res.LinesSkipped))
		rec.RequestsInterned.Add(float64(in.Len()))
		rec.SessionsTracked.Set(float64(sessions.Len()))
	}
	return &res, nil
}

type workerStats struct {
	ok      int64
	skipped int64
}

// scanChunk runs the §4.7 worker loop over one chunk. firstChunk controls
// whether the initial cursor is trusted as a line start (chunk 0) or must
// be advanced past the next newline first (every other chunk, since a
// partition boundary can land mid-line).
func scanChunk(buf []byte, c chunk, firstChunk bool, plan *schema.ScanPlan, tbl *truncate.Table, in *intern.Interner, sessions *session.Map, log *gwlog.Logger) (workerStats, error) {
	var stats workerStats
	cursor := c.start
	if !firstChunk {
		cursor = tokenize.SkipToNextLine(buf, cursor)
	}

	warnedFields := false
	for cursor < c.end {
		fields, next, complete, truncated := tokenize.Tokenise(buf, cursor, tokenize.NallFieldsMax)
		if !complete {
			break
		}
		if truncated && !warnedFields && log != nil {
			log.Warnf("line at byte %d has more than %d fields; excess fields dropped", cursor, tokenize.NallFieldsMax)
			warnedFields = true
		}
		cursor = next

		if len(fields) != plan.NumColumns {
			stats.skipped++
			continue
		}

		if ok := applyLine(fields, plan, tbl, in, sessions, log); ok {
			stats.ok++
		} else {
			stats.skipped++
		}
	}
	return stats, nil
}

// applyLine dispatches every scan-plan entry against one tokenised line,
// per §4.7's classification-kind switch, then interns the request and
// amends the session map. An over-length request is truncated and logged
// as a warning when log is non-nil.
func applyLine(fields []tokenize.FieldView, plan *schema.ScanPlan, tbl *truncate.Table, in *intern.Interner, sessions *session.Map, log *gwlog.Logger) bool {
	var (
		haveDate, haveTime, haveTS bool
		days, tod, tsMs            int64
		idb                        = session.NewIDBuilder()
		ri                         intern.RequestInfo
	)

	for _, fi := range plan.Fields {
		if fi.Column >= len(fields) {
			return false
		}
		data := fields[fi.Column].Data

		switch fi.Kind {
		case schema.KindRFC3339:
			ms, ok := tsdecode.ParseRFC3339(data)
			if !ok {
				return false
			}
			tsMs = ms
			haveTS = true
		case schema.KindDate:
			d, ok := tsdecode.ParseDate(data)
			if !ok {
				return false
			}
			days = d
			haveDate = true
		case schema.KindTime:
			t, ok := tsdecode.ParseTimeOfDay(data)
			if !ok {
				return false
			}
			tod = t
			haveTime = true
		case schema.KindIPAddr:
			if fi.IsSessionKey {
				idb.MixIPAddr(data)
			}
		case schema.KindUserAgent:
			if fi.IsSessionKey {
				idb.MixBytes(data)
			}
		case schema.KindRequest:
			ri.Request = data
		case schema.KindMethod:
			ri.Method = data
		case schema.KindProtocol:
			ri.Protocol = data
		case schema.KindDomain:
			ri.Domain = data
		case schema.KindEndpoint:
			ri.Endpoint = data
		}
	}

	if !haveTS {
		if !haveDate || !haveTime {
			return false
		}
		tsMs = tsdecode.Combine(days, tod)
	}

	raw, truncated := intern.BuildRaw(ri)
	if truncated && log != nil {
		log.Warnf("request longer than %d bytes truncated", intern.RequestLenMax)
	}
	canonical := raw
	if tbl != nil && !tbl.Empty() {
		canonical = tbl.Canonicalise(raw)
	}
	reqID := in.Intern(canonical)
	sessions.Amend(idb.SessionID(), tsMs, reqID)
	return true
}

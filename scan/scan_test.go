package scan

import (
	"context"
	"strings"
	"testing"

	"github.com/traceflow/callgraph/schema"
)

const fixtureLog = `2024-01-01T00:00:00.000Z 10.0.0.1 "Mozilla/5.0" "GET http://svc.example/a HTTP/1.1"
2024-01-01T00:00:01.000Z 10.0.0.1 "Mozilla/5.0" "GET http://svc.example/b HTTP/1.1"
2024-01-01T00:00:02.000Z 10.0.0.2 "Mozilla/5.0" "GET http://svc.example/a HTTP/1.1"
`

func plan(t *testing.T) *schema.ScanPlan {
	t.Helper()
	p, _, err := schema.Infer([]byte(strings.SplitN(fixtureLog, "\n", 2)[0]), schema.Options{})
	if err != nil {
		t.Fatalf("schema.Infer: %v", err)
	}
	return p
}

func TestResolveForcesSingleThreadBelowThreshold(t *testing.T) {
	if got := Resolve(1024, 8); got != 1 {
		t.Fatalf("Resolve(small, 8) = %d, want 1", got)
	}
}

func TestResolveHonoursRequestedAboveThreshold(t *testing.T) {
	if got := Resolve(8*1024*1024, 3); got != 3 {
		t.Fatalf("Resolve(large, 3) = %d, want 3", got)
	}
}

func TestPartitionCoversWholeRangeWithoutOverlap(t *testing.T) {
	chunks := partition(3, 100)
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	if chunks[0].start != 0 {
		t.Fatalf("first chunk start = %d, want 0", chunks[0].start)
	}
	if chunks[len(chunks)-1].end != 100 {
		t.Fatalf("last chunk end = %d, want 100", chunks[len(chunks)-1].end)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].start != chunks[i-1].end {
			t.Fatalf("chunk %d start %d != previous end %d", i, chunks[i].start, chunks[i-1].end)
		}
	}
}

func TestRunSingleThreadedProducesExpectedSessionsAndRequests(t *testing.T) {
	p := plan(t)
	res, err := Run(context.Background(), []byte(fixtureLog), p, nil, 1, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.LinesOK != 3 {
		t.Fatalf("LinesOK = %d, want 3", res.LinesOK)
	}
	if res.Interner.Len() != 2 {
		t.Fatalf("interned requests = %d, want 2 (/a and /b)", res.Interner.Len())
	}
	if res.Sessions.Len() != 2 {
		t.Fatalf("sessions = %d, want 2 (two distinct ip/ua pairs)", res.Sessions.Len())
	}
}

func TestRunSkipsLinesWithWrongFieldCount(t *testing.T) {
	p := plan(t)
	withGarbage := fixtureLog + "short line\n"
	res, err := Run(context.Background(), []byte(withGarbage), p, nil, 1, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.LinesSkipped == 0 {
		t.Fatalf("expected at least one skipped line for the malformed trailing line")
	}
	if res.LinesOK != 3 {
		t.Fatalf("LinesOK = %d, want 3 despite the malformed line", res.LinesOK)
	}
}

func TestRunMultiThreadedMatchesSingleThreaded(t *testing.T) {
	p := plan(t)
	var big strings.Builder
	for i := 0; i < 5000; i++ {
		big.WriteString(fixtureLog)
	}
	buf := []byte(big.String())

	single, err := Run(context.Background(), buf, p, nil, 1, nil, nil)
	if err != nil {
		t.Fatalf("Run(1): %v", err)
	}
	multi, err := Run(context.Background(), buf, p, nil, 4, nil, nil)
	if err != nil {
		t.Fatalf("Run(4): %v", err)
	}
	if multi.Interner.Len() != single.Interner.Len() {
		t.Fatalf("multi-threaded interned %d requests, single-threaded interned %d", multi.Interner.Len(), single.Interner.Len())
	}
	if multi.Sessions.Len() != single.Sessions.Len() {
		t.Fatalf("multi-threaded tracked %d sessions, single-threaded tracked %d", multi.Sessions.Len(), single.Sessions.Len())
	}
}

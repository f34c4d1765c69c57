package graphsink

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/traceflow/callgraph/intern"
	"github.com/traceflow/callgraph/pathgraph"
)

func sampleGraph() (*pathgraph.Graph, []intern.RequestRecord) {
	g := &pathgraph.Graph{
		Vertices: []pathgraph.Vertex{
			{RequestID: 0, Edges: []pathgraph.Edge{{TargetRequestID: 1, NHits: 3, DurationCMA: 125.5}}, NHitsIn: 3, NHitsOut: 3, MinDepth: 1},
			{RequestID: 1, Edges: nil, NHitsIn: 3, NHitsOut: 0, MinDepth: 2},
		},
		TotalNHits:  6,
		TotalNEdges: 1,
	}
	requests := []intern.RequestRecord{
		{Bytes: []byte(`GET /a`)},
		{Bytes: []byte(`GET /b`)},
	}
	return g, requests
}

func TestLookupKnownAndUnknownFormat(t *testing.T) {
	if _, err := Lookup("dot"); err != nil {
		t.Fatalf("Lookup(dot): %v", err)
	}
	if _, err := Lookup("graphml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestDotSinkWritesNodesAndEdges(t *testing.T) {
	g, requests := sampleGraph()
	var buf bytes.Buffer
	if err := (DotSink{}).Write(&buf, g, requests); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "digraph callgraph {") {
		t.Fatalf("expected dot preamble, got %q", out)
	}
	if !strings.Contains(out, `n0 [label="GET /a"]`) {
		t.Fatalf("expected node label for request 0, got:\n%s", out)
	}
	if !strings.Contains(out, "n0 -> n1") {
		t.Fatalf("expected edge 0->1, got:\n%s", out)
	}
	if !strings.Contains(out, "hits=3") {
		t.Fatalf("expected hit count in edge label, got:\n%s", out)
	}
}

func TestQuoteDotLabelEscapesQuotesAndBackslashes(t *testing.T) {
	got := quoteDotLabel(`GET /a"b\c`)
	want := `"GET /a\"b\\c"`
	if got != want {
		t.Fatalf("quoteDotLabel = %q, want %q", got, want)
	}
}

func TestWriteToFileProducesOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.dot")
	g, requests := sampleGraph()

	if err := WriteToFile(path, DotSink{}, g, requests); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), "digraph callgraph") {
		t.Fatalf("expected rendered dot content, got %q", b)
	}
}

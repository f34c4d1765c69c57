package graphsink

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/traceflow/callgraph/intern"
	"github.com/traceflow/callgraph/pathgraph"
)

// DotSink renders a Graph as a Graphviz "dot" directed graph: one node
// per vertex, labelled with its canonical request text, and one edge per
// transition, labelled with hit count and the CMA duration in
// milliseconds.
type DotSink struct{}

// Write satisfies Sink.
func (DotSink) Write(w io.Writer, g *pathgraph.Graph, requests []intern.RequestRecord) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "digraph callgraph {")
	fmt.Fprintln(bw, "\trankdir=LR;")

	for _, v := range g.Vertices {
		fmt.Fprintf(bw, "\tn%d [label=%s];\n", v.RequestID, quoteDotLabel(requestLabel(v.RequestID, requests)))
	}
	for _, v := range g.Vertices {
		for _, e := range v.Edges {
			fmt.Fprintf(bw, "\tn%d -> n%d [label=%s];\n", v.RequestID, e.TargetRequestID,
				quoteDotLabel(fmt.Sprintf("hits=%d avg=%.1fms", e.NHits, e.DurationCMA)))
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func requestLabel(id uint32, requests []intern.RequestRecord) string {
	if int(id) < 0 || int(id) >= len(requests) {
		return strconv.FormatUint(uint64(id), 10)
	}
	return string(requests[id].Bytes)
}

// quoteDotLabel escapes a label for use inside a dot double-quoted string.
func quoteDotLabel(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

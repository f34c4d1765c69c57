// Package graphsink renders a finished pathgraph.Graph to an output
// format. Writing to a real output path is guarded by an advisory file
// lock (github.com/gofrs/flock), the same discipline gravwell's
// filewatch state-file writer uses to protect its persisted cursor file
// from a second concurrent ingester.
package graphsink

import (
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"

	"github.com/traceflow/callgraph/intern"
	"github.com/traceflow/callgraph/pathgraph"
)

// Sink renders a Graph, given the dense request table for looking up each
// vertex's canonical request bytes, to w.
type Sink interface {
	Write(w io.Writer, g *pathgraph.Graph, requests []intern.RequestRecord) error
}

// Registry maps a --format name to its Sink, mirroring cliconfig's
// SupportedFormats set.
var Registry = map[string]Sink{
	"dot": DotSink{},
}

// Lookup returns the Sink registered for name, or an error naming the
// unsupported format.
func Lookup(name string) (Sink, error) {
	s, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("graphsink: unsupported format %q", name)
	}
	return s, nil
}

// WriteToFile renders g via sink into path, holding an exclusive advisory
// lock on the sibling file path+".lock" for the duration of the write so a
// concurrent render never interleaves output with this one.
func WriteToFile(path string, sink Sink, g *pathgraph.Graph, requests []intern.RequestRecord) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("graphsink: acquiring lock for %s: %w", path, err)
	}
	defer lock.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("graphsink: creating %s: %w", path, err)
	}
	defer f.Close()

	if err := sink.Write(f, g, requests); err != nil {
		return fmt.Errorf("graphsink: rendering %s: %w", path, err)
	}
	return nil
}

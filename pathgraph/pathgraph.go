// Package pathgraph is the single-threaded graph builder (spec.md §4.6):
// it stable-sorts each session's request vector by timestamp, walks
// consecutive pairs to build weighted vertices and edges, and produces
// the final, deterministically ordered PathGraph handed to a graphsink.
//
// Grounded in timeGrinder's single-pass, allocate-on-first-use style for
// building up derived state from a stream of observations, adapted from
// per-entry time extraction to per-session edge accumulation.
package pathgraph

import (
	"sort"

	"github.com/traceflow/callgraph/intern"
	"github.com/traceflow/callgraph/session"
)

// invalidRequestID mirrors intern.InvalidRequestID, the "no successor"
// sentinel used for a session's final hit.
const invalidRequestID = intern.InvalidRequestID

// Edge is one weighted transition from its owning vertex to another
// request-id (or itself, for a self-loop).
type Edge struct {
	TargetRequestID uint32
	NHits           int64
	DurationCMA     float64
}

// Vertex is one request-id's aggregated position and fan-out across every
// session it appeared in.
type Vertex struct {
	RequestID uint32
	Edges     []Edge
	NHitsIn   int64
	NHitsOut  int64
	MinDepth  int
}

// Graph is the final, sorted path graph. Build keys vertices by RequestID
// while walking sessions and then sorts them, so a vertex's position in
// Vertices is not its RequestID: Vertices is sorted by (MinDepth ASC,
// (NHitsIn+NHitsOut) ASC) as §4.6 requires, and each vertex's Edges by
// NHits ASC, with remaining ties broken by ascending request id.
type Graph struct {
	Vertices       []Vertex
	TotalNHits     int64
	TotalNEdges    int64
	TotalEdgeNHits int64
}

type builder struct {
	byID           map[uint32]*Vertex
	totalNHits     int64
	totalNEdges    int64
	totalEdgeNHits int64
}

// Build walks every session in sessions (via session.Map.Each) and
// produces the aggregated, sorted Graph.
func Build(sessions *session.Map) *Graph {
	b := &builder{byID: make(map[uint32]*Vertex)}

	sessions.Each(func(e session.Entry) {
		b.processSession(e)
	})

	return b.finalize()
}

// processSession implements §4.6 step 1-3 for one session's requests.
func (b *builder) processSession(e session.Entry) {
	reqs := make([]session.Request, len(e.Requests))
	copy(reqs, e.Requests)
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].TimestampMs < reqs[j].TimestampMs
	})

	currentDepth := 1
	for i, cur := range reqs {
		v, firstInit := b.vertexInit(cur.RequestID)
		if firstInit {
			v.MinDepth = currentDepth
		} else if currentDepth < v.MinDepth {
			v.MinDepth = currentDepth
		}
		v.NHitsIn++
		b.totalNHits++

		var succID uint32 = invalidRequestID
		var succTs int64
		if i+1 < len(reqs) {
			succID = reqs[i+1].RequestID
			succTs = reqs[i+1].TimestampMs
		}

		if succID != invalidRequestID {
			b.addOrUpdateEdge(v, succID, succTs-cur.TimestampMs)
			v.NHitsOut++
			if succID != cur.RequestID {
				currentDepth++
			}
		}
	}
}

// vertexInit returns the vertex for id plus whether it was created by
// this call (the §4.6 "first initialisation" branch).
func (b *builder) vertexInit(id uint32) (*Vertex, bool) {
	if v, ok := b.byID[id]; ok {
		return v, false
	}
	v := &Vertex{RequestID: id, Edges: make([]Edge, 0, 8)}
	b.byID[id] = v
	return v, true
}

func (b *builder) addOrUpdateEdge(v *Vertex, targetID uint32, durationMs int64) {
	for i := range v.Edges {
		if v.Edges[i].TargetRequestID == targetID {
			k := v.Edges[i].NHits + 1
			v.Edges[i].DurationCMA = (float64(durationMs) + float64(v.Edges[i].NHits)*v.Edges[i].DurationCMA) / float64(k)
			v.Edges[i].NHits = k
			b.totalEdgeNHits++
			return
		}
	}
	v.Edges = append(v.Edges, Edge{TargetRequestID: targetID, NHits: 1, DurationCMA: float64(durationMs)})
	b.totalNEdges++
	b.totalEdgeNHits++
}

func (b *builder) finalize() *Graph {
	g := &Graph{
		TotalNHits:     b.totalNHits,
		TotalNEdges:    b.totalNEdges,
		TotalEdgeNHits: b.totalEdgeNHits,
	}
	g.Vertices = make([]Vertex, 0, len(b.byID))
	for _, v := range b.byID {
		sort.Slice(v.Edges, func(i, j int) bool {
			if v.Edges[i].NHits != v.Edges[j].NHits {
				return v.Edges[i].NHits < v.Edges[j].NHits
			}
			return v.Edges[i].TargetRequestID < v.Edges[j].TargetRequestID
		})
		g.Vertices = append(g.Vertices, *v)
	}
	sort.Slice(g.Vertices, func(i, j int) bool {
		a, bv := g.Vertices[i], g.Vertices[j]
		if a.MinDepth != bv.MinDepth {
			return a.MinDepth < bv.MinDepth
		}
		if ah, bh := a.NHitsIn+a.NHitsOut, bv.NHitsIn+bv.NHitsOut; ah != bh {
			return ah < bh
		}
		return a.RequestID < bv.RequestID
	})
	return g
}

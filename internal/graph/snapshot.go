package graph

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Snapshot is the serializable form of a RoadGraph, used to persist
// a built graph as an opaque blob so a restart can skip rebuilding it.
// Reloading a Snapshot produces query behavior that is bit-identical
// to the graph it was taken from, since it carries the exact node and
// edge sets verbatim.
type Snapshot struct {
	Nodes     []Node
	Edges     []Edge
	Shortcuts []Edge
}

// Snapshot captures the current graph contents.
func (g *RoadGraph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Snapshot{}
	for _, n := range g.nodes {
		s.Nodes = append(s.Nodes, n)
	}
	for _, edges := range g.adjacency {
		s.Edges = append(s.Edges, edges...)
	}
	for _, edges := range g.shortcuts {
		s.Shortcuts = append(s.Shortcuts, edges...)
	}
	return s
}

// Marshal encodes the snapshot as an opaque blob.
func (s Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("graph: encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshot decodes a blob produced by Snapshot.Marshal.
func UnmarshalSnapshot(blob []byte) (Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("graph: decode snapshot: %w", err)
	}
	return s, nil
}

// Load rebuilds a RoadGraph from a Snapshot.
func Load(s Snapshot) *RoadGraph {
	g := New()
	for _, n := range s.Nodes {
		g.AddNode(n)
	}
	for _, e := range s.Edges {
		g.AddEdge(e)
	}
	for _, e := range s.Shortcuts {
		g.AppendShortcut(e)
	}
	return g
}

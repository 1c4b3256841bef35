// Package graph holds the in-memory road network: nodes, directed
// weighted edges, and the invariants they must hold.
// Construction is external to the core (an OSM/Overpass ingestor is
// out of scope); this package only models the graph and answers the
// queries the search and preprocessing layers need.
package graph

import (
	"fmt"
	"math"
	"sync"

	"github.com/aumo/ecoroute/internal/geo"
)

// RoadClass tags the functional class of a road segment.
type RoadClass string

const (
	RoadMotorway    RoadClass = "motorway"
	RoadTrunk       RoadClass = "trunk"
	RoadPrimary     RoadClass = "primary"
	RoadSecondary   RoadClass = "secondary"
	RoadTertiary    RoadClass = "tertiary"
	RoadResidential RoadClass = "residential"
	RoadService     RoadClass = "service"
)

// Node is an intersection in the road network. Immutable after
// graph build.
type Node struct {
	ID  int64
	Lat float64
	Lng float64
}

// Edge is a directed road segment.
type Edge struct {
	From             int64
	To               int64
	LengthM          float64
	FreeFlowSpeedKmh float64
	SpeedLimitKmh    float64
	Lanes            int
	Capacity         float64
	RoadClass        RoadClass
	Oneway           bool

	// IsShortcut and Via are set only for CH shortcut edges appended
	// at preprocess time. Via is the contracted node.
	IsShortcut bool
	Via        int64
}

// Key returns the "u-v" edge identifier used to look up traffic
// predictions.
func (e Edge) Key() string {
	return fmt.Sprintf("%d-%d", e.From, e.To)
}

// RoadGraph is the directed weighted graph of road segments. A
// process-wide instance is built once at startup and is read-only
// during queries; CH shortcuts are appended once, in a
// side list, and union-iterated with the original adjacency rather
// than copied into it.
type RoadGraph struct {
	mu        sync.RWMutex
	nodes     map[int64]Node
	adjacency map[int64][]Edge // original edges, by From
	shortcuts map[int64][]Edge // CH shortcuts, by From
	built     bool
}

var (
	globalGraph     *RoadGraph
	globalGraphOnce sync.Once
)

// GetGraph returns the singleton process-wide road graph, built once
// and shared read-only across every request goroutine.
func GetGraph() *RoadGraph {
	globalGraphOnce.Do(func() {
		globalGraph = New()
	})
	return globalGraph
}

// New constructs an empty RoadGraph. Most callers use GetGraph(); New
// exists for tests and for loading an alternate graph (e.g. a
// deserialized snapshot) without touching the singleton.
func New() *RoadGraph {
	return &RoadGraph{
		nodes:     make(map[int64]Node),
		adjacency: make(map[int64][]Edge),
		shortcuts: make(map[int64][]Edge),
	}
}

// AddNode registers a node. Fails fast on NaN coordinates: the core
// assumes validity and asserts it at the access site rather than
// propagating a silently broken coordinate through a search.
func (g *RoadGraph) AddNode(n Node) {
	if math.IsNaN(n.Lat) || math.IsNaN(n.Lng) {
		panic(fmt.Sprintf("graph: node %d has NaN coordinate", n.ID))
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.ID] = n
	g.built = true
}

// AddEdge registers a directed edge. length_m must be strictly
// positive; non-oneway ways are expected to have been
// expanded into two directed edges by the caller already.
func (g *RoadGraph) AddEdge(e Edge) error {
	if e.LengthM <= 0 {
		return fmt.Errorf("graph: edge %d->%d has non-positive length_m", e.From, e.To)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if e.IsShortcut {
		g.shortcuts[e.From] = append(g.shortcuts[e.From], e)
		return nil
	}
	g.adjacency[e.From] = append(g.adjacency[e.From], e)
	return nil
}

// IsBuilt reports whether any node has been registered.
func (g *RoadGraph) IsBuilt() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.built
}

// Node returns a node by ID.
func (g *RoadGraph) Node(id int64) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// NumNodes returns the number of registered nodes.
func (g *RoadGraph) NumNodes() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Neighbors returns the outgoing edges of a node, union-iterating the
// original adjacency and any CH shortcuts appended at preprocess time.
// This is the "union-iterate" design the CH overlay relies on instead
// of copying the graph on contraction.
func (g *RoadGraph) Neighbors(id int64) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	orig := g.adjacency[id]
	sc := g.shortcuts[id]
	if len(sc) == 0 {
		return orig
	}
	out := make([]Edge, 0, len(orig)+len(sc))
	out = append(out, orig...)
	out = append(out, sc...)
	return out
}

// OriginalNeighbors returns only the non-shortcut outgoing edges,
// used by the CH preprocessor (which must never consult shortcuts of
// itself while building them).
func (g *RoadGraph) OriginalNeighbors(id int64) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.adjacency[id]
}

// AllNodes returns a snapshot of every node, for nearest-node search.
func (g *RoadGraph) AllNodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// AppendShortcut adds a CH shortcut edge without touching the
// original adjacency. Called once at preprocess time.
func (g *RoadGraph) AppendShortcut(e Edge) {
	e.IsShortcut = true
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shortcuts[e.From] = append(g.shortcuts[e.From], e)
}

// FindNearestNode performs a linear haversine scan for the node
// nearest (lat, lng). Fine for the couple of lookups a single plan
// call makes; a spatial index would help a high-QPS deployment but
// isn't required for correctness.
func (g *RoadGraph) FindNearestNode(lat, lng float64) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var best Node
	found := false
	bestDist := math.Inf(1)

	for _, n := range g.nodes {
		d := geo.Haversine(lat, lng, n.Lat, n.Lng)
		if d < bestDist {
			bestDist = d
			best = n
			found = true
		}
	}
	return best, found
}

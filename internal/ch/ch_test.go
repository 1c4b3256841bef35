package ch

import (
	"testing"

	"github.com/aumo/ecoroute/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineGraph() *graph.RoadGraph {
	g := graph.New()
	g.AddNode(graph.Node{ID: 1, Lat: 0, Lng: 0})
	g.AddNode(graph.Node{ID: 2, Lat: 0, Lng: 0.01})
	g.AddNode(graph.Node{ID: 3, Lat: 0, Lng: 0.02})
	_ = g.AddEdge(graph.Edge{From: 1, To: 2, LengthM: 1000, FreeFlowSpeedKmh: 50, Lanes: 1})
	_ = g.AddEdge(graph.Edge{From: 2, To: 1, LengthM: 1000, FreeFlowSpeedKmh: 50, Lanes: 1})
	_ = g.AddEdge(graph.Edge{From: 2, To: 3, LengthM: 1000, FreeFlowSpeedKmh: 50, Lanes: 1})
	_ = g.AddEdge(graph.Edge{From: 3, To: 2, LengthM: 1000, FreeFlowSpeedKmh: 50, Lanes: 1})
	return g
}

func TestContractAssignsRankToEveryNode(t *testing.T) {
	g := lineGraph()
	h := Contract(g, 0)
	assert.True(t, h.IsPreprocessed)
	assert.Len(t, h.Order, 3)
}

func TestContractNodeInsertsShortcutThroughMiddleNode(t *testing.T) {
	g := lineGraph()
	contracted := map[int64]bool{}

	added := contractNode(g, 2, contracted)
	assert.Equal(t, 2, added, "1->3 and 3->1 shortcuts, one per direction")

	found := false
	for _, e := range g.Neighbors(1) {
		if e.To == 3 && e.IsShortcut {
			found = true
			assert.Equal(t, int64(2), e.Via)
			assert.InDelta(t, 2000.0, e.LengthM, 1e-6)
		}
	}
	assert.True(t, found, "expected a shortcut 1->3 via node 2")
}

func TestContractMaxNodesCapProducesPartialMode(t *testing.T) {
	g := lineGraph()
	h := Contract(g, 1)
	assert.False(t, h.IsPreprocessed)
	assert.Len(t, h.Order, 3, "every node still gets a rank even in partial mode")
}

func TestContractOriginalEdgesSurvive(t *testing.T) {
	g := lineGraph()
	Contract(g, 0)
	require.NotEmpty(t, g.OriginalNeighbors(1))
	assert.False(t, g.OriginalNeighbors(1)[0].IsShortcut)
}

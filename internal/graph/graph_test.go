package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func twoNodeGraph() *RoadGraph {
	g := New()
	g.AddNode(Node{ID: 1, Lat: 0, Lng: 0})
	g.AddNode(Node{ID: 2, Lat: 0, Lng: 0.01})
	g.AddEdge(Edge{
		From: 1, To: 2,
		LengthM:          1113.2,
		FreeFlowSpeedKmh: 60,
		SpeedLimitKmh:    60,
		Lanes:            1,
		Capacity:         1800,
		RoadClass:        RoadPrimary,
	})
	return g
}

func TestRoadGraphInvariants(t *testing.T) {
	t.Run("rejects non-positive length", func(t *testing.T) {
		g := New()
		err := g.AddEdge(Edge{From: 1, To: 2, LengthM: 0})
		assert.Error(t, err)
	})

	t.Run("neighbors returns the registered edge", func(t *testing.T) {
		g := twoNodeGraph()
		edges := g.Neighbors(1)
		assert.Len(t, edges, 1)
		assert.Equal(t, int64(2), edges[0].To)
	})

	t.Run("shortcuts union-iterate with original edges, never replacing them", func(t *testing.T) {
		g := twoNodeGraph()
		g.AppendShortcut(Edge{From: 1, To: 2, LengthM: 2000, Via: 99})

		all := g.Neighbors(1)
		assert.Len(t, all, 2)

		original := g.OriginalNeighbors(1)
		assert.Len(t, original, 1)
		assert.False(t, original[0].IsShortcut)
	})
}

func TestFindNearestNode(t *testing.T) {
	g := twoNodeGraph()

	node, ok := g.FindNearestNode(0, 0.0001)
	assert.True(t, ok)
	assert.Equal(t, int64(1), node.ID)

	node, ok = g.FindNearestNode(0, 0.0099)
	assert.True(t, ok)
	assert.Equal(t, int64(2), node.ID)
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := twoNodeGraph()
	snap := g.Snapshot()

	blob, err := snap.Marshal()
	assert.NoError(t, err)

	restored, err := UnmarshalSnapshot(blob)
	assert.NoError(t, err)

	g2 := Load(restored)
	assert.Equal(t, g.NumNodes(), g2.NumNodes())
	assert.Equal(t, g.Neighbors(1), g2.Neighbors(1))
}

func TestBuildSyntheticGrid(t *testing.T) {
	bbox := BBox{South: 0, West: 0, North: 0.1, East: 0.1}
	g := BuildSyntheticGrid(bbox, 3, RoadResidential)

	assert.Equal(t, 9, g.NumNodes())
	// Interior node has 4 neighbors (N/S/E/W), corner nodes have 2.
	corner, _ := g.FindNearestNode(0, 0)
	assert.Len(t, g.Neighbors(corner.ID), 2)
}

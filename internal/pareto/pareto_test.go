package pareto

import (
	"context"
	"testing"
	"time"

	"github.com/aumo/ecoroute/internal/astar"
	"github.com/aumo/ecoroute/internal/emission"
	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/routeconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridGraph() *graph.RoadGraph {
	bbox := graph.BBox{South: 0, West: 0, North: 0.03, East: 0.03}
	return graph.BuildSyntheticGrid(bbox, 4, graph.RoadSecondary)
}

func TestRunReturnsTaggedPresetsAndIsNonDominated(t *testing.T) {
	g := gridGraph()
	nodes := g.AllNodes()
	from, to := nodes[0].ID, nodes[len(nodes)-1].ID

	routes, err := Run(context.Background(), g, from, to, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), nil, emission.FuelPetrol, emission.DefaultConfig, routeconfig.Default())
	require.NoError(t, err)
	assert.NotEmpty(t, routes)

	for i, a := range routes {
		for j, b := range routes {
			if i == j {
				continue
			}
			assert.False(t, dominates(b, a), "%s should not be dominated by %s", a.Preset, b.Preset)
		}
	}
}

func sameNodesResult() *astar.Result {
	return &astar.Result{Nodes: []int64{1, 2, 3}}
}

func TestDedupeByPathKeepsFirstPresetInPaletteOrder(t *testing.T) {
	resultA := Route{Preset: "fastest", Result: sameNodesResult()}
	resultB := Route{Preset: "balanced", Result: sameNodesResult()}

	out := dedupeByPath([]Route{resultA, resultB})
	require.Len(t, out, 1)
	assert.Equal(t, "fastest", out[0].Preset)
}

func TestDominatesRequiresAtLeastOneStrictImprovement(t *testing.T) {
	a := Route{Result: &astar.Result{TravelTimeS: 100, CO2G: 50, DistanceM: 1000}}
	b := Route{Result: &astar.Result{TravelTimeS: 100, CO2G: 50, DistanceM: 1000}}
	assert.False(t, dominates(a, b), "identical routes must not dominate each other")

	better := Route{Result: &astar.Result{TravelTimeS: 90, CO2G: 50, DistanceM: 1000}}
	assert.True(t, dominates(better, a))
}

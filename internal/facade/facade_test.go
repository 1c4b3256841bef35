package facade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aumo/ecoroute/internal/cost"
	"github.com/aumo/ecoroute/internal/emission"
	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/mpc"
	"github.com/aumo/ecoroute/internal/routeconfig"
)

func gridFacade() (*Facade, graph.Node, graph.Node) {
	bbox := graph.BBox{South: 0, West: 0, North: 0.03, East: 0.03}
	g := graph.BuildSyntheticGrid(bbox, 4, graph.RoadSecondary)
	nodes := g.AllNodes()
	f := New(g, routeconfig.Default())
	return f, nodes[0], nodes[len(nodes)-1]
}

func TestPlanSnapsAndReturnsRoute(t *testing.T) {
	f, from, to := gridFacade()
	origin := LatLng{Lat: from.Lat, Lng: from.Lng}
	destination := LatLng{Lat: to.Lat, Lng: to.Lng}

	route, err := f.Plan(context.Background(), origin, destination, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), cost.Weights{Alpha: 1}, nil, emission.FuelPetrol, emission.DefaultConfig)
	require.NoError(t, err)
	assert.NotEmpty(t, route.Polyline)
	assert.Equal(t, from.ID, route.Nodes[0])
	assert.Equal(t, to.ID, route.Nodes[len(route.Nodes)-1])
}

func TestParetoReturnsPresetTaggedRoutes(t *testing.T) {
	f, from, to := gridFacade()
	origin := LatLng{Lat: from.Lat, Lng: from.Lng}
	destination := LatLng{Lat: to.Lat, Lng: to.Lng}

	routes, err := f.Pareto(context.Background(), origin, destination, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), nil, emission.FuelPetrol, emission.DefaultConfig)
	require.NoError(t, err)
	assert.NotEmpty(t, routes)
	for _, r := range routes {
		assert.NotEmpty(t, r.Preset)
	}
}

func TestReplanUnknownRideErrors(t *testing.T) {
	f, from, to := gridFacade()
	_, err := f.Replan(context.Background(), "nonexistent", LatLng{Lat: from.Lat, Lng: from.Lng}, LatLng{Lat: to.Lat, Lng: to.Lng}, time.Now(), cost.Weights{Alpha: 1}, nil, emission.FuelPetrol, emission.DefaultConfig, mpc.Signals{})
	assert.Error(t, err)
}

func TestReplanFirstCallAlwaysReplans(t *testing.T) {
	f, from, to := gridFacade()
	rideID := f.NewRide()

	result, err := f.Replan(context.Background(), rideID, LatLng{Lat: from.Lat, Lng: from.Lng}, LatLng{Lat: to.Lat, Lng: to.Lng}, time.Now(), cost.Weights{Alpha: 1}, nil, emission.FuelPetrol, emission.DefaultConfig, mpc.Signals{})
	require.NoError(t, err)
	assert.True(t, result.Replanned)
	require.NotNil(t, result.Route)
}

func TestReplanSecondCallWithoutTriggerDoesNotReplan(t *testing.T) {
	f, from, to := gridFacade()
	rideID := f.NewRide()
	origin := LatLng{Lat: from.Lat, Lng: from.Lng}
	destination := LatLng{Lat: to.Lat, Lng: to.Lng}

	_, err := f.Replan(context.Background(), rideID, origin, destination, time.Now(), cost.Weights{Alpha: 1}, nil, emission.FuelPetrol, emission.DefaultConfig, mpc.Signals{})
	require.NoError(t, err)

	result, err := f.Replan(context.Background(), rideID, origin, destination, time.Now(), cost.Weights{Alpha: 1}, nil, emission.FuelPetrol, emission.DefaultConfig, mpc.Signals{})
	require.NoError(t, err)
	assert.False(t, result.Replanned)
}

func TestEfficiencyRatioZeroDistanceIsZero(t *testing.T) {
	assert.Equal(t, 0.0, EfficiencyRatio(LatLng{}, LatLng{}, 0))
}

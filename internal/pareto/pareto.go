// Package pareto runs the routing engine across a fixed palette of
// weight presets and filters the results down to the Pareto-optimal
// set: no survivor is dominated on duration, CO2, and distance at
// once by another survivor.
package pareto

import (
	"context"
	"fmt"
	"time"

	"github.com/aumo/ecoroute/internal/astar"
	"github.com/aumo/ecoroute/internal/cost"
	"github.com/aumo/ecoroute/internal/emission"
	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/routeconfig"
	"github.com/aumo/ecoroute/internal/traffic"
)

// Preset is one named point in weight space.
type Preset struct {
	Name    string
	Weights cost.Weights
}

// Presets is the fixed palette, in the order results are returned and
// ties are broken.
var Presets = []Preset{
	{Name: "fastest", Weights: cost.Weights{Alpha: 0.80, Beta: 0.10, Gamma: 0.05, Delta: 0.05}},
	{Name: "greenest", Weights: cost.Weights{Alpha: 0.15, Beta: 0.65, Gamma: 0.15, Delta: 0.05}},
	{Name: "balanced", Weights: cost.Weights{Alpha: 0.40, Beta: 0.30, Gamma: 0.20, Delta: 0.10}},
	{Name: "smoothest", Weights: cost.Weights{Alpha: 0.30, Beta: 0.10, Gamma: 0.55, Delta: 0.05}},
}

// Route is one preset's search result, tagged with the preset name
// that produced it.
type Route struct {
	Preset string
	*astar.Result
}

// Run searches once per preset in Presets and returns the
// Pareto-optimal survivors tagged by preset name. A route is dropped
// if another survives with duration, CO2, and distance all at least
// as good and at least one strictly better. Duplicate node paths
// produced by different presets are kept only once, under whichever
// preset reached them first in palette order.
func Run(ctx context.Context, g *graph.RoadGraph, from, to int64, departureTime time.Time, predictions traffic.Predictions, fuel emission.FuelType, emissionCfg emission.Config, cfg *routeconfig.Config) ([]Route, error) {
	var routes []Route

	for _, preset := range Presets {
		result, err := astar.Search(ctx, astar.Request{
			Graph:          g,
			From:           from,
			To:             to,
			DepartureTime:  departureTime,
			Weights:        preset.Weights,
			Predictions:    predictions,
			Fuel:           fuel,
			EmissionConfig: emissionCfg,
			Config:         cfg,
		})
		if err != nil {
			continue
		}
		routes = append(routes, Route{Preset: preset.Name, Result: result})
	}

	if len(routes) == 0 {
		return nil, fmt.Errorf("pareto: no preset produced a route from %d to %d", from, to)
	}

	routes = dedupeByPath(routes)
	return filterDominated(routes), nil
}

func pathKey(r Route) string {
	key := ""
	for _, n := range r.Nodes {
		key += fmt.Sprintf("%d,", n)
	}
	return key
}

func dedupeByPath(routes []Route) []Route {
	seen := make(map[string]bool, len(routes))
	out := make([]Route, 0, len(routes))
	for _, r := range routes {
		k := pathKey(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func dominates(a, b Route) bool {
	leq := a.TravelTimeS <= b.TravelTimeS && a.CO2G <= b.CO2G && a.DistanceM <= b.DistanceM
	strict := a.TravelTimeS < b.TravelTimeS || a.CO2G < b.CO2G || a.DistanceM < b.DistanceM
	return leq && strict
}

func filterDominated(routes []Route) []Route {
	var survivors []Route
	for i, r := range routes {
		dominated := false
		for j, other := range routes {
			if i == j {
				continue
			}
			if dominates(other, r) {
				dominated = true
				break
			}
		}
		if !dominated {
			survivors = append(survivors, r)
		}
	}
	return survivors
}

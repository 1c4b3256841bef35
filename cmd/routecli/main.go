// Command routecli is a standalone CLI harness over the routing core:
// it seeds a synthetic demo grid, plans a route between two
// coordinates, and prints the result as JSON. Exit codes follow the
// library's error surface (spec §6): 0 success, 2 bad input, 3 not
// reachable, 4 deadline exceeded.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aumo/ecoroute/internal/ch"
	"github.com/aumo/ecoroute/internal/cost"
	"github.com/aumo/ecoroute/internal/emission"
	"github.com/aumo/ecoroute/internal/facade"
	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/routeconfig"
)

const (
	exitSuccess         = 0
	exitBadInput        = 2
	exitNotReachable    = 3
	exitDeadlineExceeded = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	fromLat := flag.Float64("from-lat", 40.72, "origin latitude")
	fromLng := flag.Float64("from-lng", -73.99, "origin longitude")
	toLat := flag.Float64("to-lat", 40.76, "destination latitude")
	toLng := flag.Float64("to-lng", -73.95, "destination longitude")
	alpha := flag.Float64("alpha", 0.5, "time weight")
	beta := flag.Float64("beta", 0.3, "emissions weight")
	gamma := flag.Float64("gamma", 0.2, "congestion weight")
	gridSize := flag.Int("grid-size", 25, "synthetic demo grid side length")
	timeoutS := flag.Int("timeout-s", 10, "search deadline in seconds")
	flag.Parse()

	weights := cost.Weights{Alpha: *alpha, Beta: *beta, Gamma: *gamma}
	if weights.Alpha < 0 || weights.Beta < 0 || weights.Gamma < 0 || weights.Alpha+weights.Beta+weights.Gamma > 1.0001 {
		fmt.Fprintln(os.Stderr, "error: weights must be non-negative and sum to at most 1")
		return exitBadInput
	}

	bbox := graph.BBox{
		South: min(*fromLat, *toLat) - 0.02,
		West:  min(*fromLng, *toLng) - 0.02,
		North: max(*fromLat, *toLat) + 0.02,
		East:  max(*fromLng, *toLng) + 0.02,
	}
	g := graph.BuildSyntheticGrid(bbox, *gridSize, graph.RoadPrimary)
	ch.Contract(g, routeconfig.Default().CHMaxNodes)

	f := facade.New(g, routeconfig.Default())

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutS)*time.Second)
	defer cancel()

	route, err := f.Plan(ctx,
		facade.LatLng{Lat: *fromLat, Lng: *fromLng},
		facade.LatLng{Lat: *toLat, Lng: *toLng},
		time.Now(), weights, nil, emission.FuelPetrol, emission.DefaultConfig,
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			fmt.Fprintln(os.Stderr, "error: deadline exceeded:", err)
			return exitDeadlineExceeded
		}
		fmt.Fprintln(os.Stderr, "error: not reachable:", err)
		return exitNotReachable
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(route); err != nil {
		fmt.Fprintln(os.Stderr, "error: encoding result:", err)
		return exitNotReachable
	}
	return exitSuccess
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

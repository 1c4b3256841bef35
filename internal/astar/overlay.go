package astar

import (
	"time"

	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/routeconfig"
	"github.com/aumo/ecoroute/internal/traffic"
	"github.com/aumo/ecoroute/internal/weight"
)

// OverlayPoint is one vertex of a route's traffic congestion overlay,
// used by the API to paint the returned polyline by congestion level.
type OverlayPoint struct {
	Lat        float64
	Lng        float64
	SpeedKmh   float64
	Congestion float64
}

// TrafficOverlay re-evaluates every edge on an already-found route at
// currentTime and returns a congestion/speed sample per vertex. It
// re-derives speed rather than reusing the search's arrival-time
// estimates, so it reflects predictions as they stand "now" rather
// than when the route was planned.
func TrafficOverlay(g *graph.RoadGraph, nodes []int64, predictions traffic.Predictions, currentTime time.Time, cfg *routeconfig.Config) []OverlayPoint {
	if cfg == nil {
		cfg = routeconfig.Default()
	}
	if len(nodes) == 0 {
		return nil
	}

	overlay := make([]OverlayPoint, 0, len(nodes))

	for i := 0; i < len(nodes)-1; i++ {
		from, to := nodes[i], nodes[i+1]
		fromNode, ok := g.Node(from)
		if !ok {
			continue
		}

		edge, found := findEdge(g, from, to)
		if !found {
			continue
		}

		_, speedKmh := weight.Evaluate(edge, currentTime, predictions, cfg)

		congestion := 0.0
		if edge.FreeFlowSpeedKmh > 0 {
			congestion = 1 - speedKmh/edge.FreeFlowSpeedKmh
			if congestion < 0 {
				congestion = 0
			}
			if congestion > 1 {
				congestion = 1
			}
		}

		overlay = append(overlay, OverlayPoint{
			Lat:        fromNode.Lat,
			Lng:        fromNode.Lng,
			SpeedKmh:   speedKmh,
			Congestion: congestion,
		})
	}

	if lastNode, ok := g.Node(nodes[len(nodes)-1]); ok {
		last := OverlayPoint{Lat: lastNode.Lat, Lng: lastNode.Lng}
		if len(overlay) > 0 {
			last.Congestion = overlay[len(overlay)-1].Congestion
			last.SpeedKmh = overlay[len(overlay)-1].SpeedKmh
		}
		overlay = append(overlay, last)
	}

	return overlay
}

func findEdge(g *graph.RoadGraph, from, to int64) (graph.Edge, bool) {
	for _, e := range g.Neighbors(from) {
		if e.To == to {
			return e, true
		}
	}
	return graph.Edge{}, false
}

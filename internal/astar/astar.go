// Package astar runs a time-expanded A* search over a RoadGraph,
// scoring each edge with the multi-objective cost kernel instead of a
// single scalar travel time.
package astar

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/aumo/ecoroute/internal/cost"
	"github.com/aumo/ecoroute/internal/emission"
	"github.com/aumo/ecoroute/internal/geo"
	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/routeconfig"
	"github.com/aumo/ecoroute/internal/traffic"
	"github.com/aumo/ecoroute/internal/weight"
)

// Result is a found route: the node sequence, its cumulative cost,
// and the per-objective totals needed to report a route's metrics.
type Result struct {
	Nodes         []int64
	TravelTimeS   float64
	CO2G          float64
	DistanceM     float64
	Cost          float64
	NodesExplored int
}

// Request bundles a search's inputs. FuelType and EmissionConfig
// default to petrol / emission.DefaultConfig when unset.
type Request struct {
	Graph           *graph.RoadGraph
	From, To        int64
	DepartureTime   time.Time
	Weights         cost.Weights
	Predictions     traffic.Predictions
	Fuel            emission.FuelType
	EmissionConfig  emission.Config
	Config          *routeconfig.Config
}

type searchNode struct {
	nodeID      int64
	g           float64
	f           float64
	travelTimeS float64
	co2G        float64
	distanceM   float64
	arrival     time.Time
	index       int
}

type priorityQueue []*searchNode

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].f < pq[j].f }
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}
func (pq *priorityQueue) Push(x any) {
	n := *pq
	node := x.(*searchNode)
	node.index = len(n)
	*pq = append(n, node)
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*pq = old[:n-1]
	return node
}

// cameFromEntry records the predecessor edge used to reach a node, for
// path reconstruction once the goal is popped.
type cameFromEntry struct {
	parent      int64
	travelTimeS float64
	co2G        float64
	distanceM   float64
	edgeCost    float64
}

// Search runs the time-expanded A* described at the package level and
// returns the lowest-cost route from req.From to req.To at
// req.DepartureTime. The heuristic divides remaining geodesic distance
// by cfg.VMaxKmh, which stays admissible and consistent because no
// edge can be traversed faster than that global speed ceiling.
func Search(ctx context.Context, req Request) (*Result, error) {
	g := req.Graph
	cfg := req.Config
	if cfg == nil {
		cfg = routeconfig.Default()
	}

	fromNode, ok := g.Node(req.From)
	if !ok {
		return nil, fmt.Errorf("astar: origin node %d not in graph", req.From)
	}
	toNode, ok := g.Node(req.To)
	if !ok {
		return nil, fmt.Errorf("astar: destination node %d not in graph", req.To)
	}

	vMaxMs := cfg.VMaxKmh / 3.6
	heuristic := func(n graph.Node) float64 {
		if vMaxMs <= 0 {
			return 0
		}
		d := geo.Haversine(n.Lat, n.Lng, toNode.Lat, toNode.Lng)
		return d / vMaxMs
	}

	open := &priorityQueue{}
	heap.Init(open)

	best := map[int64]float64{req.From: 0}
	cameFrom := make(map[int64]cameFromEntry)

	heap.Push(open, &searchNode{
		nodeID:  req.From,
		g:       0,
		f:       heuristic(fromNode),
		arrival: req.DepartureTime,
	})

	explored := 0
	for open.Len() > 0 {
		if explored%1000 == 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("astar: deadline exceeded after exploring %d nodes: %w", explored, ctx.Err())
			default:
			}
		}
		if explored >= cfg.AStarMaxIterations {
			return nil, fmt.Errorf("astar: exceeded %d node expansions without finding %d", cfg.AStarMaxIterations, req.To)
		}

		current := heap.Pop(open).(*searchNode)
		explored++

		if g2, ok := best[current.nodeID]; ok && current.g > g2 {
			continue
		}

		if current.nodeID == req.To {
			return reconstruct(cameFrom, req.From, req.To, current, explored), nil
		}

		for _, edge := range g.Neighbors(current.nodeID) {
			neighborNode, ok := g.Node(edge.To)
			if !ok {
				continue
			}

			travelTimeS, speedKmh := weight.Evaluate(edge, current.arrival, req.Predictions, cfg)
			if travelTimeS > 1e300 {
				continue // edge is effectively closed
			}

			detourRatio := 0.0
			edgeCost, bd := cost.Evaluate(edge.LengthM, travelTimeS, speedKmh, edge.FreeFlowSpeedKmh, detourRatio, req.Fuel, req.EmissionConfig, req.Weights)

			tentativeG := current.g + edgeCost
			if existing, ok := best[edge.To]; ok && tentativeG >= existing {
				continue
			}

			best[edge.To] = tentativeG
			cameFrom[edge.To] = cameFromEntry{
				parent:      current.nodeID,
				travelTimeS: travelTimeS,
				co2G:        bd.CO2G,
				distanceM:   edge.LengthM,
				edgeCost:    edgeCost,
			}

			arrival := current.arrival.Add(time.Duration(travelTimeS * float64(time.Second)))
			heap.Push(open, &searchNode{
				nodeID:  edge.To,
				g:       tentativeG,
				f:       tentativeG + heuristic(neighborNode),
				arrival: arrival,
			})
		}
	}

	return nil, fmt.Errorf("astar: no path found from %d to %d after exploring %d nodes", req.From, req.To, explored)
}

func reconstruct(cameFrom map[int64]cameFromEntry, from, to int64, goalNode *searchNode, explored int) *Result {
	var nodes []int64
	var travelTimeS, co2G, distanceM float64

	node := to
	for node != from {
		entry, ok := cameFrom[node]
		if !ok {
			break
		}
		nodes = append(nodes, node)
		travelTimeS += entry.travelTimeS
		co2G += entry.co2G
		distanceM += entry.distanceM
		node = entry.parent
	}
	nodes = append(nodes, from)

	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}

	return &Result{
		Nodes:         nodes,
		TravelTimeS:   travelTimeS,
		CO2G:          co2G,
		DistanceM:     distanceM,
		Cost:          goalNode.g,
		NodesExplored: explored,
	}
}

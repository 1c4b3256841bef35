// Package facade is the single entry point the surrounding application
// calls: plan a route, fan a route out across weight presets, or
// evaluate whether an active ride should re-plan. It is the only
// component that consults the road graph for nearest-node snapping
// and the only one that reads or writes a ride's ReplanState.
package facade

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aumo/ecoroute/internal/astar"
	"github.com/aumo/ecoroute/internal/ch"
	"github.com/aumo/ecoroute/internal/cost"
	"github.com/aumo/ecoroute/internal/emission"
	"github.com/aumo/ecoroute/internal/geo"
	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/mpc"
	"github.com/aumo/ecoroute/internal/pareto"
	"github.com/aumo/ecoroute/internal/routeconfig"
	"github.com/aumo/ecoroute/internal/store"
	"github.com/aumo/ecoroute/internal/traffic"
)

// LatLng is a WGS84 point in degrees, the facade's external coordinate type.
type LatLng struct {
	Lat float64
	Lng float64
}

// Route is the library-surface result of a plan: node path, metrics,
// and the scalarized cost the search minimized.
type Route struct {
	Preset      string
	Nodes       []int64
	Polyline    []LatLng
	DistanceKm  float64
	DurationMin float64
	CO2G        float64
	Cost        float64
	Weights     cost.Weights
	NodesExplored int
	DepartAt    time.Time
	ArriveAt    time.Time
}

// ReplanResult is the outcome of a replan call.
type ReplanResult struct {
	Replanned bool
	Route     *Route
	Reason    string
	Status    RideStatus
}

// RideStatus mirrors a ride's ReplanController observable state (spec
// §4.9): replan count, last replan time, current committed cost, and
// the most recent history entries.
type RideStatus struct {
	ReplanCount   int
	LastReplan    time.Time
	CurrentCost   float64
	RecentHistory []mpc.ReplanSummary
}

const recentHistoryLimit = 5

// statusOf snapshots a ride's observable state off its mpc.State,
// trimming history to the most recent recentHistoryLimit entries
// (spec §4.9: "recent_history[≤5]").
func statusOf(state *mpc.State) RideStatus {
	status := RideStatus{
		ReplanCount: state.ReplanCount(),
		LastReplan:  state.LastReplan(),
	}
	if route, ok := state.CurrentRoute(); ok {
		status.CurrentCost = route.Cost
	}
	history := state.History()
	if len(history) > recentHistoryLimit {
		history = history[len(history)-recentHistoryLimit:]
	}
	status.RecentHistory = history
	return status
}

// Facade orchestrates the road graph, contraction hierarchy, search,
// and per-ride replan controllers behind plan/pareto/replan.
type Facade struct {
	graph  *graph.RoadGraph
	config *routeconfig.Config
	log    *zap.Logger
	store  *pgxpool.Pool

	ridesMu sync.Mutex
	rides   map[string]*mpc.State
}

// New constructs a Facade over an already-built RoadGraph. Preprocess
// the graph with ch.Contract beforehand if a contraction hierarchy is
// wanted; the facade searches g ∪ shortcuts transparently either way,
// since graph.RoadGraph.Neighbors already union-iterates shortcuts.
func New(g *graph.RoadGraph, cfg *routeconfig.Config) *Facade {
	if cfg == nil {
		cfg = routeconfig.Default()
	}
	return &Facade{
		graph:  g,
		config: cfg,
		log:    zap.NewNop(),
		rides:  make(map[string]*mpc.State),
	}
}

// SetLogger attaches a structured logger used for preprocessing and
// per-ride replan decisions; ch and every mpc.State created afterward
// pick it up.
func (f *Facade) SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	f.log = l
	ch.SetLogger(l)
}

// SetStore attaches a Postgres pool used to durably record replan
// decisions (replan_history), so a ride's history survives a process
// restart instead of living only in its in-memory mpc.State. Replan
// works without a store attached; it simply skips persistence.
func (f *Facade) SetStore(pool *pgxpool.Pool) {
	f.store = pool
}

// Preprocess runs the contraction hierarchy preprocessing pass against
// the facade's graph, bounded by f.config.CHMaxNodes.
func (f *Facade) Preprocess() *ch.Hierarchy {
	return ch.Contract(f.graph, f.config.CHMaxNodes)
}

// Plan finds the lowest-cost route between origin and destination at
// departTime under weights, snapping each endpoint to its nearest
// graph node.
func (f *Facade) Plan(ctx context.Context, origin, destination LatLng, departTime time.Time, weights cost.Weights, predictions traffic.Predictions, fuel emission.FuelType, emissionCfg emission.Config) (*Route, error) {
	fromNode, ok := f.graph.FindNearestNode(origin.Lat, origin.Lng)
	if !ok {
		return nil, fmt.Errorf("facade: no graph node near origin (%.5f, %.5f)", origin.Lat, origin.Lng)
	}
	toNode, ok := f.graph.FindNearestNode(destination.Lat, destination.Lng)
	if !ok {
		return nil, fmt.Errorf("facade: no graph node near destination (%.5f, %.5f)", destination.Lat, destination.Lng)
	}

	result, err := astar.Search(ctx, astar.Request{
		Graph:          f.graph,
		From:           fromNode.ID,
		To:             toNode.ID,
		DepartureTime:  departTime,
		Weights:        weights,
		Predictions:    predictions,
		Fuel:           fuel,
		EmissionConfig: emissionCfg,
		Config:         f.config,
	})
	if err != nil {
		return nil, fmt.Errorf("facade: not reachable: %w", err)
	}

	return f.toRoute("custom", result, weights, departTime), nil
}

// Pareto runs the engine once per weight preset and returns the
// non-dominated survivors.
func (f *Facade) Pareto(ctx context.Context, origin, destination LatLng, departTime time.Time, predictions traffic.Predictions, fuel emission.FuelType, emissionCfg emission.Config) ([]Route, error) {
	fromNode, ok := f.graph.FindNearestNode(origin.Lat, origin.Lng)
	if !ok {
		return nil, fmt.Errorf("facade: no graph node near origin (%.5f, %.5f)", origin.Lat, origin.Lng)
	}
	toNode, ok := f.graph.FindNearestNode(destination.Lat, destination.Lng)
	if !ok {
		return nil, fmt.Errorf("facade: no graph node near destination (%.5f, %.5f)", destination.Lat, destination.Lng)
	}

	routes, err := pareto.Run(ctx, f.graph, fromNode.ID, toNode.ID, departTime, predictions, fuel, emissionCfg, f.config)
	if err != nil {
		return nil, err
	}

	out := make([]Route, 0, len(routes))
	for _, r := range routes {
		preset := findPresetWeights(r.Preset)
		out = append(out, *f.toRoute(r.Preset, r.Result, preset, departTime))
	}
	return out, nil
}

// NewRide registers a fresh ReplanState under a generated ride id and
// returns it; callers thread the returned id through subsequent Replan calls.
func (f *Facade) NewRide() string {
	id := uuid.NewString()
	f.ridesMu.Lock()
	f.rides[id] = mpc.New(
		mpc.WithReplanInterval(f.config.ReplanInterval),
		mpc.WithHysteresisThreshold(f.config.HysteresisThreshold),
		mpc.WithMaxReplans(f.config.MaxReplans),
		mpc.WithLogger(f.log),
	)
	f.ridesMu.Unlock()
	return id
}

// Replan evaluates should-replan for rideID and, if triggered,
// searches for a new route and applies the hysteresis commit rule.
// Commit/should-replan for a given ride are serialized by the
// mpc.State's own mutex, reached through the facade's ride map —
// concurrent callers for different rides never contend with each other.
func (f *Facade) Replan(ctx context.Context, rideID string, currentPosition, goal LatLng, now time.Time, weights cost.Weights, predictions traffic.Predictions, fuel emission.FuelType, emissionCfg emission.Config, signals mpc.Signals) (*ReplanResult, error) {
	f.ridesMu.Lock()
	state, ok := f.rides[rideID]
	f.ridesMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("facade: unknown ride %s", rideID)
	}

	should, reason := state.ShouldReplan(signals)
	if !should {
		return &ReplanResult{Replanned: false, Reason: reason, Status: statusOf(state)}, nil
	}

	candidateRoute, err := f.Plan(ctx, currentPosition, goal, now, weights, predictions, fuel, emissionCfg)
	if err != nil {
		return &ReplanResult{Replanned: false, Reason: fmt.Sprintf("candidate search failed: %v", err), Status: statusOf(state)}, nil
	}

	var oldCost float64
	if prior, ok := state.CurrentRoute(); ok {
		oldCost = prior.Cost
	}

	committed, err := state.Commit(pareto.Route{Preset: "replan", Result: &astar.Result{
		Nodes:         candidateRoute.Nodes,
		TravelTimeS:   candidateRoute.DurationMin * 60,
		CO2G:          candidateRoute.CO2G,
		DistanceM:     candidateRoute.DistanceKm * 1000,
		Cost:          candidateRoute.Cost,
		NodesExplored: candidateRoute.NodesExplored,
	}})
	if err != nil {
		return &ReplanResult{Replanned: false, Reason: err.Error(), Status: statusOf(state)}, nil
	}
	if !committed {
		f.recordReplan(ctx, rideID, now, false, oldCost, candidateRoute.Cost, "candidate did not clear hysteresis margin")
		return &ReplanResult{Replanned: false, Reason: "candidate did not clear hysteresis margin", Status: statusOf(state)}, nil
	}

	f.recordReplan(ctx, rideID, now, true, oldCost, candidateRoute.Cost, "committed")
	return &ReplanResult{Replanned: true, Route: candidateRoute, Reason: "committed", Status: statusOf(state)}, nil
}

// recordReplan persists one replan decision to replan_history when a
// store is attached, logging rather than failing the request if it
// can't — durability of the history ledger is best-effort, not on the
// critical path of a replan response.
func (f *Facade) recordReplan(ctx context.Context, rideID string, at time.Time, committed bool, oldCost, newCost float64, reason string) {
	if f.store == nil {
		return
	}
	err := store.RecordReplan(ctx, f.store, store.ReplanEvent{
		RideID:      rideID,
		ReplannedAt: at,
		Committed:   committed,
		OldCost:     oldCost,
		NewCost:     newCost,
		Reason:      reason,
	})
	if err != nil {
		f.log.Warn("facade: failed to record replan history", zap.String("ride_id", rideID), zap.Error(err))
	}
}

func (f *Facade) toRoute(preset string, result *astar.Result, weights cost.Weights, departAt time.Time) *Route {
	polyline := make([]LatLng, 0, len(result.Nodes))
	for _, id := range result.Nodes {
		if n, ok := f.graph.Node(id); ok {
			polyline = append(polyline, LatLng{Lat: n.Lat, Lng: n.Lng})
		}
	}

	return &Route{
		Preset:        preset,
		Nodes:         result.Nodes,
		Polyline:      polyline,
		DistanceKm:    result.DistanceM / 1000.0,
		DurationMin:   result.TravelTimeS / 60.0,
		CO2G:          result.CO2G,
		Cost:          result.Cost,
		Weights:       weights,
		NodesExplored: result.NodesExplored,
		DepartAt:      departAt,
		ArriveAt:      departAt.Add(time.Duration(result.TravelTimeS * float64(time.Second))),
	}
}

// RideHistory returns the most recent n replan events recorded for
// rideID in durable storage, surviving process restarts that would
// otherwise have emptied the ride's in-memory mpc.State history. Error
// if no store is attached.
func (f *Facade) RideHistory(ctx context.Context, rideID string, limit int) ([]store.ReplanEvent, error) {
	if f.store == nil {
		return nil, fmt.Errorf("facade: no store attached")
	}
	return store.RideHistory(ctx, f.store, rideID, limit)
}

// ActiveRideIDs returns the ids of every ride with a registered replan
// controller, used by the periodic scheduler tick to know what to
// check without the facade itself owning each ride's current position.
func (f *Facade) ActiveRideIDs() []string {
	f.ridesMu.Lock()
	defer f.ridesMu.Unlock()
	out := make([]string, 0, len(f.rides))
	for id := range f.rides {
		out = append(out, id)
	}
	return out
}

// Overlay recomputes EdgeWeight along an already-found route's path at
// currentTime and returns a congestion/speed sample per node, the way
// the original implementation builds its traffic overlay — from the
// winning path after the fact, not from search-time estimates.
func (f *Facade) Overlay(route Route, currentTime time.Time, predictions traffic.Predictions) []astar.OverlayPoint {
	return astar.TrafficOverlay(f.graph, route.Nodes, predictions, currentTime, f.config)
}

// EfficiencyRatio is geodesic(start,goal) / distance_traveled, a
// measure of how directly a route reaches its destination.
func EfficiencyRatio(origin, destination LatLng, distanceTraveledM float64) float64 {
	if distanceTraveledM <= 0 {
		return 0
	}
	geodesic := geo.Haversine(origin.Lat, origin.Lng, destination.Lat, destination.Lng)
	return geodesic / distanceTraveledM
}

func findPresetWeights(name string) cost.Weights {
	for _, p := range pareto.Presets {
		if p.Name == name {
			return p.Weights
		}
	}
	return cost.Weights{}
}

// Package api is the Fiber HTTP surface over the eco-routing facade:
// plan, pareto, replan, health, and Prometheus metrics. Shaping of
// request/response payloads for the surrounding application is out of
// scope beyond these four operations; this package only exposes the
// library surface described by the routing core's external interface.
package api

import (
	"time"

	"github.com/paulmach/go.geojson"

	"github.com/aumo/ecoroute/internal/cost"
	"github.com/aumo/ecoroute/internal/emission"
	"github.com/aumo/ecoroute/internal/facade"
	"github.com/aumo/ecoroute/internal/mpc"
	"github.com/aumo/ecoroute/internal/store"
)

// LatLngDTO is the wire shape of a coordinate.
type LatLngDTO struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (d LatLngDTO) toDomain() facade.LatLng {
	return facade.LatLng{Lat: d.Lat, Lng: d.Lng}
}

// WeightsDTO mirrors spec §6: alpha/beta/gamma required, delta
// optional and defaulting to 0. Delta follows the valhalla-client's
// *T + ptr.Float64 convention for an optional numeric field.
type WeightsDTO struct {
	Alpha float64  `json:"alpha"`
	Beta  float64  `json:"beta"`
	Gamma float64  `json:"gamma"`
	Delta *float64 `json:"delta,omitempty"`
}

func (d WeightsDTO) toDomain() cost.Weights {
	delta := 0.0
	if d.Delta != nil {
		delta = *d.Delta
	}
	return cost.Weights{Alpha: d.Alpha, Beta: d.Beta, Gamma: d.Gamma, Delta: delta}
}

// sum reports the weights' total, used to reject non-normalized input.
func (d WeightsDTO) sum() float64 {
	delta := 0.0
	if d.Delta != nil {
		delta = *d.Delta
	}
	return d.Alpha + d.Beta + d.Gamma + delta
}

// PlanRequest is the wire shape of a plan request (spec §6).
type PlanRequest struct {
	Origin         LatLngDTO  `json:"origin"`
	Destination    LatLngDTO  `json:"destination"`
	DepartureTime  time.Time  `json:"departure_time"`
	Weights        WeightsDTO `json:"weights"`
	AvoidTolls     *bool      `json:"avoid_tolls,omitempty"`
	FuelType       *string    `json:"fuel_type,omitempty"`
}

func (r PlanRequest) fuel() emission.FuelType {
	if r.FuelType == nil {
		return emission.FuelPetrol
	}
	return emission.FuelType(*r.FuelType)
}

// SegmentDTO is one leg of a route's breakdown.
type SegmentDTO struct {
	DistanceM   float64 `json:"distance_m"`
	TravelTimeS float64 `json:"travel_time_s"`
	SpeedKmh    float64 `json:"speed_kmh"`
	CO2G        float64 `json:"co2_g"`
}

// TrafficOverlayPointDTO is one node's congestion/speed sample along
// the winning path (spec §6): one entry for each node that starts an
// edge of the path, plus one for the terminal node copying the
// previous sample, so len(path) entries in all.
type TrafficOverlayPointDTO struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Congestion float64 `json:"congestion"`
	SpeedKmh   float64 `json:"speed_kmh"`
}

// RouteDTO is the wire shape of a planned route.
type RouteDTO struct {
	Preset          string      `json:"preset"`
	Nodes           []int64     `json:"nodes"`
	Polyline        [][]float64 `json:"polyline"` // [lng, lat] pairs, GeoJSON order
	DistanceKm      float64     `json:"distance_km"`
	DurationMin     float64     `json:"duration_min"`
	CO2G            float64     `json:"co2_g"`
	ScalarCost      float64     `json:"scalar_cost"`
	NodesExplored   int         `json:"nodes_explored"`
	DepartureTime   time.Time   `json:"departure_time"`
	ArrivalTime     time.Time   `json:"arrival_time"`
	EfficiencyRatio float64     `json:"efficiency_ratio"`
}

func routeToDTO(r facade.Route) RouteDTO {
	poly := make([][]float64, 0, len(r.Polyline))
	for _, p := range r.Polyline {
		poly = append(poly, []float64{p.Lng, p.Lat})
	}

	var efficiency float64
	if len(r.Polyline) > 0 {
		origin := facade.LatLng{Lat: r.Polyline[0].Lat, Lng: r.Polyline[0].Lng}
		dest := facade.LatLng{Lat: r.Polyline[len(r.Polyline)-1].Lat, Lng: r.Polyline[len(r.Polyline)-1].Lng}
		efficiency = facade.EfficiencyRatio(origin, dest, r.DistanceKm*1000)
	}

	return RouteDTO{
		Preset:          r.Preset,
		Nodes:           r.Nodes,
		Polyline:        poly,
		DistanceKm:       r.DistanceKm,
		DurationMin:      r.DurationMin,
		CO2G:             r.CO2G,
		ScalarCost:       r.Cost,
		NodesExplored:    r.NodesExplored,
		DepartureTime:    r.DepartAt,
		ArrivalTime:      r.ArriveAt,
		EfficiencyRatio:  efficiency,
	}
}

// PlanResponse is the wire shape of a plan response (spec §6):
// primary route, optional alternative, and a traffic overlay along
// the primary path.
type PlanResponse struct {
	Primary        RouteDTO                 `json:"primary"`
	Alternative    *RouteDTO                `json:"alternative,omitempty"`
	TrafficOverlay []TrafficOverlayPointDTO `json:"traffic_overlay"`
	GeoJSON        *geojson.Feature         `json:"geojson,omitempty"`
}

// ParetoResponse is the wire shape of a pareto response: routes tagged
// by preset name, non-dominated.
type ParetoResponse struct {
	Routes []RouteDTO `json:"routes"`
}

// ReplanRequestDTO is the wire shape of a replan request (spec §6).
type ReplanRequestDTO struct {
	RideID            string     `json:"ride_id"`
	CurrentPosition   LatLngDTO  `json:"current_position"`
	Destination       LatLngDTO  `json:"destination"`
	DepartureTime     time.Time  `json:"departure_time"`
	Weights           WeightsDTO `json:"weights"`
	TrafficChangePct  float64    `json:"traffic_change_pct"`
	IsOffRoute        bool       `json:"is_off_route"`
	IncidentOnRoute   bool       `json:"incident_on_route"`
}

func (r ReplanRequestDTO) signals() mpc.Signals {
	return mpc.Signals{
		TrafficChangePct: r.TrafficChangePct,
		OffRoute:         r.IsOffRoute,
		IncidentOnRoute:  r.IncidentOnRoute,
	}
}

// ReplanResponseDTO is the wire shape of a replan response (spec §6).
type ReplanResponseDTO struct {
	Replanned bool      `json:"replanned"`
	Route     *RouteDTO `json:"route,omitempty"`
	Reason    string    `json:"reason"`
	Status    RideStatusDTO `json:"status"`
}

// RideStatusDTO mirrors ReplanController's observable state (spec §4.9).
type RideStatusDTO struct {
	ReplanCount     int       `json:"replan_count"`
	LastReplan      time.Time `json:"last_replan"`
	CurrentCost     float64   `json:"current_cost"`
	RecentHistory   []ReplanSummaryDTO `json:"recent_history"`
}

// ReplanSummaryDTO is one bounded history entry.
type ReplanSummaryDTO struct {
	At        time.Time `json:"at"`
	Committed bool      `json:"committed"`
	OldCost   float64   `json:"old_cost"`
	NewCost   float64   `json:"new_cost"`
	Reason    string    `json:"reason"`
}

// NewRideResponseDTO is returned by POST /v1/rides.
type NewRideResponseDTO struct {
	RideID string `json:"ride_id"`
}

func statusToDTO(s facade.RideStatus) RideStatusDTO {
	history := make([]ReplanSummaryDTO, 0, len(s.RecentHistory))
	for _, entry := range s.RecentHistory {
		history = append(history, ReplanSummaryDTO{
			At:        entry.At,
			Committed: entry.Committed,
			OldCost:   entry.OldCost,
			NewCost:   entry.NewCost,
			Reason:    entry.Reason,
		})
	}
	return RideStatusDTO{
		ReplanCount:   s.ReplanCount,
		LastReplan:    s.LastReplan,
		CurrentCost:   s.CurrentCost,
		RecentHistory: history,
	}
}

// RideHistoryResponseDTO is returned by GET /v1/rides/:id/history: the
// durable replan ledger for a ride, surviving process restarts that
// would otherwise have emptied its in-memory controller history.
type RideHistoryResponseDTO struct {
	RideID  string             `json:"ride_id"`
	History []ReplanSummaryDTO `json:"history"`
}

func historyEventToDTO(ev store.ReplanEvent) ReplanSummaryDTO {
	return ReplanSummaryDTO{
		At:        ev.ReplannedAt,
		Committed: ev.Committed,
		OldCost:   ev.OldCost,
		NewCost:   ev.NewCost,
		Reason:    ev.Reason,
	}
}

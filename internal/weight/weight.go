// Package weight implements the time-dependent edge weight function:
// a traffic-prediction override when available, falling back to the
// BPR volume-delay function keyed off time of day.
package weight

import (
	"math"
	"time"

	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/routeconfig"
	"github.com/aumo/ecoroute/internal/traffic"
)

// volumeRatio returns the BPR volume/capacity ratio for the hour of
// day: peak commute hours saturate the road, daytime and shoulder
// hours carry partial load, and night traffic is light.
func volumeRatio(t time.Time) float64 {
	hour := float64(t.Hour()) + float64(t.Minute())/60.0
	switch {
	case (hour >= 7 && hour < 9) || (hour >= 17 && hour < 19):
		return 0.85 // peak
	case hour >= 9 && hour < 17:
		return 0.6 // daytime
	case (hour >= 5 && hour < 7) || (hour >= 19 && hour < 22):
		return 0.4 // shoulder
	default:
		return 0.15 // night
	}
}

// Evaluate returns (travel_time_s, effective_speed_kmh) for an edge at
// currentTime:
//
//  1. a positive traffic prediction for the edge overrides the speed
//     directly;
//  2. otherwise the BPR function estimates travel time from free-flow
//     speed, capacity, and a time-of-day volume ratio.
//
// If free_flow_speed_kmh <= 0, returns +Inf travel time — the caller
// must not relax to such a neighbor.
func Evaluate(e graph.Edge, currentTime time.Time, predictions traffic.Predictions, cfg *routeconfig.Config) (travelTimeS, effectiveSpeedKmh float64) {
	if speed, ok := predictions.Lookup(e.Key()); ok {
		speedMs := speed / 3.6
		return e.LengthM / speedMs, speed
	}

	if e.FreeFlowSpeedKmh <= 0 {
		return math.Inf(1), 0
	}

	freeFlowMs := e.FreeFlowSpeedKmh / 3.6
	t0 := e.LengthM / freeFlowMs

	capacity := e.Capacity
	if capacity <= 0 {
		capacity = float64(e.Lanes) * 1800
	}
	if capacity <= 0 {
		capacity = 1800
	}

	ratio := volumeRatio(currentTime)
	volume := capacity * ratio
	vcRatio := volume / capacity

	travelTime := t0 * (1 + cfg.BPRAlpha*math.Pow(vcRatio, cfg.BPRBeta))

	speedKmh := e.FreeFlowSpeedKmh
	if travelTime > 0 {
		speedKmh = e.LengthM / travelTime * 3.6
	}

	return travelTime, speedKmh
}

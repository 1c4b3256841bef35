// Package cost scalarizes an edge traversal into a single objective:
// a convex combination of travel time, CO₂, congestion, and detour.
package cost

import (
	"github.com/aumo/ecoroute/internal/emission"
)

// Weights is the caller-supplied convex combination (α, β, γ, δ) over
// (time, CO₂, congestion, detour). The caller normalizes so the four
// sum to 1 (δ defaults to 0 for presets without a detour term); Evaluate
// does not re-normalize.
type Weights struct {
	Alpha float64 // time
	Beta  float64 // CO2
	Gamma float64 // congestion
	Delta float64 // detour
}

// Breakdown is the per-edge detail returned alongside the scalar cost,
// used to reconstruct route metrics after a search completes.
type Breakdown struct {
	TravelTimeS float64
	SpeedKmh    float64
	CO2G        float64
	Congestion  float64
	DistanceM   float64
}

// Evaluate computes J(e,t) and its breakdown for one edge traversal.
//
//	T_norm   = travel_time_s / 60
//	CO2_norm = length_km · EF(v) · (1 + 0.5·ρ) / 100
//	ρ        = clamp(1 - v/v_free, 0, 1)
//	D_norm   = detourRatio ∈ [0,1]
//	J = α·T_norm + β·CO2_norm + γ·ρ + δ·D_norm
func Evaluate(lengthM, travelTimeS, speedKmh, freeFlowSpeedKmh, detourRatio float64, fuel emission.FuelType, emissionCfg emission.Config, w Weights) (float64, Breakdown) {
	distanceKm := lengthM / 1000.0
	ef := emission.EF(speedKmh, fuel, emissionCfg)
	co2G := distanceKm * ef

	congestion := 0.0
	if freeFlowSpeedKmh > 0 {
		congestion = 1 - speedKmh/freeFlowSpeedKmh
		if congestion < 0 {
			congestion = 0
		}
		if congestion > 1 {
			congestion = 1
		}
	}

	tNorm := travelTimeS / 60.0
	co2Norm := distanceKm * ef * (1 + 0.5*congestion) / 100.0
	dNorm := detourRatio
	if dNorm < 0 {
		dNorm = 0
	}
	if dNorm > 1 {
		dNorm = 1
	}

	j := w.Alpha*tNorm + w.Beta*co2Norm + w.Gamma*congestion + w.Delta*dNorm

	return j, Breakdown{
		TravelTimeS: travelTimeS,
		SpeedKmh:    speedKmh,
		CO2G:        co2G,
		Congestion:  congestion,
		DistanceM:   lengthM,
	}
}

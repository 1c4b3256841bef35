package cost

import (
	"testing"

	"github.com/aumo/ecoroute/internal/emission"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateFreeFlowHasZeroCongestion(t *testing.T) {
	j, bd := Evaluate(1000, 60, 60, 60, 0, emission.FuelPetrol, emission.DefaultConfig, Weights{Alpha: 1})
	assert.Equal(t, 0.0, bd.Congestion)
	assert.InDelta(t, 1.0, j, 1e-9) // T_norm = 60/60 = 1, alpha=1, everything else 0
}

func TestEvaluateCongestedSpeedRaisesCongestion(t *testing.T) {
	_, free := Evaluate(1000, 60, 60, 60, 0, emission.FuelPetrol, emission.DefaultConfig, Weights{})
	_, jam := Evaluate(1000, 120, 30, 60, 0, emission.FuelPetrol, emission.DefaultConfig, Weights{})
	assert.Greater(t, jam.Congestion, free.Congestion)
}

func TestEvaluateCongestionClampedToUnitInterval(t *testing.T) {
	// Speed exceeding free-flow (e.g. a downhill stretch) must not drive congestion negative.
	_, bd := Evaluate(1000, 30, 90, 60, 0, emission.FuelPetrol, emission.DefaultConfig, Weights{})
	assert.Equal(t, 0.0, bd.Congestion)

	// Zero speed against a positive free-flow caps congestion at 1, not higher.
	_, bd2 := Evaluate(1000, 1e9, 0, 60, 0, emission.FuelPetrol, emission.DefaultConfig, Weights{})
	assert.Equal(t, 1.0, bd2.Congestion)
}

func TestEvaluateZeroFreeFlowSpeedLeavesCongestionZero(t *testing.T) {
	_, bd := Evaluate(1000, 60, 30, 0, 0, emission.FuelPetrol, emission.DefaultConfig, Weights{})
	assert.Equal(t, 0.0, bd.Congestion)
}

func TestEvaluateWeightsCombineLinearly(t *testing.T) {
	w := Weights{Alpha: 0.4, Beta: 0.3, Gamma: 0.2, Delta: 0.1}
	j, bd := Evaluate(5000, 300, 40, 60, 0.5, emission.FuelDiesel, emission.DefaultConfig, w)

	tNorm := bd.TravelTimeS / 60.0
	co2Norm := (5000.0 / 1000.0) * emission.EF(40, emission.FuelDiesel, emission.DefaultConfig) * (1 + 0.5*bd.Congestion) / 100.0
	expected := w.Alpha*tNorm + w.Beta*co2Norm + w.Gamma*bd.Congestion + w.Delta*0.5
	assert.InDelta(t, expected, j, 1e-9)
}

func TestEvaluateDetourRatioClamped(t *testing.T) {
	_, bdOver := Evaluate(1000, 60, 60, 60, 5, emission.FuelPetrol, emission.DefaultConfig, Weights{Delta: 1})
	jOver, _ := Evaluate(1000, 60, 60, 60, 5, emission.FuelPetrol, emission.DefaultConfig, Weights{Delta: 1})
	jOne, _ := Evaluate(1000, 60, 60, 60, 1, emission.FuelPetrol, emission.DefaultConfig, Weights{Delta: 1})
	assert.Equal(t, jOne, jOver)
	_ = bdOver

	_, bdUnder := Evaluate(1000, 60, 60, 60, -3, emission.FuelPetrol, emission.DefaultConfig, Weights{Delta: 1})
	jUnder, _ := Evaluate(1000, 60, 60, 60, -3, emission.FuelPetrol, emission.DefaultConfig, Weights{Delta: 1})
	jZero, _ := Evaluate(1000, 60, 60, 60, 0, emission.FuelPetrol, emission.DefaultConfig, Weights{Delta: 1})
	assert.Equal(t, jZero, jUnder)
	_ = bdUnder
}

func TestEvaluateElectricHasZeroCO2Norm(t *testing.T) {
	_, bd := Evaluate(10000, 600, 50, 60, 0, emission.FuelElectric, emission.DefaultConfig, Weights{})
	assert.Equal(t, 0.0, bd.CO2G)
}

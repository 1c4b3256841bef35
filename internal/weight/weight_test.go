package weight

import (
	"testing"
	"time"

	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/routeconfig"
	"github.com/aumo/ecoroute/internal/traffic"
	"github.com/stretchr/testify/assert"
)

func edgeAB() graph.Edge {
	return graph.Edge{
		From: 1, To: 2,
		LengthM:          1113.2,
		FreeFlowSpeedKmh: 60,
		Lanes:            1,
		Capacity:         1800,
	}
}

func TestEvaluateBPRFallback(t *testing.T) {
	cfg := routeconfig.Default()
	midday := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	travelTime, speed := Evaluate(edgeAB(), midday, nil, cfg)

	// Midday volume_ratio 0.6 => factor 1+0.15*0.6^4 ~= 1.0194.
	t0 := edgeAB().LengthM / (60 / 3.6)
	expectedFactor := 1 + 0.15*0.6*0.6*0.6*0.6
	assert.InDelta(t, t0*expectedFactor, travelTime, 0.01)
	assert.Greater(t, speed, 0.0)
	assert.Less(t, speed, 60.0) // BPR always slows below free-flow at positive volume
}

func TestEvaluatePredictionOverride(t *testing.T) {
	cfg := routeconfig.Default()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	preds := traffic.Predictions{
		"1-2": {SpeedKmh: 20},
	}

	travelTime, speed := Evaluate(edgeAB(), now, preds, cfg)
	assert.Equal(t, 20.0, speed)
	assert.InDelta(t, edgeAB().LengthM/(20/3.6), travelTime, 1e-6)
}

func TestEvaluateNonPositiveFreeFlowSpeedIsInfinite(t *testing.T) {
	cfg := routeconfig.Default()
	e := edgeAB()
	e.FreeFlowSpeedKmh = 0

	travelTime, _ := Evaluate(e, time.Now(), nil, cfg)
	assert.True(t, travelTime > 1e300) // +Inf
}

func TestVolumeRatioTable(t *testing.T) {
	cases := []struct {
		hour     int
		expected float64
	}{
		{8, 0.85},
		{18, 0.85},
		{12, 0.6},
		{6, 0.4},
		{20, 0.4},
		{2, 0.15},
	}
	for _, c := range cases {
		tm := time.Date(2024, 1, 1, c.hour, 0, 0, 0, time.UTC)
		assert.Equal(t, c.expected, volumeRatio(tm))
	}
}

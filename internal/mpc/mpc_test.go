package mpc

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aumo/ecoroute/internal/astar"
	"github.com/aumo/ecoroute/internal/pareto"
)

func routeWithCost(cost float64) pareto.Route {
	return pareto.Route{Preset: "balanced", Result: &astar.Result{Cost: cost}}
}

func TestShouldReplanFirstPlanAlwaysTrue(t *testing.T) {
	s := New()
	ok, reason := s.ShouldReplan(Signals{})
	assert.True(t, ok)
	assert.Equal(t, "no prior plan", reason)
}

func TestShouldReplanPeriodicIntervalTrigger(t *testing.T) {
	mock := clock.NewMock()
	s := New(WithClock(mock), WithReplanInterval(45*time.Second))

	committed, err := s.Commit(routeWithCost(100))
	require.NoError(t, err)
	require.True(t, committed)

	ok, _ := s.ShouldReplan(Signals{})
	assert.False(t, ok, "interval has not elapsed yet")

	mock.Add(46 * time.Second)
	ok, reason := s.ShouldReplan(Signals{})
	assert.True(t, ok)
	assert.Equal(t, "replan interval elapsed", reason)
}

func TestShouldReplanSignalTriggers(t *testing.T) {
	mock := clock.NewMock()
	s := New(WithClock(mock))
	_, err := s.Commit(routeWithCost(100))
	require.NoError(t, err)

	ok, reason := s.ShouldReplan(Signals{TrafficChangePct: 0.25})
	assert.True(t, ok)
	assert.Equal(t, "traffic changed more than 20%", reason)

	ok, reason = s.ShouldReplan(Signals{OffRoute: true})
	assert.True(t, ok)
	assert.Equal(t, "off route", reason)

	ok, reason = s.ShouldReplan(Signals{IncidentOnRoute: true})
	assert.True(t, ok)
	assert.Equal(t, "incident on route", reason)

	ok, reason = s.ShouldReplan(Signals{})
	assert.False(t, ok)
	assert.Equal(t, "no trigger", reason)
}

func TestShouldReplanCeilingWins(t *testing.T) {
	s := New(WithMaxReplans(1))
	committed, err := s.Commit(routeWithCost(100))
	require.NoError(t, err)
	require.True(t, committed)

	ok, reason := s.ShouldReplan(Signals{OffRoute: true})
	assert.False(t, ok)
	assert.Equal(t, "replan ceiling reached", reason)
}

func TestCommitRejectsCandidateInsideHysteresisMargin(t *testing.T) {
	s := New(WithHysteresisThreshold(0.15))
	_, err := s.Commit(routeWithCost(100))
	require.NoError(t, err)

	// 90 is only a 10% improvement; below the 15% margin, so it's rejected.
	committed, err := s.Commit(routeWithCost(90))
	require.NoError(t, err)
	assert.False(t, committed)

	current, ok := s.CurrentRoute()
	require.True(t, ok)
	assert.Equal(t, 100.0, current.Cost)
}

func TestCommitAcceptsCandidateBeyondHysteresisMargin(t *testing.T) {
	s := New(WithHysteresisThreshold(0.15))
	_, err := s.Commit(routeWithCost(100))
	require.NoError(t, err)

	committed, err := s.Commit(routeWithCost(80))
	require.NoError(t, err)
	assert.True(t, committed)

	current, ok := s.CurrentRoute()
	require.True(t, ok)
	assert.Equal(t, 80.0, current.Cost)
}

func TestCommitRejectionDoesNotBurnReplanCeiling(t *testing.T) {
	s := New(WithMaxReplans(2))
	_, err := s.Commit(routeWithCost(100))
	require.NoError(t, err)

	committed, err := s.Commit(routeWithCost(99))
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Equal(t, 1, s.ReplanCount())

	committed, err = s.Commit(routeWithCost(50))
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Equal(t, 2, s.ReplanCount())
}

func TestHistoryIsBoundedAndRecordsOutcome(t *testing.T) {
	s := New(WithMaxReplans(1000))
	_, err := s.Commit(routeWithCost(1000))
	require.NoError(t, err)

	for i := 0; i < historySize+5; i++ {
		_, _ = s.Commit(routeWithCost(float64(1000 - i)))
	}

	history := s.History()
	assert.LessOrEqual(t, len(history), historySize)
}

// Package mpc implements the per-ride re-planning controller: a
// model-predictive loop that decides when a candidate route is worth
// recomputing and whether to commit it over the one currently in
// force, guarded by a hysteresis margin so noisy predictions don't
// cause route flip-flopping.
package mpc

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/aumo/ecoroute/internal/pareto"
)

const (
	defaultReplanInterval      = 45 * time.Second
	defaultHysteresisThreshold = 0.15
	defaultMaxReplans          = 20
	historySize                = 20
)

// ReplanSummary is one bounded history entry: what happened the last
// time should-replan fired.
type ReplanSummary struct {
	At        time.Time
	Committed bool
	OldCost   float64
	NewCost   float64
	Reason    string
}

// Signals carries the externally observed conditions should-replan
// consults, separate from the controller's own clock-driven state.
type Signals struct {
	TrafficChangePct float64
	OffRoute         bool
	IncidentOnRoute  bool
}

// State is one active ride's replan controller. Every exported method
// is safe for concurrent use; callers still serialize Commit/Should
// per ride via the facade's owning map rather than sharing one State
// across rides.
type State struct {
	mu sync.Mutex

	clock clock.Clock

	replanInterval      time.Duration
	hysteresisThreshold float64
	maxReplans          int

	currentRoute    *pareto.Route
	lastReplanTime  time.Time
	replanCount     int
	history         []ReplanSummary

	log *zap.Logger
}

// Option configures a State at construction.
type Option func(*State)

// WithClock injects a fake clock for deterministic tests; production
// callers omit this and get the real wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *State) { s.clock = c }
}

// WithReplanInterval overrides the periodic-timer trigger.
func WithReplanInterval(d time.Duration) Option {
	return func(s *State) { s.replanInterval = d }
}

// WithHysteresisThreshold overrides θ in the commit rule.
func WithHysteresisThreshold(theta float64) Option {
	return func(s *State) { s.hysteresisThreshold = theta }
}

// WithMaxReplans overrides the replan ceiling.
func WithMaxReplans(n int) Option {
	return func(s *State) { s.maxReplans = n }
}

// WithLogger attaches a structured logger for commit/suppress
// decisions; omitted controllers log nothing.
func WithLogger(l *zap.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.log = l
		}
	}
}

// New constructs a controller for one ride with no route planned yet.
func New(opts ...Option) *State {
	s := &State{
		clock:               clock.New(),
		replanInterval:      defaultReplanInterval,
		hysteresisThreshold: defaultHysteresisThreshold,
		maxReplans:          defaultMaxReplans,
		log:                 zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShouldReplan reports whether a new plan should be computed, and why.
// The predicate is an OR of: no plan yet, periodic interval elapsed,
// traffic changed more than 20%, the caller reports off-route, or the
// caller reports an incident on the current route. The replan ceiling
// always wins first: once replanCount reaches maxReplans, no trigger
// can fire again.
func (s *State) ShouldReplan(signals Signals) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replanCount >= s.maxReplans {
		return false, "replan ceiling reached"
	}

	if s.currentRoute == nil {
		return true, "no prior plan"
	}

	if s.clock.Now().Sub(s.lastReplanTime) >= s.replanInterval {
		return true, "replan interval elapsed"
	}

	if signals.TrafficChangePct > 0.20 {
		return true, "traffic changed more than 20%"
	}

	if signals.OffRoute {
		return true, "off route"
	}

	if signals.IncidentOnRoute {
		return true, "incident on route"
	}

	return false, "no trigger"
}

// Commit applies the hysteresis rule: candidate replaces the current
// route only if candidate.Cost < (1-θ)·current.Cost. last_replan_time
// and replanCount only advance on an actual commit, so transient churn
// that never clears the hysteresis bar does not reset the
// periodic-interval clock or burn the replan ceiling. Returns whether
// the candidate was committed.
func (s *State) Commit(candidate pareto.Route) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replanCount >= s.maxReplans {
		return false, fmt.Errorf("mpc: replan ceiling of %d reached", s.maxReplans)
	}

	now := s.clock.Now()

	if s.currentRoute == nil {
		s.currentRoute = &candidate
		s.lastReplanTime = now
		s.replanCount++
		s.pushHistory(ReplanSummary{At: now, Committed: true, NewCost: candidate.Cost, Reason: "initial plan"})
		s.log.Info("mpc commit", zap.Bool("committed", true), zap.String("reason", "initial plan"), zap.Float64("new_cost", candidate.Cost))
		return true, nil
	}

	threshold := s.currentRoute.Cost * (1 - s.hysteresisThreshold)
	if candidate.Cost >= threshold {
		s.pushHistory(ReplanSummary{
			At:        now,
			Committed: false,
			OldCost:   s.currentRoute.Cost,
			NewCost:   candidate.Cost,
			Reason:    "candidate did not clear hysteresis margin",
		})
		s.log.Info("mpc commit", zap.Bool("committed", false), zap.Float64("old_cost", s.currentRoute.Cost), zap.Float64("new_cost", candidate.Cost))
		return false, nil
	}

	s.pushHistory(ReplanSummary{
		At:        now,
		Committed: true,
		OldCost:   s.currentRoute.Cost,
		NewCost:   candidate.Cost,
		Reason:    "candidate cleared hysteresis margin",
	})
	s.log.Info("mpc commit", zap.Bool("committed", true), zap.Float64("old_cost", s.currentRoute.Cost), zap.Float64("new_cost", candidate.Cost))
	s.currentRoute = &candidate
	s.lastReplanTime = now
	s.replanCount++
	return true, nil
}

// CurrentRoute returns the committed route, if any.
func (s *State) CurrentRoute() (pareto.Route, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRoute == nil {
		return pareto.Route{}, false
	}
	return *s.currentRoute, true
}

// History returns a copy of the bounded replan summary ring, oldest first.
func (s *State) History() []ReplanSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReplanSummary, len(s.history))
	copy(out, s.history)
	return out
}

// ReplanCount returns how many replans have been committed; rejected
// candidates are not counted.
func (s *State) ReplanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replanCount
}

// LastReplan returns the time of the last committed replan, or the
// zero time if none has committed yet.
func (s *State) LastReplan() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReplanTime
}

func (s *State) pushHistory(entry ReplanSummary) {
	s.history = append(s.history, entry)
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
}

// Package traffic defines the external traffic-prediction snapshot
// the core consumes. Production of these predictions (an LSTM /
// spatio-temporal GAT model upstream) is out of scope for this module;
// the core is agnostic to how the map was produced.
package traffic

import "fmt"

// Prediction is one edge's predicted traffic state.
type Prediction struct {
	SpeedKmh   float64
	Flow       float64
	Congestion float64 // in [0, 1]
}

// Predictions is a read-only snapshot keyed by "u-v" edge identifier.
// Absent entries fall back to the BPR model. The facade
// treats updates as copy-on-write: a new Predictions value replaces
// the old one wholesale rather than being mutated in place, so a
// query holding a reference never observes a half-updated map.
type Predictions map[string]Prediction

// Key formats the "u-v" edge identifier used to index Predictions.
func Key(from, to int64) string {
	return fmt.Sprintf("%d-%d", from, to)
}

// Lookup returns the predicted speed for an edge key, and whether a
// usable (positive) prediction exists.
func (p Predictions) Lookup(key string) (speedKmh float64, ok bool) {
	if p == nil {
		return 0, false
	}
	pred, found := p[key]
	if !found || pred.SpeedKmh <= 0 {
		return 0, false
	}
	return pred.SpeedKmh, true
}

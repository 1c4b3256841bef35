// Package routeconfig centralizes the routing engine's tunables,
// loaded from the environment the same way internal/db and
// internal/cache load theirs.
package routeconfig

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable knob the routing engine consults.
type Config struct {
	VMaxKmh             float64
	BPRAlpha            float64
	BPRBeta             float64
	ReplanInterval       time.Duration
	HysteresisThreshold  float64
	MaxReplans           int
	CHMaxNodes           int
	AStarMaxIterations   int
	PredictionsEnabled   bool
}

// LoadFromEnv loads Config from the environment, falling back to
// conservative defaults tuned for a mid-size metro road network.
func LoadFromEnv() *Config {
	return &Config{
		VMaxKmh:            getFloat("V_MAX_KMH", 120),
		BPRAlpha:           getFloat("BPR_ALPHA", 0.15),
		BPRBeta:            getFloat("BPR_BETA", 4.0),
		ReplanInterval:     getDuration("REPLAN_INTERVAL_S", 45*time.Second),
		HysteresisThreshold: getFloat("HYSTERESIS_THRESHOLD", 0.15),
		MaxReplans:         getInt("MAX_REPLANS", 20),
		CHMaxNodes:         getInt("CH_MAX_NODES", 3000),
		AStarMaxIterations: getInt("ASTAR_MAX_ITERATIONS", 150000),
		PredictionsEnabled: getBool("PREDICTIONS_ENABLED", true),
	}
}

// Default returns the engine's default configuration without
// consulting the environment; used by tests.
func Default() *Config {
	return &Config{
		VMaxKmh:             120,
		BPRAlpha:            0.15,
		BPRBeta:             4.0,
		ReplanInterval:      45 * time.Second,
		HysteresisThreshold: 0.15,
		MaxReplans:          20,
		CHMaxNodes:          3000,
		AStarMaxIterations:  150000,
		PredictionsEnabled:  true,
	}
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}

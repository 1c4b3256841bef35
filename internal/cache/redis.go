// Package cache wraps a Redis client for two concerns: caching a
// plan's result keyed by its request, and caching the traffic
// predictions snapshot consumed by every query in a time window. Route
// lookups use a distributed-lock-and-wait pattern to avoid a thundering
// herd of identical searches after a cache miss; the predictions
// snapshot is read and written without a lock.
package cache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	goccyjson "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/aumo/ecoroute/internal/facade"
	"github.com/aumo/ecoroute/internal/metrics"
	"github.com/aumo/ecoroute/internal/traffic"
)

var (
	client     *redis.Client
	clientOnce sync.Once
	clientErr  error
)

// Config holds Redis connection configuration.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
	MutexTTL time.Duration
}

// LoadConfigFromEnv loads Config from the environment.
func LoadConfigFromEnv() *Config {
	port, _ := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, _ := time.ParseDuration(getEnv("CACHE_TTL", "2m"))
	mutexTTL, _ := time.ParseDuration(getEnv("CACHE_MUTEX_TTL", "5s"))

	return &Config{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     port,
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
		TTL:      ttl,
		MutexTTL: mutexTTL,
	}
}

// GetClient returns the global Redis client, built once.
func GetClient() (*redis.Client, error) {
	clientOnce.Do(func() {
		config := LoadConfigFromEnv()

		opts := &redis.Options{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			Password:     config.Password,
			DB:           config.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		}

		if getEnv("REDIS_TLS_ENABLED", "false") == "true" {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}

		client = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			clientErr = fmt.Errorf("cache: connecting to redis: %w", err)
		}
	})

	return client, clientErr
}

// Close releases the global Redis client.
func Close() {
	if client != nil {
		client.Close()
	}
}

// RouteKey builds a deterministic cache key for a plan request: the
// endpoint coordinates, departure time rounded down to the minute (so
// nearby requests share a cache entry), and the preset name.
func RouteKey(fromLat, fromLng, toLat, toLng float64, departMinute time.Time, preset string) string {
	data := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%d", fromLat, fromLng, toLat, toLng, departMinute.Unix()/60)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("route:%x:%s", hash[:8], preset)
}

func lockKey(routeKey string) string {
	return fmt.Sprintf("lock:%s", routeKey)
}

// GetRoute retrieves a cached route, returning (nil, nil) on a clean miss.
func GetRoute(ctx context.Context, key string) (*facade.Route, error) {
	c, err := GetClient()
	if err != nil {
		return nil, err
	}

	data, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var route facade.Route
	if err := goccyjson.Unmarshal(data, &route); err != nil {
		return nil, fmt.Errorf("cache: unmarshaling cached route: %w", err)
	}
	metrics.CacheHits.Inc()
	return &route, nil
}

// SetRoute caches a route under key for ttl.
func SetRoute(ctx context.Context, key string, route *facade.Route, ttl time.Duration) error {
	c, err := GetClient()
	if err != nil {
		return err
	}

	data, err := goccyjson.Marshal(route)
	if err != nil {
		return fmt.Errorf("cache: marshaling route: %w", err)
	}
	return c.Set(ctx, key, data, ttl).Err()
}

// GetRoutes retrieves a cached route set (used by the pareto endpoint,
// which caches its whole non-dominated set under one key), returning
// (nil, nil) on a clean miss.
func GetRoutes(ctx context.Context, key string) ([]facade.Route, error) {
	c, err := GetClient()
	if err != nil {
		return nil, err
	}

	data, err := c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.Inc()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var routes []facade.Route
	if err := goccyjson.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("cache: unmarshaling cached route set: %w", err)
	}
	metrics.CacheHits.Inc()
	return routes, nil
}

// SetRoutes caches a route set under key for ttl.
func SetRoutes(ctx context.Context, key string, routes []facade.Route, ttl time.Duration) error {
	c, err := GetClient()
	if err != nil {
		return err
	}

	data, err := goccyjson.Marshal(routes)
	if err != nil {
		return fmt.Errorf("cache: marshaling route set: %w", err)
	}
	return c.Set(ctx, key, data, ttl).Err()
}

// AcquireLock attempts to take a distributed lock, returning true if
// this caller won it.
func AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c, err := GetClient()
	if err != nil {
		return false, err
	}
	return c.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseLock releases a previously acquired lock.
func ReleaseLock(ctx context.Context, key string) error {
	c, err := GetClient()
	if err != nil {
		return err
	}
	return c.Del(ctx, key).Err()
}

// AcquireRouteLock takes the lock namespaced under routeKey — the same
// key WaitForLock polls — so the first requester past a cache miss can
// compute while every other requester waits instead of racing it.
func AcquireRouteLock(ctx context.Context, routeKey string, ttl time.Duration) (bool, error) {
	return AcquireLock(ctx, lockKey(routeKey), ttl)
}

// ReleaseRouteLock releases the lock AcquireRouteLock took.
func ReleaseRouteLock(ctx context.Context, routeKey string) error {
	return ReleaseLock(ctx, lockKey(routeKey))
}

// WaitForLock polls until a lock clears, then returns whatever the
// lock holder cached — the "wait for result" pattern that turns N
// concurrent identical searches into one search plus N cheap reads.
func WaitForLock(ctx context.Context, routeKey string, maxWait time.Duration) (*facade.Route, error) {
	c, err := GetClient()
	if err != nil {
		return nil, err
	}

	key := lockKey(routeKey)
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		exists, err := c.Exists(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			return GetRoute(ctx, routeKey)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	return nil, fmt.Errorf("cache: timed out waiting for lock on %s", routeKey)
}

// WaitForRoutesLock is WaitForLock's counterpart for a cached route
// set (the pareto endpoint's cache entries), polling until the lock
// clears and then reading whatever the lock holder published.
func WaitForRoutesLock(ctx context.Context, routeKey string, maxWait time.Duration) ([]facade.Route, error) {
	c, err := GetClient()
	if err != nil {
		return nil, err
	}

	key := lockKey(routeKey)
	deadline := time.Now().Add(maxWait)

	for time.Now().Before(deadline) {
		exists, err := c.Exists(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			return GetRoutes(ctx, routeKey)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	return nil, fmt.Errorf("cache: timed out waiting for lock on %s", routeKey)
}

const predictionsKey = "predictions:latest"

// SetPredictions caches the latest traffic predictions snapshot.
func SetPredictions(ctx context.Context, preds traffic.Predictions, ttl time.Duration) error {
	c, err := GetClient()
	if err != nil {
		return err
	}
	data, err := goccyjson.Marshal(preds)
	if err != nil {
		return fmt.Errorf("cache: marshaling predictions: %w", err)
	}
	return c.Set(ctx, predictionsKey, data, ttl).Err()
}

// GetPredictions retrieves the cached predictions snapshot, returning
// (nil, nil) on a clean miss.
func GetPredictions(ctx context.Context) (traffic.Predictions, error) {
	c, err := GetClient()
	if err != nil {
		return nil, err
	}

	data, err := c.Get(ctx, predictionsKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var preds traffic.Predictions
	if err := goccyjson.Unmarshal(data, &preds); err != nil {
		return nil, fmt.Errorf("cache: unmarshaling predictions: %w", err)
	}
	return preds, nil
}

// HealthCheck pings Redis.
func HealthCheck(ctx context.Context) error {
	c, err := GetClient()
	if err != nil {
		return fmt.Errorf("cache: client not initialized: %w", err)
	}
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: ping failed: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

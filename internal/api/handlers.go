package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gotidy/ptr"
	"github.com/paulmach/go.geojson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/aumo/ecoroute/internal/cache"
	"github.com/aumo/ecoroute/internal/db"
	"github.com/aumo/ecoroute/internal/emission"
	"github.com/aumo/ecoroute/internal/facade"
	"github.com/aumo/ecoroute/internal/metrics"
	"github.com/aumo/ecoroute/internal/routeconfig"
	"github.com/aumo/ecoroute/internal/traffic"
)

// Handlers binds Fiber routes to a Facade. One Handlers is constructed
// at startup over the process-wide graph/facade and shared read-only
// across every request goroutine, the way the teacher shares its
// package-level db/cache singletons.
type Handlers struct {
	facade   *facade.Facade
	config   *routeconfig.Config
	log      *zap.Logger
	cacheCfg *cache.Config
}

// New constructs the HTTP handler set over an already-built facade.
func New(f *facade.Facade, cfg *routeconfig.Config, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{facade: f, config: cfg, log: log, cacheCfg: cache.LoadConfigFromEnv()}
}

// Register mounts every route onto app.
func (h *Handlers) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/metrics", h.Metrics)
	app.Post("/v1/plan", h.Plan)
	app.Post("/v1/pareto", h.Pareto)
	app.Post("/v1/rides", h.NewRide)
	app.Post("/v1/replan", h.Replan)
	app.Get("/v1/rides/:id/history", h.RideHistory)
}

// predictionsFor loads the cached traffic predictions snapshot if
// enabled and present, falling back to nil (BPR-only) on a clean miss
// or when the config disables predictions (spec §6 predictions_enabled).
func (h *Handlers) predictionsFor(ctx context.Context) traffic.Predictions {
	if h.config != nil && !h.config.PredictionsEnabled {
		return nil
	}
	preds, err := cache.GetPredictions(ctx)
	if err != nil {
		h.log.Warn("predictions cache lookup failed, falling back to BPR", zap.Error(err))
		return nil
	}
	return preds
}

// Health reports liveness of the process plus its Postgres/Redis
// dependencies, mirroring the teacher's combined health-check shape.
func (h *Handlers) Health(c *fiber.Ctx) error {
	ctx := c.Context()

	dbStatus := "ok"
	if err := db.HealthCheck(ctx); err != nil {
		dbStatus = err.Error()
	}

	cacheStatus := "ok"
	if err := cache.HealthCheck(ctx); err != nil {
		cacheStatus = err.Error()
	}

	status := "healthy"
	httpStatus := 200
	if dbStatus != "ok" || cacheStatus != "ok" {
		status = "degraded" // graph/search still serve without db/cache
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"database": dbStatus,
			"cache":    cacheStatus,
		},
	})
}

// Metrics exposes the registered Prometheus collectors as text, so
// the routing engine's search/replan/CH gauges share the same Fiber
// app and port instead of a separate promhttp server.
func (h *Handlers) Metrics(c *fiber.Ctx) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, string(expfmt.FmtText))
	enc := expfmt.NewEncoder(c.Response().BodyWriter(), expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
	}
	return nil
}

// Plan handles POST /v1/plan: snap origin/destination, search, and
// return the primary route plus its traffic overlay (spec §6).
func (h *Handlers) Plan(c *fiber.Ctx) error {
	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body: " + err.Error()})
	}
	if err := validatePlanRequest(req); err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if req.AvoidTolls == nil {
		req.AvoidTolls = ptr.Bool(false) // accepted but currently ignored (spec §6)
	}

	ctx := c.Context()
	predictions := h.predictionsFor(ctx)

	presetLabel := fmt.Sprintf("custom:%.3f:%.3f:%.3f:%.3f", req.Weights.Alpha, req.Weights.Beta, req.Weights.Gamma, req.Weights.sum())
	key := cache.RouteKey(req.Origin.Lat, req.Origin.Lng, req.Destination.Lat, req.Destination.Lng, req.DepartureTime, presetLabel)

	route, fromCache, err := h.planCached(ctx, key, func() (*facade.Route, error) {
		return h.facade.Plan(ctx, req.Origin.toDomain(), req.Destination.toDomain(), req.DepartureTime, req.Weights.toDomain(), predictions, req.fuel(), emission.DefaultConfig)
	})
	if err != nil {
		metrics.NodesExplored.WithLabelValues("unreachable").Observe(0)
		return c.Status(404).JSON(fiber.Map{"error": ErrNotReachable.Error(), "detail": err.Error()})
	}
	if !fromCache {
		metrics.NodesExplored.WithLabelValues("found").Observe(float64(route.NodesExplored))
	}

	overlay := buildTrafficOverlay(h.facade, *route, time.Now(), predictions)

	dto := routeToDTO(*route)
	return c.JSON(PlanResponse{
		Primary:        dto,
		TrafficOverlay: overlay,
		GeoJSON:        routeGeoJSON(dto),
	})
}

// planCached wraps search with the teacher's lock-and-wait cache
// pattern: a cache hit skips the search outright; a miss has the first
// caller to win the lock run search, while every other concurrent
// caller for the same key waits on the lock and reads its result
// instead of racing it with a duplicate search. Cache errors never
// fail the request — they just fall through to a live search.
func (h *Handlers) planCached(ctx context.Context, key string, search func() (*facade.Route, error)) (*facade.Route, bool, error) {
	if cached, err := cache.GetRoute(ctx, key); err != nil {
		h.log.Warn("route cache lookup failed", zap.Error(err))
	} else if cached != nil {
		return cached, true, nil
	}

	won, err := cache.AcquireRouteLock(ctx, key, h.cacheCfg.MutexTTL)
	if err != nil {
		h.log.Warn("route cache lock acquire failed", zap.Error(err))
		won = true // degrade to a live search rather than block on a broken cache
	}

	if !won {
		if cached, err := cache.WaitForLock(ctx, key, h.cacheCfg.MutexTTL); err == nil && cached != nil {
			return cached, true, nil
		}
		// lock holder never published a result before the wait expired;
		// fall through and search ourselves rather than error out.
	}

	start := time.Now()
	route, err := search()
	elapsed := time.Since(start)
	if won {
		defer cache.ReleaseRouteLock(ctx, key)
	}
	if err != nil {
		return nil, false, err
	}
	metrics.SearchDuration.WithLabelValues("custom").Observe(elapsed.Seconds())

	if err := cache.SetRoute(ctx, key, route, h.cacheCfg.TTL); err != nil {
		h.log.Warn("route cache store failed", zap.Error(err))
	}
	return route, false, nil
}

// Pareto handles POST /v1/pareto: run the engine once per weight
// preset and return the non-dominated survivors.
func (h *Handlers) Pareto(c *fiber.Ctx) error {
	var req PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body: " + err.Error()})
	}
	if req.Origin == (LatLngDTO{}) && req.Destination == (LatLngDTO{}) {
		return c.Status(400).JSON(fiber.Map{"error": "origin and destination are required"})
	}

	ctx := c.Context()
	predictions := h.predictionsFor(ctx)

	key := cache.RouteKey(req.Origin.Lat, req.Origin.Lng, req.Destination.Lat, req.Destination.Lng, req.DepartureTime, "pareto")

	routes, err := h.paretoCached(ctx, key, func() ([]facade.Route, error) {
		return h.facade.Pareto(ctx, req.Origin.toDomain(), req.Destination.toDomain(), req.DepartureTime, predictions, req.fuel(), emission.DefaultConfig)
	})
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": ErrNotReachable.Error(), "detail": err.Error()})
	}

	out := make([]RouteDTO, 0, len(routes))
	for _, r := range routes {
		out = append(out, routeToDTO(r))
	}
	return c.JSON(ParetoResponse{Routes: out})
}

// paretoCached applies the same lock-and-wait cache pattern as
// planCached, caching the whole non-dominated set under one key since
// a pareto run already shares its search cost across presets.
func (h *Handlers) paretoCached(ctx context.Context, key string, search func() ([]facade.Route, error)) ([]facade.Route, error) {
	if cached, err := cache.GetRoutes(ctx, key); err != nil {
		h.log.Warn("pareto cache lookup failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	won, err := cache.AcquireRouteLock(ctx, key, h.cacheCfg.MutexTTL)
	if err != nil {
		h.log.Warn("pareto cache lock acquire failed", zap.Error(err))
		won = true
	}
	if !won {
		if cached, err := cache.WaitForRoutesLock(ctx, key, h.cacheCfg.MutexTTL); err == nil && cached != nil {
			return cached, nil
		}
	}
	if won {
		defer cache.ReleaseRouteLock(ctx, key)
	}

	routes, err := search()
	if err != nil {
		return nil, err
	}
	if err := cache.SetRoutes(ctx, key, routes, h.cacheCfg.TTL); err != nil {
		h.log.Warn("pareto cache store failed", zap.Error(err))
	}
	return routes, nil
}

// NewRide handles POST /v1/rides: register a fresh ReplanState and
// return its id for subsequent replan calls.
func (h *Handlers) NewRide(c *fiber.Ctx) error {
	id := h.facade.NewRide()
	return c.Status(201).JSON(NewRideResponseDTO{RideID: id})
}

// Replan handles POST /v1/replan: evaluate should-replan for the ride
// and, if triggered, search and apply the hysteresis commit rule.
func (h *Handlers) Replan(c *fiber.Ctx) error {
	var req ReplanRequestDTO
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body: " + err.Error()})
	}
	if req.RideID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "ride_id is required"})
	}

	ctx := c.Context()
	predictions := h.predictionsFor(ctx)

	result, err := h.facade.Replan(ctx, req.RideID, req.CurrentPosition.toDomain(), req.Destination.toDomain(), req.DepartureTime, req.Weights.toDomain(), predictions, emission.FuelPetrol, emission.DefaultConfig, req.signals())
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	}

	metrics.ReplanTotal.WithLabelValues(boolLabel(result.Replanned), result.Reason).Inc()
	h.log.Info("replan evaluated",
		zap.String("ride_id", req.RideID),
		zap.Bool("replanned", result.Replanned),
		zap.String("reason", result.Reason),
	)

	resp := ReplanResponseDTO{Replanned: result.Replanned, Reason: result.Reason, Status: statusToDTO(result.Status)}
	if result.Route != nil {
		dto := routeToDTO(*result.Route)
		resp.Route = &dto
	}
	return c.JSON(resp)
}

// RideHistory handles GET /v1/rides/:id/history: the durable replan
// ledger for a ride, read from Postgres rather than the in-memory
// mpc.State so it survives a process restart.
func (h *Handlers) RideHistory(c *fiber.Ctx) error {
	rideID := c.Params("id")
	if rideID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "ride id is required"})
	}

	limit := c.QueryInt("limit", 20)
	events, err := h.facade.RideHistory(c.Context(), rideID, limit)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	}

	history := make([]ReplanSummaryDTO, 0, len(events))
	for _, ev := range events {
		history = append(history, historyEventToDTO(ev))
	}
	return c.JSON(RideHistoryResponseDTO{RideID: rideID, History: history})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// validatePlanRequest enforces spec §6: weights in [0,1] summing to
// at most 1, coordinates present.
func validatePlanRequest(req PlanRequest) error {
	w := req.Weights
	if w.Alpha < 0 || w.Alpha > 1 || w.Beta < 0 || w.Beta > 1 || w.Gamma < 0 || w.Gamma > 1 {
		return ErrBadRequest
	}
	if w.sum() > 1.0001 {
		return ErrBadRequest
	}
	if req.Origin == (LatLngDTO{}) && req.Destination == (LatLngDTO{}) {
		return ErrBadRequest
	}
	return nil
}

// buildTrafficOverlay recomputes EdgeWeight along the winning path at
// now (not at search time, per the original implementation) to report
// one congestion/speed sample for each node that starts an edge of the
// path, plus a terminal sample copying the previous one (spec §6).
func buildTrafficOverlay(f *facade.Facade, route facade.Route, now time.Time, predictions traffic.Predictions) []TrafficOverlayPointDTO {
	points := f.Overlay(route, now, predictions)
	out := make([]TrafficOverlayPointDTO, 0, len(points))
	for _, p := range points {
		out = append(out, TrafficOverlayPointDTO{
			Lat:        p.Lat,
			Lng:        p.Lng,
			Congestion: p.Congestion,
			SpeedKmh:   p.SpeedKmh,
		})
	}
	return out
}

// routeGeoJSON encodes a route's polyline as a GeoJSON LineString
// feature, used by callers that want the plan response embedded in a
// FeatureCollection alongside other map layers.
func routeGeoJSON(r RouteDTO) *geojson.Feature {
	feature := geojson.NewLineStringFeature(r.Polyline)
	feature.SetProperty("preset", r.Preset)
	feature.SetProperty("distance_km", r.DistanceKm)
	feature.SetProperty("duration_min", r.DurationMin)
	feature.SetProperty("co2_g", r.CO2G)
	return feature
}

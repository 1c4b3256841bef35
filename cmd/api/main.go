//go:build !with_auth

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aumo/ecoroute/internal/api"
	"github.com/aumo/ecoroute/internal/cache"
	"github.com/aumo/ecoroute/internal/db"
	"github.com/aumo/ecoroute/internal/facade"
	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/mpc"
	"github.com/aumo/ecoroute/internal/routeconfig"
	"github.com/aumo/ecoroute/internal/store"
)

// defaultSnapshotName is the graph_snapshots row the API loads at
// startup; cmd/preprocess-ch writes it offline.
const defaultSnapshotName = "default"

// demoBBox seeds a synthetic grid when no snapshot has been
// preprocessed yet, so a fresh environment still serves requests.
var demoBBox = graph.BBox{South: 40.70, West: -74.02, North: 40.80, East: -73.92}

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting ecoroute API server")

	cfg := routeconfig.LoadFromEnv()

	pool, err := db.GetDB()
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	log.Info("database connection established")

	if _, err := pool.Exec(context.Background(), store.Schema); err != nil {
		log.Fatal("failed to apply schema", zap.Error(err))
	}

	if _, err := cache.GetClient(); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer cache.Close()
	log.Info("redis connection established")

	g := loadOrBuildGraph(context.Background(), pool, log)
	log.Info("routing graph ready", zap.Int("nodes", g.NumNodes()))

	f := facade.New(g, cfg)
	f.SetLogger(log)
	f.SetStore(pool)

	hierarchy := f.Preprocess()
	log.Info("contraction hierarchy preprocessed",
		zap.Bool("fully_contracted", hierarchy.IsPreprocessed),
		zap.Int("shortcuts", hierarchy.ShortcutCount),
	)

	sched, err := mpc.NewScheduler(log)
	if err != nil {
		log.Fatal("failed to construct mpc scheduler", zap.Error(err))
	}
	if err := sched.ScheduleTick(cfg.ReplanInterval, func(ctx context.Context) {
		ids := f.ActiveRideIDs()
		log.Debug("mpc scheduler tick", zap.Int("active_rides", len(ids)))
	}); err != nil {
		log.Fatal("failed to schedule mpc tick", zap.Error(err))
	}
	sched.Start()
	defer sched.Shutdown()

	app := fiber.New(fiber.Config{
		AppName:      "ecoroute",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler(log),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	handlers := api.New(f, cfg, log)
	handlers.Register(app)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{"error": "endpoint not found"})
	})

	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down gracefully")
		if err := app.Shutdown(); err != nil {
			log.Error("error during shutdown", zap.Error(err))
		}
	}()

	log.Info("server listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

// loadOrBuildGraph loads a previously preprocessed snapshot if one
// exists, falling back to a synthetic grid for a fresh environment —
// a real OSM ingestor is out of scope for this module.
func loadOrBuildGraph(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) *graph.RoadGraph {
	g, ok, err := store.LoadGraphSnapshot(ctx, pool, defaultSnapshotName)
	if err != nil {
		log.Warn("failed to load graph snapshot, falling back to synthetic grid", zap.Error(err))
	} else if ok {
		return g
	}
	log.Warn("no graph snapshot found, seeding a synthetic demo grid")
	return graph.BuildSyntheticGrid(demoBBox, 25, graph.RoadPrimary)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func customErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}
		log.Error("request error", zap.Error(err), zap.String("path", c.Path()))
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}

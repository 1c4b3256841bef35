// Command preprocess-ch builds a synthetic demo road graph (a real
// OSM ingestor is out of scope for this module), contracts it, and
// persists the result as a graph snapshot other processes load at
// startup instead of repeating the contraction pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/aumo/ecoroute/internal/ch"
	"github.com/aumo/ecoroute/internal/db"
	"github.com/aumo/ecoroute/internal/graph"
	"github.com/aumo/ecoroute/internal/routeconfig"
	"github.com/aumo/ecoroute/internal/store"
)

func main() {
	snapshotName := flag.String("name", "default", "name under which to persist the graph snapshot")
	gridSize := flag.Int("grid-size", 25, "side length of the synthetic demo grid")
	south := flag.Float64("south", 40.70, "bounding box south latitude")
	west := flag.Float64("west", -74.02, "bounding box west longitude")
	north := flag.Float64("north", 40.80, "bounding box north latitude")
	east := flag.Float64("east", -73.92, "bounding box east longitude")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to construct logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := routeconfig.LoadFromEnv()

	log.Info("building synthetic demo grid",
		zap.Int("grid_size", *gridSize),
		zap.Float64("south", *south), zap.Float64("west", *west),
		zap.Float64("north", *north), zap.Float64("east", *east),
	)
	g := graph.BuildSyntheticGrid(graph.BBox{South: *south, West: *west, North: *north, East: *east}, *gridSize, graph.RoadPrimary)
	log.Info("graph built", zap.Int("nodes", g.NumNodes()))

	ch.SetLogger(log)
	start := time.Now()
	hierarchy := ch.Contract(g, cfg.CHMaxNodes)
	log.Info("contraction finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("fully_contracted", hierarchy.IsPreprocessed),
		zap.Int("shortcuts", hierarchy.ShortcutCount),
	)

	pool, err := db.GetDB()
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := pool.Exec(ctx, store.Schema); err != nil {
		log.Fatal("failed to apply schema", zap.Error(err))
	}

	if err := store.SaveGraphSnapshot(ctx, pool, *snapshotName, g); err != nil {
		log.Fatal("failed to save graph snapshot", zap.Error(err))
	}
	log.Info("graph snapshot saved", zap.String("name", *snapshotName))
}

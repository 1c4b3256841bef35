package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aumo/ecoroute/internal/graph"
)

// Schema creates the tables this package reads and writes. Safe to
// run on every startup; every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS graph_snapshots (
	name        TEXT PRIMARY KEY,
	blob        BYTEA NOT NULL,
	node_count  INTEGER NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS replan_history (
	id           BIGSERIAL PRIMARY KEY,
	ride_id      TEXT NOT NULL,
	replanned_at TIMESTAMPTZ NOT NULL,
	committed    BOOLEAN NOT NULL,
	old_cost     DOUBLE PRECISION,
	new_cost     DOUBLE PRECISION,
	reason       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS replan_history_ride_id_idx ON replan_history (ride_id);
`

// SaveGraphSnapshot persists a built graph under name as an opaque gob
// blob, replacing any snapshot already stored under that name.
func SaveGraphSnapshot(ctx context.Context, pool *pgxpool.Pool, name string, g *graph.RoadGraph) error {
	snap := g.Snapshot()
	blob, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("store: marshaling graph snapshot: %w", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO graph_snapshots (name, blob, node_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET blob = EXCLUDED.blob, node_count = EXCLUDED.node_count, created_at = now()
	`, name, blob, len(snap.Nodes))
	if err != nil {
		return fmt.Errorf("store: saving graph snapshot %q: %w", name, err)
	}
	return nil
}

// LoadGraphSnapshot reconstructs a RoadGraph from a previously saved
// snapshot, or reports ok=false if none exists under name.
func LoadGraphSnapshot(ctx context.Context, pool *pgxpool.Pool, name string) (*graph.RoadGraph, bool, error) {
	var blob []byte
	err := pool.QueryRow(ctx, `SELECT blob FROM graph_snapshots WHERE name = $1`, name).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: loading graph snapshot %q: %w", name, err)
	}

	snap, err := graph.UnmarshalSnapshot(blob)
	if err != nil {
		return nil, false, fmt.Errorf("store: unmarshaling graph snapshot %q: %w", name, err)
	}
	return graph.Load(snap), true, nil
}

// ReplanEvent is one row appended to replan_history.
type ReplanEvent struct {
	RideID      string
	ReplannedAt time.Time
	Committed   bool
	OldCost     float64
	NewCost     float64
	Reason      string
}

// RecordReplan appends one replan decision to history, whether or not
// it resulted in a commit — the ledger tracks attempts, not just wins.
func RecordReplan(ctx context.Context, pool *pgxpool.Pool, ev ReplanEvent) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO replan_history (ride_id, replanned_at, committed, old_cost, new_cost, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.RideID, ev.ReplannedAt, ev.Committed, ev.OldCost, ev.NewCost, ev.Reason)
	if err != nil {
		return fmt.Errorf("store: recording replan event for ride %s: %w", ev.RideID, err)
	}
	return nil
}

// RideHistory returns the most recent n replan events for a ride,
// newest first.
func RideHistory(ctx context.Context, pool *pgxpool.Pool, rideID string, limit int) ([]ReplanEvent, error) {
	rows, err := pool.Query(ctx, `
		SELECT ride_id, replanned_at, committed, old_cost, new_cost, reason
		FROM replan_history
		WHERE ride_id = $1
		ORDER BY replanned_at DESC
		LIMIT $2
	`, rideID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: querying replan history for ride %s: %w", rideID, err)
	}
	defer rows.Close()

	var out []ReplanEvent
	for rows.Next() {
		var ev ReplanEvent
		if err := rows.Scan(&ev.RideID, &ev.ReplannedAt, &ev.Committed, &ev.OldCost, &ev.NewCost, &ev.Reason); err != nil {
			return nil, fmt.Errorf("store: scanning replan history row: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

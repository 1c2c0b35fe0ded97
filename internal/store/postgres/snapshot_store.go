package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL with
// JSONB columns for the stats and comparison payloads.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a new SnapshotStore backed by the given pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Insert persists an export snapshot.
func (s *SnapshotStore) Insert(ctx context.Context, snap domain.ExportSnapshot) error {
	stats, err := json.Marshal(snap.Stats)
	if err != nil {
		return fmt.Errorf("postgres: marshal snapshot stats: %w", err)
	}
	comparisons, err := json.Marshal(snap.Comparisons)
	if err != nil {
		return fmt.Errorf("postgres: marshal snapshot comparisons: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (id, created_at, stats, comparisons) VALUES ($1, $2, $3, $4)`,
		snap.ID, snap.CreatedAt, stats, comparisons,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

func scanSnapshot(row pgx.Row) (domain.ExportSnapshot, error) {
	var snap domain.ExportSnapshot
	var stats, comparisons []byte
	if err := row.Scan(&snap.ID, &snap.CreatedAt, &stats, &comparisons); err != nil {
		return domain.ExportSnapshot{}, err
	}
	if err := json.Unmarshal(stats, &snap.Stats); err != nil {
		return domain.ExportSnapshot{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	if err := json.Unmarshal(comparisons, &snap.Comparisons); err != nil {
		return domain.ExportSnapshot{}, fmt.Errorf("unmarshal comparisons: %w", err)
	}
	return snap, nil
}

// GetByID retrieves a snapshot by its ID. It returns domain.ErrNotFound
// when no row matches.
func (s *SnapshotStore) GetByID(ctx context.Context, id string) (domain.ExportSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, created_at, stats, comparisons FROM snapshots WHERE id = $1`, id)
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ExportSnapshot{}, domain.ErrNotFound
		}
		return domain.ExportSnapshot{}, fmt.Errorf("postgres: get snapshot %s: %w", id, err)
	}
	return snap, nil
}

// ListRecent returns up to limit snapshots, newest first.
func (s *SnapshotStore) ListRecent(ctx context.Context, limit int) ([]domain.ExportSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, created_at, stats, comparisons FROM snapshots ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.ExportSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list snapshots rows: %w", err)
	}
	return snaps, nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)

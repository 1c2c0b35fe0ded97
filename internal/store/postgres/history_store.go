package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// HistoryStore implements domain.HistoryArchive using PostgreSQL. It is a
// write-mostly archive; the delta tracker reads from its own in-memory
// ring, not from here.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a new HistoryStore backed by the given pool.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// InsertBatch persists a batch of price history points in one round trip.
func (s *HistoryStore) InsertBatch(ctx context.Context, points []domain.PriceHistoryPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO price_history (group_key, platform, price, recorded_at)
		VALUES ($1, $2, $3, $4)`
	for _, p := range points {
		batch.Queue(query, p.GroupKey, string(p.Platform), p.Price, p.Timestamp)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert history batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListBefore returns every point recorded strictly before the cutoff,
// oldest first. The S3 archiver uses this to build monthly JSONL dumps.
func (s *HistoryStore) ListBefore(ctx context.Context, before time.Time) ([]domain.PriceHistoryPoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT group_key, platform, price, recorded_at FROM price_history
		 WHERE recorded_at < $1 ORDER BY recorded_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var points []domain.PriceHistoryPoint
	for rows.Next() {
		var p domain.PriceHistoryPoint
		var platform string
		if err := rows.Scan(&p.GroupKey, &platform, &p.Price, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan history point: %w", err)
		}
		p.Platform = domain.Platform(platform)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list history before rows: %w", err)
	}
	return points, nil
}

// ListByGroup returns price history for a group key with pagination and
// optional time filtering, newest first.
func (s *HistoryStore) ListByGroup(ctx context.Context, groupKey string, opts domain.ListOpts) ([]domain.PriceHistoryPoint, error) {
	query := `SELECT group_key, platform, price, recorded_at FROM price_history WHERE group_key = $1`
	args := []any{groupKey}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND recorded_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND recorded_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY recorded_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list history for %s: %w", groupKey, err)
	}
	defer rows.Close()

	var points []domain.PriceHistoryPoint
	for rows.Next() {
		var p domain.PriceHistoryPoint
		var platform string
		if err := rows.Scan(&p.GroupKey, &platform, &p.Price, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan history point: %w", err)
		}
		p.Platform = domain.Platform(platform)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list history rows: %w", err)
	}
	return points, nil
}

// Compile-time interface check.
var _ domain.HistoryArchive = (*HistoryStore)(nil)

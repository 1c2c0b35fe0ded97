package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/marketagg/internal/domain"
)

// MappingStore implements domain.MappingStore using PostgreSQL.
type MappingStore struct {
	pool *pgxpool.Pool
}

// NewMappingStore creates a new MappingStore backed by the given pool.
func NewMappingStore(pool *pgxpool.Pool) *MappingStore {
	return &MappingStore{pool: pool}
}

const mappingCols = `id, platform_a, market_id_a, platform_b, market_id_b, canonical_title, created_at`

// Upsert inserts or updates a manual mapping.
func (s *MappingStore) Upsert(ctx context.Context, m domain.ManualMapping) error {
	const query = `
		INSERT INTO manual_mappings (
			id, platform_a, market_id_a, platform_b, market_id_b,
			canonical_title, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			platform_a      = EXCLUDED.platform_a,
			market_id_a     = EXCLUDED.market_id_a,
			platform_b      = EXCLUDED.platform_b,
			market_id_b     = EXCLUDED.market_id_b,
			canonical_title = EXCLUDED.canonical_title`

	_, err := s.pool.Exec(ctx, query,
		m.ID, string(m.PlatformA), m.MarketIDA, string(m.PlatformB), m.MarketIDB,
		m.CanonicalTitle, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert mapping %s: %w", m.ID, err)
	}
	return nil
}

func scanMapping(row pgx.Row) (domain.ManualMapping, error) {
	var m domain.ManualMapping
	var platformA, platformB string
	err := row.Scan(&m.ID, &platformA, &m.MarketIDA, &platformB, &m.MarketIDB, &m.CanonicalTitle, &m.CreatedAt)
	if err != nil {
		return domain.ManualMapping{}, err
	}
	m.PlatformA = domain.Platform(platformA)
	m.PlatformB = domain.Platform(platformB)
	return m, nil
}

// GetByID retrieves a mapping by its primary key. It returns
// domain.ErrNotFound when no row matches.
func (s *MappingStore) GetByID(ctx context.Context, id string) (domain.ManualMapping, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+mappingCols+` FROM manual_mappings WHERE id = $1`, id)
	m, err := scanMapping(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ManualMapping{}, domain.ErrNotFound
		}
		return domain.ManualMapping{}, fmt.Errorf("postgres: get mapping %s: %w", id, err)
	}
	return m, nil
}

// Delete removes a mapping. It returns domain.ErrNotFound when no row
// matched the given ID.
func (s *MappingStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM manual_mappings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete mapping %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns every manual mapping, oldest first.
func (s *MappingStore) List(ctx context.Context) ([]domain.ManualMapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+mappingCols+` FROM manual_mappings ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.ManualMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list mappings rows: %w", err)
	}
	return mappings, nil
}

// Compile-time interface check.
var _ domain.MappingStore = (*MappingStore)(nil)

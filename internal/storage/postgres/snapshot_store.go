package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tokenguard/internal/domain"
	"tokenguard/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if the address exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.HistoricalSnapshot) error {
	query := `
		INSERT INTO token_snapshots (
			address, name, symbol, creator, created_at, first_seen_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		snap.Address,
		snap.Name,
		snap.Symbol,
		snap.Creator,
		snap.CreatedAt,
		snap.FirstSeenAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token snapshot: %w", err)
	}
	return nil
}

// GetByAddress retrieves a snapshot. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByAddress(ctx context.Context, address string) (*domain.HistoricalSnapshot, error) {
	query := `
		SELECT address, name, symbol, creator, created_at, first_seen_at
		FROM token_snapshots
		WHERE address = $1
	`

	row := s.pool.QueryRow(ctx, query, address)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by address: %w", err)
	}
	return snap, nil
}

// FindByExactName retrieves snapshots whose normalized name equals name.
// The argument is expected to be already trimmed and lowercased.
func (s *SnapshotStore) FindByExactName(ctx context.Context, name string) ([]*domain.HistoricalSnapshot, error) {
	query := `
		SELECT address, name, symbol, creator, created_at, first_seen_at
		FROM token_snapshots
		WHERE lower(trim(name)) = $1
	`
	return s.findAll(ctx, query, name)
}

// FindByExactSymbol retrieves snapshots whose normalized symbol equals symbol.
func (s *SnapshotStore) FindByExactSymbol(ctx context.Context, symbol string) ([]*domain.HistoricalSnapshot, error) {
	query := `
		SELECT address, name, symbol, creator, created_at, first_seen_at
		FROM token_snapshots
		WHERE lower(trim(symbol)) = $1
	`
	return s.findAll(ctx, query, symbol)
}

// CountByCreatorSince counts snapshots by creator with created_at >= since.
func (s *SnapshotStore) CountByCreatorSince(ctx context.Context, creator string, since int64) (int, error) {
	query := `
		SELECT count(*)
		FROM token_snapshots
		WHERE creator = $1 AND created_at >= $2
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, creator, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count snapshots by creator: %w", err)
	}
	return count, nil
}

func (s *SnapshotStore) findAll(ctx context.Context, query string, arg interface{}) ([]*domain.HistoricalSnapshot, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.HistoricalSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return result, nil
}

// scanSnapshot scans a single row into HistoricalSnapshot.
func scanSnapshot(row pgx.Row) (*domain.HistoricalSnapshot, error) {
	var snap domain.HistoricalSnapshot

	err := row.Scan(
		&snap.Address,
		&snap.Name,
		&snap.Symbol,
		&snap.Creator,
		&snap.CreatedAt,
		&snap.FirstSeenAt,
	)
	if err != nil {
		return nil, err
	}

	return &snap, nil
}

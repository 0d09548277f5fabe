package storage

import (
	"context"

	"tokenguard/internal/domain"
)

// SnapshotStore provides access to token_snapshots storage. Snapshots are
// write-once per address; the storage layer enforces uniqueness.
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if the address
	// already has one.
	Insert(ctx context.Context, s *domain.HistoricalSnapshot) error

	// GetByAddress retrieves a snapshot. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.HistoricalSnapshot, error)

	// FindByExactName retrieves snapshots whose normalized (trimmed,
	// lowercased) name equals name.
	FindByExactName(ctx context.Context, name string) ([]*domain.HistoricalSnapshot, error)

	// FindByExactSymbol retrieves snapshots whose normalized symbol equals
	// symbol.
	FindByExactSymbol(ctx context.Context, symbol string) ([]*domain.HistoricalSnapshot, error)

	// CountByCreatorSince counts snapshots by creator with CreatedAt >= since (ms).
	CountByCreatorSince(ctx context.Context, creator string, since int64) (int, error)
}

// ReportStore provides access to risk_reports storage.
type ReportStore interface {
	// Insert adds a new report. Reports are append-only; re-analysis of the
	// same token inserts a fresh row.
	Insert(ctx context.Context, r *domain.RiskReport) error

	// GetLatestByAddress retrieves the most recent report for a token.
	// Returns ErrNotFound if the token was never analyzed.
	GetLatestByAddress(ctx context.Context, address string) (*domain.RiskReport, error)

	// ListRecent retrieves up to limit reports, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.RiskReport, error)
}

// ReportArchive receives scored reports for offline analytics. Appends only;
// nothing in the scoring path reads it back.
type ReportArchive interface {
	ArchiveBatch(ctx context.Context, reports []*domain.RiskReport) error
}

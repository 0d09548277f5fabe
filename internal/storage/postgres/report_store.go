package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tokenguard/internal/domain"
	"tokenguard/internal/storage"
)

// ReportStore implements storage.ReportStore using PostgreSQL. The flag list
// is serialized to JSONB; the annotation column is opaque text.
type ReportStore struct {
	pool *Pool
}

// NewReportStore creates a new ReportStore.
func NewReportStore(pool *Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

// Insert adds a new report.
func (s *ReportStore) Insert(ctx context.Context, r *domain.RiskReport) error {
	flags, err := json.Marshal(r.Flags)
	if err != nil {
		return fmt.Errorf("marshal risk flags: %w", err)
	}

	query := `
		INSERT INTO risk_reports (
			token_address, score, flags, annotation, analyzed_at
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.pool.Exec(ctx, query,
		r.TokenAddress,
		r.Score,
		flags,
		r.Annotation,
		r.AnalyzedAt,
	)
	if err != nil {
		return fmt.Errorf("insert risk report: %w", err)
	}
	return nil
}

// GetLatestByAddress retrieves the most recent report for a token.
func (s *ReportStore) GetLatestByAddress(ctx context.Context, address string) (*domain.RiskReport, error) {
	query := `
		SELECT token_address, score, flags, annotation, analyzed_at
		FROM risk_reports
		WHERE token_address = $1
		ORDER BY analyzed_at DESC, id DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, address)
	r, err := scanReport(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest report: %w", err)
	}
	return r, nil
}

// ListRecent retrieves up to limit reports, newest first.
func (s *ReportStore) ListRecent(ctx context.Context, limit int) ([]*domain.RiskReport, error) {
	query := `
		SELECT token_address, score, flags, annotation, analyzed_at
		FROM risk_reports
		ORDER BY analyzed_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent reports: %w", err)
	}
	defer rows.Close()

	var result []*domain.RiskReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return result, nil
}

// scanReport scans a single row into RiskReport.
func scanReport(row pgx.Row) (*domain.RiskReport, error) {
	var (
		r     domain.RiskReport
		flags []byte
	)

	err := row.Scan(
		&r.TokenAddress,
		&r.Score,
		&flags,
		&r.Annotation,
		&r.AnalyzedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &r.Flags); err != nil {
			return nil, fmt.Errorf("unmarshal risk flags: %w", err)
		}
	}

	return &r, nil
}

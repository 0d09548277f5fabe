package clickhouse

import (
	"context"
	"fmt"
	"time"

	"tokenguard/internal/domain"
	"tokenguard/internal/storage"
)

// ReportArchiveStore implements storage.ReportArchive using ClickHouse.
// Rows are append-only; duplicates across re-analysis runs are acceptable
// for the analytical workload.
type ReportArchiveStore struct {
	conn *Conn
}

// NewReportArchiveStore creates a new ReportArchiveStore.
func NewReportArchiveStore(conn *Conn) *ReportArchiveStore {
	return &ReportArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ReportArchive = (*ReportArchiveStore)(nil)

// ArchiveBatch appends a batch of scored reports.
func (s *ReportArchiveStore) ArchiveBatch(ctx context.Context, reports []*domain.RiskReport) error {
	if len(reports) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO risk_report_archive (
			token_address, score, flag_codes, annotation, analyzed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare report archive batch: %w", err)
	}

	for _, r := range reports {
		codes := make([]string, len(r.Flags))
		for i, f := range r.Flags {
			codes[i] = f.Code.String()
		}
		err := batch.Append(
			r.TokenAddress,
			uint8(r.Score),
			codes,
			r.Annotation,
			time.UnixMilli(r.AnalyzedAt).UTC(),
		)
		if err != nil {
			return fmt.Errorf("append report %s: %w", r.TokenAddress, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send report archive batch: %w", err)
	}
	return nil
}

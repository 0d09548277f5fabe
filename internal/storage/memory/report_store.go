package memory

import (
	"context"
	"sort"
	"sync"

	"tokenguard/internal/domain"
	"tokenguard/internal/storage"
)

// ReportStore is an in-memory implementation of storage.ReportStore.
type ReportStore struct {
	mu      sync.RWMutex
	reports []*domain.RiskReport // insertion order
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{}
}

var _ storage.ReportStore = (*ReportStore)(nil)

// Insert adds a new report.
func (s *ReportStore) Insert(_ context.Context, r *domain.RiskReport) error {
	if r == nil || r.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reportCopy := copyReport(r)
	s.reports = append(s.reports, reportCopy)
	return nil
}

// GetLatestByAddress retrieves the most recent report for a token.
func (s *ReportStore) GetLatestByAddress(_ context.Context, address string) (*domain.RiskReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.RiskReport
	for _, r := range s.reports {
		if r.TokenAddress != address {
			continue
		}
		if latest == nil || r.AnalyzedAt >= latest.AnalyzedAt {
			latest = r
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return copyReport(latest), nil
}

// ListRecent retrieves up to limit reports, newest first.
func (s *ReportStore) ListRecent(_ context.Context, limit int) ([]*domain.RiskReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RiskReport, 0, len(s.reports))
	for _, r := range s.reports {
		result = append(result, copyReport(r))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AnalyzedAt > result[j].AnalyzedAt
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyReport(r *domain.RiskReport) *domain.RiskReport {
	reportCopy := *r
	reportCopy.Flags = append([]domain.RiskFlag(nil), r.Flags...)
	return &reportCopy
}

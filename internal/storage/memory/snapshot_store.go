package memory

import (
	"context"
	"strings"
	"sync"

	"tokenguard/internal/domain"
	"tokenguard/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu        sync.RWMutex
	byAddress map[string]*domain.HistoricalSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		byAddress: make(map[string]*domain.HistoricalSnapshot),
	}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if the address exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.HistoricalSnapshot) error {
	if snap == nil || snap.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[snap.Address]; exists {
		return storage.ErrDuplicateKey
	}

	snapCopy := *snap
	s.byAddress[snap.Address] = &snapCopy
	return nil
}

// GetByAddress retrieves a snapshot. Returns ErrNotFound if not exists.
func (s *SnapshotStore) GetByAddress(_ context.Context, address string) (*domain.HistoricalSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.byAddress[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	snapCopy := *snap
	return &snapCopy, nil
}

// FindByExactName retrieves snapshots whose normalized name equals name.
func (s *SnapshotStore) FindByExactName(_ context.Context, name string) ([]*domain.HistoricalSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HistoricalSnapshot
	for _, snap := range s.byAddress {
		if normalize(snap.Name) == name {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}
	return result, nil
}

// FindByExactSymbol retrieves snapshots whose normalized symbol equals symbol.
func (s *SnapshotStore) FindByExactSymbol(_ context.Context, symbol string) ([]*domain.HistoricalSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HistoricalSnapshot
	for _, snap := range s.byAddress {
		if normalize(snap.Symbol) == symbol {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}
	return result, nil
}

// CountByCreatorSince counts snapshots by creator with CreatedAt >= since.
func (s *SnapshotStore) CountByCreatorSince(_ context.Context, creator string, since int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, snap := range s.byAddress {
		if snap.Creator == creator && snap.CreatedAt >= since {
			count++
		}
	}
	return count, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

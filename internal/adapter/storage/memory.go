package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/douoai/jijin/internal/domain/model"
)

// MemoryStore хранит строки в памяти, упорядоченно по timestamp.
// Используется при storage.driver=memory и в тестах.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []model.PriceRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) InsertPrice(_ context.Context, rec model.PriceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// после всех строк с таким же timestamp
	i := sort.Search(len(s.rows), func(i int) bool {
		return s.rows[i].Timestamp > rec.Timestamp
	})
	s.rows = append(s.rows, model.PriceRecord{})
	copy(s.rows[i+1:], s.rows[i:])
	s.rows[i] = rec
	return nil
}

func (s *MemoryStore) PricesSince(_ context.Context, sinceMs int64, limit int) ([]model.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := sort.Search(len(s.rows), func(i int) bool {
		return s.rows[i].Timestamp >= sinceMs
	})
	tail := s.rows[i:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	out := make([]model.PriceRecord, len(tail))
	copy(out, tail)
	return out, nil
}

func (s *MemoryStore) LatestPrice(_ context.Context) (*model.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rows) == 0 {
		return nil, nil
	}
	rec := s.rows[len(s.rows)-1]
	return &rec, nil
}

func (s *MemoryStore) DeletePricesBefore(_ context.Context, beforeMs int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.rows), func(i int) bool {
		return s.rows[i].Timestamp >= beforeMs
	})
	if i == 0 {
		return 0, nil
	}
	s.rows = append([]model.PriceRecord(nil), s.rows[i:]...)
	return int64(i), nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

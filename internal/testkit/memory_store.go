package testkit

import (
	"context"
	"sync"

	"gopuf/domain/core"
	"gopuf/models"
)

// InMemoryResultStore implements ports.ResultStorePort for tests and for
// monitor runs without a database.
type InMemoryResultStore struct {
	mu      sync.RWMutex
	results []models.ExperimentResult
	byID    map[core.ExperimentID]int
}

// NewInMemoryResultStore creates an empty store.
func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{byID: make(map[core.ExperimentID]int)}
}

func (s *InMemoryResultStore) SaveResult(_ context.Context, res *models.ExperimentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[res.ID] = len(s.results)
	s.results = append(s.results, *res)
	return nil
}

func (s *InMemoryResultStore) GetResult(_ context.Context, id core.ExperimentID) (*models.ExperimentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return nil, core.NewNotFoundError("experiment", id.String())
	}
	res := s.results[idx]
	return &res, nil
}

func (s *InMemoryResultStore) ListResults(_ context.Context, limit int) ([]models.ExperimentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ExperimentResult, 0, len(s.results))
	// Newest first.
	for i := len(s.results) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, s.results[i])
	}
	return out, nil
}

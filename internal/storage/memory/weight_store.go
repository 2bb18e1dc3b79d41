package memory

import (
	"context"
	"sync"

	"github.com/guildpoint/guildpoint/internal/storage"
)

// WeightStore is an in-memory implementation of storage.WeightStore.
type WeightStore struct {
	mu      sync.RWMutex
	weights map[string]float64
}

// NewWeightStore creates a new in-memory category weight store.
func NewWeightStore() *WeightStore {
	return &WeightStore{weights: make(map[string]float64)}
}

// CategoryWeights returns a copy of the category to multiplier mapping.
func (s *WeightStore) CategoryWeights(_ context.Context) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.weights))
	for category, weight := range s.weights {
		out[category] = weight
	}

	return out, nil
}

// SetCategoryWeight upserts a category multiplier.
func (s *WeightStore) SetCategoryWeight(_ context.Context, category string, weight float64) error {
	if category == "" || weight < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.weights[category] = weight

	return nil
}

package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/guildpoint/guildpoint/internal/storage"
)

// AttestationStore is an in-memory implementation of storage.AttestationStore.
type AttestationStore struct {
	mu          sync.RWMutex
	byID        map[uuid.UUID]*types.Attestation
	byRecipient map[string][]uuid.UUID
}

// NewAttestationStore creates a new in-memory attestation store.
func NewAttestationStore() *AttestationStore {
	return &AttestationStore{
		byID:        make(map[uuid.UUID]*types.Attestation),
		byRecipient: make(map[string][]uuid.UUID),
	}
}

// Insert adds a new attestation. Returns ErrDuplicateKey if the id exists.
func (s *AttestationStore) Insert(_ context.Context, a *types.Attestation) error {
	if a == nil || a.ID == uuid.Nil || a.Issuer == "" || a.Recipient == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[a.ID]; exists {
		return storage.ErrDuplicateKey
	}

	stored := *a
	s.byID[a.ID] = &stored
	s.byRecipient[a.Recipient] = append(s.byRecipient[a.Recipient], a.ID)

	return nil
}

// ByID retrieves an attestation by id. Returns ErrNotFound if not exists.
func (s *AttestationStore) ByID(_ context.Context, id uuid.UUID) (*types.Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	out := *a

	return &out, nil
}

// ByRecipient retrieves attestations whose recipient matches any alias.
// Overlapping aliases may yield the same attestation more than once, matching
// the behavior of an alias join in the SQL implementation.
func (s *AttestationStore) ByRecipient(_ context.Context, aliases []string) ([]*types.Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.Attestation

	for _, alias := range aliases {
		for _, id := range s.byRecipient[alias] {
			a := *s.byID[id]
			out = append(out, &a)
		}
	}

	return out, nil
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/guildpoint/guildpoint/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore. A single
// store-wide mutex provides the per-account serialization the Postgres
// implementation gets from row locks.
type LedgerStore struct {
	mu       sync.RWMutex
	balances map[string]int64
	entries  []*types.LedgerEntry
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{balances: make(map[string]int64)}
}

// ApplyEntries atomically applies a batch of balance mutations. The batch is
// validated against projected balances first so a failing debit leaves every
// account untouched.
func (s *LedgerStore) ApplyEntries(_ context.Context, muts []storage.BalanceMutation) (*storage.ApplyResult, error) {
	if len(muts) == 0 {
		return nil, storage.ErrInvalidInput
	}

	for _, m := range muts {
		if m.AccountID == "" || m.Amount == 0 {
			return nil, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: project balances and reject the whole batch on a shortfall.
	projected := make(map[string]int64, len(muts))

	for _, m := range muts {
		if _, ok := projected[m.AccountID]; !ok {
			projected[m.AccountID] = s.balances[m.AccountID]
		}

		projected[m.AccountID] += m.Amount
		if projected[m.AccountID] < 0 {
			return nil, storage.ErrInsufficientBalance
		}
	}

	// Second pass: append entries and materialize balances.
	now := time.Now().UTC()
	result := &storage.ApplyResult{
		Entries:  make([]*types.LedgerEntry, 0, len(muts)),
		Balances: make(map[string]int64, len(projected)),
	}

	for _, m := range muts {
		entry := &types.LedgerEntry{
			ID:        uuid.New(),
			AccountID: m.AccountID,
			Amount:    m.Amount,
			Reason:    m.Reason,
			CreatedAt: now,
		}
		if m.Ref != nil {
			entry.ReferenceType = m.Ref.Type
			entry.ReferenceID = m.Ref.ID
		}

		s.entries = append(s.entries, entry)
		s.balances[m.AccountID] += m.Amount

		stored := *entry
		result.Entries = append(result.Entries, &stored)
	}

	for accountID := range projected {
		result.Balances[accountID] = s.balances[accountID]
	}

	return result, nil
}

// Balance returns the current balance of an account, 0 when unknown.
func (s *LedgerStore) Balance(_ context.Context, accountID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[accountID], nil
}

// EntriesByAccount returns an account's entries, newest first.
func (s *LedgerStore) EntriesByAccount(_ context.Context, accountID string, limit int) ([]*types.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.LedgerEntry

	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].AccountID != accountID {
			continue
		}

		entry := *s.entries[i]
		out = append(out, &entry)

		if limit > 0 && len(out) >= limit {
			break
		}
	}

	return out, nil
}

// EntriesByReference returns all entries carrying the given business reference.
func (s *LedgerStore) EntriesByReference(_ context.Context, refType, refID string) ([]*types.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.LedgerEntry

	for _, e := range s.entries {
		if e.ReferenceType == refType && e.ReferenceID == refID {
			entry := *e
			out = append(out, &entry)
		}
	}

	return out, nil
}

// Totals returns all-time credit and debit volume.
func (s *LedgerStore) Totals(_ context.Context) (*types.LedgerTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := &types.LedgerTotals{}

	for _, e := range s.entries {
		if e.Amount > 0 {
			totals.Credits += e.Amount
		} else {
			totals.Debits += -e.Amount
		}
	}

	return totals, nil
}

// Balances returns every account's current balance.
func (s *LedgerStore) Balances(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(s.balances))
	for id, balance := range s.balances {
		out[id] = balance
	}

	return out, nil
}

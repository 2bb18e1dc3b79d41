package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/guildpoint/guildpoint/internal/database/types"
)

// BalanceMutation is one signed movement of value on a single account.
// Positive amounts credit, negative amounts debit.
type BalanceMutation struct {
	AccountID string
	Amount    int64
	Reason    string
	Ref       *types.EntryRef
}

// AttestationStore provides access to issued attestations. The store is
// append-mostly: rows are inserted once and never updated.
type AttestationStore interface {
	// Insert adds a new attestation. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, a *types.Attestation) error

	// ByID retrieves an attestation by id. Returns ErrNotFound if not exists.
	ByID(ctx context.Context, id uuid.UUID) (*types.Attestation, error)

	// ByRecipient retrieves all attestations whose recipient matches any of
	// the given aliases. The same attestation may appear more than once when
	// aliases overlap; callers deduplicate by attestation id.
	ByRecipient(ctx context.Context, aliases []string) ([]*types.Attestation, error)
}

// WeightStore provides access to the admin-mutable category weight config.
type WeightStore interface {
	// CategoryWeights returns the full category to multiplier mapping.
	// Categories absent from the map default to 1 during aggregation.
	CategoryWeights(ctx context.Context) (map[string]float64, error)

	// SetCategoryWeight upserts a category multiplier. Returns ErrInvalidInput
	// for negative weights.
	SetCategoryWeight(ctx context.Context, category string, weight float64) error
}

// ApplyResult reports one committed batch: the appended entries and the
// post-apply balance of every account the batch touched.
type ApplyResult struct {
	Entries  []*types.LedgerEntry
	Balances map[string]int64
}

// LedgerStore provides access to accounts and their append-only entries.
//
// ApplyEntries is the atomic unit every ledger operation is built from: all
// mutations in one call commit together or not at all, and accounts touched
// by the call are mutually excluded against concurrent callers for the
// duration of the apply.
type LedgerStore interface {
	// ApplyEntries atomically appends one entry per mutation and updates the
	// materialized balances. If any debit would drive its account negative,
	// the whole batch fails with ErrInsufficientBalance and no state changes.
	ApplyEntries(ctx context.Context, muts []BalanceMutation) (*ApplyResult, error)

	// Balance returns the current balance of an account. Unknown accounts
	// have balance 0.
	Balance(ctx context.Context, accountID string) (int64, error)

	// EntriesByAccount returns an account's entries, newest first.
	EntriesByAccount(ctx context.Context, accountID string, limit int) ([]*types.LedgerEntry, error)

	// EntriesByReference returns all entries carrying the given business
	// reference. Used as the idempotency probe before re-invoking an operation.
	EntriesByReference(ctx context.Context, refType, refID string) ([]*types.LedgerEntry, error)

	// Totals returns all-time credit and debit volume across every account.
	Totals(ctx context.Context) (*types.LedgerTotals, error)

	// Balances returns every account's current balance.
	Balances(ctx context.Context) (map[string]int64, error)
}

package models

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/guildpoint/guildpoint/internal/database/dbretry"
	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/guildpoint/guildpoint/internal/storage"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// LedgerModel handles database operations for accounts and ledger entries.
type LedgerModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewLedger creates a new ledger model.
func NewLedger(db *bun.DB, logger *zap.Logger) *LedgerModel {
	return &LedgerModel{
		db:     db,
		logger: logger.Named("db_ledger"),
	}
}

// ApplyEntries atomically applies a batch of balance mutations. Every touched
// account row is locked FOR UPDATE in sorted id order so concurrent batches
// on overlapping accounts serialize instead of deadlocking, debits are
// validated against the locked balances, and the entry appends and balance
// updates commit in one transaction.
func (r *LedgerModel) ApplyEntries(
	ctx context.Context, muts []storage.BalanceMutation,
) (*storage.ApplyResult, error) {
	if len(muts) == 0 {
		return nil, storage.ErrInvalidInput
	}

	for _, m := range muts {
		if m.AccountID == "" || m.Amount == 0 {
			return nil, storage.ErrInvalidInput
		}
	}

	accountIDs := distinctAccountIDs(muts)

	var result *storage.ApplyResult

	err := dbretry.Transaction(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()

		// Make sure every account row exists before locking it.
		rows := make([]*types.Account, len(accountIDs))
		for i, id := range accountIDs {
			rows[i] = &types.Account{ID: id, Balance: 0, UpdatedAt: now}
		}

		if _, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to ensure accounts: %w", err)
		}

		// Lock in sorted id order.
		var locked []*types.Account
		if err := tx.NewSelect().
			Model(&locked).
			Where("id IN (?)", bun.In(accountIDs)).
			Order("id").
			For("UPDATE").
			Scan(ctx); err != nil {
			return fmt.Errorf("failed to lock accounts: %w", err)
		}

		balances := make(map[string]int64, len(locked))
		for _, account := range locked {
			balances[account.ID] = account.Balance
		}

		// Validate the whole batch before writing anything.
		for _, m := range muts {
			balances[m.AccountID] += m.Amount
			if balances[m.AccountID] < 0 {
				return storage.ErrInsufficientBalance
			}
		}

		entries := make([]*types.LedgerEntry, len(muts))
		for i, m := range muts {
			entries[i] = &types.LedgerEntry{
				ID:        uuid.New(),
				AccountID: m.AccountID,
				Amount:    m.Amount,
				Reason:    m.Reason,
				CreatedAt: now,
			}
			if m.Ref != nil {
				entries[i].ReferenceType = m.Ref.Type
				entries[i].ReferenceID = m.Ref.ID
			}
		}

		if _, err := tx.NewInsert().Model(&entries).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert ledger entries: %w", err)
		}

		for _, id := range accountIDs {
			if _, err := tx.NewUpdate().
				Model((*types.Account)(nil)).
				Set("balance = ?", balances[id]).
				Set("updated_at = ?", now).
				Where("id = ?", id).
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to update balance of %q: %w", id, err)
			}
		}

		result = &storage.ApplyResult{Entries: entries, Balances: balances}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Balance returns the current balance of an account, 0 when unknown.
func (r *LedgerModel) Balance(ctx context.Context, accountID string) (int64, error) {
	balance, err := dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		var account types.Account

		err := r.db.NewSelect().
			Model(&account).
			Column("balance").
			Where("id = ?", accountID).
			Scan(ctx)
		if err != nil {
			return 0, err
		}

		return account.Balance, nil
	})
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}

// EntriesByAccount returns an account's entries, newest first.
func (r *LedgerModel) EntriesByAccount(
	ctx context.Context, accountID string, limit int,
) ([]*types.LedgerEntry, error) {
	entries, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.LedgerEntry, error) {
		var out []*types.LedgerEntry

		q := r.db.NewSelect().
			Model(&out).
			Where("account_id = ?", accountID).
			Order("created_at DESC")
		if limit > 0 {
			q = q.Limit(limit)
		}

		return out, q.Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get entries by account: %w", err)
	}

	return entries, nil
}

// EntriesByReference returns all entries carrying the given business reference.
func (r *LedgerModel) EntriesByReference(
	ctx context.Context, refType, refID string,
) ([]*types.LedgerEntry, error) {
	entries, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.LedgerEntry, error) {
		var out []*types.LedgerEntry

		err := r.db.NewSelect().
			Model(&out).
			Where("reference_type = ?", refType).
			Where("reference_id = ?", refID).
			Order("created_at ASC").
			Scan(ctx)

		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get entries by reference: %w", err)
	}

	return entries, nil
}

// Totals returns all-time credit and debit volume across every account.
func (r *LedgerModel) Totals(ctx context.Context) (*types.LedgerTotals, error) {
	totals, err := dbretry.Operation(ctx, func(ctx context.Context) (*types.LedgerTotals, error) {
		var out types.LedgerTotals

		err := r.db.NewSelect().
			Model((*types.LedgerEntry)(nil)).
			ColumnExpr("COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0) AS credits").
			ColumnExpr("COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0) AS debits").
			Scan(ctx, &out)

		return &out, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger totals: %w", err)
	}

	return totals, nil
}

// Balances returns every account's current balance.
func (r *LedgerModel) Balances(ctx context.Context) (map[string]int64, error) {
	accounts, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Account, error) {
		var out []*types.Account

		err := r.db.NewSelect().Model(&out).Scan(ctx)

		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	out := make(map[string]int64, len(accounts))
	for _, account := range accounts {
		out[account.ID] = account.Balance
	}

	return out, nil
}

func distinctAccountIDs(muts []storage.BalanceMutation) []string {
	seen := make(map[string]struct{}, len(muts))
	out := make([]string, 0, len(muts))

	for _, m := range muts {
		if _, ok := seen[m.AccountID]; ok {
			continue
		}

		seen[m.AccountID] = struct{}{}
		out = append(out, m.AccountID)
	}

	sort.Strings(out)

	return out
}

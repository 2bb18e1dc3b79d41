package migrations

import (
	"context"
	"fmt"
	"time"

	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Attestation)(nil),
			(*types.Account)(nil),
			(*types.LedgerEntry)(nil),
			(*types.CategoryWeight)(nil),
		}

		for _, model := range models {
			if _, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		if _, err := db.NewRaw(`
			ALTER TABLE accounts
			ADD CONSTRAINT accounts_balance_non_negative CHECK (balance >= 0);

			CREATE INDEX IF NOT EXISTS idx_attestations_recipient
			ON attestations (recipient, created_at DESC);

			CREATE INDEX IF NOT EXISTS idx_attestations_issuer
			ON attestations (issuer, created_at DESC);

			CREATE INDEX IF NOT EXISTS idx_ledger_entries_account
			ON ledger_entries (account_id, created_at DESC);

			CREATE INDEX IF NOT EXISTS idx_ledger_entries_reference
			ON ledger_entries (reference_type, reference_id)
			WHERE reference_type <> '';
		`).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create constraints and indexes: %w", err)
		}

		// Seed the reserved escrow account.
		escrow := &types.Account{
			ID:        types.EscrowAccountID,
			Balance:   0,
			UpdatedAt: time.Now().UTC(),
		}
		if _, err := db.NewInsert().
			Model(escrow).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to seed escrow account: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, table := range []string{"ledger_entries", "accounts", "category_weights", "attestations"} {
			if _, err := db.NewRaw(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}

		return nil
	})
}

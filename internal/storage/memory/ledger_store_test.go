package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/guildpoint/guildpoint/internal/storage"
)

func TestLedgerStore_ApplyAndBalance(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	result, err := store.ApplyEntries(ctx, []storage.BalanceMutation{
		{AccountID: "u1", Amount: 100, Reason: "grant"},
	})
	if err != nil {
		t.Fatalf("ApplyEntries failed: %v", err)
	}

	if result.Balances["u1"] != 100 {
		t.Errorf("Balance mismatch: got %d, want 100", result.Balances["u1"])
	}

	balance, err := store.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}

	if balance != 100 {
		t.Errorf("Balance mismatch: got %d, want 100", balance)
	}
}

func TestLedgerStore_InsufficientBalanceRollsBack(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	if _, err := store.ApplyEntries(ctx, []storage.BalanceMutation{
		{AccountID: "u1", Amount: 50, Reason: "grant"},
	}); err != nil {
		t.Fatalf("ApplyEntries failed: %v", err)
	}

	// A batch whose second mutation overdraws must leave both accounts
	// untouched even though the first mutation alone would be fine.
	_, err := store.ApplyEntries(ctx, []storage.BalanceMutation{
		{AccountID: "u2", Amount: 10, Reason: "grant"},
		{AccountID: "u1", Amount: -80, Reason: "spend"},
	})
	if !errors.Is(err, storage.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	u1, _ := store.Balance(ctx, "u1")
	u2, _ := store.Balance(ctx, "u2")

	if u1 != 50 || u2 != 0 {
		t.Errorf("Failed batch mutated state: u1=%d u2=%d", u1, u2)
	}

	entries, err := store.EntriesByAccount(ctx, "u2", 0)
	if err != nil {
		t.Fatalf("EntriesByAccount failed: %v", err)
	}

	if len(entries) != 0 {
		t.Errorf("Failed batch left %d entries behind", len(entries))
	}
}

func TestLedgerStore_IntraBatchSpendOfFreshCredit(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	// A credit earlier in the batch covers a debit later in the same batch.
	_, err := store.ApplyEntries(ctx, []storage.BalanceMutation{
		{AccountID: "u1", Amount: 30, Reason: "grant"},
		{AccountID: "u1", Amount: -20, Reason: "spend"},
	})
	if err != nil {
		t.Fatalf("ApplyEntries failed: %v", err)
	}

	balance, _ := store.Balance(ctx, "u1")
	if balance != 10 {
		t.Errorf("Balance mismatch: got %d, want 10", balance)
	}
}

func TestLedgerStore_InvalidInput(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	cases := [][]storage.BalanceMutation{
		nil,
		{{AccountID: "", Amount: 10}},
		{{AccountID: "u1", Amount: 0}},
	}

	for _, muts := range cases {
		if _, err := store.ApplyEntries(ctx, muts); !errors.Is(err, storage.ErrInvalidInput) {
			t.Errorf("Expected ErrInvalidInput for %v, got %v", muts, err)
		}
	}
}

func TestLedgerStore_EntriesByReference(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	ref := &types.EntryRef{Type: "commitment", ID: "c1"}

	if _, err := store.ApplyEntries(ctx, []storage.BalanceMutation{
		{AccountID: "u1", Amount: 40, Reason: "grant"},
	}); err != nil {
		t.Fatalf("ApplyEntries failed: %v", err)
	}

	if _, err := store.ApplyEntries(ctx, []storage.BalanceMutation{
		{AccountID: "u1", Amount: -40, Reason: "freeze", Ref: ref},
		{AccountID: "escrow", Amount: 40, Reason: "escrow: freeze", Ref: ref},
	}); err != nil {
		t.Fatalf("ApplyEntries failed: %v", err)
	}

	entries, err := store.EntriesByReference(ctx, "commitment", "c1")
	if err != nil {
		t.Fatalf("EntriesByReference failed: %v", err)
	}

	if len(entries) != 2 {
		t.Errorf("Expected 2 entries for reference, got %d", len(entries))
	}
}

func TestLedgerStore_Totals(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	if _, err := store.ApplyEntries(ctx, []storage.BalanceMutation{
		{AccountID: "u1", Amount: 100, Reason: "grant"},
		{AccountID: "u1", Amount: -30, Reason: "spend"},
	}); err != nil {
		t.Fatalf("ApplyEntries failed: %v", err)
	}

	totals, err := store.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals failed: %v", err)
	}

	if totals.Credits != 100 || totals.Debits != 30 {
		t.Errorf("Totals mismatch: credits=%d debits=%d", totals.Credits, totals.Debits)
	}
}

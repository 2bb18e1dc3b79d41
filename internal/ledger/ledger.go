package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/guildpoint/guildpoint/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrInvalidAmount is returned when an operation amount is not positive.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidAccount is returned when an account id is empty or reserved.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrInsufficientBalance mirrors the storage sentinel so callers can
	// discriminate without importing the storage package.
	ErrInsufficientBalance = storage.ErrInsufficientBalance
)

// ReferenceTypeCommitment marks entries produced by freeze/release against an
// open commitment.
const ReferenceTypeCommitment = "commitment"

// Ledger exposes the four value operations over an atomic store. Each
// operation pairs its balance mutations with entry appends inside a single
// ApplyEntries call, so either everything commits or nothing does.
type Ledger struct {
	store    storage.LedgerStore
	escrowID string
	logger   *zap.Logger
}

// New creates a ledger. An empty escrowID selects the default reserved
// escrow account.
func New(store storage.LedgerStore, escrowID string, logger *zap.Logger) *Ledger {
	if escrowID == "" {
		escrowID = types.EscrowAccountID
	}

	return &Ledger{
		store:    store,
		escrowID: escrowID,
		logger:   logger.Named("ledger"),
	}
}

// EscrowAccountID returns the reserved escrow account id this ledger uses.
func (l *Ledger) EscrowAccountID() string {
	return l.escrowID
}

// Award credits an account. Balances may grow without bound; the only
// rejection is a non-positive amount. Returns the new balance.
func (l *Ledger) Award(
	ctx context.Context, userID string, amount int64, reason string, ref *types.EntryRef,
) (int64, error) {
	if err := l.validate(userID, amount); err != nil {
		return 0, err
	}

	result, err := l.store.ApplyEntries(ctx, []storage.BalanceMutation{
		{AccountID: userID, Amount: amount, Reason: reason, Ref: ref},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to award %d to %q: %w", amount, userID, err)
	}

	l.logger.Debug("Awarded credits",
		zap.String("account", userID),
		zap.Int64("amount", amount),
		zap.String("reason", reason))

	return result.Balances[userID], nil
}

// Deduct debits an account. Fails with ErrInsufficientBalance when the
// balance cannot cover the amount, leaving it unchanged. Returns the new
// balance.
func (l *Ledger) Deduct(
	ctx context.Context, userID string, amount int64, reason string, ref *types.EntryRef,
) (int64, error) {
	if err := l.validate(userID, amount); err != nil {
		return 0, err
	}

	result, err := l.store.ApplyEntries(ctx, []storage.BalanceMutation{
		{AccountID: userID, Amount: -amount, Reason: reason, Ref: ref},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to deduct %d from %q: %w", amount, userID, err)
	}

	l.logger.Debug("Deducted credits",
		zap.String("account", userID),
		zap.Int64("amount", amount),
		zap.String("reason", reason))

	return result.Balances[userID], nil
}

// Freeze moves value from a user into escrow against an open commitment. The
// user debit and the escrow credit share one transaction and one business
// reference; value cannot vanish between the two.
func (l *Ledger) Freeze(
	ctx context.Context, userID string, amount int64, commitmentID, reason string,
) error {
	if err := l.validate(userID, amount); err != nil {
		return err
	}

	if userID == l.escrowID {
		return fmt.Errorf("%w: cannot freeze the escrow account", ErrInvalidAccount)
	}

	ref := &types.EntryRef{Type: ReferenceTypeCommitment, ID: commitmentID}

	_, err := l.store.ApplyEntries(ctx, []storage.BalanceMutation{
		{AccountID: userID, Amount: -amount, Reason: reason, Ref: ref},
		{AccountID: l.escrowID, Amount: amount, Reason: "escrow: " + reason, Ref: ref},
	})
	if err != nil {
		return fmt.Errorf("failed to freeze %d of %q for commitment %q: %w", amount, userID, commitmentID, err)
	}

	l.logger.Info("Froze credits",
		zap.String("account", userID),
		zap.Int64("amount", amount),
		zap.String("commitment", commitmentID))

	return nil
}

// Release is the mirror of Freeze: escrow is debited and the user credited
// under the same atomicity rules.
func (l *Ledger) Release(
	ctx context.Context, userID string, amount int64, commitmentID, reason string,
) error {
	if err := l.validate(userID, amount); err != nil {
		return err
	}

	if userID == l.escrowID {
		return fmt.Errorf("%w: cannot release to the escrow account", ErrInvalidAccount)
	}

	ref := &types.EntryRef{Type: ReferenceTypeCommitment, ID: commitmentID}

	_, err := l.store.ApplyEntries(ctx, []storage.BalanceMutation{
		{AccountID: l.escrowID, Amount: -amount, Reason: reason, Ref: ref},
		{AccountID: userID, Amount: amount, Reason: "escrow release: " + reason, Ref: ref},
	})
	if err != nil {
		return fmt.Errorf("failed to release %d to %q for commitment %q: %w", amount, userID, commitmentID, err)
	}

	l.logger.Info("Released credits",
		zap.String("account", userID),
		zap.Int64("amount", amount),
		zap.String("commitment", commitmentID))

	return nil
}

// Balance returns an account's current balance, 0 for unknown accounts.
func (l *Ledger) Balance(ctx context.Context, accountID string) (int64, error) {
	balance, err := l.store.Balance(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %q: %w", accountID, err)
	}

	return balance, nil
}

// History returns an account's entries, newest first.
func (l *Ledger) History(ctx context.Context, accountID string, limit int) ([]*types.LedgerEntry, error) {
	entries, err := l.store.EntriesByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history of %q: %w", accountID, err)
	}

	return entries, nil
}

// AlreadyApplied reports whether any entry carries the given business
// reference. The base operations are not idempotent; callers wanting exactly
// once behavior probe here before re-invoking.
func (l *Ledger) AlreadyApplied(ctx context.Context, refType, refID string) (bool, error) {
	entries, err := l.store.EntriesByReference(ctx, refType, refID)
	if err != nil {
		return false, fmt.Errorf("failed to check reference %s/%s: %w", refType, refID, err)
	}

	return len(entries) > 0, nil
}

// AuditReport summarizes the conservation check.
type AuditReport struct {
	SumBalances int64 `json:"sumBalances"`
	Credits     int64 `json:"credits"`
	Debits      int64 `json:"debits"`
	Balanced    bool  `json:"balanced"`
}

// Audit verifies the conservation invariant: the sum of all balances,
// escrow included, must equal all-time credits minus all-time debits.
func (l *Ledger) Audit(ctx context.Context) (*AuditReport, error) {
	balances, err := l.store.Balances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}

	totals, err := l.store.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load totals: %w", err)
	}

	report := &AuditReport{Credits: totals.Credits, Debits: totals.Debits}
	for _, balance := range balances {
		report.SumBalances += balance
	}

	report.Balanced = report.SumBalances == totals.Credits-totals.Debits
	if !report.Balanced {
		l.logger.Error("Ledger conservation violated",
			zap.Int64("sumBalances", report.SumBalances),
			zap.Int64("credits", totals.Credits),
			zap.Int64("debits", totals.Debits))
	}

	return report, nil
}

func (l *Ledger) validate(userID string, amount int64) error {
	if userID == "" {
		return ErrInvalidAccount
	}

	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	return nil
}

package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EscrowAccountID is the reserved sentinel account holding funds frozen
// against open commitments. It is not a human user but shares the same
// balance space as every other account.
const EscrowAccountID = "escrow"

// Account materializes a user's current balance. The balance must equal the
// sum of the account's ledger entries at every instant; both views are
// maintained inside the same transaction.
type Account struct {
	bun.BaseModel `bun:"table:accounts"`

	ID        string    `bun:"id,pk"              json:"id"`
	Balance   int64     `bun:"balance,notnull"    json:"balance"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updatedAt"`
}

// EntryRef links a ledger entry to the business event that produced it.
// Callers needing idempotency supply a ref and probe for it before retrying.
type EntryRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// LedgerEntry is one append-only movement of value on a single account.
// Positive amounts are credits, negative amounts are debits. Entries are
// never mutated or deleted.
type LedgerEntry struct {
	bun.BaseModel `bun:"table:ledger_entries"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"    json:"id"`
	AccountID     string    `bun:"account_id,notnull" json:"accountId"`
	Amount        int64     `bun:"amount,notnull"     json:"amount"`
	Reason        string    `bun:"reason,notnull"     json:"reason"`
	ReferenceType string    `bun:"reference_type"     json:"referenceType,omitempty"`
	ReferenceID   string    `bun:"reference_id"       json:"referenceId,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"createdAt"`
}

// Ref reconstructs the entry's business reference, or nil when unset.
func (e *LedgerEntry) Ref() *EntryRef {
	if e.ReferenceType == "" && e.ReferenceID == "" {
		return nil
	}

	return &EntryRef{Type: e.ReferenceType, ID: e.ReferenceID}
}

// LedgerTotals aggregates all-time credit and debit volume across the ledger.
// Used by the conservation audit: sum(balances) must equal Credits-Debits.
type LedgerTotals struct {
	Credits int64 `json:"credits"`
	Debits  int64 `json:"debits"`
}

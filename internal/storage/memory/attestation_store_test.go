package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/guildpoint/guildpoint/internal/storage"
)

func newTestAttestation(issuer, recipient string) *types.Attestation {
	return &types.Attestation{
		ID:                uuid.New(),
		Issuer:            issuer,
		Recipient:         recipient,
		TokenID:           1,
		Metadata:          types.Metadata{"category": "skill"},
		IssuerScoreAtMint: 600,
		CreatedAt:         time.Now().UTC(),
	}
}

func TestAttestationStore_InsertAndGet(t *testing.T) {
	store := NewAttestationStore()
	ctx := context.Background()

	a := newTestAttestation("issuer1", "recipient1")
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.ByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("ByID failed: %v", err)
	}

	if got.IssuerScoreAtMint != 600 {
		t.Errorf("IssuerScoreAtMint mismatch: got %d, want 600", got.IssuerScoreAtMint)
	}
}

func TestAttestationStore_DuplicateID(t *testing.T) {
	store := NewAttestationStore()
	ctx := context.Background()

	a := newTestAttestation("issuer1", "recipient1")
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, a)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestAttestationStore_InvalidInput(t *testing.T) {
	store := NewAttestationStore()
	ctx := context.Background()

	err := store.Insert(ctx, &types.Attestation{ID: uuid.New(), Issuer: "issuer1"})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty recipient, got %v", err)
	}
}

func TestAttestationStore_ByRecipient_Aliases(t *testing.T) {
	store := NewAttestationStore()
	ctx := context.Background()

	a := newTestAttestation("issuer1", "addr1")
	b := newTestAttestation("issuer1", "internal1")

	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.Insert(ctx, b); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.ByRecipient(ctx, []string{"addr1", "internal1", "unknown"})
	if err != nil {
		t.Fatalf("ByRecipient failed: %v", err)
	}

	if len(got) != 2 {
		t.Errorf("Expected 2 attestations across aliases, got %d", len(got))
	}

	// Repeating an alias quotes the same attestation twice; deduplication is
	// the score aggregation's job.
	got, err = store.ByRecipient(ctx, []string{"addr1", "addr1"})
	if err != nil {
		t.Fatalf("ByRecipient failed: %v", err)
	}

	if len(got) != 2 {
		t.Errorf("Expected duplicated rows for repeated alias, got %d", len(got))
	}
}

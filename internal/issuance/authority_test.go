package issuance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/guildpoint/guildpoint/internal/anchor"
	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/guildpoint/guildpoint/internal/issuance"
	"github.com/guildpoint/guildpoint/internal/reputation"
	"github.com/guildpoint/guildpoint/internal/signing"
	"github.com/guildpoint/guildpoint/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	authority    *issuance.Authority
	engine       *reputation.Engine
	attestations *memory.AttestationStore
	issuer       *signing.Keypair
	invalidated  []string
}

func (f *fixture) Invalidate(_ context.Context, aliases ...string) error {
	f.invalidated = append(f.invalidated, aliases...)
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	issuer, err := signing.GenerateKeypair()
	require.NoError(t, err)

	attestations := memory.NewAttestationStore()
	engine := reputation.NewEngine(
		attestations, memory.NewWeightStore(), reputation.DefaultParams(), zap.NewNop(),
	)

	f := &fixture{
		engine:       engine,
		attestations: attestations,
		issuer:       issuer,
	}
	f.authority = issuance.NewAuthority(engine, attestations, anchor.NewNoop(zap.NewNop()), f, zap.NewNop())

	return f
}

// grantReputation gives an identity enough attestations to clear the
// issuance threshold.
func (f *fixture) grantReputation(t *testing.T, identity string, score int64) {
	t.Helper()

	require.NoError(t, f.attestations.Insert(context.Background(), &types.Attestation{
		ID:                uuid.New(),
		Issuer:            "bootstrap",
		Recipient:         identity,
		TokenID:           0,
		Metadata:          types.Metadata{"weight": score},
		IssuerScoreAtMint: 1000,
		CreatedAt:         time.Now().UTC(),
	}))
}

func signedRequest(t *testing.T, issuer *signing.Keypair, recipient string, tokenID uint64, md types.Metadata) *issuance.IssueRequest {
	t.Helper()

	hash, err := signing.HashMetadata(md)
	require.NoError(t, err)

	digest := signing.MintMessage(tokenID, recipient, hash)

	return &issuance.IssueRequest{
		Issuer:    issuer.Identity(),
		Recipient: recipient,
		TokenID:   tokenID,
		Metadata:  md,
		Signature: issuer.Sign(digest),
	}
}

func TestCreateAttestation_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.grantReputation(t, f.issuer.Identity(), 600)

	req := signedRequest(t, f.issuer, "recipient1", 42, types.Metadata{"category": "skill", "weight": 2})

	result, err := f.authority.CreateAttestation(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(600), result.IssuerScore)

	stored, err := f.attestations.ByID(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, f.issuer.Identity(), stored.Issuer)
	assert.Equal(t, "recipient1", stored.Recipient)
	assert.Equal(t, uint64(42), stored.TokenID)
	assert.Equal(t, int64(600), stored.IssuerScoreAtMint)

	assert.Equal(t, []string{"recipient1"}, f.invalidated)
}

func TestCreateAttestation_ScoreSnapshotIsWriteOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.grantReputation(t, f.issuer.Identity(), 600)

	req := signedRequest(t, f.issuer, "recipient1", 1, types.Metadata{"category": "skill"})

	result, err := f.authority.CreateAttestation(ctx, req)
	require.NoError(t, err)

	// The issuer's reputation keeps moving afterwards; the stored snapshot
	// must not.
	f.grantReputation(t, f.issuer.Identity(), 400)

	current, err := f.engine.GetScore(ctx, f.issuer.Identity())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), current)

	stored, err := f.attestations.ByID(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), stored.IssuerScoreAtMint)
}

func TestCreateAttestation_InsufficientReputation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.grantReputation(t, f.issuer.Identity(), 499)

	req := signedRequest(t, f.issuer, "recipient1", 1, types.Metadata{"category": "skill"})

	_, err := f.authority.CreateAttestation(ctx, req)
	require.ErrorIs(t, err, issuance.ErrInsufficientReputation)

	// The rejection must leave no row behind.
	rows, err := f.attestations.ByRecipient(ctx, []string{"recipient1"})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, f.invalidated)
}

func TestCreateAttestation_MetadataTamperInvalidatesSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.grantReputation(t, f.issuer.Identity(), 600)

	tests := []struct {
		name   string
		mutate func(*issuance.IssueRequest)
	}{
		{
			name: "changed metadata value",
			mutate: func(req *issuance.IssueRequest) {
				req.Metadata["weight"] = 50
			},
		},
		{
			name: "added metadata key",
			mutate: func(req *issuance.IssueRequest) {
				req.Metadata["bonus"] = true
			},
		},
		{
			name: "removed metadata key",
			mutate: func(req *issuance.IssueRequest) {
				delete(req.Metadata, "category")
			},
		},
		{
			name: "swapped recipient",
			mutate: func(req *issuance.IssueRequest) {
				req.Recipient = "other"
			},
		},
		{
			name: "swapped token id",
			mutate: func(req *issuance.IssueRequest) {
				req.TokenID = 999
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := signedRequest(t, f.issuer, "recipient1", 1,
				types.Metadata{"category": "skill", "weight": 2})
			tt.mutate(req)

			_, err := f.authority.CreateAttestation(ctx, req)
			require.ErrorIs(t, err, signing.ErrSignatureMismatch)
		})
	}

	rows, err := f.attestations.ByRecipient(ctx, []string{"recipient1", "other"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateAttestation_MalformedSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.grantReputation(t, f.issuer.Identity(), 600)

	req := signedRequest(t, f.issuer, "recipient1", 1, types.Metadata{})
	req.Signature = req.Signature[:16]

	_, err := f.authority.CreateAttestation(ctx, req)
	require.ErrorIs(t, err, signing.ErrMalformedSignature)
}

func TestCreateAttestation_InvalidRequest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()

	for _, req := range []*issuance.IssueRequest{
		nil,
		{Recipient: "r", Signature: []byte{1}},
		{Issuer: "i", Signature: []byte{1}},
		{Issuer: "i", Recipient: "r"},
	} {
		_, err := f.authority.CreateAttestation(ctx, req)
		require.ErrorIs(t, err, issuance.ErrInvalidRequest)
	}
}

func TestCreateAttestation_AnchorFailureDoesNotUnwindMint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.grantReputation(t, f.issuer.Identity(), 600)

	failing := &failingAnchorer{}
	authority := issuance.NewAuthority(f.engine, f.attestations, failing, nil, zap.NewNop())

	req := signedRequest(t, f.issuer, "recipient1", 1, types.Metadata{"category": "skill"})

	result, err := authority.CreateAttestation(ctx, req)
	require.NoError(t, err)

	_, err = f.attestations.ByID(ctx, result.ID)
	require.NoError(t, err)
	assert.True(t, failing.called)
}

type failingAnchorer struct {
	called bool
}

func (a *failingAnchorer) Anchor(context.Context, *types.Attestation) error {
	a.called = true
	return errors.New("anchor backend offline")
}

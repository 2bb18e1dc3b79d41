package issuance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guildpoint/guildpoint/internal/anchor"
	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/guildpoint/guildpoint/internal/reputation"
	"github.com/guildpoint/guildpoint/internal/signing"
	"github.com/guildpoint/guildpoint/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrInvalidRequest is returned when a request is structurally unusable
	// before any gate runs.
	ErrInvalidRequest = errors.New("invalid issuance request")

	// ErrInsufficientReputation is returned when the issuer's current score
	// is below the issuance threshold.
	ErrInsufficientReputation = errors.New("insufficient reputation")
)

// IssueRequest carries everything needed to mint one attestation.
type IssueRequest struct {
	// Issuer is the claimed author identity the signature must bind to.
	Issuer string
	// IssuerAliases are additional identities known to refer to the issuer,
	// included when computing the gate score.
	IssuerAliases []string
	// Recipient is the identity the attestation is about.
	Recipient string
	// TokenID is the caller-chosen credential token id bound by the signature.
	TokenID uint64
	// Metadata is the open attribute bag; it is canonically serialized and
	// hashed into the signed message.
	Metadata types.Metadata
	// Signature is the issuer's signature over the structured mint message.
	Signature []byte
}

// IssueResult reports a successful mint.
type IssueResult struct {
	ID          uuid.UUID `json:"id"`
	IssuerScore int64     `json:"issuerScore"`
}

// ScoreInvalidator drops cached scores once new attestations change them.
type ScoreInvalidator interface {
	Invalidate(ctx context.Context, aliases ...string) error
}

// Authority validates and commits new attestations. It is the single
// authorized writer of the attestation store's create path.
type Authority struct {
	engine      *reputation.Engine
	store       storage.AttestationStore
	anchorer    anchor.Anchorer
	invalidator ScoreInvalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuthority creates an issuance authority. The invalidator may be nil when
// no score cache is in play.
func NewAuthority(
	engine *reputation.Engine,
	store storage.AttestationStore,
	anchorer anchor.Anchorer,
	invalidator ScoreInvalidator,
	logger *zap.Logger,
) *Authority {
	return &Authority{
		engine:      engine,
		store:       store,
		anchorer:    anchorer,
		invalidator: invalidator,
		logger:      logger.Named("issuance"),
		now:         time.Now,
	}
}

// CreateAttestation runs the ordered issuance gates and commits the row only
// when every gate passes. Rejections are ordinary typed errors; nothing is
// written before the final commit.
func (a *Authority) CreateAttestation(ctx context.Context, req *IssueRequest) (*IssueResult, error) {
	if req == nil || req.Issuer == "" || req.Recipient == "" || len(req.Signature) == 0 {
		return nil, ErrInvalidRequest
	}

	// Gate 1: reputation threshold. The score computed here is captured as
	// issuerScoreAtMint and never re-queried afterwards.
	aliases := append([]string{req.Issuer}, req.IssuerAliases...)

	gate, err := a.engine.CanIssue(ctx, aliases...)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate issuance gate: %w", err)
	}

	if !gate.OK {
		return nil, fmt.Errorf("%w: score %d below threshold %d",
			ErrInsufficientReputation, gate.Score, a.engine.Params().MinIssueScore)
	}

	// Gate 2: the signature must bind the issuer to exactly this token,
	// recipient, and metadata content.
	metadataHash, err := signing.HashMetadata(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", signing.ErrSignatureMismatch, err)
	}

	digest := signing.MintMessage(req.TokenID, req.Recipient, metadataHash)
	if err := signing.Verify(req.Issuer, digest, req.Signature); err != nil {
		return nil, err
	}

	// Commit. This is the only write of the whole operation.
	attestation := &types.Attestation{
		ID:                uuid.New(),
		Issuer:            req.Issuer,
		Recipient:         req.Recipient,
		TokenID:           req.TokenID,
		Metadata:          req.Metadata,
		IssuerScoreAtMint: gate.Score,
		CreatedAt:         a.now().UTC(),
	}

	if err := a.store.Insert(ctx, attestation); err != nil {
		return nil, fmt.Errorf("failed to insert attestation: %w", err)
	}

	// Post-commit hooks are best-effort; the mint already happened.
	if err := a.anchorer.Anchor(ctx, attestation); err != nil {
		a.logger.Warn("Failed to anchor attestation",
			zap.String("attestation", attestation.ID.String()),
			zap.Error(err))
	}

	if a.invalidator != nil {
		if err := a.invalidator.Invalidate(ctx, req.Recipient); err != nil {
			a.logger.Warn("Failed to invalidate recipient score cache",
				zap.String("recipient", req.Recipient),
				zap.Error(err))
		}
	}

	a.logger.Info("Issued attestation",
		zap.String("attestation", attestation.ID.String()),
		zap.String("issuer", req.Issuer),
		zap.String("recipient", req.Recipient),
		zap.Uint64("tokenID", req.TokenID),
		zap.Int64("issuerScore", gate.Score))

	return &IssueResult{ID: attestation.ID, IssuerScore: gate.Score}, nil
}

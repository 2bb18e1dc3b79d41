package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/guildpoint/guildpoint/internal/database/dbretry"
	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/guildpoint/guildpoint/internal/storage"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// AttestationModel handles database operations for attestations.
type AttestationModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAttestation creates a new attestation model.
func NewAttestation(db *bun.DB, logger *zap.Logger) *AttestationModel {
	return &AttestationModel{
		db:     db,
		logger: logger.Named("db_attestation"),
	}
}

// Insert appends a new attestation. Rows are never updated afterwards.
func (r *AttestationModel) Insert(ctx context.Context, a *types.Attestation) error {
	if a == nil || a.ID == uuid.Nil || a.Issuer == "" || a.Recipient == "" {
		return storage.ErrInvalidInput
	}

	_, err := dbretry.Operation(ctx, func(ctx context.Context) (sql.Result, error) {
		return r.db.NewInsert().Model(a).Exec(ctx)
	})
	if err != nil {
		var pgerr *pgdriver.Error
		if errors.As(err, &pgerr) && pgerr.Field('C') == "23505" {
			return storage.ErrDuplicateKey
		}

		return fmt.Errorf("failed to insert attestation: %w", err)
	}

	return nil
}

// ByID retrieves an attestation by id.
func (r *AttestationModel) ByID(ctx context.Context, id uuid.UUID) (*types.Attestation, error) {
	attestation, err := dbretry.Operation(ctx, func(ctx context.Context) (*types.Attestation, error) {
		var a types.Attestation

		err := r.db.NewSelect().Model(&a).Where("id = ?", id).Scan(ctx)

		return &a, err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to get attestation: %w", err)
	}

	return attestation, nil
}

// ByRecipient retrieves all attestations naming any of the aliases as
// recipient. Alias overlap can return the same row more than once; score
// aggregation deduplicates by id.
func (r *AttestationModel) ByRecipient(ctx context.Context, aliases []string) ([]*types.Attestation, error) {
	if len(aliases) == 0 {
		return nil, nil
	}

	attestations, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Attestation, error) {
		var out []*types.Attestation

		err := r.db.NewSelect().
			Model(&out).
			Where("recipient IN (?)", bun.In(aliases)).
			Order("created_at DESC").
			Scan(ctx)

		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get attestations by recipient: %w", err)
	}

	return attestations, nil
}

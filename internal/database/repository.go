package database

import (
	"github.com/guildpoint/guildpoint/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all store implementations.
type Repository struct {
	attestation *models.AttestationModel
	ledger      *models.LedgerModel
	weight      *models.WeightModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		attestation: models.NewAttestation(db, logger),
		ledger:      models.NewLedger(db, logger),
		weight:      models.NewWeight(db, logger),
	}
}

// Attestation returns the attestation store.
func (r *Repository) Attestation() *models.AttestationModel {
	return r.attestation
}

// Ledger returns the ledger store.
func (r *Repository) Ledger() *models.LedgerModel {
	return r.ledger
}

// Weight returns the category weight store.
func (r *Repository) Weight() *models.WeightModel {
	return r.weight
}

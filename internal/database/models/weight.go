package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guildpoint/guildpoint/internal/database/dbretry"
	"github.com/guildpoint/guildpoint/internal/database/types"
	"github.com/guildpoint/guildpoint/internal/storage"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// WeightModel handles database operations for category weights.
type WeightModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewWeight creates a new category weight model.
func NewWeight(db *bun.DB, logger *zap.Logger) *WeightModel {
	return &WeightModel{
		db:     db,
		logger: logger.Named("db_weight"),
	}
}

// CategoryWeights returns the full category to multiplier mapping.
func (r *WeightModel) CategoryWeights(ctx context.Context) (map[string]float64, error) {
	weights, err := dbretry.Operation(ctx, func(ctx context.Context) ([]*types.CategoryWeight, error) {
		var out []*types.CategoryWeight

		err := r.db.NewSelect().Model(&out).Scan(ctx)

		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get category weights: %w", err)
	}

	out := make(map[string]float64, len(weights))
	for _, w := range weights {
		out[w.Category] = w.Weight
	}

	return out, nil
}

// SetCategoryWeight upserts a category multiplier.
func (r *WeightModel) SetCategoryWeight(ctx context.Context, category string, weight float64) error {
	if category == "" || weight < 0 {
		return storage.ErrInvalidInput
	}

	row := &types.CategoryWeight{
		Category:  category,
		Weight:    weight,
		UpdatedAt: time.Now().UTC(),
	}

	_, err := dbretry.Operation(ctx, func(ctx context.Context) (sql.Result, error) {
		return r.db.NewInsert().
			Model(row).
			On("CONFLICT (category) DO UPDATE").
			Set("weight = EXCLUDED.weight").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to set category weight: %w", err)
	}

	r.logger.Info("Updated category weight",
		zap.String("category", category),
		zap.Float64("weight", weight))

	return nil
}

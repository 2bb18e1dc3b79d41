package anchor

import (
	"context"

	"github.com/guildpoint/guildpoint/internal/database/types"
	"go.uber.org/zap"
)

// Anchorer publishes a record of a freshly minted attestation to an external
// settlement layer. Anchoring is best-effort: issuance has already committed
// by the time the hook runs, and failures must not unwind the mint.
type Anchorer interface {
	Anchor(ctx context.Context, a *types.Attestation) error
}

// Noop is the current production anchorer. On-chain settlement is a future
// integration; the hook exists so the issuance path already flows through it.
type Noop struct {
	logger *zap.Logger
}

// NewNoop creates an anchorer that records nothing.
func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger.Named("anchor")}
}

// Anchor performs no work.
func (n *Noop) Anchor(_ context.Context, a *types.Attestation) error {
	n.logger.Debug("Skipping on-chain anchor", zap.String("attestation", a.ID.String()))
	return nil
}

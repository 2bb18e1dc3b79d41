package reputation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/guildpoint/guildpoint/internal/storage"
	"go.uber.org/zap"
)

// Params are the reputation aggregation tunables. Zero values are replaced
// with defaults by NewEngine.
type Params struct {
	// MinIssueScore is the score an identity needs before it may issue
	// attestations.
	MinIssueScore int64
	// TrustDivisor scales an issuer's score-at-mint into the [0,1] trust
	// factor: trust = min(1, score/TrustDivisor).
	TrustDivisor float64
	// ZeroTrustFactor is the trust assigned to issuers whose score at mint
	// was zero or unrecorded.
	ZeroTrustFactor float64
	// DecayGraceDays is how long an attestation contributes at full strength.
	DecayGraceDays float64
	// DecayWindowDays is how long after the grace period the contribution
	// takes to decay linearly down to the floor.
	DecayWindowDays float64
	// DecayFloor is the minimum decay multiplier; old attestations never
	// contribute less than this fraction of their undecayed value.
	DecayFloor float64
}

// DefaultParams returns the production aggregation parameters.
func DefaultParams() Params {
	return Params{
		MinIssueScore:   500,
		TrustDivisor:    1000,
		ZeroTrustFactor: 0.3,
		DecayGraceDays:  180,
		DecayWindowDays: 360,
		DecayFloor:      0.2,
	}
}

func (p Params) withDefaults() Params {
	def := DefaultParams()

	if p.MinIssueScore <= 0 {
		p.MinIssueScore = def.MinIssueScore
	}

	if p.TrustDivisor <= 0 {
		p.TrustDivisor = def.TrustDivisor
	}

	if p.ZeroTrustFactor <= 0 {
		p.ZeroTrustFactor = def.ZeroTrustFactor
	}

	if p.DecayGraceDays <= 0 {
		p.DecayGraceDays = def.DecayGraceDays
	}

	if p.DecayWindowDays <= 0 {
		p.DecayWindowDays = def.DecayWindowDays
	}

	if p.DecayFloor <= 0 {
		p.DecayFloor = def.DecayFloor
	}

	return p
}

// CanIssueResult reports whether an identity clears the issuance gate and the
// score that decision was based on.
type CanIssueResult struct {
	OK    bool  `json:"ok"`
	Score int64 `json:"score"`
}

// Engine computes point-in-time reputation scores by aggregating all
// attestations naming an identity as recipient. It holds no cache of its own;
// callers that need caching wrap it (see ScoreCache).
type Engine struct {
	attestations storage.AttestationStore
	weights      storage.WeightStore
	params       Params
	logger       *zap.Logger
	now          func() time.Time
}

// NewEngine creates a reputation engine over the given stores.
func NewEngine(
	attestations storage.AttestationStore, weights storage.WeightStore, params Params, logger *zap.Logger,
) *Engine {
	return &Engine{
		attestations: attestations,
		weights:      weights,
		params:       params.withDefaults(),
		logger:       logger.Named("reputation"),
		now:          time.Now,
	}
}

// Params returns the engine's effective aggregation parameters.
func (e *Engine) Params() Params {
	return e.params
}

// GetScore computes the current score for an identity. All aliases referring
// to the same identity may be passed together; an attestation reached through
// more than one alias is counted once.
func (e *Engine) GetScore(ctx context.Context, aliases ...string) (int64, error) {
	weights, err := e.weights.CategoryWeights(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load category weights: %w", err)
	}

	attestations, err := e.attestations.ByRecipient(ctx, aliases)
	if err != nil {
		return 0, fmt.Errorf("failed to load attestations: %w", err)
	}

	var sum float64

	now := e.now()
	seen := make(map[uuid.UUID]struct{}, len(attestations))

	for _, a := range attestations {
		if _, dup := seen[a.ID]; dup {
			continue
		}

		seen[a.ID] = struct{}{}

		weight := a.Metadata.DeclaredWeight()
		if cw, ok := weights[a.Metadata.Category()]; ok {
			weight *= cw
		}

		sum += weight * e.trustFactor(a.IssuerScoreAtMint) * e.decayFactor(now, a.CreatedAt)
	}

	score := int64(math.Round(sum))
	if score < 0 {
		score = 0
	}

	e.logger.Debug("Computed reputation score",
		zap.Strings("aliases", aliases),
		zap.Int("attestations", len(seen)),
		zap.Int64("score", score))

	return score, nil
}

// CanIssue reports whether an identity's current score clears the issuance
// threshold. The returned score is what gets captured as issuerScoreAtMint
// when issuance goes on to succeed.
func (e *Engine) CanIssue(ctx context.Context, aliases ...string) (*CanIssueResult, error) {
	score, err := e.GetScore(ctx, aliases...)
	if err != nil {
		return nil, err
	}

	return &CanIssueResult{OK: score >= e.params.MinIssueScore, Score: score}, nil
}

// trustFactor derives the issuer trust multiplier from the issuer's score at
// the moment of issuance. The snapshot is intentional: later collapse of the
// issuer's reputation does not retroactively change old attestations.
func (e *Engine) trustFactor(issuerScoreAtMint int64) float64 {
	if issuerScoreAtMint <= 0 {
		return e.params.ZeroTrustFactor
	}

	return math.Min(1, float64(issuerScoreAtMint)/e.params.TrustDivisor)
}

// decayFactor reduces an attestation's contribution as it ages: full strength
// through the grace period, then a linear slide down to the floor.
func (e *Engine) decayFactor(now, createdAt time.Time) float64 {
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays <= e.params.DecayGraceDays {
		return 1
	}

	return math.Max(e.params.DecayFloor, 1-(ageDays-e.params.DecayGraceDays)/e.params.DecayWindowDays)
}

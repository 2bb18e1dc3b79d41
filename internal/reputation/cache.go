package reputation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultScoreTTL is how long a cached score stays valid when the caller does
// not pick a TTL. Scores drift slowly (decay is measured in days), so short
// staleness is acceptable for display paths.
const DefaultScoreTTL = 5 * time.Minute

// ScoreCache wraps an Engine with a Redis-backed cache. Concurrent lookups of
// the same identity collapse into a single computation.
type ScoreCache struct {
	engine *Engine
	client rueidis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewScoreCache creates a score cache over the given engine and Redis client.
func NewScoreCache(engine *Engine, client rueidis.Client, ttl time.Duration, logger *zap.Logger) *ScoreCache {
	if ttl <= 0 {
		ttl = DefaultScoreTTL
	}

	return &ScoreCache{
		engine: engine,
		client: client,
		ttl:    ttl,
		logger: logger.Named("score_cache"),
	}
}

// GetScore returns the cached score for an alias set, computing and caching
// it on a miss. Cache failures degrade to a direct computation.
func (c *ScoreCache) GetScore(ctx context.Context, aliases ...string) (int64, error) {
	key := scoreKey(aliases)

	cached, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsInt64()
	if err == nil {
		return cached, nil
	}

	if !rueidis.IsRedisNil(err) {
		c.logger.Warn("Score cache read failed", zap.String("key", key), zap.Error(err))
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		score, err := c.engine.GetScore(ctx, aliases...)
		if err != nil {
			return int64(0), err
		}

		setCmd := c.client.B().Set().Key(key).
			Value(strconv.FormatInt(score, 10)).
			Ex(c.ttl).
			Build()
		if err := c.client.Do(ctx, setCmd).Error(); err != nil {
			c.logger.Warn("Score cache write failed", zap.String("key", key), zap.Error(err))
		}

		return score, nil
	})
	if err != nil {
		return 0, err
	}

	return result.(int64), nil
}

// Invalidate drops the cached score for an alias set. Called after issuance
// changes what the next computation would return.
func (c *ScoreCache) Invalidate(ctx context.Context, aliases ...string) error {
	key := scoreKey(aliases)

	if err := c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to invalidate score cache: %w", err)
	}

	return nil
}

// scoreKey derives a stable cache key from an alias set; alias order must not
// matter, matching score computation itself.
func scoreKey(aliases []string) string {
	sorted := make([]string, len(aliases))
	copy(sorted, aliases)
	sort.Strings(sorted)

	return "score:" + strings.Join(sorted, ",")
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bracketlab/esports-server/models"
)

const standingsTTL = 5 * time.Minute

// RedisStandingsCache keeps computed standings in Redis with a short TTL.
// All operations are best effort: Redis being down degrades reads to a cache
// miss and writes to a no-op.
type RedisStandingsCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisStandingsCache(redisURL string, logger *slog.Logger) (*RedisStandingsCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &RedisStandingsCache{
		client: redis.NewClient(opts),
		logger: logger,
	}, nil
}

func standingsKey(tournamentID int) string {
	return fmt.Sprintf("standings:%d", tournamentID)
}

func (c *RedisStandingsCache) Get(ctx context.Context, tournamentID int) ([]models.Standing, bool) {
	raw, err := c.client.Get(ctx, standingsKey(tournamentID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("standings cache read failed",
				slog.Int("tournament_id", tournamentID),
				slog.Any("error", err))
		}
		return nil, false
	}
	var standings []models.Standing
	if err := json.Unmarshal(raw, &standings); err != nil {
		c.logger.Warn("standings cache entry is corrupt",
			slog.Int("tournament_id", tournamentID),
			slog.Any("error", err))
		return nil, false
	}
	return standings, true
}

func (c *RedisStandingsCache) Set(ctx context.Context, tournamentID int, standings []models.Standing) {
	raw, err := json.Marshal(standings)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, standingsKey(tournamentID), raw, standingsTTL).Err(); err != nil {
		c.logger.Warn("standings cache write failed",
			slog.Int("tournament_id", tournamentID),
			slog.Any("error", err))
	}
}

func (c *RedisStandingsCache) Invalidate(ctx context.Context, tournamentID int) {
	if err := c.client.Del(ctx, standingsKey(tournamentID)).Err(); err != nil {
		c.logger.Warn("standings cache invalidation failed",
			slog.Int("tournament_id", tournamentID),
			slog.Any("error", err))
	}
}

// Close releases the underlying Redis connection pool.
func (c *RedisStandingsCache) Close() error {
	return c.client.Close()
}

// Package cache puts a Redis read-through cache in front of a GameFeed.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Projector/models"
)

// TTL defaults
const (
	ScheduleTTL   = 60 * time.Second
	FinalDayTTL   = 6 * time.Hour
	defaultPrefix = "projector:feed:"
)

// Options tunes CachedFeed
type Options struct {
	// ScheduleTTL applies to days with a game that has not finished
	ScheduleTTL time.Duration
	// FinalTTL applies to days where every game is final, and to box scores
	FinalTTL time.Duration
	Prefix   string
}

// CachedFeed is a models.GameFeed that caches another feed in Redis.
// Redis failures fall through to the wrapped feed; feed errors are never cached.
type CachedFeed struct {
	next   models.GameFeed
	client *redis.Client
	opts   Options
	logger zerolog.Logger
}

// NewCachedFeed wraps next
func NewCachedFeed(next models.GameFeed, client *redis.Client, opts Options) *CachedFeed {
	if opts.ScheduleTTL <= 0 {
		opts.ScheduleTTL = ScheduleTTL
	}
	if opts.FinalTTL <= 0 {
		opts.FinalTTL = FinalDayTTL
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	return &CachedFeed{
		next:   next,
		client: client,
		opts:   opts,
		logger: log.With().Str("component", "feed_cache").Logger(),
	}
}

// GamesOnDate implements models.GameFeed
func (c *CachedFeed) GamesOnDate(ctx context.Context, date time.Time) ([]models.Game, error) {
	key := fmt.Sprintf("%sgames:%s", c.opts.Prefix, models.FormatDate(date))

	var games []models.Game
	if c.read(ctx, key, &games) {
		return games, nil
	}

	games, err := c.next.GamesOnDate(ctx, date)
	if err != nil {
		return nil, err
	}

	ttl := c.opts.ScheduleTTL
	if allFinal(games) {
		ttl = c.opts.FinalTTL
	}
	c.write(ctx, key, games, ttl)
	return games, nil
}

// BoxScore implements models.GameFeed. Box scores are only requested once a
// game is final, so they are kept for FinalTTL.
func (c *CachedFeed) BoxScore(ctx context.Context, gameID string) ([]models.PlayerLine, error) {
	key := fmt.Sprintf("%sboxscore:%s", c.opts.Prefix, gameID)

	var lines []models.PlayerLine
	if c.read(ctx, key, &lines) {
		return lines, nil
	}

	lines, err := c.next.BoxScore(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		c.write(ctx, key, lines, c.opts.FinalTTL)
	}
	return lines, nil
}

func (c *CachedFeed) read(ctx context.Context, key string, out interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Dropping undecodable cache entry")
		c.client.Del(ctx, key)
		return false
	}
	return true
}

func (c *CachedFeed) write(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func allFinal(games []models.Game) bool {
	if len(games) == 0 {
		return false
	}
	for _, g := range games {
		if !strings.Contains(strings.ToLower(g.StatusText), "final") {
			return false
		}
	}
	return true
}

var _ models.GameFeed = (*CachedFeed)(nil)

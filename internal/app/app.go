// Package app wires configuration into the projection services shared by the
// command line tool and the API server.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Projector/internal/api/espn"
	"github.com/Alias1177/Projector/internal/api/nbastats"
	"github.com/Alias1177/Projector/internal/cache"
	"github.com/Alias1177/Projector/internal/config"
	"github.com/Alias1177/Projector/internal/database"
	"github.com/Alias1177/Projector/internal/keylock"
	"github.com/Alias1177/Projector/internal/lifecycle"
	"github.com/Alias1177/Projector/internal/notify/telegram"
	"github.com/Alias1177/Projector/internal/publisher"
	"github.com/Alias1177/Projector/internal/research"
	"github.com/Alias1177/Projector/internal/schedule"
	"github.com/Alias1177/Projector/models"
)

const (
	lockTTL      = 30 * time.Second
	streamMaxLen = 10000
)

// App holds the constructed services
type App struct {
	Config   *config.Config
	Store    *database.SQLStore
	Feed     models.GameFeed
	History  models.HistorySource
	Manager  *lifecycle.Manager
	Research *research.Service

	redis  *redis.Client
	logger zerolog.Logger
}

// New connects the store and, when configured, Redis and Telegram
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		logger: log.With().Str("component", "app").Logger(),
	}

	store, err := database.Open(ctx, cfg.Database())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	a.Store = store

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	var feed models.GameFeed = espn.NewClient(espn.ClientOptions{
		BaseURL:        cfg.ESPNBaseURL,
		RequestTimeout: cfg.FeedTimeout,
		RequestsPerSec: cfg.FeedRequestsPerSec,
	})
	if a.redis != nil {
		feed = cache.NewCachedFeed(feed, a.redis, cache.Options{ScheduleTTL: cfg.FeedCacheTTL})
	}
	a.Feed = feed

	a.History = nbastats.NewClient(nbastats.ClientOptions{
		BaseURL:        cfg.NBAStatsBaseURL,
		Season:         cfg.CurrentSeason,
		RequestTimeout: cfg.FeedTimeout,
		RequestsPerSec: cfg.FeedRequestsPerSec,
	})

	listeners, err := a.listeners(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var locker keylock.Locker = keylock.NewLocal()
	if a.redis != nil {
		locker = keylock.NewRedis(a.redis, lockTTL)
	}

	a.Manager = lifecycle.NewManager(store, feed, lifecycle.Options{
		LiveWindow:  cfg.LiveWindow,
		FeedTimeout: cfg.FeedTimeout,
		Locker:      locker,
		Listeners:   listeners,
	})

	a.Research = research.NewService(a.History, schedule.NewResolver(feed, cfg.FeedTimeout), store, research.Options{
		CurrentSeason:  cfg.CurrentSeason,
		PreviousSeason: cfg.PreviousSeason,
		HorizonDays:    cfg.ScheduleHorizonDays,
	})

	return a, nil
}

func (a *App) listeners(cfg *config.Config) ([]lifecycle.Listener, error) {
	var out []lifecycle.Listener
	if a.redis != nil {
		out = append(out, publisher.NewStreamPublisher(a.redis, publisher.DefaultStream, streamMaxLen))
	}
	if cfg.TelegramBotToken != "" {
		notifier, err := telegram.New(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.FeedTimeout)
		if err != nil {
			return nil, fmt.Errorf("creating telegram notifier: %w", err)
		}
		out = append(out, notifier)
	}
	return out, nil
}

// Redis returns the optional Redis client, nil when REDIS_URL is unset
func (a *App) Redis() *redis.Client {
	return a.redis
}

// Close releases the store and Redis connections
func (a *App) Close() error {
	var firstErr error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			firstErr = err
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

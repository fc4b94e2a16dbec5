package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Projector/internal/database"
)

// Config holds all application configuration
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBDriver   string `env:"DB_DRIVER" envDefault:"sqlite"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"projections.db"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"projector"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Optional; enables the feed cache, the distributed key lock and the transition stream
	RedisURL string `env:"REDIS_URL"`

	FeedTimeout        time.Duration `env:"FEED_TIMEOUT" envDefault:"10s"`
	FeedRequestsPerSec int           `env:"FEED_REQUESTS_PER_SEC" envDefault:"5"`
	FeedCacheTTL       time.Duration `env:"FEED_CACHE_TTL" envDefault:"60s"`
	ESPNBaseURL        string        `env:"ESPN_BASE_URL"`
	NBAStatsBaseURL    string        `env:"NBA_STATS_BASE_URL"`

	ScheduleHorizonDays int           `env:"SCHEDULE_HORIZON_DAYS" envDefault:"10"`
	LiveWindow          time.Duration `env:"LIVE_WINDOW" envDefault:"3h"`
	ScanInterval        time.Duration `env:"SCAN_INTERVAL" envDefault:"5m"`
	CurrentSeason       string        `env:"CURRENT_SEASON"` // e.g. 2025-26; derived from today when empty
	PreviousSeason      string        `env:"PREVIOUS_SEASON"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`

	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8080"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return finish(&cfg, time.Now())
}

func finish(cfg *Config, now time.Time) (*Config, error) {
	if cfg.CurrentSeason == "" {
		cfg.CurrentSeason = SeasonOf(now)
	}
	if cfg.PreviousSeason == "" {
		prev, err := PreviousSeason(cfg.CurrentSeason)
		if err != nil {
			return nil, err
		}
		cfg.PreviousSeason = prev
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express
func (c *Config) Validate() error {
	switch strings.ToLower(c.DBDriver) {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("FEED_TIMEOUT must be positive")
	}
	if c.ScheduleHorizonDays <= 0 {
		return fmt.Errorf("SCHEDULE_HORIZON_DAYS must be positive")
	}
	if c.LiveWindow <= 0 {
		return fmt.Errorf("LIVE_WINDOW must be positive")
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required with TELEGRAM_BOT_TOKEN")
	}
	return nil
}

// Database returns the store options
func (c *Config) Database() database.Options {
	return database.Options{
		Driver:     c.DBDriver,
		SQLitePath: c.SQLitePath,
		Postgres: database.ConnectionParams{
			Host:     c.DBHost,
			Port:     c.DBPort,
			User:     c.DBUser,
			Password: c.DBPassword,
			DBName:   c.DBName,
			SSLMode:  c.DBSSLMode,
		},
	}
}

// SeasonOf names the NBA season in progress at t. Seasons start in October.
func SeasonOf(t time.Time) string {
	start := t.Year()
	if t.Month() < time.October {
		start--
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

// PreviousSeason returns the season before a "2025-26" style season
func PreviousSeason(season string) (string, error) {
	var start int
	if _, err := fmt.Sscanf(season, "%4d-", &start); err != nil {
		return "", fmt.Errorf("season %q: expected YYYY-YY", season)
	}
	return fmt.Sprintf("%d-%02d", start-1, start%100), nil
}

package models

import (
	"context"
	"time"
)

// GameFeed is the read-only source of schedules, live status and box scores
type GameFeed interface {
	GamesOnDate(ctx context.Context, date time.Time) ([]Game, error)
	BoxScore(ctx context.Context, gameID string) ([]PlayerLine, error)
}

// HistorySource returns past stat lines for a player, oldest first
type HistorySource interface {
	LookupPlayer(ctx context.Context, name string) (Player, error)
	History(ctx context.Context, player Player, season string) ([]GameLine, error)
}

// Package schedule finds a team's next game in the game feed.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Projector/internal/teams"
	"github.com/Alias1177/Projector/models"
)

// DefaultHorizonDays is how far ahead ResolveNextGame looks by default
const DefaultHorizonDays = 10

// NextGame is the first scheduled game of a team
type NextGame struct {
	GameDate  time.Time
	Matchup   string
	IsHome    bool
	GameID    string
	StartTime time.Time
	TeamCode  string
}

// HomeAway returns the home/away marker of the game
func (g NextGame) HomeAway() models.HomeAway {
	return models.HomeAwayFor(g.IsHome)
}

// Resolver scans a GameFeed day by day
type Resolver struct {
	feed    models.GameFeed
	timeout time.Duration
	logger  zerolog.Logger
}

// NewResolver creates a resolver; timeout bounds each feed call and
// defaults to 10 seconds
func NewResolver(feed models.GameFeed, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		feed:    feed,
		timeout: timeout,
		logger:  log.With().Str("component", "schedule_resolver").Logger(),
	}
}

// ResolveNextGame returns the first game of teamCode on or after from,
// looking horizonDays days ahead. Days the feed cannot serve are skipped.
// It returns models.ErrNotFound when no game lies inside the horizon.
func (r *Resolver) ResolveNextGame(ctx context.Context, teamCode string, from time.Time, horizonDays int) (NextGame, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	team := teams.Canonical(teamCode)
	if team == "" {
		return NextGame{}, fmt.Errorf("%w: empty team code", models.ErrNotFound)
	}

	start := models.DateOf(from)
	var failedDays int
	for offset := 0; offset < horizonDays; offset++ {
		if err := ctx.Err(); err != nil {
			return NextGame{}, err
		}

		day := models.AddDays(start, offset)
		games, err := r.gamesOn(ctx, day)
		if err != nil {
			failedDays++
			r.logger.Warn().Err(err).
				Str("team", team).
				Str("game_date", models.FormatDate(day)).
				Msg("Skipping day, feed unavailable")
			continue
		}

		for _, game := range games {
			if !game.Involves(team) {
				continue
			}
			matchup, isHome := FormatMatchup(game, team)
			next := NextGame{
				GameDate:  day,
				Matchup:   matchup,
				IsHome:    isHome,
				GameID:    game.GameID,
				StartTime: game.StartTimeUTC,
				TeamCode:  team,
			}
			r.logger.Debug().
				Str("team", team).
				Str("game_date", models.FormatDate(day)).
				Str("matchup", matchup).
				Msg("Resolved next game")
			return next, nil
		}
	}

	return NextGame{}, fmt.Errorf("%w: %s within %d days of %s (%d days unavailable)",
		models.ErrNotFound, team, horizonDays, models.FormatDate(start), failedDays)
}

func (r *Resolver) gamesOn(ctx context.Context, day time.Time) ([]models.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	games, err := r.feed.GamesOnDate(ctx, day)
	if err != nil {
		if errors.Is(err, models.ErrFeedUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrFeedUnavailable, err)
	}
	return games, nil
}

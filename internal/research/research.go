// Package research builds and saves a projection for a player's next game.
package research

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Projector/internal/database"
	"github.com/Alias1177/Projector/internal/forecast"
	"github.com/Alias1177/Projector/internal/schedule"
	"github.com/Alias1177/Projector/models"
)

// TrendGames is how many recent games Outcome.Trend carries
const TrendGames = 10

// Kind tells what Project did
type Kind string

const (
	KindSaved     Kind = "saved"
	KindDuplicate Kind = "duplicate"
	KindNoGame    Kind = "no_game"
)

// NextGameResolver finds a team's next game
type NextGameResolver interface {
	ResolveNextGame(ctx context.Context, teamCode string, from time.Time, horizonDays int) (schedule.NextGame, error)
}

// Options configures a Service
type Options struct {
	CurrentSeason  string
	PreviousSeason string
	HorizonDays    int
	Workers        int
	Now            func() time.Time
}

// Outcome is the result of projecting one player
type Outcome struct {
	Kind      Kind
	Player    models.Player
	Season    string // season the forecast was fitted on
	Games     int    // games in that season's history
	Predicted models.StatLine
	Next      schedule.NextGame
	// Record is the stored projection; for KindDuplicate it is the one saved earlier
	Record   models.Record
	LastGame *models.GameLine
	Trend    []models.GameLine
}

// Service ties history, forecasting, scheduling and storage together
type Service struct {
	history  models.HistorySource
	resolver NextGameResolver
	store    database.Store
	opts     Options
	logger   zerolog.Logger
}

// NewService creates a research service
func NewService(history models.HistorySource, resolver NextGameResolver, store database.Store, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		history:  history,
		resolver: resolver,
		store:    store,
		opts:     opts,
		logger:   log.With().Str("component", "research").Logger(),
	}
}

// Project forecasts the player's next game and saves it as an upcoming projection.
// A projection already saved for that game and a team with no game inside the
// horizon are reported through Outcome.Kind, not as errors.
func (s *Service) Project(ctx context.Context, playerName string) (Outcome, error) {
	player, err := s.history.LookupPlayer(ctx, playerName)
	if err != nil {
		return Outcome{}, fmt.Errorf("lookup %q: %w", playerName, err)
	}

	current, err := s.history.History(ctx, player, s.opts.CurrentSeason)
	if err != nil {
		return Outcome{}, fmt.Errorf("history %s %s: %w", player.Name, s.opts.CurrentSeason, err)
	}
	var previous []models.GameLine
	if s.opts.PreviousSeason != "" {
		previous, err = s.history.History(ctx, player, s.opts.PreviousSeason)
		if err != nil {
			if len(current) == 0 {
				return Outcome{}, fmt.Errorf("history %s %s: %w", player.Name, s.opts.PreviousSeason, err)
			}
			s.logger.Warn().Err(err).Str("player", player.Name).Msg("Previous season unavailable")
		}
	}

	out := Outcome{Player: player, Season: s.opts.CurrentSeason}
	fitted := current
	if len(current) == 0 && len(previous) > 0 {
		fitted = previous
		out.Season = s.opts.PreviousSeason
		s.logger.Info().Str("player", player.Name).Msg("No games this season, forecasting from previous season")
	}
	out.Games = len(fitted)
	out.Predicted = forecast.PredictLine(fitted, models.TrackedStats)
	out.Trend = recentGames(current, previous, TrendGames)
	if len(out.Trend) > 0 {
		last := out.Trend[len(out.Trend)-1]
		out.LastGame = &last
	}

	team := player.TeamCode
	if team == "" && len(fitted) > 0 {
		team = fitted[len(fitted)-1].TeamCode
	}

	next, err := s.resolver.ResolveNextGame(ctx, team, s.opts.Now(), s.opts.HorizonDays)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			out.Kind = KindNoGame
			s.logger.Info().Str("player", player.Name).Str("team", team).Msg("No upcoming game found")
			return out, nil
		}
		return Outcome{}, fmt.Errorf("resolve next game for %s: %w", team, err)
	}
	out.Next = next

	rec := models.Record{
		Player:    player.Name,
		GameDate:  next.GameDate,
		Matchup:   next.Matchup,
		HomeAway:  next.HomeAway(),
		Status:    models.StatusUpcoming,
		Predicted: out.Predicted.Clone(),
		StartTime: next.StartTime,
		GameID:    next.GameID,
		TeamCode:  next.TeamCode,
	}

	if err := s.store.Save(ctx, &rec); err != nil {
		if !errors.Is(err, models.ErrDuplicateProjection) {
			return Outcome{}, fmt.Errorf("save projection: %w", err)
		}
		existing, getErr := s.store.Get(ctx, rec.Key())
		if getErr != nil {
			return Outcome{}, fmt.Errorf("load existing projection: %w", getErr)
		}
		out.Kind = KindDuplicate
		out.Record = existing
		s.logger.Info().
			Str("player", player.Name).
			Str("game_date", models.FormatDate(rec.GameDate)).
			Msg("Projection already saved for this game")
		return out, nil
	}

	out.Kind = KindSaved
	out.Record = rec
	s.logger.Info().
		Str("player", player.Name).
		Str("game_date", models.FormatDate(rec.GameDate)).
		Str("matchup", rec.Matchup).
		Float64("pts", rec.Predicted[models.StatPoints]).
		Msg("Projection saved")
	return out, nil
}

// Result pairs a requested name with its outcome
type Result struct {
	Name    string
	Outcome Outcome
	Err     error
}

// ProjectAll projects several players concurrently; results keep the input order
func (s *Service) ProjectAll(ctx context.Context, playerNames []string) []Result {
	results := make([]Result, len(playerNames))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < s.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcome, err := s.Project(ctx, playerNames[i])
				results[i] = Result{Name: playerNames[i], Outcome: outcome, Err: err}
			}
		}()
	}

	for i := range playerNames {
		select {
		case jobs <- i:
		case <-ctx.Done():
			results[i] = Result{Name: playerNames[i], Err: ctx.Err()}
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

// recentGames returns the latest n games across both seasons, oldest first
func recentGames(current, previous []models.GameLine, n int) []models.GameLine {
	all := make([]models.GameLine, 0, len(current)+len(previous))
	all = append(all, previous...)
	all = append(all, current...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}

// Package lifecycle advances stored projections from upcoming through live
// to completed by checking them against the game feed.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Projector/internal/database"
	"github.com/Alias1177/Projector/internal/keylock"
	"github.com/Alias1177/Projector/internal/names"
	"github.com/Alias1177/Projector/internal/schedule"
	"github.com/Alias1177/Projector/internal/teams"
	"github.com/Alias1177/Projector/models"
)

// DefaultLiveWindow is how long after tip-off a game counts as live when
// the feed has nothing better to say
const DefaultLiveWindow = 3 * time.Hour

// Listener is told about every transition a pass commits
type Listener interface {
	OnTransition(ctx context.Context, t models.Transition) error
}

// Options configures a Manager
type Options struct {
	LiveWindow  time.Duration
	FeedTimeout time.Duration
	Locker      keylock.Locker
	Listeners   []Listener
	Now         func() time.Time
}

// Manager runs status passes over pending projections
type Manager struct {
	store  database.Store
	feed   models.GameFeed
	opts   Options
	logger zerolog.Logger
}

// NewManager creates a lifecycle manager
func NewManager(store database.Store, feed models.GameFeed, opts Options) *Manager {
	if opts.LiveWindow <= 0 {
		opts.LiveWindow = DefaultLiveWindow
	}
	if opts.FeedTimeout <= 0 {
		opts.FeedTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		store:  store,
		feed:   feed,
		opts:   opts,
		logger: log.With().Str("component", "lifecycle_manager").Logger(),
	}
}

// Failure records why one projection could not be advanced
type Failure struct {
	Key models.Key
	Err error
}

// Report summarises one pass
type Report struct {
	PassID      string
	Scanned     int
	ToLive      int
	ToCompleted int
	Unchanged   int
	Malformed   int
	Failures    []Failure
	Transitions []models.Transition
}

// Failed returns the number of projections that hit an error
func (r Report) Failed() int {
	return len(r.Failures)
}

// Scan runs one pass over every projection that has not completed.
// Errors on individual projections are collected in the report; only a
// failure to read the store aborts the pass.
func (m *Manager) Scan(ctx context.Context) (Report, error) {
	report := Report{PassID: uuid.NewString()}
	logger := m.logger.With().Str("pass_id", report.PassID).Logger()

	records, err := m.store.Find(ctx, database.Pending())
	if err != nil {
		return report, fmt.Errorf("load pending projections: %w", err)
	}

	days := newDayCache(m.feed, m.opts.FeedTimeout)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		t, err := m.advance(ctx, rec, days)
		switch {
		case errors.Is(err, models.ErrMalformedMatchup):
			report.Malformed++
			report.Failures = append(report.Failures, Failure{Key: rec.Key(), Err: err})
			logger.Warn().Err(err).Str("player", rec.Player).Str("game_date", models.FormatDate(rec.GameDate)).
				Msg("Skipping projection with malformed matchup")
		case err != nil:
			report.Failures = append(report.Failures, Failure{Key: rec.Key(), Err: err})
			logger.Warn().Err(err).Str("player", rec.Player).Str("game_date", models.FormatDate(rec.GameDate)).
				Msg("Projection not advanced, will retry next pass")
		case t == nil:
			report.Unchanged++
		default:
			report.Transitions = append(report.Transitions, *t)
			if t.To == models.StatusCompleted {
				report.ToCompleted++
			} else {
				report.ToLive++
			}
			logger.Info().
				Str("player", rec.Player).
				Str("game_date", models.FormatDate(rec.GameDate)).
				Str("from", string(t.From)).
				Str("status", string(t.To)).
				Msg("Projection advanced")
			m.notify(ctx, *t)
		}
	}

	logger.Info().
		Int("scanned", report.Scanned).
		Int("live", report.ToLive).
		Int("completed", report.ToCompleted).
		Int("unchanged", report.Unchanged).
		Int("failed", report.Failed()).
		Msg("Status pass finished")

	return report, nil
}

// Run scans once immediately and then every interval until ctx is done.
// Corrupt store state stops the loop; other pass errors are logged.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := m.Scan(ctx); err != nil {
			if errors.Is(err, models.ErrCorruptState) {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			m.logger.Error().Err(err).Msg("Status pass failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// advance decides the next status of rec and commits it. It returns nil
// when nothing changes.
func (m *Manager) advance(ctx context.Context, rec models.Record, days *dayCache) (*models.Transition, error) {
	matchup, err := schedule.ParseMatchup(rec.Matchup)
	if err != nil {
		return nil, err
	}
	team := teams.Canonical(matchup.Team)

	games, feedErr := days.games(ctx, rec.GameDate)
	var game *models.Game
	if feedErr == nil {
		game = findGame(games, team, rec.GameID)
	}

	now := m.opts.Now()
	start := rec.StartTime
	if game != nil && !game.StartTimeUTC.IsZero() {
		start = game.StartTimeUTC
	}

	target := rec.Status
	var actual models.StatLine

	phase := PhaseUnknown
	if game != nil {
		phase = ClassifyStatus(game.StatusText, game.State)
	}

	switch {
	case phase == PhaseFinal:
		actual, err = m.actualLine(ctx, game.GameID, rec.Player, team)
		if err != nil {
			return nil, err
		}
		target = models.StatusCompleted
	case phase == PhaseLive:
		target = models.StatusLive
	case (game == nil || strings.TrimSpace(game.StatusText) == "") && InLiveWindow(now, start, m.opts.LiveWindow):
		target = models.StatusLive
	case feedErr != nil:
		return nil, feedErr
	}

	if target.Rank() <= rec.Status.Rank() {
		return nil, nil
	}

	if m.opts.Locker != nil {
		unlock, err := m.opts.Locker.Lock(ctx, lockKey(rec.Key()))
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", rec.Key(), err)
		}
		defer unlock()
	}

	updated, err := m.store.Update(ctx, rec.Key(), func(r *models.Record) error {
		if r.Status.Rank() >= target.Rank() {
			return models.ErrNoChange
		}
		r.Status = target
		if target == models.StatusCompleted && len(actual) > 0 {
			r.Actual = actual
		}
		if game != nil {
			if r.GameID == "" {
				r.GameID = game.GameID
			}
			if r.StartTime.IsZero() {
				r.StartTime = game.StartTimeUTC
			}
		}
		return nil
	})
	if errors.Is(err, models.ErrNoChange) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &models.Transition{Record: updated, From: rec.Status, To: target, At: now}, nil
}

// actualLine fetches the box score and copies the player's tracked stats.
// A player missing from the box score yields an empty line, not an error.
func (m *Manager) actualLine(ctx context.Context, gameID, player, team string) (models.StatLine, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.FeedTimeout)
	defer cancel()

	lines, err := m.feed.BoxScore(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("box score %s: %w", gameID, err)
	}

	var match *models.PlayerLine
	for i := range lines {
		if !names.Equal(lines[i].PlayerName, player) {
			continue
		}
		if match == nil || teams.Canonical(lines[i].TeamCode) == team {
			match = &lines[i]
		}
	}
	if match == nil {
		m.logger.Warn().Str("player", player).Str("game_id", gameID).Msg("Player missing from box score")
		return nil, nil
	}

	full := match.Stats.WithComposites()
	actual := make(models.StatLine, len(models.TrackedStats))
	for _, stat := range models.TrackedStats {
		if v, ok := full[stat]; ok {
			actual[stat] = v
		}
	}
	return actual, nil
}

// notify gives each listener at most FeedTimeout
func (m *Manager) notify(ctx context.Context, t models.Transition) {
	for _, l := range m.opts.Listeners {
		lctx, cancel := context.WithTimeout(ctx, m.opts.FeedTimeout)
		err := l.OnTransition(lctx, t)
		cancel()
		if err != nil {
			m.logger.Warn().Err(err).Str("player", t.Record.Player).Msg("Transition listener failed")
		}
	}
}

// lockKey matches the store's uniqueness: folded player name and calendar date
func lockKey(k models.Key) string {
	return names.Fold(k.Player) + "|" + models.FormatDate(k.GameDate)
}

// findGame prefers the stored game id and falls back to the team's game
func findGame(games []models.Game, team, gameID string) *models.Game {
	if gameID != "" {
		for i := range games {
			if games[i].GameID == gameID {
				return &games[i]
			}
		}
	}
	for i := range games {
		if games[i].Involves(team) {
			return &games[i]
		}
	}
	return nil
}

// dayCache memoises GamesOnDate results, failures included, for one pass
type dayCache struct {
	feed    models.GameFeed
	timeout time.Duration
	entries map[string]dayEntry
}

type dayEntry struct {
	games []models.Game
	err   error
}

func newDayCache(feed models.GameFeed, timeout time.Duration) *dayCache {
	return &dayCache{feed: feed, timeout: timeout, entries: map[string]dayEntry{}}
}

func (c *dayCache) games(ctx context.Context, date time.Time) ([]models.Game, error) {
	day := models.FormatDate(date)
	if e, ok := c.entries[day]; ok {
		return e.games, e.err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	games, err := c.feed.GamesOnDate(callCtx, date)
	if err != nil && !errors.Is(err, models.ErrFeedUnavailable) {
		err = fmt.Errorf("%w: %v", models.ErrFeedUnavailable, err)
	}
	c.entries[day] = dayEntry{games: games, err: err}
	return games, err
}

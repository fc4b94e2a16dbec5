// Package feedtest provides in-memory feeds for tests.
package feedtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Alias1177/Projector/models"
)

// Feed is an in-memory models.GameFeed
type Feed struct {
	mu         sync.Mutex
	games      map[string][]models.Game
	boxScores  map[string][]models.PlayerLine
	dayErrors  map[string]error
	boxErrors  map[string]error
	dateCalls  map[string]int
	boxCalls   map[string]int
	totalCalls int
}

// NewFeed returns an empty feed
func NewFeed() *Feed {
	return &Feed{
		games:     map[string][]models.Game{},
		boxScores: map[string][]models.PlayerLine{},
		dayErrors: map[string]error{},
		boxErrors: map[string]error{},
		dateCalls: map[string]int{},
		boxCalls:  map[string]int{},
	}
}

// SetGames replaces the games listed on date
func (f *Feed) SetGames(date time.Time, games ...models.Game) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games[models.FormatDate(date)] = games
}

// SetStatus updates the status text of a listed game
func (f *Feed) SetStatus(gameID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for day, games := range f.games {
		for i := range games {
			if games[i].GameID == gameID {
				f.games[day][i].StatusText = status
			}
		}
	}
}

// SetBoxScore sets the player lines of a game
func (f *Feed) SetBoxScore(gameID string, lines ...models.PlayerLine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boxScores[gameID] = lines
}

// FailDate makes GamesOnDate fail for date; a nil err clears the failure
func (f *Feed) FailDate(date time.Time, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.dayErrors, models.FormatDate(date))
		return
	}
	f.dayErrors[models.FormatDate(date)] = err
}

// FailBoxScore makes BoxScore fail for gameID; a nil err clears the failure
func (f *Feed) FailBoxScore(gameID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.boxErrors, gameID)
		return
	}
	f.boxErrors[gameID] = err
}

// GamesOnDate implements models.GameFeed
func (f *Feed) GamesOnDate(ctx context.Context, date time.Time) ([]models.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFeedUnavailable, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	day := models.FormatDate(date)
	f.dateCalls[day]++
	f.totalCalls++
	if err := f.dayErrors[day]; err != nil {
		return nil, err
	}
	games := make([]models.Game, len(f.games[day]))
	copy(games, f.games[day])
	return games, nil
}

// BoxScore implements models.GameFeed
func (f *Feed) BoxScore(ctx context.Context, gameID string) ([]models.PlayerLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFeedUnavailable, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.boxCalls[gameID]++
	f.totalCalls++
	if err := f.boxErrors[gameID]; err != nil {
		return nil, err
	}
	lines := make([]models.PlayerLine, len(f.boxScores[gameID]))
	for i, l := range f.boxScores[gameID] {
		l.Stats = l.Stats.Clone()
		lines[i] = l
	}
	return lines, nil
}

// DateCalls returns how many times date was requested
func (f *Feed) DateCalls(date time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dateCalls[models.FormatDate(date)]
}

// BoxScoreCalls returns how many times gameID's box score was requested
func (f *Feed) BoxScoreCalls(gameID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.boxCalls[gameID]
}

// Calls returns the total number of feed calls
func (f *Feed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totalCalls
}

// History is an in-memory models.HistorySource keyed by season
type History struct {
	mu      sync.Mutex
	players []models.Player
	logs    map[string]map[string][]models.GameLine
	err     error
}

// NewHistory returns an empty history source
func NewHistory() *History {
	return &History{logs: map[string]map[string][]models.GameLine{}}
}

// AddPlayer registers a player with its game logs per season
func (h *History) AddPlayer(p models.Player, seasons map[string][]models.GameLine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.players = append(h.players, p)
	h.logs[p.ID] = seasons
}

// Fail makes every call return err
func (h *History) Fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// LookupPlayer implements models.HistorySource
func (h *History) LookupPlayer(_ context.Context, name string) (models.Player, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return models.Player{}, h.err
	}
	for _, p := range h.players {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return models.Player{}, fmt.Errorf("%w: %q", models.ErrPlayerNotFound, name)
}

// History implements models.HistorySource
func (h *History) History(_ context.Context, player models.Player, season string) ([]models.GameLine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	lines := h.logs[player.ID][season]
	out := make([]models.GameLine, len(lines))
	copy(out, lines)
	return out, nil
}

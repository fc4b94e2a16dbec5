// Package nbastats reads player lookups and game logs from stats.nba.com.
package nbastats

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Projector/internal/names"
	httpClient "github.com/Alias1177/Projector/internal/platform/http"
	"github.com/Alias1177/Projector/internal/teams"
	"github.com/Alias1177/Projector/models"
)

// DefaultBaseURL is the stats.nba.com API root
const DefaultBaseURL = "https://stats.nba.com/stats"

// stats.nba.com drops requests that do not look like they came from nba.com
var requestHeaders = map[string]string{
	"User-Agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Referer":            "https://www.nba.com/",
	"Origin":             "https://www.nba.com",
	"Accept-Language":    "en-US,en;q=0.9",
	"x-nba-stats-origin": "stats",
	"x-nba-stats-token":  "true",
}

// Client is a models.HistorySource backed by stats.nba.com
type Client struct {
	baseURL    string
	season     string
	timeout    time.Duration
	httpClient *httpClient.Client
	logger     zerolog.Logger

	mu      sync.Mutex
	roster  []models.Player
	fetched time.Time
}

// ClientOptions holds options for creating a new stats client
type ClientOptions struct {
	BaseURL        string
	Season         string // season used for the player directory, e.g. "2025-26"
	RequestTimeout time.Duration
	RequestsPerSec int
}

// NewClient creates a new stats.nba.com client
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	if options.RequestTimeout == 0 {
		options.RequestTimeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(options.BaseURL, "/"),
		season:  options.Season,
		timeout: options.RequestTimeout,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetryTimeout: options.RequestTimeout,
			Headers:         requestHeaders,
		}),
		logger: log.With().Str("component", "nbastats_client").Logger(),
	}
}

// LookupPlayer finds an active player by full name, ignoring case and accents.
// A unique partial match is accepted and logged.
func (c *Client) LookupPlayer(ctx context.Context, name string) (models.Player, error) {
	roster, err := c.players(ctx)
	if err != nil {
		return models.Player{}, err
	}

	want := names.Fold(name)
	if want == "" {
		return models.Player{}, fmt.Errorf("%w: empty name", models.ErrPlayerNotFound)
	}

	var partial []models.Player
	for _, p := range roster {
		folded := names.Fold(p.Name)
		if folded == want {
			return p, nil
		}
		if strings.Contains(folded, want) {
			partial = append(partial, p)
		}
	}

	if len(partial) == 1 {
		c.logger.Warn().
			Str("player", name).
			Str("resolved", partial[0].Name).
			Msg("Fuzzy player match")
		return partial[0], nil
	}

	return models.Player{}, fmt.Errorf("%w: %q (%d partial matches)", models.ErrPlayerNotFound, name, len(partial))
}

// History returns the player's regular season game log, oldest first
func (c *Client) History(ctx context.Context, player models.Player, season string) ([]models.GameLine, error) {
	params := url.Values{}
	params.Set("PlayerID", player.ID)
	params.Set("Season", season)
	params.Set("SeasonType", "Regular Season")
	params.Set("LeagueID", "00")

	set, err := c.resultSet(ctx, "playergamelog", params)
	if err != nil {
		return nil, err
	}

	lines := make([]models.GameLine, 0, len(set.RowSet))
	for _, r := range set.rows() {
		date, err := parseGameDate(r.str("GAME_DATE"))
		if err != nil {
			c.logger.Warn().Err(err).Str("player", player.Name).Msg("Skipping game log row")
			continue
		}

		matchup := r.str("MATCHUP")
		stats := models.StatLine{}
		for _, stat := range models.BaseStats {
			if v, ok := r.num(string(stat)); ok {
				stats[stat] = v
			}
		}

		lines = append(lines, models.GameLine{
			Date:     date,
			GameID:   r.str("Game_ID"),
			Matchup:  matchup,
			TeamCode: teamFromMatchup(matchup),
			Stats:    stats.WithComposites(),
		})
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Date.Before(lines[j].Date) })

	c.logger.Debug().
		Str("player", player.Name).
		Str("season", season).
		Int("games", len(lines)).
		Msg("Fetched game log")

	return lines, nil
}

// players returns the active roster, refreshed at most every 12 hours
func (c *Client) players(ctx context.Context) ([]models.Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.roster != nil && time.Since(c.fetched) < 12*time.Hour {
		return c.roster, nil
	}

	params := url.Values{}
	params.Set("LeagueID", "00")
	params.Set("IsOnlyCurrentSeason", "1")
	if c.season != "" {
		params.Set("Season", c.season)
	}

	set, err := c.resultSet(ctx, "commonallplayers", params)
	if err != nil {
		return nil, err
	}

	roster := make([]models.Player, 0, len(set.RowSet))
	for _, r := range set.rows() {
		id := r.str("PERSON_ID")
		name := r.str("DISPLAY_FIRST_LAST")
		if id == "" || name == "" {
			continue
		}
		roster = append(roster, models.Player{
			ID:       id,
			Name:     name,
			TeamCode: teams.Canonical(r.str("TEAM_ABBREVIATION")),
		})
	}

	c.roster = roster
	c.fetched = time.Now()
	return roster, nil
}

func (c *Client) resultSet(ctx context.Context, endpoint string, params url.Values) (resultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpointURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	var resp response
	if err := c.httpClient.GetJSON(ctx, endpointURL, &resp); err != nil {
		return resultSet{}, fmt.Errorf("%w: nbastats %s: %v", models.ErrFeedUnavailable, endpoint, err)
	}
	if len(resp.ResultSets) == 0 {
		return resultSet{}, fmt.Errorf("%w: nbastats %s: no result sets", models.ErrFeedUnavailable, endpoint)
	}
	return resp.ResultSets[0], nil
}

// teamFromMatchup reads the player's team from "BOS vs. NYK" or "BOS @ NYK"
func teamFromMatchup(matchup string) string {
	fields := strings.Fields(matchup)
	if len(fields) == 0 {
		return ""
	}
	return teams.Canonical(fields[0])
}

package espn

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/Projector/internal/platform/http"
	"github.com/Alias1177/Projector/internal/teams"
	"github.com/Alias1177/Projector/models"
)

const (
	// DefaultBaseURL is the ESPN site API root for the NBA
	DefaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports/basketball/nba"

	defaultUserAgent = "Mozilla/5.0 (compatible; Projector/1.0)"
)

// Client is a models.GameFeed backed by the ESPN site API
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new ESPN client
type ClientOptions struct {
	BaseURL        string
	RequestTimeout time.Duration
	RequestsPerSec int
}

// NewClient creates a new ESPN API client
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	if options.RequestTimeout == 0 {
		options.RequestTimeout = 10 * time.Second
	}

	return &Client{
		baseURL: options.BaseURL,
		timeout: options.RequestTimeout,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetryTimeout: options.RequestTimeout,
			Headers:         map[string]string{"User-Agent": defaultUserAgent},
		}),
		logger: log.With().Str("component", "espn_client").Logger(),
	}
}

// GamesOnDate returns every game ESPN lists on the scoreboard for date
func (c *Client) GamesOnDate(ctx context.Context, date time.Time) ([]models.Game, error) {
	endpoint := fmt.Sprintf("%s/scoreboard?dates=%s", c.baseURL, date.Format("20060102"))

	var board scoreboard
	if err := c.get(ctx, endpoint, &board); err != nil {
		return nil, err
	}

	games := make([]models.Game, 0, len(board.Events))
	for _, ev := range board.Events {
		game, err := ev.toGame()
		if err != nil {
			c.logger.Warn().Err(err).Str("game_id", ev.ID).Msg("Skipping malformed scoreboard event")
			continue
		}
		c.canonicalise(&game)
		games = append(games, game)
	}

	c.logger.Debug().
		Str("date", models.FormatDate(date)).
		Int("games", len(games)).
		Msg("Fetched scoreboard")

	return games, nil
}

// BoxScore returns the player lines of a game
func (c *Client) BoxScore(ctx context.Context, gameID string) ([]models.PlayerLine, error) {
	endpoint := fmt.Sprintf("%s/summary?event=%s", c.baseURL, url.QueryEscape(gameID))

	var sum summary
	if err := c.get(ctx, endpoint, &sum); err != nil {
		return nil, err
	}

	lines := sum.Boxscore.playerLines()
	for i := range lines {
		lines[i].TeamCode = c.canonicalCode(lines[i].TeamCode)
	}

	c.logger.Debug().
		Str("game_id", gameID).
		Int("players", len(lines)).
		Msg("Fetched box score")

	return lines, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.httpClient.GetJSON(ctx, endpoint, out); err != nil {
		return fmt.Errorf("%w: espn %s: %v", models.ErrFeedUnavailable, endpoint, err)
	}
	return nil
}

func (c *Client) canonicalise(game *models.Game) {
	game.HomeTeamCode = c.canonicalCode(game.HomeTeamCode)
	game.AwayTeamCode = c.canonicalCode(game.AwayTeamCode)
}

func (c *Client) canonicalCode(code string) string {
	res, ok := teams.Resolve(code)
	if !ok {
		c.logger.Warn().Str("team", code).Msg("Unknown team code")
		return code
	}
	if res.Fuzzy {
		c.logger.Warn().Str("team", code).Str("resolved", res.Code).Msg("Fuzzy team match")
	}
	return res.Code
}

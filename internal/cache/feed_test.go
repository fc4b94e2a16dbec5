package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Projector/internal/feedtest"
	"github.com/Alias1177/Projector/models"
)

var day = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*miniredis.Miniredis, *feedtest.Feed, *CachedFeed) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	feed := feedtest.NewFeed()
	return mr, feed, NewCachedFeed(feed, client, Options{ScheduleTTL: time.Minute, FinalTTL: time.Hour})
}

func TestGamesOnDateCached(t *testing.T) {
	mr, feed, cached := setup(t)
	feed.SetGames(day, models.Game{GameID: "g1", HomeTeamCode: "BOS", AwayTeamCode: "NYK", StatusText: "7:00 PM ET"})

	for i := 0; i < 3; i++ {
		games, err := cached.GamesOnDate(context.Background(), day)
		require.NoError(t, err)
		require.Len(t, games, 1)
		assert.Equal(t, "g1", games[0].GameID)
	}
	assert.Equal(t, 1, feed.DateCalls(day))
	assert.Equal(t, time.Minute, mr.TTL("projector:feed:games:2025-12-01"))

	mr.FastForward(2 * time.Minute)
	_, err := cached.GamesOnDate(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 2, feed.DateCalls(day))
}

func TestFinalDayUsesLongTTL(t *testing.T) {
	mr, feed, cached := setup(t)
	feed.SetGames(day, models.Game{GameID: "g1", HomeTeamCode: "BOS", AwayTeamCode: "NYK", StatusText: "Final/OT"})

	_, err := cached.GamesOnDate(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("projector:feed:games:2025-12-01"))
}

func TestErrorsAreNotCached(t *testing.T) {
	mr, feed, cached := setup(t)
	feed.FailDate(day, models.ErrFeedUnavailable)

	_, err := cached.GamesOnDate(context.Background(), day)
	assert.True(t, errors.Is(err, models.ErrFeedUnavailable))
	assert.False(t, mr.Exists("projector:feed:games:2025-12-01"))

	feed.FailBoxScore("g1", models.ErrFeedUnavailable)
	_, err = cached.BoxScore(context.Background(), "g1")
	assert.Error(t, err)
}

func TestBoxScoreCached(t *testing.T) {
	_, feed, cached := setup(t)
	feed.SetBoxScore("g1", models.PlayerLine{PlayerName: "Jayson Tatum", TeamCode: "BOS", Stats: models.StatLine{models.StatPoints: 31}})

	for i := 0; i < 2; i++ {
		lines, err := cached.BoxScore(context.Background(), "g1")
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, 31.0, lines[0].Stats[models.StatPoints])
	}
	assert.Equal(t, 1, feed.BoxScoreCalls("g1"))
}

func TestRedisDownFallsThrough(t *testing.T) {
	mr, feed, cached := setup(t)
	feed.SetGames(day, models.Game{GameID: "g1", HomeTeamCode: "BOS", AwayTeamCode: "NYK"})
	mr.Close()

	games, err := cached.GamesOnDate(context.Background(), day)
	require.NoError(t, err)
	assert.Len(t, games, 1)
}

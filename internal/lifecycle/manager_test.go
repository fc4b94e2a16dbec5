package lifecycle

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Projector/internal/database"
	"github.com/Alias1177/Projector/internal/feedtest"
	"github.com/Alias1177/Projector/internal/keylock"
	"github.com/Alias1177/Projector/models"
)

var (
	gameDay = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	tipOff  = time.Date(2025, 12, 2, 0, 30, 0, 0, time.UTC)
)

type recorder struct {
	mu          sync.Mutex
	transitions []models.Transition
}

func (r *recorder) OnTransition(_ context.Context, t models.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
	return nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type fixture struct {
	store    *database.SQLStore
	feed     *feedtest.Feed
	clock    *clock
	recorder *recorder
	manager  *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "projections.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		store:    store,
		feed:     feedtest.NewFeed(),
		clock:    &clock{now: time.Date(2025, 12, 1, 18, 0, 0, 0, time.UTC)},
		recorder: &recorder{},
	}
	f.manager = NewManager(store, f.feed, Options{
		LiveWindow:  3 * time.Hour,
		FeedTimeout: time.Second,
		Locker:      keylock.NewLocal(),
		Listeners:   []Listener{f.recorder},
		Now:         f.clock.Now,
	})
	return f
}

func (f *fixture) save(t *testing.T, player, matchup string) models.Key {
	t.Helper()
	rec := &models.Record{
		Player:    player,
		GameDate:  gameDay,
		Matchup:   matchup,
		HomeAway:  models.Home,
		Status:    models.StatusUpcoming,
		Predicted: models.StatLine{models.StatPoints: 27.5, models.StatRebounds: 8.2, models.StatAssists: 4.9},
	}
	require.NoError(t, f.store.Save(context.Background(), rec))
	return rec.Key()
}

func (f *fixture) get(t *testing.T, key models.Key) models.Record {
	t.Helper()
	rec, err := f.store.Get(context.Background(), key)
	require.NoError(t, err)
	return rec
}

func (f *fixture) scan(t *testing.T) Report {
	t.Helper()
	report, err := f.manager.Scan(context.Background())
	require.NoError(t, err)
	return report
}

func bostonGame(status string) models.Game {
	return models.Game{
		GameID:       "g1",
		HomeTeamCode: "BOS",
		AwayTeamCode: "NYK",
		StatusText:   status,
		StartTimeUTC: tipOff,
	}
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	key := f.save(t, "Jayson Tatum", "NYK @ BOS")
	f.feed.SetGames(gameDay, bostonGame("7:30 pm ET"))

	report := f.scan(t)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, models.StatusUpcoming, f.get(t, key).Status)

	f.feed.SetStatus("g1", "3rd Qtr")
	report = f.scan(t)
	assert.Equal(t, 1, report.ToLive)
	live := f.get(t, key)
	assert.Equal(t, models.StatusLive, live.Status)
	assert.Equal(t, "g1", live.GameID)
	assert.True(t, live.StartTime.Equal(tipOff))
	assert.Nil(t, live.Actual)

	f.feed.SetStatus("g1", "Final")
	f.feed.SetBoxScore("g1",
		models.PlayerLine{PlayerName: "Jaylen Brown", TeamCode: "BOS", Stats: models.StatLine{models.StatPoints: 22}},
		models.PlayerLine{PlayerName: "Jayson Tatum", TeamCode: "BOS", Stats: models.StatLine{
			models.StatPoints: 31, models.StatRebounds: 9, models.StatAssists: 4, models.StatThrees: 5,
		}},
	)
	report = f.scan(t)
	assert.Equal(t, 1, report.ToCompleted)

	done := f.get(t, key)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, 31.0, done.Actual[models.StatPoints])
	assert.Equal(t, 44.0, done.Actual[models.StatPRA])
	assert.Equal(t, 13.0, done.Actual[models.StatRA])
	assert.InDelta(t, 27.5, done.Predicted[models.StatPoints], 1e-9)

	require.Len(t, f.recorder.transitions, 2)
	assert.Equal(t, models.StatusUpcoming, f.recorder.transitions[0].From)
	assert.Equal(t, models.StatusCompleted, f.recorder.transitions[1].To)

	// completed projections are left alone
	report = f.scan(t)
	assert.Equal(t, 0, report.Scanned)
	assert.Equal(t, done.Version, f.get(t, key).Version)
}

func TestStraightToCompleted(t *testing.T) {
	f := newFixture(t)
	key := f.save(t, "Jayson Tatum", "NYK @ BOS")
	f.feed.SetGames(gameDay, bostonGame("Final/OT"))
	f.feed.SetBoxScore("g1", models.PlayerLine{PlayerName: "jayson tatum", TeamCode: "BOS", Stats: models.StatLine{models.StatPoints: 40}})

	report := f.scan(t)
	assert.Equal(t, 1, report.ToCompleted)
	assert.Equal(t, 40.0, f.get(t, key).Actual[models.StatPoints])
}

func TestStatusNeverGoesBackwards(t *testing.T) {
	f := newFixture(t)
	key := f.save(t, "Jayson Tatum", "NYK @ BOS")
	f.feed.SetGames(gameDay, bostonGame("Halftime"))

	f.scan(t)
	require.Equal(t, models.StatusLive, f.get(t, key).Status)

	f.feed.SetStatus("g1", "7:30 pm ET")
	f.clock.now = tipOff.Add(-time.Hour)
	for i := 0; i < 3; i++ {
		report := f.scan(t)
		assert.Equal(t, 1, report.Unchanged)
		assert.Equal(t, models.StatusLive, f.get(t, key).Status)
	}
}

func TestLiveWindowFallbackWhenFeedUnavailable(t *testing.T) {
	f := newFixture(t)
	key := f.save(t, "Jayson Tatum", "NYK @ BOS")
	f.feed.SetGames(gameDay, bostonGame("7:30 pm ET"))
	f.scan(t) // captures nothing while upcoming

	_, err := f.store.Update(context.Background(), key, func(r *models.Record) error {
		r.StartTime = tipOff
		return nil
	})
	require.NoError(t, err)

	f.feed.FailDate(gameDay, models.ErrFeedUnavailable)

	f.clock.now = tipOff.Add(-time.Minute)
	report := f.scan(t)
	assert.Equal(t, 1, report.Failed(), "feed error outside the live window is a failure")
	assert.Equal(t, models.StatusUpcoming, f.get(t, key).Status)

	f.clock.now = tipOff.Add(time.Hour)
	report = f.scan(t)
	assert.Equal(t, 1, report.ToLive)
	assert.Equal(t, models.StatusLive, f.get(t, key).Status)
}

func TestLiveWindowWhenGameNotListed(t *testing.T) {
	f := newFixture(t)
	key := f.save(t, "Jayson Tatum", "NYK @ BOS")

	f.clock.now = tipOff.Add(time.Hour)
	report := f.scan(t)
	assert.Equal(t, 1, report.Unchanged, "no start time known")

	_, err := f.store.Update(context.Background(), key, func(r *models.Record) error {
		r.StartTime = tipOff
		return nil
	})
	require.NoError(t, err)

	report = f.scan(t)
	assert.Equal(t, 1, report.ToLive)
}

func TestBoxScoreFailureRetriesNextPass(t *testing.T) {
	f := newFixture(t)
	key := f.save(t, "Jayson Tatum", "NYK @ BOS")
	f.feed.SetGames(gameDay, bostonGame("Final"))
	f.feed.FailBoxScore("g1", models.ErrFeedUnavailable)

	report := f.scan(t)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, models.StatusUpcoming, f.get(t, key).Status)

	f.feed.FailBoxScore("g1", nil)
	f.feed.SetBoxScore("g1", models.PlayerLine{PlayerName: "Jayson Tatum", TeamCode: "BOS", Stats: models.StatLine{models.StatPoints: 31}})
	report = f.scan(t)
	assert.Equal(t, 1, report.ToCompleted)
	assert.Equal(t, 31.0, f.get(t, key).Actual[models.StatPoints])
}

func TestPlayerMissingFromBoxScore(t *testing.T) {
	f := newFixture(t)
	key := f.save(t, "Jayson Tatum", "NYK @ BOS")
	f.feed.SetGames(gameDay, bostonGame("Final"))
	f.feed.SetBoxScore("g1", models.PlayerLine{PlayerName: "Jaylen Brown", TeamCode: "BOS", Stats: models.StatLine{models.StatPoints: 22}})

	report := f.scan(t)
	assert.Equal(t, 1, report.ToCompleted)

	done := f.get(t, key)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Empty(t, done.Actual)
}

func TestMalformedMatchupIsIsolated(t *testing.T) {
	f := newFixture(t)
	bad := f.save(t, "Broken Record", "BOS vs NYK")
	good := f.save(t, "Jayson Tatum", "NYK @ BOS")
	f.feed.SetGames(gameDay, bostonGame("Q2 3:14"))

	report := f.scan(t)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Malformed)
	assert.Equal(t, 1, report.ToLive)
	require.Len(t, report.Failures, 1)
	assert.True(t, errors.Is(report.Failures[0].Err, models.ErrMalformedMatchup))

	assert.Equal(t, models.StatusUpcoming, f.get(t, bad).Status)
	assert.Equal(t, models.StatusLive, f.get(t, good).Status)
}

func TestAwayTeamLookup(t *testing.T) {
	f := newFixture(t)
	key := f.save(t, "Jalen Brunson", "BOS @ NYK")
	f.feed.SetGames(gameDay, bostonGame("3rd Qtr"))

	f.scan(t)
	assert.Equal(t, models.StatusLive, f.get(t, key).Status)
}

func TestDateFetchedOncePerPass(t *testing.T) {
	f := newFixture(t)
	f.save(t, "Jayson Tatum", "NYK @ BOS")
	f.save(t, "Jaylen Brown", "NYK @ BOS")
	f.save(t, "Jalen Brunson", "BOS @ NYK")
	f.feed.SetGames(gameDay, bostonGame("7:30 pm ET"))

	f.scan(t)
	assert.Equal(t, 1, f.feed.DateCalls(gameDay))

	f.scan(t)
	assert.Equal(t, 2, f.feed.DateCalls(gameDay))
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.save(t, "Jayson Tatum", "NYK @ BOS")
	f.feed.SetGames(gameDay, bostonGame("3rd Qtr"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.manager.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		recs, err := f.store.Find(context.Background(), database.Filter{Statuses: []models.Status{models.StatusLive}})
		return err == nil && len(recs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

type recordingLocker struct {
	mu   sync.Mutex
	keys []string
	next keylock.Locker
}

func (l *recordingLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	return l.next.Lock(ctx, key)
}

func TestLockKeyMatchesStoreIdentity(t *testing.T) {
	assert.Equal(t, lockKey(models.NewKey("Nikola Jokić", gameDay)), lockKey(models.NewKey("  nikola jokic ", gameDay)))
	assert.NotEqual(t, lockKey(models.NewKey("Nikola Jokić", gameDay)), lockKey(models.NewKey("Nikola Jokić", gameDay.AddDate(0, 0, 1))))

	f := newFixture(t)
	locker := &recordingLocker{next: keylock.NewLocal()}
	f.manager = NewManager(f.store, f.feed, Options{
		LiveWindow:  3 * time.Hour,
		FeedTimeout: time.Second,
		Locker:      locker,
		Now:         f.clock.Now,
	})

	f.save(t, "Nikola Jokić", "NYK @ BOS")
	f.feed.SetGames(gameDay, bostonGame("2nd Qtr"))
	f.scan(t)

	require.Len(t, locker.keys, 1)
	assert.Equal(t, "nikola jokic|2025-12-01", locker.keys[0])
}

type stalledListener struct{}

func (stalledListener) OnTransition(ctx context.Context, _ models.Transition) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestStalledListenerDoesNotBlockPass(t *testing.T) {
	f := newFixture(t)
	f.manager = NewManager(f.store, f.feed, Options{
		LiveWindow:  3 * time.Hour,
		FeedTimeout: 100 * time.Millisecond,
		Listeners:   []Listener{stalledListener{}, f.recorder},
		Now:         f.clock.Now,
	})

	key := f.save(t, "Jayson Tatum", "NYK @ BOS")
	f.feed.SetGames(gameDay, bostonGame("3rd Qtr"))

	start := time.Now()
	report := f.scan(t)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, report.ToLive)
	assert.Equal(t, models.StatusLive, f.get(t, key).Status)
	assert.Len(t, f.recorder.transitions, 1, "later listeners still run")
}

package nbastats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Projector/models"
)

const playersJSON = `{"resultSets":[{"name":"CommonAllPlayers",
 "headers":["PERSON_ID","DISPLAY_LAST_COMMA_FIRST","DISPLAY_FIRST_LAST","ROSTERSTATUS","TEAM_ABBREVIATION"],
 "rowSet":[
  [1629029,"Dončić, Luka","Luka Dončić",1,"LAL"],
  [1628369,"Tatum, Jayson","Jayson Tatum",1,"BOS"],
  [1630178,"Maxey, Tyrese","Tyrese Maxey",1,"PHI"]
 ]}]}`

const gameLogJSON = `{"resultSets":[{"name":"PlayerGameLog",
 "headers":["SEASON_ID","Player_ID","Game_ID","GAME_DATE","MATCHUP","WL","MIN","FG3M","REB","AST","STL","BLK","TOV","PTS"],
 "rowSet":[
  ["22025",1628369,"0022500103","OCT 26, 2025","BOS vs. NYK","W",36,4,9,6,1,0,2,31],
  ["22025",1628369,"0022500051","OCT 24, 2025","BOS @ PHI","L",38,2,11,4,2,1,3,27],
  ["22025",1628369,"0022500010","OCT 22, 2025","BOS @ NYK","W",35,3,8,5,1,1,4,25]
 ]}]}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/commonallplayers", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stats", r.Header.Get("x-nba-stats-origin"))
		_, _ = w.Write([]byte(playersJSON))
	})
	mux.HandleFunc("/playergamelog", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("Season") != "2025-26" {
			_, _ = w.Write([]byte(`{"resultSets":[{"headers":["GAME_DATE"],"rowSet":[]}]}`))
			return
		}
		_, _ = w.Write([]byte(gameLogJSON))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(baseURL string) *Client {
	return NewClient(ClientOptions{BaseURL: baseURL, Season: "2025-26", RequestTimeout: 2 * time.Second, RequestsPerSec: 50})
}

func TestLookupPlayer(t *testing.T) {
	client := newTestClient(newTestServer(t).URL)

	p, err := client.LookupPlayer(context.Background(), "luka doncic")
	require.NoError(t, err)
	assert.Equal(t, "1629029", p.ID)
	assert.Equal(t, "LAL", p.TeamCode)

	p, err = client.LookupPlayer(context.Background(), "Maxey")
	require.NoError(t, err)
	assert.Equal(t, "Tyrese Maxey", p.Name)

	_, err = client.LookupPlayer(context.Background(), "Michael Jordan")
	assert.True(t, errors.Is(err, models.ErrPlayerNotFound))
}

func TestHistory(t *testing.T) {
	client := newTestClient(newTestServer(t).URL)
	player := models.Player{ID: "1628369", Name: "Jayson Tatum", TeamCode: "BOS"}

	lines, err := client.History(context.Background(), player, "2025-26")
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, "2025-10-22", models.FormatDate(lines[0].Date))
	assert.Equal(t, "2025-10-26", models.FormatDate(lines[2].Date))
	assert.Equal(t, 25.0, lines[0].Stats[models.StatPoints])
	assert.Equal(t, 38.0, lines[0].Stats[models.StatPRA])
	assert.Equal(t, 4.0, lines[0].Stats[models.StatTurnovers])
	assert.Equal(t, "BOS", lines[1].TeamCode)
	assert.Equal(t, "0022500103", lines[2].GameID)

	empty, err := client.History(context.Background(), player, "2024-25")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHistoryUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).History(context.Background(), models.Player{ID: "1"}, "2025-26")
	assert.True(t, errors.Is(err, models.ErrFeedUnavailable))
}

func TestParseGameDate(t *testing.T) {
	for _, in := range []string{"OCT 22, 2025", "Oct 22, 2025", "2025-10-22T00:00:00", "2025-10-22"} {
		got, err := parseGameDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, "2025-10-22", models.FormatDate(got), in)
	}
}

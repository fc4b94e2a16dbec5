package csvtable

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Projector/models"
)

func TestWriteThenRead(t *testing.T) {
	created := time.Date(2025, 11, 30, 18, 4, 5, 0, time.UTC)
	records := []models.Record{
		{
			Player:    "Jayson Tatum",
			GameDate:  time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			Matchup:   "NYK @ BOS",
			HomeAway:  models.Home,
			CreatedAt: created,
			Status:    models.StatusCompleted,
			Predicted: models.StatLine{models.StatPoints: 27.5, models.StatPRA: 41.2},
			Actual:    models.StatLine{models.StatPoints: 31, models.StatPRA: 44},
		},
		{
			Player:    "Jalen Brunson",
			GameDate:  time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC),
			Matchup:   "NYK @ BOS",
			HomeAway:  models.Away,
			CreatedAt: created,
			Status:    models.StatusUpcoming,
			Predicted: models.StatLine{models.StatPoints: 26},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records))

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.True(t, strings.HasPrefix(header, "timestamp,player,gameDate,opponent,homeAway,status,PTS,"))
	assert.Contains(t, header, ",actual_PTS,")

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Jayson Tatum", got[0].Player)
	assert.Equal(t, "2025-12-01", models.FormatDate(got[0].GameDate))
	assert.Equal(t, models.Home, got[0].HomeAway)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.True(t, records[0].Predicted.Equal(got[0].Predicted))
	assert.True(t, records[0].Actual.Equal(got[0].Actual))

	assert.Equal(t, models.StatusUpcoming, got[1].Status)
	assert.Nil(t, got[1].Actual)
}

func TestReadLegacyHeaders(t *testing.T) {
	input := "timestamp,player,game_date,opponent,home_away,PTS,REB,status,PTS_actual,REB_actual\n" +
		"2025-11-30 18:04:05.123456,LeBron James,2025-12-01,LAL @ PHX,Away,25.1,7.9,completed,30,\n" +
		"2025-11-30 18:05:00,Anthony Davis,2025-12-01,LAL @ PHX,Away,24,11,upcoming,,\n"

	got, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, models.StatusCompleted, got[0].Status)
	assert.Equal(t, models.StatLine{models.StatPoints: 30}, got[0].Actual)
	assert.Equal(t, models.StatLine{models.StatPoints: 25.1, models.StatRebounds: 7.9}, got[0].Predicted)
	assert.Equal(t, models.Away, got[0].HomeAway)

	assert.Nil(t, got[1].Actual)
}

func TestReadWithoutStatusOrActualColumns(t *testing.T) {
	input := "player,gameDate,opponent,homeAway,PTS\nJayson Tatum,2025-12-01,NYK @ BOS,Home,27.5\n"

	got, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.StatusUpcoming, got[0].Status)
	assert.Nil(t, got[0].Actual)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader("player,opponent\nX,NYK @ BOS\n"))
	assert.ErrorContains(t, err, "gameDate")

	_, err = Read(strings.NewReader("player,gameDate,PTS\nX,2025-12-01,12\n"))
	assert.ErrorContains(t, err, "homeAway")

	_, err = Read(strings.NewReader("player,gameDate,homeAway,PTS\nX,2025-12-01,Home,lots\n"))
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 2, rowErr.Line)

	_, err = Read(strings.NewReader("player,gameDate,opponent,homeAway\nX,2025-12-01,BOS @ NYK,\nY,2025-12-01,BOS @ NYK,Away\n"))
	require.True(t, errors.As(err, &rowErr), "blank home/away is rejected")
	assert.Equal(t, 2, rowErr.Line)

	got, err := Read(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, got)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Projector/internal/accuracy"
	"github.com/Alias1177/Projector/internal/database"
	"github.com/Alias1177/Projector/internal/lifecycle"
	"github.com/Alias1177/Projector/models"
)

type stubScanner struct {
	report lifecycle.Report
	err    error
	calls  int
}

func (s *stubScanner) Scan(context.Context) (lifecycle.Report, error) {
	s.calls++
	return s.report, s.err
}

func newTestServer(t *testing.T, scanner Scanner) (*httptest.Server, *database.SQLStore) {
	t.Helper()
	store, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	day := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	seed := []*models.Record{
		{Player: "Jayson Tatum", GameDate: day, Matchup: "NYK @ BOS", HomeAway: models.Home,
			Status: models.StatusCompleted,
			Predicted: models.StatLine{models.StatPoints: 27.5, models.StatPRA: 40},
			Actual:    models.StatLine{models.StatPoints: 31, models.StatPRA: 44}},
		{Player: "Jalen Brunson", GameDate: day, Matchup: "BOS @ NYK", HomeAway: models.Away,
			Status: models.StatusUpcoming, Predicted: models.StatLine{models.StatPoints: 26}},
	}
	for _, rec := range seed {
		require.NoError(t, store.Save(context.Background(), rec))
	}

	server := httptest.NewServer(NewRouter(NewHandler(store, store, scanner), []string{"*"}))
	t.Cleanup(server.Close)
	return server, store
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealthCheck(t *testing.T) {
	server, _ := newTestServer(t, nil)

	var body map[string]interface{}
	assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/health", &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestGetProjections(t *testing.T) {
	server, _ := newTestServer(t, nil)

	var all struct {
		Projections []models.Record `json:"projections"`
		Count       int             `json:"count"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/v1/projections", &all))
	assert.Equal(t, 2, all.Count)

	var filtered struct {
		Projections []models.Record `json:"projections"`
	}
	getJSON(t, server.URL+"/api/v1/projections?status=upcoming,live", &filtered)
	require.Len(t, filtered.Projections, 1)
	assert.Equal(t, "Jalen Brunson", filtered.Projections[0].Player)

	getJSON(t, server.URL+"/api/v1/projections?player=jayson%20tatum", &filtered)
	require.Len(t, filtered.Projections, 1)
	assert.Equal(t, models.StatusCompleted, filtered.Projections[0].Status)
	assert.Equal(t, 31.0, filtered.Projections[0].Actual[models.StatPoints])

	var errBody ErrorResponse
	assert.Equal(t, http.StatusBadRequest, getJSON(t, server.URL+"/api/v1/projections?status=postponed", &errBody))
	assert.Equal(t, http.StatusBadRequest, errBody.Code)
}

func TestGetAccuracy(t *testing.T) {
	server, _ := newTestServer(t, nil)

	var report accuracy.Report
	assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/v1/projections/accuracy", &report))
	assert.Equal(t, 1, report.Completed)

	pra, ok := report.Headline()
	require.True(t, ok)
	assert.InDelta(t, 4.0, pra.MAE, 1e-9)
}

func TestPostScan(t *testing.T) {
	scanner := &stubScanner{report: lifecycle.Report{
		PassID:  "pass-1",
		Scanned: 2,
		ToLive:  1,
		Failures: []lifecycle.Failure{{
			Key: models.NewKey("Jalen Brunson", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)),
			Err: models.ErrFeedUnavailable,
		}},
	}}
	server, _ := newTestServer(t, scanner)

	resp, err := http.Post(server.URL+"/api/v1/scan", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body scanResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, scanner.calls)
	assert.Equal(t, "pass-1", body.PassID)
	assert.Equal(t, 1, body.ToLive)
	require.Len(t, body.Failures, 1)
	assert.Equal(t, "2025-12-01", body.Failures[0].GameDate)
	assert.Equal(t, "feed unavailable", body.Failures[0].Error)
}

func TestPostScanErrors(t *testing.T) {
	server, _ := newTestServer(t, &stubScanner{err: models.ErrCorruptState})

	resp, err := http.Post(server.URL+"/api/v1/scan", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	disabled, _ := newTestServer(t, nil)
	resp, err = http.Post(disabled.URL+"/api/v1/scan", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestScanResponseHandlesNilSlices(t *testing.T) {
	resp := newScanResponse(lifecycle.Report{})
	assert.NotNil(t, resp.Failures)
	assert.NotNil(t, resp.Transitions)
}

package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(ClientOptions{
		Timeout:         2 * time.Second,
		RequestsPerSec:  100,
		MaxRetries:      3,
		MaxRetryTimeout: 2 * time.Second,
		Headers:         map[string]string{"User-Agent": "projector-test"},
	})
}

func TestGetJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "projector-test", r.Header.Get("User-Agent"))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := newTestClient().GetJSON(context.Background(), server.URL, &out)

	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	var out map[string]interface{}
	err := newTestClient().GetJSON(context.Background(), server.URL, &out)

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetJSONHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out map[string]interface{}
	err := newTestClient().GetJSON(ctx, server.URL, &out)
	assert.Error(t, err)
}

func TestHTTPStatusErrorTemporary(t *testing.T) {
	assert.True(t, (&HTTPStatusError{StatusCode: 429}).Temporary())
	assert.True(t, (&HTTPStatusError{StatusCode: 503}).Temporary())
	assert.False(t, (&HTTPStatusError{StatusCode: 400}).Temporary())
}

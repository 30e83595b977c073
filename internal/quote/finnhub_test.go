package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leeaandrob/knowledgeworker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFinnhubServer(t *testing.T, status int, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.Header.Get("X-Finnhub-Token"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFinnhubNoKeyUsesDemo(t *testing.T) {
	var hits atomic.Int32
	srv := newFinnhubServer(t, http.StatusOK, `{}`, &hits)
	client := NewFinnhubClient(Config{BaseURL: srv.URL})

	snap, err := client.Fetch(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, NoCredentialSnapshot("AAPL"), snap)
	assert.Equal(t, int32(0), hits.Load())
}

func TestFinnhubLiveQuote(t *testing.T) {
	srv := newFinnhubServer(t, http.StatusOK,
		`{"c":150.25,"d":1.75,"dp":1.18,"h":152.3,"l":148.75,"o":149,"pc":148.5,"t":1757174400}`, nil)
	client := NewFinnhubClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	client.now = func() time.Time { return time.Date(2025, 9, 9, 9, 0, 0, 0, time.UTC) }

	snap, err := client.Fetch(context.Background(), " aapl ")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", snap.Symbol)
	assert.Equal(t, models.ModeLive, snap.Mode)
	assert.Equal(t, 150.25, snap.Price)
	require.NotNil(t, snap.PreviousClose)
	assert.Equal(t, 148.5, *snap.PreviousClose)
	require.NotNil(t, snap.High)
	assert.Equal(t, 152.3, *snap.High)
	assert.Nil(t, snap.Volume)
	assert.Equal(t, "2025-09-06", snap.Timestamp, "quote time from the provider, not the fetch time")
	assert.Equal(t, 1.75, snap.Change())
}

func TestFinnhubMissingQuoteTimeUsesFetchTime(t *testing.T) {
	srv := newFinnhubServer(t, http.StatusOK, `{"c":150.25,"pc":148.5}`, nil)
	client := NewFinnhubClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	client.now = func() time.Time { return time.Date(2025, 9, 9, 9, 0, 0, 0, time.UTC) }

	snap, err := client.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "2025-09-09", snap.Timestamp)
}

func TestFinnhubMalformedBody(t *testing.T) {
	srv := newFinnhubServer(t, http.StatusOK, `{"c":"not-a-number"`, nil)
	client := NewFinnhubClient(Config{APIKey: "test-key", BaseURL: srv.URL})

	snap, err := client.Fetch(context.Background(), "AAPL")
	assert.Nil(t, snap)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "body", parseErr.Field)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestFinnhubUnknownSymbolUsesDemo(t *testing.T) {
	srv := newFinnhubServer(t, http.StatusOK, `{"c":0,"d":null,"dp":null,"h":0,"l":0,"o":0,"pc":0,"t":0}`, nil)
	client := NewFinnhubClient(Config{APIKey: "test-key", BaseURL: srv.URL})

	snap, err := client.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, EmptyPayloadSnapshot("AAPL"), snap)
}

func TestFinnhubErrorStatus(t *testing.T) {
	srv := newFinnhubServer(t, http.StatusInternalServerError, `{"error":"boom"}`, nil)
	client := NewFinnhubClient(Config{APIKey: "test-key", BaseURL: srv.URL})

	snap, err := client.Fetch(context.Background(), "AAPL")
	assert.Nil(t, snap)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "500")
}

func TestFinnhubUnreachable(t *testing.T) {
	client := NewFinnhubClient(Config{APIKey: "test-key", BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	_, err := client.Fetch(context.Background(), "AAPL")
	require.ErrorIs(t, err, ErrUnavailable)
}

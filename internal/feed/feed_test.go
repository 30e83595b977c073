package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>"AI" - Google News</title>
  <item>
    <title>First headline</title>
    <link>https://example.com/1</link>
    <description>First description</description>
  </item>
  <item>
    <title>Second headline</title>
    <link>https://example.com/2</link>
  </item>
  <item>
    <title>Third headline</title>
    <link>https://example.com/3</link>
    <description>Third description</description>
  </item>
</channel>
</rss>`

func newFeedServer(t *testing.T, status int, body string, seen *url.Values) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = r.URL.Query()
		}
		if r.URL.Path != searchPath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchURL(t *testing.T) {
	f := NewFetcher("https://news.example.com/", 0)
	assert.Equal(t, "https://news.example.com/rss/search?hl=en&q=machine+learning", f.SearchURL("machine learning", "en"))
	assert.Equal(t, "https://news.example.com/rss/search?q=AI", f.SearchURL("AI", ""))
}

func TestFetchPreservesOrderAndLimit(t *testing.T) {
	var seen url.Values
	srv := newFeedServer(t, http.StatusOK, sampleRSS, &seen)

	items := NewFetcher(srv.URL, time.Second).Fetch(context.Background(), "AI", "en", 2)

	require.Len(t, items, 2)
	assert.Equal(t, "AI", seen.Get("q"))
	assert.Equal(t, "en", seen.Get("hl"))

	assert.Equal(t, "First headline", items[0].Title)
	require.NotNil(t, items[0].Description)
	assert.Equal(t, "First description", *items[0].Description)
	require.NotNil(t, items[0].URL)
	assert.Equal(t, "https://example.com/1", *items[0].URL)

	assert.Equal(t, "Second headline", items[1].Title)
	assert.Nil(t, items[1].Description)
}

func TestFetchAllWhenLimitExceedsEntries(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, sampleRSS, nil)

	items := NewFetcher(srv.URL, time.Second).Fetch(context.Background(), "AI", "en", 10)

	require.Len(t, items, 3)
	assert.Equal(t, "Third headline", items[2].Title)
}

func TestFetchFailuresYieldEmpty(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := newFeedServer(t, http.StatusInternalServerError, "boom", nil)
		items := NewFetcher(srv.URL, time.Second).Fetch(context.Background(), "AI", "en", 5)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := newFeedServer(t, http.StatusOK, "this is not a feed", nil)
		items := NewFetcher(srv.URL, time.Second).Fetch(context.Background(), "AI", "en", 5)
		assert.Empty(t, items)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := newFeedServer(t, http.StatusOK, sampleRSS, nil)
		srv.Close()
		items := NewFetcher(srv.URL, time.Second).Fetch(context.Background(), "AI", "en", 5)
		assert.Empty(t, items)
	})

	t.Run("zero limit", func(t *testing.T) {
		items := NewFetcher("http://127.0.0.1:1", time.Second).Fetch(context.Background(), "AI", "en", 0)
		assert.Empty(t, items)
	})
}

func TestFetchEmptyFeed(t *testing.T) {
	srv := newFeedServer(t, http.StatusOK, `<?xml version="1.0"?><rss version="2.0"><channel><title>none</title></channel></rss>`, nil)

	items := NewFetcher(srv.URL, time.Second).Fetch(context.Background(), "nothing", "en", 5)

	assert.NotNil(t, items)
	assert.Empty(t, items)
}

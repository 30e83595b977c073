package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/leeaandrob/knowledgeworker/internal/config"
	"github.com/leeaandrob/knowledgeworker/internal/models"
	"github.com/leeaandrob/knowledgeworker/internal/pipeline"
	"github.com/leeaandrob/knowledgeworker/internal/quote"
	"github.com/leeaandrob/knowledgeworker/internal/scheduler"
	"github.com/leeaandrob/knowledgeworker/internal/summarize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>search</title>
<item><title>Chips rally</title><link>https://example.com/a</link><description>Semiconductor stocks rose</description></item>
<item><title>Model release</title><link>https://example.com/b</link></item>
</channel></rss>`

type memoryStore struct {
	mu     sync.Mutex
	news   []models.IngestionRecord
	quotes []models.QuoteRecord
}

func (m *memoryStore) AppendNews(_ context.Context, runID, query string, items []models.ContentItem, summary models.SummaryResult) (*models.IngestionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := models.IngestionRecord{ID: primitive.NewObjectID(), RunID: runID, Query: query, Items: items, Summary: summary}
	m.news = append(m.news, rec)
	return &rec, nil
}

func (m *memoryStore) AppendQuote(_ context.Context, runID, symbol string, snapshot models.QuoteSnapshot, change float64) (*models.QuoteRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := models.QuoteRecord{ID: primitive.NewObjectID(), RunID: runID, Symbol: symbol, Quote: snapshot, Change: change, Mode: snapshot.Mode}
	m.quotes = append(m.quotes, rec)
	return &rec, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Summarizer:       config.SummarizerHuggingFace,
		QuoteProvider:    config.QuoteAlphaVantage,
		HuggingFaceModel: "facebook/bart-large-cnn",
		SummaryMaxInput:  1000,
		SummaryMinLength: 50,
		SummaryTimeout:   5 * time.Second,
		ChunkSize:        800,
		WordBudget:       1500,
		NewsQuery:        "AI",
		NewsLanguage:     "en",
		NewsLimit:        5,
		QuoteSymbol:      "AAPL",
		NewsInterval:     6 * time.Hour,
		QuoteHour:        16,
		JobTimeout:       time.Minute,
		FeedTimeout:      5 * time.Second,
		QuoteTimeout:     5 * time.Second,
	}
}

func TestNewSummarizer(t *testing.T) {
	cfg := testConfig()

	s, err := NewSummarizer(cfg)
	require.NoError(t, err)
	assert.IsType(t, &summarize.HuggingFaceClient{}, s)

	cfg.Summarizer = config.SummarizerOpenAI
	s, err = NewSummarizer(cfg)
	require.NoError(t, err)
	assert.IsType(t, &summarize.OpenAIClient{}, s)

	cfg.Summarizer = "markov"
	_, err = NewSummarizer(cfg)
	require.Error(t, err)
}

func TestOpenAISummarizerCapsInput(t *testing.T) {
	var userMessage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.Messages, 2) {
			userMessage = req.Messages[1].Content
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"short"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Summarizer = config.SummarizerOpenAI
	cfg.OpenAIAPIKey = "test-key"
	cfg.OpenAIEndpoint = srv.URL
	cfg.SummaryMaxInput = 1000

	s, err := NewSummarizer(cfg)
	require.NoError(t, err)

	out, err := s.Summarize(context.Background(), strings.Repeat("x", 50000), 100)
	require.NoError(t, err)
	assert.Equal(t, "short", out)

	prefix := "Summarize in at most 100 words:\n\n"
	require.True(t, strings.HasPrefix(userMessage, prefix))
	assert.Len(t, []rune(strings.TrimPrefix(userMessage, prefix)), 1000)
}

func TestNewQuoteFetcher(t *testing.T) {
	cfg := testConfig()

	q, err := NewQuoteFetcher(cfg)
	require.NoError(t, err)
	assert.IsType(t, &quote.Client{}, q)

	cfg.QuoteProvider = config.QuoteFinnhub
	q, err = NewQuoteFetcher(cfg)
	require.NoError(t, err)
	assert.IsType(t, &quote.FinnhubClient{}, q)

	cfg.QuoteProvider = "yahoo"
	_, err = NewQuoteFetcher(cfg)
	require.Error(t, err)
}

func TestPipelineEndToEnd(t *testing.T) {
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rss/search", r.URL.Path)
		assert.Equal(t, "AI", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssBody))
	}))
	defer feedSrv.Close()

	hfSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/facebook/bart-large-cnn", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"summary_text":"Chip stocks rallied after a model release."}]`))
	}))
	defer hfSrv.Close()

	cfg := testConfig()
	cfg.FeedURL = feedSrv.URL
	cfg.HuggingFaceURL = hfSrv.URL

	store := &memoryStore{}
	p, reducer, err := NewPipeline(cfg, store)
	require.NoError(t, err)
	require.NotNil(t, reducer)

	news, err := p.RunDefaultNews(context.Background())
	require.NoError(t, err)
	require.Len(t, news.Items, 2)
	assert.Equal(t, "Chips rally", news.Items[0].Title)
	assert.Equal(t, "Chip stocks rallied after a model release.", news.Summary.Text)

	// no Alpha Vantage key: deterministic demo snapshot
	q, err := p.RunDefaultQuote(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ModeDemo, q.Record.Mode)
	assert.Equal(t, 1.75, q.Change)
	assert.Equal(t, models.TrendUp, q.Trend)

	require.Len(t, store.news, 1)
	require.Len(t, store.quotes, 1)
}

type fakeRunner struct {
	mu    sync.Mutex
	news  int
	quote int
}

func (f *fakeRunner) RunDefaultNews(context.Context) (*pipeline.NewsResult, error) {
	f.mu.Lock()
	f.news++
	f.mu.Unlock()
	return &pipeline.NewsResult{}, nil
}

func (f *fakeRunner) RunDefaultQuote(context.Context) (*pipeline.QuoteResult, error) {
	f.mu.Lock()
	f.quote++
	f.mu.Unlock()
	return &pipeline.QuoteResult{}, nil
}

func (f *fakeRunner) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.news, f.quote
}

func TestRegisterJobs(t *testing.T) {
	sched := scheduler.NewScheduler()
	defer sched.Stop()
	runner := &fakeRunner{}

	require.NoError(t, RegisterJobs(sched, runner, testConfig()))

	status := sched.GetJobStatus()
	require.Len(t, status, 2)
	assert.Equal(t, NewsJob, status[0].Name)
	assert.Equal(t, "every 6h0m0s", status[0].Schedule)
	assert.Equal(t, QuoteJob, status[1].Name)
	assert.Equal(t, "daily 16:00 UTC", status[1].Schedule)

	require.NoError(t, sched.RunJobNow(NewsJob))
	require.NoError(t, sched.RunJobNow(QuoteJob))

	require.Eventually(t, func() bool {
		n, q := runner.counts()
		return n == 1 && q == 1
	}, time.Second, 5*time.Millisecond)
}

func TestRegisterJobsQuoteTimeZone(t *testing.T) {
	now := time.Date(2025, 9, 5, 12, 0, 0, 0, time.UTC)
	sched := scheduler.NewScheduler(scheduler.WithClock(func() time.Time { return now }))
	defer sched.Stop()

	cfg := testConfig()
	cfg.QuoteTZ = "America/New_York"
	require.NoError(t, RegisterJobs(sched, &fakeRunner{}, cfg))

	status := sched.GetJobStatus()
	require.Len(t, status, 2)
	assert.Equal(t, "daily 16:00 America/New_York", status[1].Schedule)
	// 16:00 EDT
	assert.Equal(t, time.Date(2025, 9, 5, 20, 0, 0, 0, time.UTC), status[1].NextRun)

	cfg.QuoteTZ = "Mars/Olympus"
	require.Error(t, RegisterJobs(scheduler.NewScheduler(), &fakeRunner{}, cfg))
}

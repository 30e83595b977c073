// Package pipeline composes fetch, reduce and persist steps into the news and
// quote pipelines. The same entry points serve manual triggers and scheduled jobs.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leeaandrob/knowledgeworker/internal/models"
	"github.com/rs/zerolog/log"
)

// NewsFetcher retrieves content items for a query.
type NewsFetcher interface {
	Fetch(ctx context.Context, query, language string, limit int) []models.ContentItem
}

// QuoteFetcher retrieves a quote snapshot for a symbol.
type QuoteFetcher interface {
	Fetch(ctx context.Context, symbol string) (*models.QuoteSnapshot, error)
}

// TextReducer reduces text to a bounded summary.
type TextReducer interface {
	Reduce(ctx context.Context, text string, wordBudget int) models.SummaryResult
}

// RecordStore persists pipeline output.
type RecordStore interface {
	AppendNews(ctx context.Context, runID, query string, items []models.ContentItem, summary models.SummaryResult) (*models.IngestionRecord, error)
	AppendQuote(ctx context.Context, runID, symbol string, snapshot models.QuoteSnapshot, change float64) (*models.QuoteRecord, error)
}

// Defaults are the parameters of the zero-argument pipeline invocations.
type Defaults struct {
	Query      string
	Language   string
	Limit      int
	Symbol     string
	WordBudget int
}

// DefaultDefaults returns the stock pipeline defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Query:      "AI",
		Language:   "en",
		Limit:      5,
		Symbol:     "AAPL",
		WordBudget: 1500,
	}
}

// Pipeline runs the news and quote pipelines.
type Pipeline struct {
	news     NewsFetcher
	quotes   QuoteFetcher
	reducer  TextReducer
	store    RecordStore
	defaults Defaults
}

// New creates a pipeline. Zero fields in defaults take the stock values.
func New(news NewsFetcher, quotes QuoteFetcher, reducer TextReducer, store RecordStore, defaults Defaults) *Pipeline {
	stock := DefaultDefaults()
	if defaults.Query == "" {
		defaults.Query = stock.Query
	}
	if defaults.Language == "" {
		defaults.Language = stock.Language
	}
	if defaults.Limit <= 0 {
		defaults.Limit = stock.Limit
	}
	if defaults.Symbol == "" {
		defaults.Symbol = stock.Symbol
	}
	if defaults.WordBudget <= 0 {
		defaults.WordBudget = stock.WordBudget
	}

	return &Pipeline{
		news:     news,
		quotes:   quotes,
		reducer:  reducer,
		store:    store,
		defaults: defaults,
	}
}

// Defaults returns the parameters used by the default invocations.
func (p *Pipeline) Defaults() Defaults {
	return p.defaults
}

// NewsRequest selects what the news pipeline ingests.
type NewsRequest struct {
	Query    string
	Language string
	Limit    int
}

// NewsResult is the outcome of one news pipeline run.
type NewsResult struct {
	Record  *models.IngestionRecord
	Items   []models.ContentItem
	Summary models.SummaryResult
}

// QuoteResult is the outcome of one quote pipeline run.
type QuoteResult struct {
	Snapshot models.QuoteSnapshot
	Change   float64
	Trend    models.Trend
	Record   *models.QuoteRecord
}

// News fetches items, reduces them into a summary and persists the batch.
// Fetch and summarization failures degrade; only persistence can fail the run.
func (p *Pipeline) News(ctx context.Context, req NewsRequest) (*NewsResult, error) {
	if req.Language == "" {
		req.Language = p.defaults.Language
	}
	if req.Limit <= 0 {
		req.Limit = p.defaults.Limit
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, newError(ErrorInvalidInput, "query is required", nil)
	}

	runID := uuid.NewString()
	start := time.Now()

	items := p.news.Fetch(ctx, req.Query, req.Language, req.Limit)
	summary := p.reducer.Reduce(ctx, models.FullText(items), p.defaults.WordBudget)

	record, err := p.store.AppendNews(ctx, runID, req.Query, items, summary)
	if err != nil {
		return nil, newError(ErrorPersistence, "saving news records", err)
	}

	log.Info().
		Str("run_id", runID).
		Str("query", req.Query).
		Int("items", len(items)).
		Int("source_words", summary.SourceWordCount).
		Dur("took", time.Since(start)).
		Msg("News pipeline completed")

	return &NewsResult{
		Record:  record,
		Items:   record.Items,
		Summary: record.Summary,
	}, nil
}

// Quote fetches a snapshot, derives change and trend and persists it.
// An unavailable provider fails the run without persisting anything.
func (p *Pipeline) Quote(ctx context.Context, symbol string) (*QuoteResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, newError(ErrorInvalidInput, "symbol is required", nil)
	}

	runID := uuid.NewString()

	snapshot, err := p.quotes.Fetch(ctx, symbol)
	if err != nil {
		return nil, newError(ErrorSourceUnavailable, "stock not found or API error", err)
	}
	if snapshot == nil {
		return nil, newError(ErrorSourceUnavailable, "stock not found or API error", nil)
	}

	snap := *snapshot
	snap.Symbol = symbol

	change := snap.Change()
	trend := models.TrendOf(change)

	record, err := p.store.AppendQuote(ctx, runID, symbol, snap, change)
	if err != nil {
		return nil, newError(ErrorPersistence, "saving stock record", err)
	}

	log.Info().
		Str("run_id", runID).
		Str("symbol", symbol).
		Str("mode", string(snap.Mode)).
		Float64("change", change).
		Str("trend", string(trend)).
		Msg("Quote pipeline completed")

	return &QuoteResult{
		Snapshot: snap,
		Change:   change,
		Trend:    trend,
		Record:   record,
	}, nil
}

// RunDefaultNews runs the news pipeline with the configured defaults.
func (p *Pipeline) RunDefaultNews(ctx context.Context) (*NewsResult, error) {
	return p.News(ctx, NewsRequest{
		Query:    p.defaults.Query,
		Language: p.defaults.Language,
		Limit:    p.defaults.Limit,
	})
}

// RunDefaultQuote runs the quote pipeline for the configured symbol.
func (p *Pipeline) RunDefaultQuote(ctx context.Context) (*QuoteResult, error) {
	return p.Quote(ctx, p.defaults.Symbol)
}

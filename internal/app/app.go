// Package app wires configuration into the pipeline components shared by the
// server and the one-shot CLI.
package app

import (
	"context"
	"fmt"

	"github.com/leeaandrob/knowledgeworker/internal/config"
	"github.com/leeaandrob/knowledgeworker/internal/feed"
	"github.com/leeaandrob/knowledgeworker/internal/pipeline"
	"github.com/leeaandrob/knowledgeworker/internal/quote"
	"github.com/leeaandrob/knowledgeworker/internal/reduce"
	"github.com/leeaandrob/knowledgeworker/internal/scheduler"
	"github.com/leeaandrob/knowledgeworker/internal/storage"
	"github.com/leeaandrob/knowledgeworker/internal/summarize"
	"github.com/rs/zerolog/log"
)

// Job names registered with the scheduler.
const (
	NewsJob  = "news_job"
	QuoteJob = "quote_job"
)

// Components are the constructed pipeline parts.
type Components struct {
	Store    *storage.Store
	Reducer  *reduce.Reducer
	Pipeline *pipeline.Pipeline
}

// NewSummarizer selects the summarization backend.
func NewSummarizer(cfg *config.Config) (summarize.Summarizer, error) {
	switch cfg.Summarizer {
	case config.SummarizerHuggingFace:
		log.Info().Str("model", cfg.HuggingFaceModel).Msg("Hugging Face summarizer initialized")
		return summarize.NewHuggingFaceClient(summarize.HuggingFaceConfig{
			Token:      cfg.HuggingFaceToken,
			BaseURL:    cfg.HuggingFaceURL,
			Model:      cfg.HuggingFaceModel,
			MaxInput:   cfg.SummaryMaxInput,
			MinLength:  cfg.SummaryMinLength,
			Timeout:    cfg.SummaryTimeout,
			RetryCount: cfg.RetryCount,
		}), nil
	case config.SummarizerOpenAI:
		log.Info().Str("model", cfg.OpenAIModel).Msg("OpenAI summarizer initialized")
		return summarize.NewOpenAIClient(summarize.OpenAIConfig{
			APIKey:   cfg.OpenAIAPIKey,
			Endpoint: cfg.OpenAIEndpoint,
			Model:    cfg.OpenAIModel,
			MaxInput: cfg.SummaryMaxInput,
		}), nil
	default:
		return nil, fmt.Errorf("unknown summarizer %q", cfg.Summarizer)
	}
}

// NewQuoteFetcher selects the quote provider.
func NewQuoteFetcher(cfg *config.Config) (pipeline.QuoteFetcher, error) {
	switch cfg.QuoteProvider {
	case config.QuoteAlphaVantage, "":
		return quote.NewClient(quote.Config{
			APIKey:     cfg.AlphaVantageAPIKey,
			BaseURL:    cfg.AlphaVantageURL,
			Timeout:    cfg.QuoteTimeout,
			RetryCount: cfg.RetryCount,
		}), nil
	case config.QuoteFinnhub:
		return quote.NewFinnhubClient(quote.Config{
			APIKey:  cfg.FinnhubAPIKey,
			BaseURL: cfg.FinnhubURL,
			Timeout: cfg.QuoteTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown quote provider %q", cfg.QuoteProvider)
	}
}

// NewReducer builds the chunk-and-merge reducer over the configured backend.
func NewReducer(cfg *config.Config) (*reduce.Reducer, error) {
	summarizer, err := NewSummarizer(cfg)
	if err != nil {
		return nil, err
	}

	return reduce.NewReducer(summarizer, reduce.Config{
		ChunkSize:   cfg.ChunkSize,
		CallTimeout: cfg.SummaryTimeout,
	}), nil
}

// NewPipeline builds the pipeline over an existing record store.
func NewPipeline(cfg *config.Config, store pipeline.RecordStore) (*pipeline.Pipeline, *reduce.Reducer, error) {
	reducer, err := NewReducer(cfg)
	if err != nil {
		return nil, nil, err
	}

	quotes, err := NewQuoteFetcher(cfg)
	if err != nil {
		return nil, nil, err
	}
	fetcher := feed.NewFetcher(cfg.FeedURL, cfg.FeedTimeout)

	p := pipeline.New(fetcher, quotes, reducer, store, pipeline.Defaults{
		Query:      cfg.NewsQuery,
		Language:   cfg.NewsLanguage,
		Limit:      cfg.NewsLimit,
		Symbol:     cfg.QuoteSymbol,
		WordBudget: cfg.WordBudget,
	})

	return p, reducer, nil
}

// Build connects to MongoDB and constructs every pipeline component.
func Build(ctx context.Context, cfg *config.Config) (*Components, error) {
	store, err := storage.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	p, reducer, err := NewPipeline(cfg, store)
	if err != nil {
		store.Close(ctx)
		return nil, err
	}

	return &Components{
		Store:    store,
		Reducer:  reducer,
		Pipeline: p,
	}, nil
}

// DefaultRunner is the part of the pipeline the scheduled jobs call.
type DefaultRunner interface {
	RunDefaultNews(ctx context.Context) (*pipeline.NewsResult, error)
	RunDefaultQuote(ctx context.Context) (*pipeline.QuoteResult, error)
}

// RegisterJobs adds the news and quote jobs to sched.
func RegisterJobs(sched *scheduler.Scheduler, runner DefaultRunner, cfg *config.Config) error {
	if err := sched.AddJob(&scheduler.Job{
		Name: NewsJob,
		Schedule: scheduler.Schedule{
			Type:     scheduler.ScheduleInterval,
			Interval: cfg.NewsInterval,
		},
		Timeout: cfg.JobTimeout,
		Handler: func(ctx context.Context) error {
			_, err := runner.RunDefaultNews(ctx)
			return err
		},
	}); err != nil {
		return err
	}

	loc, err := cfg.QuoteLocation()
	if err != nil {
		return err
	}

	return sched.AddJob(&scheduler.Job{
		Name: QuoteJob,
		Schedule: scheduler.Schedule{
			Type:     scheduler.ScheduleDaily,
			Hour:     cfg.QuoteHour,
			Minute:   cfg.QuoteMinute,
			Location: loc,
		},
		Timeout: cfg.JobTimeout,
		Handler: func(ctx context.Context) error {
			_, err := runner.RunDefaultQuote(ctx)
			return err
		},
	})
}

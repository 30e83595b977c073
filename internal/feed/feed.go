// Package feed fetches topical news items from an RSS search source.
package feed

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leeaandrob/knowledgeworker/internal/models"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the Google News host serving RSS search results.
	DefaultBaseURL = "https://news.google.com"

	searchPath = "/rss/search"
)

// Fetcher retrieves content items from a feed search endpoint.
type Fetcher struct {
	parser  *gofeed.Parser
	baseURL string
	timeout time.Duration
}

// NewFetcher creates a new feed fetcher. A zero timeout means 30 seconds.
func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}

	return &Fetcher{
		parser:  parser,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

// SearchURL builds the feed URL for a query and language.
func (f *Fetcher) SearchURL(query, language string) string {
	params := url.Values{}
	params.Set("q", query)
	if language != "" {
		params.Set("hl", language)
	}
	return f.baseURL + searchPath + "?" + params.Encode()
}

// Fetch returns at most limit items for the query, in feed order.
// Failures are logged and yield an empty slice.
func (f *Fetcher) Fetch(ctx context.Context, query, language string, limit int) []models.ContentItem {
	items := []models.ContentItem{}
	if limit <= 0 {
		return items
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feedURL := f.SearchURL(query, language)
	parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		log.Warn().
			Err(err).
			Str("query", query).
			Str("language", language).
			Msg("Feed fetch failed, continuing with no items")
		return items
	}

	for _, entry := range parsed.Items {
		if len(items) >= limit {
			break
		}
		items = append(items, models.ContentItem{
			Title:       strings.TrimSpace(entry.Title),
			Description: models.StringPtr(strings.TrimSpace(entry.Description)),
			URL:         models.StringPtr(entry.Link),
		})
	}

	log.Debug().
		Str("query", query).
		Int("available", len(parsed.Items)).
		Int("items", len(items)).
		Msg("Feed fetch complete")

	return items
}

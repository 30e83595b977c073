// Package quote provides point-in-time stock quotes from Alpha Vantage or
// Finnhub, with deterministic demo data when the live path is not usable.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/leeaandrob/knowledgeworker/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the Alpha Vantage API host.
	DefaultBaseURL = "https://www.alphavantage.co"

	demoTimestamp = "2025-09-06"
)

// ErrUnavailable is returned when the provider cannot be reached or answers
// with a non-success status.
var ErrUnavailable = errors.New("quote provider unavailable")

// Client fetches quotes from Alpha Vantage.
type Client struct {
	client *resty.Client
	apiKey string
}

// Config holds the configuration for the quote client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// NewClient creates a new Alpha Vantage client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		client: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(retryableStatus),
		apiKey: cfg.APIKey,
	}
}

func retryableStatus(r *resty.Response, err error) bool {
	if err != nil || r == nil {
		return true
	}
	return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
}

// NoCredentialSnapshot is returned when no API key is configured.
func NoCredentialSnapshot(symbol string) *models.QuoteSnapshot {
	return &models.QuoteSnapshot{
		Symbol:        NormalizeSymbol(symbol),
		Price:         150.25,
		Open:          models.Float64Ptr(149.00),
		High:          models.Float64Ptr(152.30),
		Low:           models.Float64Ptr(148.75),
		PreviousClose: models.Float64Ptr(148.50),
		Volume:        models.Int64Ptr(1200000),
		Timestamp:     demoTimestamp,
		Mode:          models.ModeDemo,
	}
}

// EmptyPayloadSnapshot is returned when the provider answers without a usable
// quote, e.g. when rate limited or asked for an unknown symbol.
func EmptyPayloadSnapshot(symbol string) *models.QuoteSnapshot {
	return &models.QuoteSnapshot{
		Symbol:        NormalizeSymbol(symbol),
		Price:         100.50,
		Open:          models.Float64Ptr(99.75),
		High:          models.Float64Ptr(101.20),
		Low:           models.Float64Ptr(98.90),
		PreviousClose: models.Float64Ptr(99.00),
		Volume:        models.Int64Ptr(800000),
		Timestamp:     demoTimestamp,
		Mode:          models.ModeDemo,
	}
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Fetch returns a snapshot for symbol.
func (c *Client) Fetch(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	symbol = NormalizeSymbol(symbol)

	if c.apiKey == "" {
		log.Debug().Str("symbol", symbol).Msg("No quote API key, using demo snapshot")
		return NoCredentialSnapshot(symbol), nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   c.apiKey,
		}).
		Get("/query")

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: alpha vantage returned %d", ErrUnavailable, resp.StatusCode())
	}

	var payload globalQuoteResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, &ParseError{Field: "body", Value: truncate(resp.String(), 200), Err: err}
	}

	if payload.Quote.empty() {
		log.Info().
			Str("symbol", symbol).
			Str("note", firstNonEmpty(payload.Note, payload.Information, payload.ErrorMessage)).
			Msg("Quote provider returned no data, using demo snapshot")
		return EmptyPayloadSnapshot(symbol), nil
	}

	snapshot, err := payload.Quote.snapshot(symbol)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("symbol", snapshot.Symbol).
		Float64("price", snapshot.Price).
		Msg("Live quote fetched")

	return snapshot, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// truncate keeps the first maxLen runes of s.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

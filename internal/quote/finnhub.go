package quote

import (
	"context"
	"fmt"
	"net/http"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"github.com/leeaandrob/knowledgeworker/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DefaultFinnhubURL is the Finnhub REST API root.
const DefaultFinnhubURL = "https://finnhub.io/api/v1"

// FinnhubClient fetches quotes from Finnhub. It follows the same fallback
// policy as the Alpha Vantage client.
type FinnhubClient struct {
	client *finnhub.DefaultApiService
	apiKey string
	now    func() time.Time
}

// NewFinnhubClient creates a new Finnhub client.
func NewFinnhubClient(cfg Config) *FinnhubClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFinnhubURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	fcfg := finnhub.NewConfiguration()
	fcfg.Servers = finnhub.ServerConfigurations{{URL: cfg.BaseURL}}
	fcfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	fcfg.AddDefaultHeader("X-Finnhub-Token", cfg.APIKey)

	return &FinnhubClient{
		client: finnhub.NewAPIClient(fcfg).DefaultApi,
		apiKey: cfg.APIKey,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Fetch returns a snapshot for symbol.
func (c *FinnhubClient) Fetch(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	symbol = NormalizeSymbol(symbol)

	if c.apiKey == "" {
		log.Debug().Str("symbol", symbol).Msg("No quote API key, using demo snapshot")
		return NoCredentialSnapshot(symbol), nil
	}

	res, httpResp, err := c.client.Quote(ctx).Symbol(symbol).Execute()
	if err != nil {
		if httpResp == nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
			return nil, fmt.Errorf("%w: finnhub returned %d", ErrUnavailable, httpResp.StatusCode)
		}
		return nil, &ParseError{Field: "body", Value: truncate(err.Error(), 200), Err: err}
	}

	// unknown symbols come back as all zeros
	if res.GetC() == 0 {
		log.Info().Str("symbol", symbol).Msg("Quote provider returned no data, using demo snapshot")
		return EmptyPayloadSnapshot(symbol), nil
	}

	snapshot := &models.QuoteSnapshot{
		Symbol:        symbol,
		Price:         float32To64(res.GetC()),
		PreviousClose: optionalFloat(res.HasPc(), res.GetPc()),
		Open:          optionalFloat(res.HasO(), res.GetO()),
		High:          optionalFloat(res.HasH(), res.GetH()),
		Low:           optionalFloat(res.HasL(), res.GetL()),
		Timestamp:     c.observedAt(res).Format("2006-01-02"),
		Mode:          models.ModeLive,
	}

	log.Debug().
		Str("symbol", snapshot.Symbol).
		Float64("price", snapshot.Price).
		Msg("Live quote fetched")

	return snapshot, nil
}

// observedAt is the provider quote time, or the fetch time when it is absent.
func (c *FinnhubClient) observedAt(res finnhub.Quote) time.Time {
	if res.HasT() && res.GetT() > 0 {
		return time.Unix(res.GetT(), 0).UTC()
	}
	return c.now()
}

// float32To64 widens v using its shortest decimal form, so 189.98 stays 189.98.
func float32To64(v float32) float64 {
	f, _ := decimal.NewFromFloat32(v).Float64()
	return f
}

func optionalFloat(ok bool, v float32) *float64 {
	if !ok {
		return nil
	}
	return models.Float64Ptr(float32To64(v))
}

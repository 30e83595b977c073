package quote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leeaandrob/knowledgeworker/internal/models"
)

// ParseError reports a quote field the provider sent in an unusable form.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("quote: invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("quote: invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// globalQuoteResponse is the GLOBAL_QUOTE response body. Rate limiting and
// errors are reported through the note fields with an empty quote.
type globalQuoteResponse struct {
	Quote        globalQuote `json:"Global Quote"`
	Note         string      `json:"Note"`
	Information  string      `json:"Information"`
	ErrorMessage string      `json:"Error Message"`
}

type globalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
}

func (q globalQuote) empty() bool {
	return q == globalQuote{}
}

func (q globalQuote) snapshot(symbol string) (*models.QuoteSnapshot, error) {
	if strings.TrimSpace(q.Price) == "" {
		return nil, &ParseError{Field: "05. price", Value: q.Price}
	}
	price, err := parseFloat("05. price", q.Price)
	if err != nil {
		return nil, err
	}

	snap := &models.QuoteSnapshot{
		Symbol:    symbol,
		Price:     *price,
		Timestamp: q.LatestTradingDay,
		Mode:      models.ModeLive,
	}
	if snap.Open, err = parseFloat("02. open", q.Open); err != nil {
		return nil, err
	}
	if snap.High, err = parseFloat("03. high", q.High); err != nil {
		return nil, err
	}
	if snap.Low, err = parseFloat("04. low", q.Low); err != nil {
		return nil, err
	}
	if snap.PreviousClose, err = parseFloat("08. previous close", q.PreviousClose); err != nil {
		return nil, err
	}
	if snap.Volume, err = parseInt("06. volume", q.Volume); err != nil {
		return nil, err
	}
	return snap, nil
}

// parseFloat returns nil for a missing field.
func parseFloat(field, value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, &ParseError{Field: field, Value: value, Err: err}
	}
	return &f, nil
}

func parseInt(field, value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, &ParseError{Field: field, Value: value, Err: err}
	}
	return &i, nil
}

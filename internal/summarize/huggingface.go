package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// HuggingFaceAPIURL is the hosted inference API.
	HuggingFaceAPIURL = "https://api-inference.huggingface.co"

	// DefaultHuggingFaceModel is a summarization model available on the inference API.
	DefaultHuggingFaceModel = "facebook/bart-large-cnn"
)

// HuggingFaceClient summarizes text through the Hugging Face inference API.
type HuggingFaceClient struct {
	client    *resty.Client
	model     string
	maxInput  int
	minLength int
}

// HuggingFaceConfig holds the configuration for the Hugging Face client.
type HuggingFaceConfig struct {
	Token      string
	BaseURL    string
	Model      string
	MaxInput   int // characters sent per request
	MinLength  int
	Timeout    time.Duration
	RetryCount int
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	DoSample  bool `json:"do_sample"`
}

type hfSummary struct {
	SummaryText string `json:"summary_text"`
}

// NewHuggingFaceClient creates a new Hugging Face client.
func NewHuggingFaceClient(cfg HuggingFaceConfig) *HuggingFaceClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = HuggingFaceAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultHuggingFaceModel
	}
	if cfg.MaxInput <= 0 {
		cfg.MaxInput = 1000
	}
	if cfg.MinLength < 0 {
		cfg.MinLength = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return true
			}
			// 503 is returned while the model is loading
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &HuggingFaceClient{
		client:    client,
		model:     cfg.Model,
		maxInput:  cfg.MaxInput,
		minLength: cfg.MinLength,
	}
}

// Summarize sends text to the model and returns its summary.
func (c *HuggingFaceClient) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	minLength := c.minLength
	if minLength > maxWords {
		minLength = maxWords
	}

	body := hfRequest{
		Inputs: capRunes(text, c.maxInput),
		Parameters: hfParameters{
			MaxLength: maxWords,
			MinLength: minLength,
			DoSample:  false,
		},
	}

	log.Debug().
		Str("model", c.model).
		Int("input_chars", len(body.Inputs)).
		Int("max_length", maxWords).
		Msg("Sending summarization request")

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/models/" + c.model)

	if err != nil {
		return "", fmt.Errorf("huggingface request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", &StatusError{Provider: "Hugging Face", Status: resp.StatusCode(), Body: resp.String()}
	}

	var result []hfSummary
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmptySummary, err)
	}
	if len(result) == 0 || strings.TrimSpace(result[0].SummaryText) == "" {
		return "", ErrEmptySummary
	}

	return strings.TrimSpace(result[0].SummaryText), nil
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/leeaandrob/knowledgeworker/internal/models"
	"github.com/leeaandrob/knowledgeworker/internal/pipeline"
	"github.com/leeaandrob/knowledgeworker/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	defaultNewsQuery    = "technology"
	defaultNewsLanguage = "en"
	defaultNewsPageSize = 5

	maxSummaryChars = 10000
)

// PipelineRunner runs the news and quote pipelines.
type PipelineRunner interface {
	News(ctx context.Context, req pipeline.NewsRequest) (*pipeline.NewsResult, error)
	Quote(ctx context.Context, symbol string) (*pipeline.QuoteResult, error)
	RunDefaultNews(ctx context.Context) (*pipeline.NewsResult, error)
	RunDefaultQuote(ctx context.Context) (*pipeline.QuoteResult, error)
}

// HistoryStore reads persisted records.
type HistoryStore interface {
	ListRecentNews(ctx context.Context, limit int) ([]models.IngestionRecord, error)
	ListRecentQuotes(ctx context.Context, limit int) ([]models.QuoteRecord, error)
	GetStats(ctx context.Context) (*storage.Stats, error)
}

// Handlers holds the API handlers.
type Handlers struct {
	runner     PipelineRunner
	history    HistoryStore
	reducer    pipeline.TextReducer
	wordBudget int
}

// NewHandlers creates new API handlers.
func NewHandlers(runner PipelineRunner, history HistoryStore, reducer pipeline.TextReducer, wordBudget int) *Handlers {
	return &Handlers{
		runner:     runner,
		history:    history,
		reducer:    reducer,
		wordBudget: wordBudget,
	}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func getLimit(r *http.Request, defaultLimit int) int {
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// statusFor maps a pipeline failure to an HTTP status.
func statusFor(err error) int {
	var perr *pipeline.Error
	if !errors.As(err, &perr) {
		return http.StatusInternalServerError
	}
	switch perr.Code {
	case pipeline.ErrorInvalidInput:
		return http.StatusBadRequest
	case pipeline.ErrorSourceUnavailable:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================================
// PIPELINE HANDLERS
// ============================================================================

type newsRequest struct {
	Query    string `json:"query"`
	Language string `json:"language"`
	PageSize int    `json:"page_size"`
}

// IngestNews runs the news pipeline for an ad-hoc query.
func (h *Handlers) IngestNews(w http.ResponseWriter, r *http.Request) {
	req := newsRequest{
		Query:    defaultNewsQuery,
		Language: defaultNewsLanguage,
		PageSize: defaultNewsPageSize,
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.runner.News(r.Context(), pipeline.NewsRequest{
		Query:    req.Query,
		Language: req.Language,
		Limit:    req.PageSize,
	})
	if err != nil {
		log.Error().Err(err).Str("query", req.Query).Msg("News ingestion failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":             result.Items,
		"summary":           result.Summary.Text,
		"source_word_count": result.Summary.SourceWordCount,
		"record_id":         result.Record.ID.Hex(),
	})
}

type stockRequest struct {
	Symbol string `json:"symbol"`
}

// GetStock fetches a quote for a symbol and records it.
func (h *Handlers) GetStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		respondError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	result, err := h.runner.Quote(r.Context(), req.Symbol)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			respondError(w, status, "Stock not found or API error")
			return
		}
		log.Error().Err(err).Str("symbol", req.Symbol).Msg("Stock lookup failed")
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": result.Snapshot.Symbol,
		"quote":  result.Snapshot,
		"insight": map[string]interface{}{
			"change":   result.Change,
			"trend":    result.Trend,
			"mode":     result.Snapshot.Mode,
			"saved_id": result.Record.ID.Hex(),
		},
	})
}

// RunNewsTask runs the default news pipeline synchronously.
func (h *Handlers) RunNewsTask(w http.ResponseWriter, r *http.Request) {
	if _, err := h.runner.RunDefaultNews(r.Context()); err != nil {
		log.Error().Err(err).Msg("Manual news task failed")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "News task executed manually",
	})
}

// RunStockTask runs the default quote pipeline synchronously.
func (h *Handlers) RunStockTask(w http.ResponseWriter, r *http.Request) {
	if _, err := h.runner.RunDefaultQuote(r.Context()); err != nil {
		log.Error().Err(err).Msg("Manual stock task failed")
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Stock task executed manually",
	})
}

type summarizeRequest struct {
	Text string `json:"text"`
}

// Summarize reduces submitted text to a bounded summary.
func (h *Handlers) Summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "Text is required")
		return
	}

	result := h.reducer.Reduce(r.Context(), req.Text, h.wordBudget)

	summary := result.Text
	if runes := []rune(summary); len(runes) > maxSummaryChars {
		summary = string(runes[:maxSummaryChars])
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"summary":           summary,
		"source_word_count": result.SourceWordCount,
	})
}

// ============================================================================
// HISTORY HANDLERS
// ============================================================================

// GetNewsHistory returns recent news records.
func (h *Handlers) GetNewsHistory(w http.ResponseWriter, r *http.Request) {
	limit := getLimit(r, 20)

	records, err := h.history.ListRecentNews(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch news history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// GetStockHistory returns recent quote records.
func (h *Handlers) GetStockHistory(w http.ResponseWriter, r *http.Request) {
	limit := getLimit(r, 50)

	records, err := h.history.ListRecentQuotes(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stock history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// ============================================================================
// STATS HANDLERS
// ============================================================================

// GetStats returns record counts.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.history.GetStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// HealthCheck returns service health.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

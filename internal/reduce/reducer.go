// Package reduce turns arbitrarily long text into a bounded summary by
// summarizing fixed-size chunks and then summarizing their concatenation.
package reduce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leeaandrob/knowledgeworker/internal/models"
	"github.com/leeaandrob/knowledgeworker/internal/summarize"
	"github.com/rs/zerolog/log"
)

const (
	DefaultChunkSize  = 800
	DefaultWordBudget = 1500

	noSummaryText = "No summary returned."
)

// Reducer performs chunk-and-merge reduction over a Summarizer.
type Reducer struct {
	summarizer  summarize.Summarizer
	chunkSize   int
	callTimeout time.Duration
}

// Config holds the reducer settings.
type Config struct {
	ChunkSize   int           // words per chunk
	CallTimeout time.Duration // per summarization call, 0 for none
}

// NewReducer creates a new reducer.
func NewReducer(s summarize.Summarizer, cfg Config) *Reducer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Reducer{
		summarizer:  s,
		chunkSize:   cfg.ChunkSize,
		callTimeout: cfg.CallTimeout,
	}
}

// Reduce summarizes text to at most wordBudget words. It never fails: a call
// that errors contributes a diagnostic placeholder instead of its summary.
func (r *Reducer) Reduce(ctx context.Context, text string, wordBudget int) models.SummaryResult {
	if wordBudget <= 0 {
		wordBudget = DefaultWordBudget
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return models.SummaryResult{Text: models.EmptySummaryText}
	}

	chunks := Chunk(words, r.chunkSize)

	if len(chunks) == 1 {
		final := r.call(ctx, chunks[0], wordBudget, 0)
		return models.SummaryResult{Text: LimitWords(final, wordBudget), SourceWordCount: len(words)}
	}

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		partials = append(partials, r.call(ctx, chunk, wordBudget/2, i+1))
	}

	log.Debug().
		Int("chunks", len(chunks)).
		Int("words", len(words)).
		Msg("Merging partial summaries")

	final := r.call(ctx, strings.Join(partials, " "), wordBudget, 0)

	return models.SummaryResult{Text: LimitWords(final, wordBudget), SourceWordCount: len(words)}
}

// call runs one summarization with its own timeout. chunk is the 1-based
// chunk index, 0 for the final merge.
func (r *Reducer) call(ctx context.Context, text string, maxWords, chunk int) string {
	if maxWords <= 0 {
		maxWords = 1
	}

	callCtx := ctx
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	summary, err := r.summarizer.Summarize(callCtx, text, maxWords)
	if err != nil {
		log.Warn().
			Err(err).
			Int("chunk", chunk).
			Msg("Summarization call failed, using placeholder")
		return Placeholder(err)
	}
	return summary
}

// Chunk splits words into consecutive groups of at most size words.
func Chunk(words []string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// Placeholder renders a failed summarization call as diagnostic text.
func Placeholder(err error) string {
	var statusErr *summarize.StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Summarizer error %d: %s", statusErr.Status, statusErr.Body)
	case errors.Is(err, summarize.ErrEmptySummary):
		return noSummaryText
	default:
		return fmt.Sprintf("[Summary error: %v]", err)
	}
}

// LimitWords keeps the first n words of s.
func LimitWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}

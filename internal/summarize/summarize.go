// Package summarize provides clients for external summarization services.
package summarize

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptySummary is returned when the service answered without summary text.
var ErrEmptySummary = errors.New("no summary returned")

// StatusError is a non-success response from a summarization service.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Provider, e.Status, e.Body)
}

// Summarizer reduces a piece of text to at most maxWords.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxWords int) (string, error)
}

// capRunes keeps the first n runes of s.
func capRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

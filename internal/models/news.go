package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmptySummaryText is the summary used when there is nothing to reduce.
const EmptySummaryText = "No content to summarize."

// ContentItem is a single entry fetched from a feed source.
type ContentItem struct {
	Title       string  `bson:"title" json:"title"`
	Description *string `bson:"description,omitempty" json:"description"`
	URL         *string `bson:"url,omitempty" json:"url"`
}

// SummaryResult is the output of a text reduction.
type SummaryResult struct {
	Text            string `bson:"text" json:"text"`
	SourceWordCount int    `bson:"source_word_count" json:"source_word_count"`
}

// IngestionRecord is one persisted news pipeline invocation.
type IngestionRecord struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// RunID identifies the pipeline invocation that produced the record.
	RunID string `bson:"run_id" json:"run_id"`

	Query     string        `bson:"query" json:"query"`
	Items     []ContentItem `bson:"items" json:"items"`
	Summary   SummaryResult `bson:"summary" json:"summary"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
}

// FullText interleaves each item's title and description, one per line.
func FullText(items []ContentItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		desc := ""
		if it.Description != nil {
			desc = *it.Description
		}
		parts = append(parts, it.Title+"\n"+desc)
	}
	return strings.Join(parts, "\n")
}

// StringPtr returns nil for empty strings.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

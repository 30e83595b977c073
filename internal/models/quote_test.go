package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteSnapshotChange(t *testing.T) {
	cases := []struct {
		name string
		snap QuoteSnapshot
		want float64
	}{
		{
			name: "previous close",
			snap: QuoteSnapshot{Price: 150.25, PreviousClose: Float64Ptr(148.50), Open: Float64Ptr(149.00)},
			want: 1.75,
		},
		{
			name: "falls back to open",
			snap: QuoteSnapshot{Price: 99.10, Open: Float64Ptr(99.75)},
			want: -0.65,
		},
		{
			name: "zero previous close falls back to open",
			snap: QuoteSnapshot{Price: 10, PreviousClose: Float64Ptr(0), Open: Float64Ptr(9.5)},
			want: 0.5,
		},
		{
			name: "no baseline",
			snap: QuoteSnapshot{Price: 12.345},
			want: 12.35,
		},
		{
			name: "unchanged",
			snap: QuoteSnapshot{Price: 42, PreviousClose: Float64Ptr(42)},
			want: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.snap.Change())
		})
	}
}

func TestTrendOf(t *testing.T) {
	assert.Equal(t, TrendUp, TrendOf(1.75))
	assert.Equal(t, TrendDown, TrendOf(-0.01))
	assert.Equal(t, TrendNeutral, TrendOf(0))
}

func TestFullText(t *testing.T) {
	items := []ContentItem{
		{Title: "First", Description: StringPtr("one")},
		{Title: "Second"},
	}
	assert.Equal(t, "First\none\nSecond\n", FullText(items))
	assert.Equal(t, "", FullText(nil))
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr(""))
	assert.Equal(t, "x", *StringPtr("x"))
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mode tells whether a quote was retrieved or synthesized.
type Mode string

const (
	ModeLive Mode = "live"
	ModeDemo Mode = "demo"
)

// Trend is the direction of a quote change.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// QuoteSnapshot is a point-in-time price observation.
type QuoteSnapshot struct {
	Symbol        string   `bson:"symbol" json:"symbol"`
	Price         float64  `bson:"price" json:"price"`
	PreviousClose *float64 `bson:"previous_close,omitempty" json:"previous_close"`
	Open          *float64 `bson:"open,omitempty" json:"open"`
	High          *float64 `bson:"high,omitempty" json:"high"`
	Low           *float64 `bson:"low,omitempty" json:"low"`
	Volume        *int64   `bson:"volume,omitempty" json:"volume"`
	Timestamp     string   `bson:"timestamp" json:"timestamp"`
	Mode          Mode     `bson:"mode" json:"mode"`
}

// Baseline is the reference price a change is measured against: the previous
// close, then the open, then zero. Zero values fall through like missing ones.
func (q QuoteSnapshot) Baseline() float64 {
	if q.PreviousClose != nil && *q.PreviousClose != 0 {
		return *q.PreviousClose
	}
	if q.Open != nil && *q.Open != 0 {
		return *q.Open
	}
	return 0
}

// Change returns price minus baseline rounded to two decimals.
func (q QuoteSnapshot) Change() float64 {
	d := decimal.NewFromFloat(q.Price).Sub(decimal.NewFromFloat(q.Baseline())).Round(2)
	f, _ := d.Float64()
	return f
}

// TrendOf maps the sign of a change to a trend.
func TrendOf(change float64) Trend {
	switch {
	case change > 0:
		return TrendUp
	case change < 0:
		return TrendDown
	default:
		return TrendNeutral
	}
}

// QuoteRecord is one persisted quote pipeline invocation.
type QuoteRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RunID     string             `bson:"run_id" json:"run_id"`
	Symbol    string             `bson:"symbol" json:"symbol"`
	Quote     QuoteSnapshot      `bson:"quote" json:"quote"`
	Change    float64            `bson:"change" json:"change"`
	Mode      Mode               `bson:"mode" json:"mode"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }

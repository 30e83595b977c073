// Package storage provides MongoDB storage for news and quote records.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/leeaandrob/knowledgeworker/internal/models"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	newsCollection   = "news_records"
	quotesCollection = "stock_records"
)

// Store provides access to all MongoDB collections.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	news   *mongo.Collection
	quotes *mongo.Collection

	now func() time.Time
}

// NewStore creates a new storage connection.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	log.Info().Str("db", dbName).Msg("Connected to MongoDB")

	store := NewStoreWithDatabase(client.Database(dbName))
	store.client = client

	// Initialize indexes
	if err := store.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create some indexes")
	}

	return store, nil
}

// NewStoreWithDatabase wraps an existing database handle without creating indexes.
func NewStoreWithDatabase(db *mongo.Database) *Store {
	return &Store{
		db:     db,
		news:   db.Collection(newsCollection),
		quotes: db.Collection(quotesCollection),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// createIndexes creates necessary indexes for recency queries.
func (s *Store) createIndexes(ctx context.Context) error {
	newsIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "query", Value: 1}}},
		{Keys: bson.D{{Key: "run_id", Value: 1}}},
	}
	if _, err := s.news.Indexes().CreateMany(ctx, newsIndexes); err != nil {
		log.Warn().Err(err).Msg("Failed to create news indexes")
	}

	quoteIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "symbol", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := s.quotes.Indexes().CreateMany(ctx, quoteIndexes); err != nil {
		log.Warn().Err(err).Msg("Failed to create quote indexes")
	}

	return nil
}

// ============================================================================
// NEWS OPERATIONS
// ============================================================================

// AppendNews persists one news invocation as a single document.
func (s *Store) AppendNews(ctx context.Context, runID, query string, items []models.ContentItem, summary models.SummaryResult) (*models.IngestionRecord, error) {
	if items == nil {
		items = []models.ContentItem{}
	}

	record := &models.IngestionRecord{
		ID:        primitive.NewObjectID(),
		RunID:     runID,
		Query:     query,
		Items:     items,
		Summary:   summary,
		CreatedAt: s.now(),
	}

	if _, err := s.news.InsertOne(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecentNews returns news records, most recent first.
func (s *Store) ListRecentNews(ctx context.Context, limit int) ([]models.IngestionRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.news.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.IngestionRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ============================================================================
// QUOTE OPERATIONS
// ============================================================================

// AppendQuote persists one quote observation. The record mode always follows
// the snapshot mode.
func (s *Store) AppendQuote(ctx context.Context, runID, symbol string, snapshot models.QuoteSnapshot, change float64) (*models.QuoteRecord, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	snapshot.Symbol = strings.ToUpper(snapshot.Symbol)
	if snapshot.Mode == "" {
		snapshot.Mode = models.ModeLive
	}

	record := &models.QuoteRecord{
		ID:        primitive.NewObjectID(),
		RunID:     runID,
		Symbol:    symbol,
		Quote:     snapshot,
		Change:    change,
		Mode:      snapshot.Mode,
		CreatedAt: s.now(),
	}

	if _, err := s.quotes.InsertOne(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecentQuotes returns quote records, most recent first.
func (s *Store) ListRecentQuotes(ctx context.Context, limit int) ([]models.QuoteRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.quotes.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.QuoteRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ============================================================================
// STATS
// ============================================================================

// Stats represents storage statistics.
type Stats struct {
	NewsRecords  int64 `json:"news_records"`
	QuoteRecords int64 `json:"quote_records"`
	DemoQuotes   int64 `json:"demo_quotes"`
}

// GetStats returns record counts.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	newsCount, err := s.news.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	quoteCount, err := s.quotes.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	demoCount, err := s.quotes.CountDocuments(ctx, bson.M{"mode": models.ModeDemo})
	if err != nil {
		return nil, err
	}

	return &Stats{
		NewsRecords:  newsCount,
		QuoteRecords: quoteCount,
		DemoQuotes:   demoCount,
	}, nil
}

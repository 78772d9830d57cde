package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStoreConfig contains MongoDB-specific configuration
type MongoStoreConfig struct {
	URI        string        `json:"uri" yaml:"uri"`
	Database   string        `json:"database" yaml:"database"`
	Collection string        `json:"collection" yaml:"collection"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
}

// MongoRunStore is a MongoDB-backed implementation of RunStore.
// One document per run, keyed by run ID.
type MongoRunStore struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
	owned   bool
}

// NewMongoRunStore connects to MongoDB and creates a run store that owns the client.
// Database defaults to "courtflow", collection to "run_records".
func NewMongoRunStore(ctx context.Context, config MongoStoreConfig) (*MongoRunStore, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("%w: mongo uri is required", ErrInvalidInput)
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	client, err := mongo.Connect(options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := NewMongoRunStoreWithClient(client, config.Database, config.Collection)
	store.timeout = config.Timeout
	store.owned = true

	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

// NewMongoRunStoreWithClient creates a run store on a shared client.
func NewMongoRunStoreWithClient(client *mongo.Client, dbName, collName string) *MongoRunStore {
	if dbName == "" {
		dbName = "courtflow"
	}
	if collName == "" {
		collName = "run_records"
	}
	return &MongoRunStore{
		client:  client,
		coll:    client.Database(dbName).Collection(collName),
		timeout: 5 * time.Second,
	}
}

func (s *MongoRunStore) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "topic", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create run record indexes: %w", err)
	}
	return nil
}

// Close disconnects an owned client
func (s *MongoRunStore) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks if the store is healthy
func (s *MongoRunStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// SaveRun upserts a run record
func (s *MongoRunStore) SaveRun(ctx context.Context, record *RunRecord) error {
	if err := prepare(record); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": record.ID}, record, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	return nil
}

// GetRun retrieves a run record by ID
func (s *MongoRunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var record RunRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRuns retrieves run records matching the filter, newest first
func (s *MongoRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := bson.M{}
	if filter.Topic != "" {
		query["topic"] = filter.Topic
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*RunRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []*RunRecord{}
	}
	return records, nil
}

// DeleteRun removes a run record
func (s *MongoRunStore) DeleteRun(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

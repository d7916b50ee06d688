package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/outbreak/internal/types"
)

// snapshotDoc is the document shape stored per dataset.
type snapshotDoc struct {
	ID        string    `bson:"_id"`
	JSON      string    `bson:"json"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per dataset in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	logger     *slog.Logger
}

// NewMongoStore creates a new MongoDB snapshot backend.
func NewMongoStore(uri, database, collection string, timeout time.Duration, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		timeout:    timeout,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) Save(ctx context.Context, dataset types.Dataset, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := snapshotDoc{ID: string(dataset), JSON: string(data), UpdatedAt: time.Now().UTC()}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("upsert %s: %w", dataset, err)}
	}

	s.logger.Debug("snapshot written", "dataset", dataset, "bytes", len(data))
	return nil
}

func (s *MongoStore) Load(ctx context.Context, dataset types.Dataset) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc snapshotDoc
	err := s.collection.FindOne(ctx, bson.M{"_id": string(dataset)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notStored("mongodb", dataset)
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("find %s: %w", dataset, err)}
	}
	return []byte(doc.JSON), nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb storage closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Storage Fan-Out ---

// MultiStore writes snapshots to multiple backends and reads from the first
// one that has the dataset.
type MultiStore struct {
	backends []SnapshotStore
	logger   *slog.Logger
}

// NewMultiStore creates a store that fans out to multiple backends.
func NewMultiStore(backends []SnapshotStore, logger *slog.Logger) *MultiStore {
	return &MultiStore{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStore) Name() string { return "multi" }

func (s *MultiStore) Save(ctx context.Context, dataset types.Dataset, data []byte) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Save(ctx, dataset, data); err != nil {
			s.logger.Error("backend save failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStore) Load(ctx context.Context, dataset types.Dataset) ([]byte, error) {
	for _, backend := range s.backends {
		data, err := backend.Load(ctx, dataset)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, types.ErrNotStored) {
			s.logger.Warn("backend load failed", "backend", backend.Name(), "error", err)
		}
	}
	return nil, notStored("multi", dataset)
}

func (s *MultiStore) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

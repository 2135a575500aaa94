// Package mongo stores the bookmark snapshot as one MongoDB document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrSnakeDoc/pinmap/internal/domain"
	"github.com/MrSnakeDoc/pinmap/internal/logger"
	"github.com/MrSnakeDoc/pinmap/internal/retry"
	"github.com/MrSnakeDoc/pinmap/internal/store"
)

// DefaultDocumentID is the _id of the snapshot document.
const DefaultDocumentID = "bookmarks"

type snapshotDoc struct {
	ID        string            `bson:"_id"`
	Items     []domain.Bookmark `bson:"items"`
	UpdatedAt time.Time         `bson:"updatedAt"`
}

// Store replaces a single document on every save.
type Store struct {
	col   *mongo.Collection
	docID string
}

// NewStore creates a Mongo store on the given collection.
func NewStore(col *mongo.Collection) *Store {
	return &Store{col: col, docID: DefaultDocumentID}
}

// Connect opens a client and waits until the server answers a ping.
// Caller should call client.Disconnect(ctx).
func Connect(ctx context.Context, uri string, p retry.Policy, log logger.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	ping := func(ctx context.Context) error { return client.Ping(ctx, nil) }
	if _, err := retry.Wait(ctx, "mongo", ping, p, log); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func (s *Store) Name() string { return "mongo" }

// Load reads the snapshot document. No document is an empty collection.
func (s *Store) Load(ctx context.Context) ([]domain.Bookmark, error) {
	raw, err := s.col.FindOne(ctx, bson.M{"_id": s.docID}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []domain.Bookmark{}, nil
		}
		return nil, fmt.Errorf("failed to load bookmark snapshot: %w", err)
	}
	return decodeSnapshot(raw)
}

// decodeSnapshot turns a raw snapshot document into bookmarks.
func decodeSnapshot(raw bson.Raw) ([]domain.Bookmark, error) {
	var doc snapshotDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrMalformed, err)
	}
	if doc.Items == nil {
		doc.Items = []domain.Bookmark{}
	}
	return doc.Items, nil
}

// Save upserts the snapshot document.
func (s *Store) Save(ctx context.Context, bookmarks []domain.Bookmark) error {
	if bookmarks == nil {
		bookmarks = []domain.Bookmark{}
	}

	doc := snapshotDoc{ID: s.docID, Items: bookmarks, UpdatedAt: time.Now().UTC()}
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": s.docID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save bookmark snapshot: %w", err)
	}
	return nil
}

// Ping checks the server behind the collection.
func (s *Store) Ping(ctx context.Context) error {
	return s.col.Database().Client().Ping(ctx, nil)
}

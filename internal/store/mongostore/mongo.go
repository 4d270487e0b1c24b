// Package mongostore keeps table documents in MongoDB and follows them with
// change streams.
package mongostore

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"table-status-backend/internal/model"
	"table-status-backend/internal/store"
)

const collectionName = "tables"

// Store implements store.Store on a single Mongo collection holding the
// documents of every table collection path.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	poll   time.Duration
}

// Connect dials url and selects database.
func Connect(ctx context.Context, url, database string, poll time.Duration) (*Store, error) {
	if url == "" {
		url = "mongodb://localhost:27017"
	}
	clientOptions := options.Client().ApplyURI(url).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	log.WithField("database", database).Info("connected to MongoDB")
	return &Store{
		client: client,
		coll:   client.Database(database).Collection(collectionName),
		poll:   poll,
	}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
	}
	return nil
}

// MergeWrite implements store.Store.
func (s *Store) MergeWrite(ctx context.Context, collection, id string, fields store.Fields) error {
	if id == "" {
		return store.ErrInvalidDocument
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": docID(collection, id)},
		mergeUpdate(collection, id, fields, time.Now().UTC()),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("merge-write %s/%s: %w", collection, id, err)
	}
	return nil
}

// ReadAll implements store.Store.
func (s *Store) ReadAll(ctx context.Context, collection string) ([]model.Table, error) {
	cursor, err := s.coll.Find(ctx,
		bson.M{"collection": collection},
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	defer cursor.Close(ctx)

	var tables []model.Table
	if err := cursor.All(ctx, &tables); err != nil {
		return nil, fmt.Errorf("cannot decode tables: %w", err)
	}
	for i := range tables {
		if tables[i].Order == nil {
			tables[i].Order = model.Order{}
		}
	}
	return tables, nil
}

// Subscribe implements store.Store. Changes are observed through a change
// stream; without a replica set it falls back to polling.
func (s *Store) Subscribe(ctx context.Context, collection string) (<-chan store.Update, error) {
	wake := make(chan struct{}, 1)
	fail := make(chan error, 1)

	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"fullDocument.collection": collection}}}}
	stream, err := s.coll.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	poll := s.poll
	if err != nil {
		log.WithError(err).Warn("change streams unavailable, falling back to polling")
		if poll <= 0 {
			poll = 2 * time.Second
		}
	} else {
		go func() {
			defer stream.Close(context.Background())
			for stream.Next(ctx) {
				select {
				case wake <- struct{}{}:
				default:
				}
			}
			if err := stream.Err(); err != nil && ctx.Err() == nil {
				fail <- err
			}
		}()
	}

	out := make(chan store.Update, 1)
	feed := store.Feed{
		Collection: collection,
		Read:       func(ctx context.Context) ([]model.Table, error) { return s.ReadAll(ctx, collection) },
		Wake:       wake,
		Fail:       fail,
		Poll:       poll,
	}
	go feed.Run(ctx, out)
	return out, nil
}

func docID(collection, id string) string {
	return collection + "/" + id
}

// mergeUpdate builds an upsert that sets only the supplied fields and fills
// the defaults of a new document.
func mergeUpdate(collection, id string, fields store.Fields, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	onInsert := bson.M{
		"collection": collection,
		"id":         id,
		"created_at": now,
	}

	if fields.Status != nil {
		set["status"] = *fields.Status
	} else {
		onInsert["status"] = model.StatusAvailable
	}
	if fields.Order != nil {
		set["order"] = fields.Order.Clone()
	} else {
		onInsert["order"] = model.Order{}
	}
	if fields.UpdatedBy != "" {
		set["updated_by"] = fields.UpdatedBy
	}

	return bson.M{"$set": set, "$setOnInsert": onInsert}
}

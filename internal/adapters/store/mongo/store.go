package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pawlive/classmate/internal/ports"
)

// Store is the MongoDB-backed RealtimeStore. Merge-upserts map to
// UpdateOne with $set (plus $inc for additive increments) and upsert enabled;
// watches are change streams seeded with an initial read.
type Store struct {
	db     *mongo.Database
	logger *slog.Logger
}

var _ ports.RealtimeStore = (*Store)(nil)

func NewStore(db *mongo.Database, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Connect dials a deployment and returns a store bound to the named database.
func Connect(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect document store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping document store: %w", err)
	}

	return NewStore(client.Database(database), logger), client.Disconnect, nil
}

func (s *Store) Set(ctx context.Context, path string, fields map[string]any) error {
	ref, err := parseDocPath(path)
	if err != nil {
		return err
	}

	doc := bson.M{"_id": ref.Path, parentField: ref.Parent}
	for key, value := range fields {
		doc[key] = value
	}

	_, err = s.db.Collection(ref.Collection).ReplaceOne(ctx,
		bson.M{"_id": ref.Path}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set document %q: %w", path, err)
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, path string, fields map[string]any) error {
	ref, err := parseDocPath(path)
	if err != nil {
		return err
	}

	set := bson.M{parentField: ref.Parent}
	inc := bson.M{}
	for key, value := range fields {
		if delta, ok := value.(ports.Increment); ok {
			inc[key] = delta.By
			continue
		}
		set[key] = value
	}

	update := bson.M{"$set": set}
	if len(inc) > 0 {
		update["$inc"] = inc
	}

	_, err = s.db.Collection(ref.Collection).UpdateOne(ctx,
		bson.M{"_id": ref.Path}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("merge document %q: %w", path, err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, err := parseCollectionPath(collection)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	doc := bson.M{"_id": ref.Path + "/" + id, parentField: ref.Parent}
	for key, value := range fields {
		doc[key] = value
	}

	if _, err := s.db.Collection(ref.Collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("add document to %q: %w", collection, err)
	}
	return id, nil
}

func (s *Store) WatchDocument(ctx context.Context, path string, onNext func(ports.DocumentSnapshot)) (ports.Subscription, error) {
	ref, err := parseDocPath(path)
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.D{
		{Key: "documentKey._id", Value: ref.Path},
	}}}}

	return s.watch(ctx, ref.Collection, pipeline, func(readCtx context.Context) error {
		snap, err := s.readDocument(readCtx, ref)
		if err != nil {
			return err
		}
		onNext(snap)
		return nil
	})
}

func (s *Store) WatchQuery(ctx context.Context, q ports.Query, onNext func(ports.QuerySnapshot)) (ports.Subscription, error) {
	ref, err := parseCollectionPath(q.Collection)
	if err != nil {
		return nil, err
	}

	// Scope to the parent document so sibling classrooms do not wake this
	// watcher. Deletes carry no full document and match the ns clause only.
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.D{
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "fullDocument." + parentField, Value: ref.Parent}},
			bson.D{{Key: "fullDocument", Value: nil}},
		}},
	}}}}

	return s.watch(ctx, ref.Collection, pipeline, func(readCtx context.Context) error {
		snap, err := s.runQuery(readCtx, ref, q)
		if err != nil {
			return err
		}
		onNext(snap)
		return nil
	})
}

// watch starts a change stream and re-reads through deliver on open and on
// every event. The subscription context is detached from the caller's: the
// watch lives until Cancel.
func (s *Store) watch(ctx context.Context, collection string, pipeline mongo.Pipeline, deliver func(context.Context) error) (ports.Subscription, error) {
	stream, err := s.db.Collection(collection).Watch(ctx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("watch %q: %w", collection, err)
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer func() { _ = stream.Close(context.WithoutCancel(watchCtx)) }()

		if err := deliver(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("initial snapshot read failed", "collection", collection, "error", err)
		}

		for stream.Next(watchCtx) {
			if err := deliver(watchCtx); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				s.logger.Warn("snapshot read failed", "collection", collection, "error", err)
			}
		}
		if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("change stream closed", "collection", collection, "error", err)
		}
	}()

	return sub, nil
}

func (s *Store) readDocument(ctx context.Context, ref docRef) (ports.DocumentSnapshot, error) {
	var doc bson.M
	err := s.db.Collection(ref.Collection).FindOne(ctx, bson.M{"_id": ref.Path}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ports.DocumentSnapshot{Path: ref.Path, ID: ref.ID}, nil
	}
	if err != nil {
		return ports.DocumentSnapshot{}, fmt.Errorf("read document %q: %w", ref.Path, err)
	}

	return ports.DocumentSnapshot{
		Path:   ref.Path,
		ID:     ref.ID,
		Exists: true,
		Fields: stripMeta(doc),
	}, nil
}

func (s *Store) runQuery(ctx context.Context, ref collectionRef, q ports.Query) (ports.QuerySnapshot, error) {
	direction := 1
	if !q.Ascending {
		direction = -1
	}

	opts := options.Find().SetSort(bson.D{{Key: q.OrderBy, Value: direction}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(ref.Collection).Find(ctx, bson.M{parentField: ref.Parent}, opts)
	if err != nil {
		return ports.QuerySnapshot{}, fmt.Errorf("query %q: %w", ref.Path, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var snap ports.QuerySnapshot
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return ports.QuerySnapshot{}, fmt.Errorf("decode document in %q: %w", ref.Path, err)
		}
		path, _ := doc["_id"].(string)
		snap.Docs = append(snap.Docs, ports.DocumentSnapshot{
			Path:   path,
			ID:     docID(path),
			Exists: true,
			Fields: stripMeta(doc),
		})
	}
	if err := cursor.Err(); err != nil {
		return ports.QuerySnapshot{}, fmt.Errorf("iterate %q: %w", ref.Path, err)
	}
	return snap, nil
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Cancel() {
	s.cancel()
	<-s.done
}

func stripMeta(doc bson.M) map[string]any {
	fields := make(map[string]any, len(doc))
	for key, value := range doc {
		if key == "_id" || key == parentField {
			continue
		}
		fields[key] = value
	}
	return fields
}

func docID(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

package ports

import "context"

// DocumentSnapshot is a point-in-time value of one remote document. A
// snapshot with Exists == false carries no fields.
type DocumentSnapshot struct {
	Path   string
	ID     string
	Exists bool
	Fields map[string]any
}

// QuerySnapshot is a point-in-time result of a watched query, in query order.
type QuerySnapshot struct {
	Docs []DocumentSnapshot
}

// Query describes a bounded, ordered collection read.
type Query struct {
	Collection string
	OrderBy    string
	Ascending  bool
	Limit      int
}

// Subscription is a live watch handle. Cancel is total: once it returns, the
// watch callback will not be invoked again. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// RealtimeStore extends DocumentStore with live snapshot subscriptions.
//
// Watches deliver an initial snapshot followed by one snapshot per change.
// Callbacks for one subscription are serialized; snapshots across distinct
// subscriptions are independent and arrive in no particular relative order.
type RealtimeStore interface {
	DocumentStore

	WatchDocument(ctx context.Context, path string, onNext func(DocumentSnapshot)) (Subscription, error)
	WatchQuery(ctx context.Context, q Query, onNext func(QuerySnapshot)) (Subscription, error)
}

package ports

import "context"

// Increment is a field value recognized by DocumentStore implementations as
// an additive update: the delta is applied commutatively on the store side,
// never via client read-modify-write, so concurrent increments from many
// participants always sum exactly.
type Increment struct {
	By int64
}

// DocumentStore is the write surface of the externally hosted document store.
// Paths are slash-separated with alternating collection and document
// segments, e.g. "classrooms/c1/attendees/u1".
type DocumentStore interface {
	// Set creates or fully replaces the document at path.
	Set(ctx context.Context, path string, fields map[string]any) error

	// Merge creates the document if absent, or unions the supplied fields
	// into it without touching unspecified fields. Increment values are
	// applied additively.
	Merge(ctx context.Context, path string, fields map[string]any) error

	// Add appends a new document with a generated id to the collection at
	// path and returns the id.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
}

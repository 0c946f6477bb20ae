package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pawlive/classmate/internal/ports"
)

// Store is an in-process RealtimeStore. It backs the offline/demo backend and
// the test fixtures; semantics mirror the hosted store: merge is a field-level
// union, increments commute, watches deliver an initial snapshot and then one
// snapshot per change.
//
// Consecutive changes may be coalesced: a subscriber always observes the
// latest snapshot, not necessarily every intermediate one.
type Store struct {
	mu        sync.Mutex
	docs      map[string]map[string]any
	seq       map[string]int64
	nextSeq   int64
	docSubs   map[string]map[*subscription]struct{}
	querySubs map[string]map[*subscription]struct{}
}

var _ ports.RealtimeStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		docs:      map[string]map[string]any{},
		seq:       map[string]int64{},
		docSubs:   map[string]map[*subscription]struct{}{},
		querySubs: map[string]map[*subscription]struct{}{},
	}
}

func (s *Store) Set(ctx context.Context, path string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateDocPath(path); err != nil {
		return err
	}

	s.mu.Lock()
	s.docs[path] = cloneFields(fields)
	s.bumpSeq(path)
	pending := s.snapshotsForChange(path)
	s.mu.Unlock()

	dispatch(pending)
	return nil
}

func (s *Store) Merge(ctx context.Context, path string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateDocPath(path); err != nil {
		return err
	}

	s.mu.Lock()
	doc := s.docs[path]
	if doc == nil {
		doc = map[string]any{}
		s.docs[path] = doc
	}
	for key, value := range fields {
		if inc, ok := value.(ports.Increment); ok {
			doc[key] = addDelta(doc[key], inc.By)
			continue
		}
		doc[key] = value
	}
	s.bumpSeq(path)
	pending := s.snapshotsForChange(path)
	s.mu.Unlock()

	dispatch(pending)
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateCollectionPath(collection); err != nil {
		return "", err
	}

	id := uuid.NewString()
	path := collection + "/" + id

	s.mu.Lock()
	s.docs[path] = cloneFields(fields)
	s.bumpSeq(path)
	pending := s.snapshotsForChange(path)
	s.mu.Unlock()

	dispatch(pending)
	return id, nil
}

func (s *Store) WatchDocument(ctx context.Context, path string, onNext func(ports.DocumentSnapshot)) (ports.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateDocPath(path); err != nil {
		return nil, err
	}

	sub := newSubscription()
	sub.start(func(snap any) { onNext(snap.(ports.DocumentSnapshot)) })

	s.mu.Lock()
	subs := s.docSubs[path]
	if subs == nil {
		subs = map[*subscription]struct{}{}
		s.docSubs[path] = subs
	}
	subs[sub] = struct{}{}
	sub.detach = func() {
		s.mu.Lock()
		delete(subs, sub)
		s.mu.Unlock()
	}
	// Initial snapshot is offered while the lock is held so a concurrent
	// write cannot be overwritten by an older initial value.
	sub.offer(s.documentSnapshot(path))
	s.mu.Unlock()

	return sub, nil
}

func (s *Store) WatchQuery(ctx context.Context, q ports.Query, onNext func(ports.QuerySnapshot)) (ports.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateCollectionPath(q.Collection); err != nil {
		return nil, err
	}

	sub := newSubscription()
	sub.query = &q
	sub.start(func(snap any) { onNext(snap.(ports.QuerySnapshot)) })

	s.mu.Lock()
	subs := s.querySubs[q.Collection]
	if subs == nil {
		subs = map[*subscription]struct{}{}
		s.querySubs[q.Collection] = subs
	}
	subs[sub] = struct{}{}
	sub.detach = func() {
		s.mu.Lock()
		delete(subs, sub)
		s.mu.Unlock()
	}
	sub.offer(s.querySnapshot(q))
	s.mu.Unlock()

	return sub, nil
}

// snapshotsForChange collects (subscription, snapshot) pairs for every watcher
// affected by a write to path. Called with s.mu held; delivery happens later,
// outside the lock.
func (s *Store) snapshotsForChange(path string) []delivery {
	var pending []delivery

	for sub := range s.docSubs[path] {
		pending = append(pending, delivery{sub: sub, snap: s.documentSnapshot(path)})
	}

	collection := parentCollection(path)
	for sub := range s.querySubs[collection] {
		pending = append(pending, delivery{sub: sub, snap: s.querySnapshot(*sub.query)})
	}

	return pending
}

func (s *Store) documentSnapshot(path string) ports.DocumentSnapshot {
	doc, ok := s.docs[path]
	snap := ports.DocumentSnapshot{Path: path, ID: docID(path), Exists: ok}
	if ok {
		snap.Fields = cloneFields(doc)
	}
	return snap
}

func (s *Store) querySnapshot(q ports.Query) ports.QuerySnapshot {
	prefix := q.Collection + "/"

	var docs []ports.DocumentSnapshot
	for path, fields := range s.docs {
		id, found := strings.CutPrefix(path, prefix)
		if !found || strings.Contains(id, "/") {
			continue
		}
		docs = append(docs, ports.DocumentSnapshot{
			Path:   path,
			ID:     id,
			Exists: true,
			Fields: cloneFields(fields),
		})
	}

	sort.Slice(docs, func(i, j int) bool {
		a := docs[i].Fields[q.OrderBy]
		b := docs[j].Fields[q.OrderBy]
		cmp := compareValues(a, b)
		if cmp == 0 {
			// Insertion order breaks ties so replays are stable.
			cmp = compareValues(s.seq[docs[i].Path], s.seq[docs[j].Path])
		}
		if q.Ascending {
			return cmp < 0
		}
		return cmp > 0
	})

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return ports.QuerySnapshot{Docs: docs}
}

func (s *Store) bumpSeq(path string) {
	s.nextSeq++
	s.seq[path] = s.nextSeq
}

type delivery struct {
	sub  *subscription
	snap any
}

func dispatch(pending []delivery) {
	for _, d := range pending {
		d.sub.offer(d.snap)
	}
}

func addDelta(existing any, by int64) any {
	switch v := existing.(type) {
	case int64:
		return v + by
	case int:
		return int64(v) + by
	case float64:
		return v + float64(by)
	default:
		return by
	}
}

func compareValues(a, b any) int {
	av, aok := toFloat(a)
	bv, bok := toFloat(b)
	if aok && bok {
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func cloneFields(fields map[string]any) map[string]any {
	cloned := make(map[string]any, len(fields))
	for key, value := range fields {
		cloned[key] = value
	}
	return cloned
}

func docID(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

func parentCollection(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func validateDocPath(path string) error {
	segments := strings.Split(path, "/")
	if len(segments) < 2 || len(segments)%2 != 0 {
		return fmt.Errorf("invalid document path %q", path)
	}
	return validateSegments(path, segments)
}

func validateCollectionPath(path string) error {
	segments := strings.Split(path, "/")
	if len(segments)%2 != 1 {
		return fmt.Errorf("invalid collection path %q", path)
	}
	return validateSegments(path, segments)
}

func validateSegments(path string, segments []string) error {
	for _, segment := range segments {
		if segment == "" {
			return fmt.Errorf("invalid path %q", path)
		}
	}
	return nil
}

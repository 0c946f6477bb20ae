package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawlive/classmate/internal/ports"
)

func TestMergeUnionsFieldsWithoutClobbering(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Merge(ctx, "classrooms/c1/attendees/u1", map[string]any{
		"fullName": "Ada Lovelace",
		"joinedAt": int64(100),
	}))
	require.NoError(t, store.Merge(ctx, "classrooms/c1/attendees/u1", map[string]any{
		"voteCount": ports.Increment{By: 1},
	}))

	snap := readDocument(t, store, "classrooms/c1/attendees/u1")
	require.True(t, snap.Exists)
	assert.Equal(t, "Ada Lovelace", snap.Fields["fullName"])
	assert.Equal(t, int64(100), snap.Fields["joinedAt"])
	assert.Equal(t, int64(1), snap.Fields["voteCount"])
}

func TestConcurrentIncrementsSumExactly(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	const writers = 64

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Merge(ctx, "classrooms/c1/attendees/u1", map[string]any{
				"messageCount": ports.Increment{By: 1},
			}))
		}()
	}
	wg.Wait()

	snap := readDocument(t, store, "classrooms/c1/attendees/u1")
	assert.Equal(t, int64(writers), snap.Fields["messageCount"])
}

func TestWatchDocumentDeliversInitialAndChanges(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	snaps := make(chan ports.DocumentSnapshot, 8)
	sub, err := store.WatchDocument(ctx, "classrooms/c1", func(snap ports.DocumentSnapshot) {
		snaps <- snap
	})
	require.NoError(t, err)
	defer sub.Cancel()

	initial := waitSnapshot(t, snaps)
	assert.False(t, initial.Exists)

	require.NoError(t, store.Set(ctx, "classrooms/c1", map[string]any{"title": "Bio 101", "isActive": true}))

	updated := waitSnapshot(t, snaps)
	require.True(t, updated.Exists)
	assert.Equal(t, "Bio 101", updated.Fields["title"])
}

func TestWatchQueryOrdersAndLimits(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	for i, ts := range []int64{300, 100, 200, 400} {
		_, err := store.Add(ctx, "classrooms/c1/messages", map[string]any{
			"text":      string(rune('a' + i)),
			"timestamp": ts,
		})
		require.NoError(t, err)
	}

	snaps := make(chan ports.QuerySnapshot, 8)
	sub, err := store.WatchQuery(ctx, ports.Query{
		Collection: "classrooms/c1/messages",
		OrderBy:    "timestamp",
		Ascending:  true,
		Limit:      3,
	}, func(snap ports.QuerySnapshot) {
		snaps <- snap
	})
	require.NoError(t, err)
	defer sub.Cancel()

	snap := waitQuerySnapshot(t, snaps)
	require.Len(t, snap.Docs, 3)
	assert.Equal(t, int64(100), snap.Docs[0].Fields["timestamp"])
	assert.Equal(t, int64(200), snap.Docs[1].Fields["timestamp"])
	assert.Equal(t, int64(300), snap.Docs[2].Fields["timestamp"])
}

func TestCancelIsTotal(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	var mu sync.Mutex
	delivered := 0
	sub, err := store.WatchDocument(ctx, "classrooms/c1", func(ports.DocumentSnapshot) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "classrooms/c1", map[string]any{"isActive": true}))
	sub.Cancel()

	mu.Lock()
	after := delivered
	mu.Unlock()

	require.NoError(t, store.Set(ctx, "classrooms/c1", map[string]any{"isActive": false}))
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, after, delivered, "no delivery may happen after Cancel returns")
	mu.Unlock()

	// Cancel is idempotent.
	sub.Cancel()
}

func TestInvalidPathsRejected(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()

	assert.Error(t, store.Set(ctx, "classrooms", map[string]any{}))
	assert.Error(t, store.Merge(ctx, "classrooms//c1/x", map[string]any{}))
	_, err := store.Add(ctx, "classrooms/c1", map[string]any{})
	assert.Error(t, err)
}

func readDocument(t *testing.T, store *Store, path string) ports.DocumentSnapshot {
	t.Helper()

	snaps := make(chan ports.DocumentSnapshot, 1)
	sub, err := store.WatchDocument(context.Background(), path, func(snap ports.DocumentSnapshot) {
		select {
		case snaps <- snap:
		default:
		}
	})
	require.NoError(t, err)
	defer sub.Cancel()

	return waitSnapshot(t, snaps)
}

func waitSnapshot(t *testing.T, snaps <-chan ports.DocumentSnapshot) ports.DocumentSnapshot {
	t.Helper()

	select {
	case snap := <-snaps:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for document snapshot")
		return ports.DocumentSnapshot{}
	}
}

func waitQuerySnapshot(t *testing.T, snaps <-chan ports.QuerySnapshot) ports.QuerySnapshot {
	t.Helper()

	select {
	case snap := <-snaps:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for query snapshot")
		return ports.QuerySnapshot{}
	}
}

package memory

import (
	"sync"

	"github.com/pawlive/classmate/internal/ports"
)

// subscription delivers snapshots to one watcher from a dedicated goroutine.
// Only the latest undelivered snapshot is retained, so slow consumers observe
// coalesced state rather than an unbounded backlog.
type subscription struct {
	mu      sync.Mutex
	latest  any
	has     bool
	stopped bool
	signal  chan struct{}
	done    chan struct{}
	detach  func()
	query   *ports.Query
}

func newSubscription() *subscription {
	return &subscription{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (s *subscription) start(deliver func(any)) {
	go func() {
		defer close(s.done)
		for {
			<-s.signal

			s.mu.Lock()
			if s.stopped {
				s.mu.Unlock()
				return
			}
			snap, ok := s.latest, s.has
			s.latest, s.has = nil, false
			s.mu.Unlock()

			if ok {
				deliver(snap)
			}
		}
	}()
}

func (s *subscription) offer(snap any) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.latest, s.has = snap, true
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Cancel detaches the subscription and waits for any in-flight delivery to
// finish. After Cancel returns the callback will not run again. Must not be
// called from the subscription's own callback.
//
// Lock order is store.mu then sub.mu everywhere, so detach runs before the
// stopped flag is taken.
func (s *subscription) Cancel() {
	if s.detach != nil {
		s.detach()
	}

	s.mu.Lock()
	already := s.stopped
	s.stopped = true
	s.latest, s.has = nil, false
	s.mu.Unlock()

	if !already {
		select {
		case s.signal <- struct{}{}:
		default:
		}
	}
	<-s.done
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pawlive/classmate/internal/domain"
	"github.com/pawlive/classmate/internal/ports"
)

// Session is one participant's live view of a classroom. It owns the four
// remote subscriptions (classroom document, message window, active poll,
// own vote document), the locally cached projections they feed, and the
// submission protocols that write back to the store.
//
// All remote snapshots funnel through apply, which mutates cached state under
// the session mutex, re-derives the screen, and reconciles downstream
// subscriptions. Snapshot handlers never hold the mutex across store calls,
// so a slow store cannot stall other subscriptions.
type Session struct {
	store    ports.RealtimeStore
	identity ports.IdentityProvider
	sessions ports.SessionStore
	clock    ports.Clock
	logger   *slog.Logger

	classroomID string

	mu        sync.Mutex
	started   bool
	closed    bool
	id        domain.Identity
	fullName  string
	entered   bool
	classroom *domain.Classroom
	poll      *domain.Poll
	hasVoted  bool
	selected  []int
	messages  []domain.Message

	// Subscription slots. Generations fence stale snapshots: a callback
	// delivered after its slot was rebuilt must not touch state.
	classroomSub ports.Subscription
	messagesSub  ports.Subscription
	pollSub      ports.Subscription
	pollKey      string
	pollGen      int
	voteSub      ports.Subscription
	votePollID   string
	voteGen      int

	watchCtx context.Context

	observers  map[int]func(domain.Screen)
	nextObs    int
	lastScreen domain.Screen
	everNotify bool
}

func NewSession(store ports.RealtimeStore, identity ports.IdentityProvider, sessions ports.SessionStore, clock ports.Clock, logger *slog.Logger, classroomID string) (*Session, error) {
	if strings.TrimSpace(classroomID) == "" {
		return nil, errors.New("classroom id is required")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		store:       store,
		identity:    identity,
		sessions:    sessions,
		clock:       clock,
		logger:      logger,
		classroomID: classroomID,
		observers:   map[int]func(domain.Screen){},
	}, nil
}

// Start resolves identity, restores a persisted entry marker if one matches,
// and establishes the classroom subscription. Identity resolution is awaited
// before any subscription is set up.
func (s *Session) Start(ctx context.Context) error {
	identity, err := s.identity.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve participant identity: %w", err)
	}

	marker, err := s.sessions.Load(ctx)
	restored := err == nil && marker.Valid() && marker.ParticipantID == identity.ID
	if err != nil && !errors.Is(err, domain.ErrEntryMarkerNotFound) {
		s.logger.Warn("entry marker unavailable, entry gate will be shown", "error", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if s.started {
		s.mu.Unlock()
		return errors.New("session already started")
	}
	s.started = true
	s.id = identity
	if restored {
		s.entered = true
		s.fullName = marker.FullName
	}
	s.watchCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	classroomSub, err := s.store.WatchDocument(s.watchCtx, classroomPath(s.classroomID), s.onClassroomSnapshot)
	if err != nil {
		return fmt.Errorf("watch classroom: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		classroomSub.Cancel()
		return domain.ErrSessionClosed
	}
	s.classroomSub = classroomSub
	s.mu.Unlock()

	// A restored marker may already satisfy the message-window gate.
	s.apply(func() {})
	return nil
}

// Close cancels every live subscription. Cancellation is total: once Close
// returns, no snapshot handler runs and no further state mutation happens.
// Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := []ports.Subscription{s.classroomSub, s.messagesSub, s.pollSub, s.voteSub}
	s.classroomSub, s.messagesSub, s.pollSub, s.voteSub = nil, nil, nil, nil
	s.pollGen++
	s.voteGen++
	s.mu.Unlock()

	for _, sub := range subs {
		if sub != nil {
			sub.Cancel()
		}
	}
}

// Screen derives the current interaction mode from cached remote state.
func (s *Session) Screen() domain.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.DeriveScreen(s.classroom, s.poll, s.hasVoted, s.entered)
}

// OnScreenChange registers an observer invoked (outside the session lock)
// whenever the derived screen changes. The returned function removes the
// observer.
func (s *Session) OnScreenChange(fn func(domain.Screen)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.nextObs
	s.nextObs++
	s.observers[key] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, key)
	}
}

// WaitScreen blocks until the derived screen satisfies pred or ctx expires.
func (s *Session) WaitScreen(ctx context.Context, pred func(domain.Screen) bool) (domain.Screen, error) {
	wake := make(chan struct{}, 1)
	remove := s.OnScreenChange(func(domain.Screen) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer remove()

	for {
		if screen := s.Screen(); pred(screen) {
			return screen, nil
		}
		select {
		case <-ctx.Done():
			return domain.Screen{}, ctx.Err()
		case <-wake:
		}
	}
}

// apply runs mutate under the session mutex, reconciles the dependent
// subscription slots, and notifies observers of a screen change. Subscription
// setup and teardown execute after the mutex is released.
func (s *Session) apply(mutate func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	mutate()
	plan := s.reconcileLocked()

	screen := domain.DeriveScreen(s.classroom, s.poll, s.hasVoted, s.entered)
	var notify []func(domain.Screen)
	if !s.everNotify || screen != s.lastScreen {
		s.everNotify = true
		s.lastScreen = screen
		for _, fn := range s.observers {
			notify = append(notify, fn)
		}
	}
	s.mu.Unlock()

	s.execute(plan)
	for _, fn := range notify {
		fn(screen)
	}
}

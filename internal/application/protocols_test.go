package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawlive/classmate/internal/adapters/store/memory"
	"github.com/pawlive/classmate/internal/domain"
)

func TestSubmitVoteSingleChoice(t *testing.T) {
	t.Parallel()

	f := newEnteredFixture(t)
	f.openPoll(t, "p1", map[string]any{"question": "q", "options": []any{"a", "b", "c"}})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenPoll })

	require.NoError(t, f.session.SubmitVote(context.Background(), []int{1}))

	vote := f.readDoc(t, "classrooms/c1/polls/p1/votes/u1")
	require.True(t, vote.Exists)
	assert.Equal(t, "u1", vote.Fields["uid"])
	assert.Equal(t, "Ada Lovelace", vote.Fields["voterName"])
	assert.Equal(t, int64(1), vote.Fields["selectedOption"])

	event := f.readDoc(t, "streams/p1/events/u1_1")
	require.True(t, event.Exists)
	assert.Equal(t, "1", event.Fields["optionId"])

	attendee := f.readDoc(t, "classrooms/c1/attendees/u1")
	assert.Equal(t, int64(1), attendee.Fields["voteCount"])

	f.waitScreen(t, func(s domain.Screen) bool { return s.VoteConfirmed })
}

func TestSubmitVoteMultipleChoiceFansOutPerOption(t *testing.T) {
	t.Parallel()

	f := newEnteredFixture(t)
	f.openPoll(t, "p1", map[string]any{
		"question": "q", "options": []any{"a", "b", "c"}, "isMultipleChoice": true,
	})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenPoll })

	require.NoError(t, f.session.SubmitVote(context.Background(), []int{0, 2}))

	vote := f.readDoc(t, "classrooms/c1/polls/p1/votes/u1")
	assert.Equal(t, []int64{0, 2}, vote.Fields["selectedOption"])

	assert.True(t, f.readDoc(t, "streams/p1/events/u1_0").Exists)
	assert.True(t, f.readDoc(t, "streams/p1/events/u1_2").Exists)
	assert.False(t, f.readDoc(t, "streams/p1/events/u1_1").Exists)
}

func TestSubmitVoteIgnoresInvalidSelections(t *testing.T) {
	t.Parallel()

	f := newEnteredFixture(t)
	f.openPoll(t, "p1", map[string]any{"question": "q", "options": []any{"a", "b"}})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenPoll })

	require.NoError(t, f.session.SubmitVote(context.Background(), nil))
	require.NoError(t, f.session.SubmitVote(context.Background(), []int{-1}))
	require.NoError(t, f.session.SubmitVote(context.Background(), []int{2}))

	assert.False(t, f.readDoc(t, "classrooms/c1/polls/p1/votes/u1").Exists)
	assert.False(t, f.session.Screen().VoteConfirmed)
}

func TestRapidDoubleSubmitWritesOneVote(t *testing.T) {
	t.Parallel()

	f := newEnteredFixture(t)
	f.openPoll(t, "p1", map[string]any{"question": "q", "options": []any{"a", "b"}})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenPoll })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.session.SubmitVote(context.Background(), []int{0})
		}()
	}
	wg.Wait()

	attendee := f.readDoc(t, "classrooms/c1/attendees/u1")
	assert.Equal(t, int64(1), attendee.Fields["voteCount"], "exactly one submission may pass the gate")
}

func TestSubmitVoteRollsBackOnWriteFailure(t *testing.T) {
	t.Parallel()

	flaky := &flakyStore{RealtimeStore: memory.NewStore()}
	f := newFixtureWithStore(t, flaky)
	f.moderator(t, map[string]any{"isActive": true})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenEntryGate })
	require.NoError(t, f.session.Enter(context.Background(), "Ada Lovelace"))
	f.openPoll(t, "p1", map[string]any{"question": "q", "options": []any{"a", "b"}})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenPoll })

	flaky.failSet = func(path string) bool { return path == "classrooms/c1/polls/p1/votes/u1" }

	err := f.session.SubmitVote(context.Background(), []int{0})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrVoteFailed)
	assert.False(t, f.session.Screen().VoteConfirmed, "optimistic flag must roll back")

	// A retry after the outage succeeds.
	flaky.failSet = nil
	require.NoError(t, f.session.SubmitVote(context.Background(), []int{0}))
	f.waitScreen(t, func(s domain.Screen) bool { return s.VoteConfirmed })
}

func TestSubmitVoteSurvivesFanOutFailure(t *testing.T) {
	t.Parallel()

	flaky := &flakyStore{RealtimeStore: memory.NewStore()}
	f := newFixtureWithStore(t, flaky)
	f.moderator(t, map[string]any{"isActive": true})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenEntryGate })
	require.NoError(t, f.session.Enter(context.Background(), "Ada Lovelace"))
	f.openPoll(t, "p1", map[string]any{"question": "q", "options": []any{"a", "b"}})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenPoll })

	flaky.failSet = func(path string) bool { return path == "streams/p1/events/u1_0" }

	require.NoError(t, f.session.SubmitVote(context.Background(), []int{0}),
		"the vote stands once its document is durable")
	assert.True(t, f.readDoc(t, "classrooms/c1/polls/p1/votes/u1").Exists)
	f.waitScreen(t, func(s domain.Screen) bool { return s.VoteConfirmed })
}

func TestToggleOptionBuffersMultiChoiceSelection(t *testing.T) {
	t.Parallel()

	f := newEnteredFixture(t)
	f.openPoll(t, "p1", map[string]any{
		"question": "q", "options": []any{"a", "b", "c"}, "isMultipleChoice": true,
	})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenPoll })

	f.session.ToggleOption(0)
	f.session.ToggleOption(2)
	f.session.ToggleOption(0) // untoggle
	f.session.ToggleOption(5) // out of range
	assert.Equal(t, []int{2}, f.session.SelectedOptions())
}

func TestToggleOptionIgnoresSingleChoicePolls(t *testing.T) {
	t.Parallel()

	f := newEnteredFixture(t)
	f.openPoll(t, "p1", map[string]any{"question": "q", "options": []any{"a", "b"}})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenPoll })

	f.session.ToggleOption(0)
	assert.Empty(t, f.session.SelectedOptions())
}

func TestSendMessageAppendsAndCounts(t *testing.T) {
	t.Parallel()

	f := newEnteredFixture(t)
	require.NoError(t, f.session.SendMessage(context.Background(), "  hello room  "))

	f.waitView(t, func(v View) bool { return len(v.Messages) == 1 })
	msg := f.session.View().Messages[0]
	assert.Equal(t, "hello room", msg.Text)
	assert.Equal(t, "Ada Lovelace", msg.SenderName)
	assert.True(t, msg.Mine("u1"))

	attendee := f.readDoc(t, "classrooms/c1/attendees/u1")
	assert.Equal(t, int64(1), attendee.Fields["messageCount"])
}

func TestSendMessageNoOpRules(t *testing.T) {
	t.Parallel()

	f := newEnteredFixture(t)

	require.NoError(t, f.session.SendMessage(context.Background(), "   "))

	f.moderator(t, map[string]any{"isActive": false})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenClassOffline })
	require.NoError(t, f.session.SendMessage(context.Background(), "anyone there?"))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, f.session.View().Messages)
}

func TestSendMessageSwallowsWriteFailure(t *testing.T) {
	t.Parallel()

	flaky := &flakyStore{
		RealtimeStore: memory.NewStore(),
		failAdd:       func(collection string) bool { return collection == "classrooms/c1/messages" },
	}
	f := newFixtureWithStore(t, flaky)
	f.moderator(t, map[string]any{"isActive": true})
	f.waitScreen(t, func(s domain.Screen) bool { return s.Mode == domain.ScreenEntryGate })
	require.NoError(t, f.session.Enter(context.Background(), "Ada Lovelace"))

	assert.NoError(t, f.session.SendMessage(context.Background(), "lost in transit"))
}

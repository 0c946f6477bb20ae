package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocPath(t *testing.T) {
	t.Parallel()

	ref, err := parseDocPath("classrooms/c1/polls/p1/votes/u1")
	require.NoError(t, err)
	assert.Equal(t, "classrooms.polls.votes", ref.Collection)
	assert.Equal(t, "classrooms/c1/polls/p1", ref.Parent)
	assert.Equal(t, "u1", ref.ID)

	ref, err = parseDocPath("participants/u1")
	require.NoError(t, err)
	assert.Equal(t, "participants", ref.Collection)
	assert.Equal(t, "", ref.Parent)
	assert.Equal(t, "u1", ref.ID)
}

func TestParseDocPathRejectsCollectionShapes(t *testing.T) {
	t.Parallel()

	_, err := parseDocPath("classrooms/c1/messages")
	require.Error(t, err)

	_, err = parseDocPath("classrooms//x/y")
	require.Error(t, err)

	_, err = parseDocPath("class.rooms/c1")
	require.Error(t, err)
}

func TestParseCollectionPath(t *testing.T) {
	t.Parallel()

	ref, err := parseCollectionPath("classrooms/c1/messages")
	require.NoError(t, err)
	assert.Equal(t, "classrooms.messages", ref.Collection)
	assert.Equal(t, "classrooms/c1", ref.Parent)

	_, err = parseCollectionPath("classrooms/c1")
	require.Error(t, err)
}

func TestStripMetaRemovesStoreFields(t *testing.T) {
	t.Parallel()

	fields := stripMeta(map[string]any{
		"_id":       "classrooms/c1/messages/m1",
		parentField: "classrooms/c1",
		"text":      "hello",
	})
	assert.Equal(t, map[string]any{"text": "hello"}, fields)
}

func TestDocID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "m1", docID("classrooms/c1/messages/m1"))
	assert.Equal(t, "solo", docID("solo"))
}

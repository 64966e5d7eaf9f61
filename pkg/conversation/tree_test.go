package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSession(contents ...string) *Session {
	sess := NewSession("test")
	roles := []Role{RoleUser, RoleAssistant}
	for i, content := range contents {
		sess.Trunk = append(sess.Trunk, NewMessage(roles[i%2], content))
	}
	return sess
}

func trunkContents(sess *Session) []string {
	ret := []string{}
	for _, m := range sess.Trunk {
		ret = append(ret, m.Content)
	}
	return ret
}

func TestSubmitUserMessageAppendsSlot(t *testing.T) {
	sess := makeSession()
	msg := NewMessage(RoleUser, "hello")

	slot := sess.SubmitUserMessage(msg, true)
	require.NotNil(t, slot)

	require.Len(t, sess.Trunk, 2)
	assert.Equal(t, RoleAssistant, slot.Role)
	assert.True(t, slot.Generating)
	assert.Empty(t, slot.Content)
}

func TestSubmitUserMessageWithoutSlot(t *testing.T) {
	sess := makeSession()
	slot := sess.SubmitUserMessage(NewMessage(RoleUser, "hello"), false)
	assert.Nil(t, slot)
	assert.Len(t, sess.Trunk, 1)
}

func TestEditMessageForksOldContinuation(t *testing.T) {
	sess := makeSession("q1", "a1", "q2", "a2")
	target := sess.Trunk[2]

	newMsg := NewMessage(RoleUser, "q2-edited")
	slot, err := sess.EditMessage(target.ID, newMsg)
	require.NoError(t, err)
	require.NotNil(t, slot)

	// upstream untouched, edited message and fresh slot at the end
	assert.Equal(t, []string{"q1", "a1", "q2-edited", ""}, trunkContents(sess))
	assert.True(t, slot.Generating)

	// the fork travels with the message now live at the edit position
	fork := sess.Trunk[2].Fork
	require.NotNil(t, fork)
	assert.Equal(t, 1, fork.BranchCount())

	// the archived entry holds the old message plus its downstream
	archived := fork.Entries[0].Messages
	require.Len(t, archived, 2)
	assert.Equal(t, "q2", archived[0].Content)
	assert.Equal(t, "a2", archived[1].Content)
	assert.Nil(t, archived[0].Fork)

	// the live entry is the trunk itself
	assert.Equal(t, 1, fork.ActiveIndex)
	assert.Nil(t, fork.Entries[1].Messages)
}

func TestEditMessageUnknownID(t *testing.T) {
	sess := makeSession("q1", "a1")
	_, err := sess.EditMessage(NewNodeID(), NewMessage(RoleUser, "x"))
	require.ErrorIs(t, err, ErrMessageNotFound)
}

func TestRegenerateAddsOneBranch(t *testing.T) {
	sess := makeSession("q1", "a1")
	target := sess.Trunk[1]
	assert.Equal(t, 0, target.Fork.BranchCount())

	slot, err := sess.RegenerateMessage(target.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, slot.Fork.BranchCount())
	assert.Equal(t, []string{"q1", ""}, trunkContents(sess))
	assert.Equal(t, "a1", slot.Fork.Entries[0].Messages[0].Content)
}

func TestRegenerateRejectsUserMessage(t *testing.T) {
	sess := makeSession("q1", "a1")
	_, err := sess.RegenerateMessage(sess.Trunk[0].ID)
	require.ErrorIs(t, err, ErrNotAssistant)
}

func TestShiftBranchRoundTripReproducesContent(t *testing.T) {
	sess := makeSession("q1", "a1", "q2", "a2")
	target := sess.Trunk[2]

	_, err := sess.EditMessage(target.ID, NewMessage(RoleUser, "q2-edited"))
	require.NoError(t, err)
	sess.Trunk[3].Generating = false
	sess.Trunk[3].Content = "a2-edited"

	// back to the original continuation
	require.NoError(t, sess.ShiftBranch(sess.Trunk[2].ID, 0))
	assert.Equal(t, []string{"q1", "a1", "q2", "a2"}, trunkContents(sess))
	assert.Equal(t, target.ID, sess.Trunk[2].ID)

	// and forward again: the edited continuation is intact
	require.NoError(t, sess.ShiftBranch(sess.Trunk[2].ID, 1))
	assert.Equal(t, []string{"q1", "a1", "q2-edited", "a2-edited"}, trunkContents(sess))

	// indices stayed stable across the round trip
	assert.Equal(t, 1, sess.Trunk[2].Fork.ActiveIndex)
	assert.Equal(t, 1, sess.Trunk[2].Fork.BranchCount())
}

func TestShiftBranchSameIndexIsNoop(t *testing.T) {
	sess := makeSession("q1", "a1")
	_, err := sess.RegenerateMessage(sess.Trunk[1].ID)
	require.NoError(t, err)

	fork := sess.Trunk[1].Fork
	require.NoError(t, sess.ShiftBranch(sess.Trunk[1].ID, fork.ActiveIndex))
	assert.Equal(t, []string{"q1", ""}, trunkContents(sess))
}

func TestShiftBranchErrors(t *testing.T) {
	sess := makeSession("q1", "a1")

	err := sess.ShiftBranch(sess.Trunk[1].ID, 0)
	require.ErrorIs(t, err, ErrNotForked)

	_, err = sess.RegenerateMessage(sess.Trunk[1].ID)
	require.NoError(t, err)
	err = sess.ShiftBranch(sess.Trunk[1].ID, 5)
	require.ErrorIs(t, err, ErrBadBranchIndex)
}

func TestEditTwiceRetainsAllContinuations(t *testing.T) {
	sess := makeSession("q1", "a1")
	id := sess.Trunk[0].ID

	_, err := sess.EditMessage(id, NewMessage(RoleUser, "q1-v2"))
	require.NoError(t, err)
	_, err = sess.EditMessage(sess.Trunk[0].ID, NewMessage(RoleUser, "q1-v3"))
	require.NoError(t, err)

	fork := sess.Trunk[0].Fork
	require.NotNil(t, fork)
	assert.Equal(t, 2, fork.BranchCount())
	assert.Equal(t, "q1", fork.Entries[0].Messages[0].Content)
	assert.Equal(t, "q1-v2", fork.Entries[1].Messages[0].Content)
	assert.Equal(t, 2, fork.ActiveIndex)
}

func TestStartNewThreadArchivesTrunk(t *testing.T) {
	sess := makeSession("q1", "a1")

	thread := sess.StartNewThread()
	require.NotNil(t, thread)

	assert.Empty(t, sess.Trunk)
	require.Len(t, sess.Threads, 1)
	assert.Len(t, thread.Messages, 2)
	assert.Equal(t, "q1", thread.Messages[0].Content)
}

func TestStartNewThreadEmptyTrunk(t *testing.T) {
	sess := makeSession()
	assert.Nil(t, sess.StartNewThread())
	assert.Empty(t, sess.Threads)
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(NewMemoryKV())
	require.NoError(t, err)
	return st
}

func names(metas []conversation.Meta) []string {
	ret := []string{}
	for _, m := range metas {
		ret = append(ret, m.Name)
	}
	return ret
}

func TestNewStoreSynthesizesFirstSession(t *testing.T) {
	st := testStore(t)

	metas, err := st.ListSessions()
	require.NoError(t, err)
	require.Len(t, metas, 1)

	active, err := st.ActiveSession()
	require.NoError(t, err)
	assert.Equal(t, metas[0].ID, active.ID)
}

func TestCreateSessionBecomesActive(t *testing.T) {
	st := testStore(t)

	sess, err := st.CreateSession("rust questions")
	require.NoError(t, err)

	active, err := st.ActiveSession()
	require.NoError(t, err)
	assert.Equal(t, sess.ID, active.ID)

	metas, err := st.ListSessions()
	require.NoError(t, err)
	assert.Len(t, metas, 2)
}

func TestSessionRoundTrip(t *testing.T) {
	st := testStore(t)
	sess, err := st.CreateSession("persisted")
	require.NoError(t, err)

	sess.SubmitUserMessage(conversation.NewMessage(conversation.RoleUser, "q1"), false)
	sess.Trunk = append(sess.Trunk, conversation.NewMessage(conversation.RoleAssistant, "a1"))
	_, err = sess.EditMessage(sess.Trunk[0].ID, conversation.NewMessage(conversation.RoleUser, "q1-edited"))
	require.NoError(t, err)
	require.NoError(t, st.SaveSession(sess))

	loaded, err := st.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", loaded.Name)
	require.Len(t, loaded.Trunk, 2)
	assert.Equal(t, "q1-edited", loaded.Trunk[0].Content)

	// the retained branch survives the round trip
	fork := loaded.Trunk[0].Fork
	require.NotNil(t, fork)
	assert.Equal(t, 1, fork.BranchCount())
	assert.Equal(t, "q1", fork.Entries[0].Messages[0].Content)
}

func TestDeleteActiveFallsBackToPrevious(t *testing.T) {
	st := testStore(t)
	a, err := st.CreateSession("A")
	require.NoError(t, err)
	b, err := st.CreateSession("B")
	require.NoError(t, err)
	_, err = st.CreateSession("C")
	require.NoError(t, err)

	require.NoError(t, st.SetActiveSession(b.ID))
	active, err := st.DeleteSession(b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)
}

func TestDeleteActiveFirstFallsBackToNext(t *testing.T) {
	st := testStore(t)

	// drop the synthesized blank so the list is exactly [A, B]
	metas, err := st.ListSessions()
	require.NoError(t, err)
	a, err := st.CreateSession("A")
	require.NoError(t, err)
	b, err := st.CreateSession("B")
	require.NoError(t, err)
	_, err = st.DeleteSession(metas[0].ID)
	require.NoError(t, err)

	require.NoError(t, st.SetActiveSession(a.ID))
	active, err := st.DeleteSession(a.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)
}

func TestDeleteInactiveKeepsSelection(t *testing.T) {
	st := testStore(t)
	a, err := st.CreateSession("A")
	require.NoError(t, err)
	b, err := st.CreateSession("B")
	require.NoError(t, err)

	require.NoError(t, st.SetActiveSession(b.ID))
	active, err := st.DeleteSession(a.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)
}

func TestDeleteLastSynthesizesBlank(t *testing.T) {
	st := testStore(t)
	metas, err := st.ListSessions()
	require.NoError(t, err)
	require.Len(t, metas, 1)

	active, err := st.DeleteSession(metas[0].ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.NotEqual(t, metas[0].ID, active.ID)
	assert.Empty(t, active.Name)

	// the store never ends up empty
	metas, err = st.ListSessions()
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestDeleteUnknownSession(t *testing.T) {
	st := testStore(t)
	_, err := st.DeleteSession(conversation.NewNodeID())
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestReorderSessions(t *testing.T) {
	st := testStore(t)
	metas, _ := st.ListSessions()
	_, err := st.DeleteSession(metas[0].ID)
	require.NoError(t, err)

	for _, name := range []string{"B", "C", "D"} {
		_, err := st.CreateSession(name)
		require.NoError(t, err)
	}
	// deleting the only session synthesized a fresh blank, so the list is
	// [blank, B, C, D]
	metas, err = st.ListSessions()
	require.NoError(t, err)
	require.Equal(t, []string{"", "B", "C", "D"}, names(metas))

	require.NoError(t, st.ReorderSessions(3, 1))
	metas, err = st.ListSessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"", "D", "B", "C"}, names(metas))

	require.NoError(t, st.ReorderSessions(0, 3))
	metas, err = st.ListSessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "B", "C", ""}, names(metas))

	// ordering is presentation only
	active, err := st.ActiveSession()
	require.NoError(t, err)
	assert.Equal(t, "D", active.Name)
}

func TestReorderSessionsOutOfRange(t *testing.T) {
	st := testStore(t)
	require.Error(t, st.ReorderSessions(0, 5))
	require.Error(t, st.ReorderSessions(-1, 0))
}

func TestSetActiveSessionUnknown(t *testing.T) {
	st := testStore(t)
	err := st.SetActiveSession(conversation.NewNodeID())
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSQLiteKVRoundTrip(t *testing.T) {
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer func() {
		_ = kv.Close()
	}()

	_, ok, err := kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set("session:1", []byte("one")))
	require.NoError(t, kv.Set("session:2", []byte("two")))
	require.NoError(t, kv.Set("session:1", []byte("one-updated")))

	value, ok, err := kv.Get("session:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("one-updated"), value)

	keys, err := kv.Keys("session:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"session:1", "session:2"}, keys)

	require.NoError(t, kv.Delete("session:2"))
	_, ok, err = kv.Get("session:2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	st, err := NewStore(kv)
	require.NoError(t, err)
	sess, err := st.CreateSession("durable")
	require.NoError(t, err)
	require.NoError(t, kv.Close())

	kv2, err := NewSQLiteKV(path)
	require.NoError(t, err)
	defer func() {
		_ = kv2.Close()
	}()
	st2, err := NewStore(kv2)
	require.NoError(t, err)

	active, err := st2.ActiveSession()
	require.NoError(t, err)
	assert.Equal(t, sess.ID, active.ID)
	assert.Equal(t, "durable", active.Name)
}

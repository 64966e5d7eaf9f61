package store

import (
	"encoding/json"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	sessionListKey   = "session-list"
	sessionKeyPrefix = "session:"
)

var ErrSessionNotFound = errors.New("session not found")

// listState is the persisted session index: ordering, listing metadata and
// the active selection. Bodies live under their own keys and are loaded
// lazily.
type listState struct {
	Sessions []conversation.Meta `json:"sessions"`
	ActiveID conversation.NodeID `json:"activeId"`
}

// Store persists sessions in a KV backend. There is always at least one
// session and always an active one; deleting the last session synthesizes a
// blank replacement rather than leaving the store empty.
type Store struct {
	kv KV
}

func NewStore(kv KV) (*Store, error) {
	ret := &Store{kv: kv}

	state, err := ret.loadList()
	if err != nil {
		return nil, err
	}
	if len(state.Sessions) == 0 {
		if _, err := ret.synthesizeBlank(state); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func sessionKey(id conversation.NodeID) string {
	return sessionKeyPrefix + id.String()
}

func (s *Store) loadList() (*listState, error) {
	raw, ok, err := s.kv.Get(sessionListKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &listState{}, nil
	}
	var state listState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, errors.Wrap(err, "corrupt session list")
	}
	return &state, nil
}

func (s *Store) saveList(state *listState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.kv.Set(sessionListKey, raw)
}

// ListSessions returns the listing metadata in display order, without
// loading any session body.
func (s *Store) ListSessions() ([]conversation.Meta, error) {
	state, err := s.loadList()
	if err != nil {
		return nil, err
	}
	return state.Sessions, nil
}

// CreateSession persists a new session, appends it to the list and makes it
// active.
func (s *Store) CreateSession(name string, options ...conversation.SessionOption) (*conversation.Session, error) {
	sess := conversation.NewSession(name, options...)
	if err := s.SaveSession(sess); err != nil {
		return nil, err
	}

	state, err := s.loadList()
	if err != nil {
		return nil, err
	}
	state.Sessions = append(state.Sessions, sess.Meta())
	state.ActiveID = sess.ID
	if err := s.saveList(state); err != nil {
		return nil, err
	}
	log.Debug().Str("session_id", sess.ID.String()).Str("name", name).Msg("created session")
	return sess, nil
}

// GetSession loads a session body.
func (s *Store) GetSession(id conversation.NodeID) (*conversation.Session, error) {
	raw, ok, err := s.kv.Get(sessionKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(ErrSessionNotFound, id.String())
	}
	var sess conversation.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, errors.Wrapf(err, "corrupt session %s", id)
	}
	return &sess, nil
}

// SaveSession persists the session body and refreshes its listing entry.
func (s *Store) SaveSession(sess *conversation.Session) error {
	sess.Lock()
	raw, err := json.Marshal(sess)
	meta := sess.Meta()
	sess.Unlock()
	if err != nil {
		return err
	}
	if err := s.kv.Set(sessionKey(sess.ID), raw); err != nil {
		return err
	}

	state, err := s.loadList()
	if err != nil {
		return err
	}
	for i := range state.Sessions {
		if state.Sessions[i].ID == sess.ID {
			state.Sessions[i] = meta
			return s.saveList(state)
		}
	}
	return nil
}

// DeleteSession removes a session. When the active session is deleted the
// selection falls back deterministically: the previous list entry, else the
// next one, else a synthesized blank session.
func (s *Store) DeleteSession(id conversation.NodeID) (*conversation.Session, error) {
	state, err := s.loadList()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range state.Sessions {
		if state.Sessions[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errors.Wrap(ErrSessionNotFound, id.String())
	}

	state.Sessions = append(state.Sessions[:idx], state.Sessions[idx+1:]...)
	if err := s.kv.Delete(sessionKey(id)); err != nil {
		return nil, err
	}

	if state.ActiveID != id {
		if err := s.saveList(state); err != nil {
			return nil, err
		}
		return s.GetSession(state.ActiveID)
	}

	if len(state.Sessions) == 0 {
		sess, err := s.synthesizeBlank(state)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("deleted_id", id.String()).Msg("deleted last session, synthesized a blank one")
		return sess, nil
	}

	next := idx - 1
	if next < 0 {
		next = 0
	}
	state.ActiveID = state.Sessions[next].ID
	if err := s.saveList(state); err != nil {
		return nil, err
	}
	log.Debug().
		Str("deleted_id", id.String()).
		Str("active_id", state.ActiveID.String()).
		Msg("deleted active session")
	return s.GetSession(state.ActiveID)
}

// ReorderSessions moves the entry at from to position to, shifting the
// in-between entries. Ordering is pure presentation, the active selection is
// untouched.
func (s *Store) ReorderSessions(from int, to int) error {
	state, err := s.loadList()
	if err != nil {
		return err
	}
	if from < 0 || from >= len(state.Sessions) || to < 0 || to >= len(state.Sessions) {
		return errors.Errorf("reorder out of range: %d -> %d with %d sessions", from, to, len(state.Sessions))
	}
	if from == to {
		return nil
	}

	moved := state.Sessions[from]
	rest := append(state.Sessions[:from], state.Sessions[from+1:]...)
	state.Sessions = append(rest[:to], append([]conversation.Meta{moved}, rest[to:]...)...)
	return s.saveList(state)
}

// ActiveSession loads the currently selected session.
func (s *Store) ActiveSession() (*conversation.Session, error) {
	state, err := s.loadList()
	if err != nil {
		return nil, err
	}
	if len(state.Sessions) == 0 {
		return s.synthesizeBlank(state)
	}
	return s.GetSession(state.ActiveID)
}

// SetActiveSession switches the selection to an existing session.
func (s *Store) SetActiveSession(id conversation.NodeID) error {
	state, err := s.loadList()
	if err != nil {
		return err
	}
	for _, meta := range state.Sessions {
		if meta.ID == id {
			state.ActiveID = id
			return s.saveList(state)
		}
	}
	return errors.Wrap(ErrSessionNotFound, id.String())
}

// synthesizeBlank creates and activates an unnamed session so the store
// never ends up empty.
func (s *Store) synthesizeBlank(state *listState) (*conversation.Session, error) {
	sess := conversation.NewSession("")
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(sessionKey(sess.ID), raw); err != nil {
		return nil, err
	}
	state.Sessions = append(state.Sessions, sess.Meta())
	state.ActiveID = sess.ID
	if err := s.saveList(state); err != nil {
		return nil, err
	}
	return sess, nil
}

package conversation

import (
	"sync"
	"time"

	"github.com/go-go-golems/parley/pkg/settings"
)

type SessionType string

const (
	SessionTypeChat    SessionType = "chat"
	SessionTypePicture SessionType = "picture"
)

// Thread is an archived, closed conversation segment. It stays visible for
// scrollback but is never sent to a provider as context again.
type Thread struct {
	ID        NodeID     `json:"id"`
	Name      string     `json:"name,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	Messages  []*Message `json:"messages"`
}

// Session is one conversation: the active trunk, archived threads, and the
// provider/model selection used for generations.
//
// All trunk and fork mutations go through the operations in tree.go, under
// the session guard. The guard also serializes edit/regenerate against each
// other so two fork operations cannot race on the same position.
type Session struct {
	ID       NodeID                 `json:"id"`
	Name     string                 `json:"name"`
	Type     SessionType            `json:"type"`
	Trunk    []*Message             `json:"trunk"`
	Threads  []*Thread              `json:"threads,omitempty"`
	Provider string                 `json:"provider,omitempty"`
	Model    string                 `json:"model,omitempty"`
	Settings *settings.ChatSettings `json:"settings,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	mu sync.Mutex
}

type SessionOption func(*Session)

func WithSessionID(id NodeID) SessionOption {
	return func(s *Session) {
		s.ID = id
	}
}

func WithSessionType(t SessionType) SessionOption {
	return func(s *Session) {
		s.Type = t
	}
}

func WithProvider(provider string, model string) SessionOption {
	return func(s *Session) {
		s.Provider = provider
		s.Model = model
	}
}

func WithSettings(overrides *settings.ChatSettings) SessionOption {
	return func(s *Session) {
		s.Settings = overrides
	}
}

func NewSession(name string, options ...SessionOption) *Session {
	ret := &Session{
		ID:        NewNodeID(),
		Name:      name,
		Type:      SessionTypeChat,
		CreatedAt: time.Now(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Lock takes the session guard. Callers outside this package use it to get a
// consistent read of the trunk while generations are streaming into it.
func (s *Session) Lock() {
	s.mu.Lock()
}

func (s *Session) Unlock() {
	s.mu.Unlock()
}

// Conversation returns the active trunk as an ordered conversation.
func (s *Session) Conversation() Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make(Conversation, len(s.Trunk))
	copy(ret, s.Trunk)
	return ret
}

// GetMessage finds a message by id on the active trunk.
func (s *Session) GetMessage(id NodeID) (*Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.position(id)
	if idx < 0 {
		return nil, false
	}
	return s.Trunk[idx], true
}

// Meta is the lightweight listing entry persisted separately from the full
// session body so the session list loads without the bodies.
type Meta struct {
	ID       NodeID      `json:"id"`
	Name     string      `json:"name"`
	Type     SessionType `json:"type"`
	Provider string      `json:"provider,omitempty"`
	Model    string      `json:"model,omitempty"`
}

func (s *Session) Meta() Meta {
	return Meta{
		ID:       s.ID,
		Name:     s.Name,
		Type:     s.Type,
		Provider: s.Provider,
		Model:    s.Model,
	}
}

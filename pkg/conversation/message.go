package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type NodeID uuid.UUID

func (id NodeID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id))
}

func (id *NodeID) UnmarshalJSON(data []byte) error {
	var uuid uuid.UUID
	if err := json.Unmarshal(data, &uuid); err != nil {
		return err
	}
	*id = NodeID(uuid)
	return nil
}

func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

var NullNode NodeID = NodeID(uuid.Nil)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Picture is an image attachment on a message, either by URL or inline.
type Picture struct {
	URL       string `json:"url,omitempty"`
	Base64    string `json:"base64,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Usage carries the token accounting a backend reported for one generation.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Metadata holds per-generation information attached once a generation
// completes. TokensUsed is input+output as reported by the backend.
type Metadata struct {
	Model      string  `json:"model,omitempty"`
	Usage      *Usage  `json:"usage,omitempty"`
	TokensUsed int     `json:"tokensUsed,omitempty"`
	StopReason *string `json:"stopReason,omitempty"`
}

// Message is a single turn on a session trunk (or inside a retained branch).
//
// Content is mutable while Generating is true: the generation controller
// appends streamed deltas in receive order. Once Generating flips false the
// content is final for this branch state. Thinking holds reasoning text
// extracted out of the visible delta stream.
type Message struct {
	ID         NodeID    `json:"id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Thinking   string    `json:"thinking,omitempty"`
	Generating bool      `json:"generating,omitempty"`
	Error      string    `json:"error,omitempty"`
	Metadata   *Metadata `json:"metadata,omitempty"`
	Pictures   []Picture `json:"pictures,omitempty"`
	Fork       *Fork     `json:"fork,omitempty"`
	Time       time.Time `json:"time"`
	LastUpdate time.Time `json:"lastUpdate"`

	// cancel aborts the generation currently writing this slot. Bound by the
	// generation controller, revoked when a newer generation supersedes it.
	cancel context.CancelFunc
	// generation is the sequence number of the writer allowed to mutate this
	// slot. Deltas from superseded generations are ignored.
	generation uint64

	// lazily computed counts, valid only while Generating is false
	wordCount  *int
	tokenCount *int
}

type MessageOption func(*Message)

func WithID(id NodeID) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Time = t
		m.LastUpdate = t
	}
}

func WithPictures(pictures ...Picture) MessageOption {
	return func(m *Message) {
		m.Pictures = pictures
	}
}

func WithGenerating() MessageOption {
	return func(m *Message) {
		m.Generating = true
	}
}

func NewMessage(role Role, text string, options ...MessageOption) *Message {
	ret := &Message{
		ID:         NewNodeID(),
		Role:       role,
		Content:    text,
		Time:       time.Now(),
		LastUpdate: time.Now(),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// BindCancel installs the abort handle for the generation identified by seq.
func (m *Message) BindCancel(seq uint64, cancel context.CancelFunc) {
	m.generation = seq
	m.cancel = cancel
}

// Generation returns the sequence number of the current writer.
func (m *Message) Generation() uint64 {
	return m.generation
}

// Cancel aborts the live generation for this slot, if any. Safe to call on a
// slot that is not generating.
func (m *Message) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}

// AppendContent applies one streamed delta. Counts are invalidated because
// the content is still moving.
func (m *Message) AppendContent(delta string) {
	m.Content += delta
	m.LastUpdate = time.Now()
	m.wordCount = nil
	m.tokenCount = nil
}

// AppendThinking accumulates reasoning text kept out of the visible content.
func (m *Message) AppendThinking(delta string) {
	m.Thinking += delta
	m.LastUpdate = time.Now()
}

func (m *Message) View() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Content, "\n"))
}

type Conversation []*Message

// GetSinglePrompt flattens the conversation into one prompt string, used for
// best-effort side generations such as auto-naming.
func (messages Conversation) GetSinglePrompt() string {
	if len(messages) == 0 {
		return ""
	}
	if len(messages) == 1 {
		return messages[0].Content
	}

	prompt := ""
	for _, message := range messages {
		prompt += fmt.Sprintf("[%s]: %s\n", message.Role, message.Content)
	}
	return prompt
}

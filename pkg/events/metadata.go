package events

import (
	"encoding/json"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Usage represents token usage information common across LLM providers.
type Usage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

// EventMetadata identifies which generation an event belongs to and carries
// the inference data the backend reported.
type EventMetadata struct {
	ID        uuid.UUID           `json:"message_id"`
	SessionID conversation.NodeID `json:"session_id,omitempty"`
	MessageID conversation.NodeID `json:"target_id,omitempty"`

	Model      string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	StopReason  *string  `json:"stop_reason,omitempty"`
	Usage       *Usage   `json:"usage,omitempty"`
	DurationMs  *int64   `json:"duration_ms,omitempty"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("message_id", em.ID.String())
	e.Str("session_id", em.SessionID.String())
	e.Str("target_id", em.MessageID.String())
	if em.Model != "" {
		e.Str("model", em.Model)
	}
	if em.StopReason != nil {
		e.Str("stop_reason", *em.StopReason)
	}
	if em.Usage != nil {
		e.Int("input_tokens", em.Usage.InputTokens)
		e.Int("output_tokens", em.Usage.OutputTokens)
	}
}

var _ zerolog.LogObjectMarshaler = EventMetadata{}

func (em EventMetadata) JSON() []byte {
	ret, _ := json.Marshal(em)
	return ret
}

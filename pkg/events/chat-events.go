package events

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeStart through EventTypeFinal track one streamed completion
	EventTypeStart             EventType = "start"
	EventTypePartialCompletion EventType = "partial"
	// Separate partial stream for reasoning/thinking text
	EventTypePartialThinking EventType = "partial-thinking"
	EventTypeFinal           EventType = "final"

	EventTypeError     EventType = "error"
	EventTypeInterrupt EventType = "interrupt"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Error_    string        `json:"error,omitempty"`
	Metadata_ EventMetadata `json:"meta,omitempty"`

	// raw JSON payload when the event was deserialized (see NewEventFromJson)
	payload []byte
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	if e.Error_ != "" {
		ev.Str("error", e.Error_)
	}
	ev.Object("meta", e.Metadata_)
}

var _ Event = &EventImpl{}

type EventPartialCompletionStart struct {
	EventImpl
}

func NewStartEvent(metadata EventMetadata) *EventPartialCompletionStart {
	return &EventPartialCompletionStart{
		EventImpl: EventImpl{
			Type_:     EventTypeStart,
			Metadata_: metadata,
		},
	}
}

type EventPartialCompletion struct {
	EventImpl
	Delta string `json:"delta"`
	// Completion is the accumulated visible text so far
	Completion string `json:"completion"`
}

func NewPartialCompletionEvent(metadata EventMetadata, delta string, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl: EventImpl{
			Type_:     EventTypePartialCompletion,
			Metadata_: metadata,
		},
		Delta:      delta,
		Completion: completion,
	}
}

type EventPartialThinking struct {
	EventImpl
	Delta string `json:"delta"`
}

func NewPartialThinkingEvent(metadata EventMetadata, delta string) *EventPartialThinking {
	return &EventPartialThinking{
		EventImpl: EventImpl{
			Type_:     EventTypePartialThinking,
			Metadata_: metadata,
		},
		Delta: delta,
	}
}

type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

func NewFinalEvent(metadata EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{
			Type_:     EventTypeFinal,
			Metadata_: metadata,
		},
		Text: text,
	}
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl: EventImpl{
			Type_:     EventTypeError,
			Error_:    err.Error(),
			Metadata_: metadata,
		},
		ErrorString: err.Error(),
	}
}

type EventInterrupt struct {
	EventImpl
	Text string `json:"text"`
}

func NewInterruptEvent(metadata EventMetadata, text string) *EventInterrupt {
	return &EventInterrupt{
		EventImpl: EventImpl{
			Type_:     EventTypeInterrupt,
			Metadata_: metadata,
		},
		Text: text,
	}
}

// NewEventFromJson decodes a serialized event back into its typed form, used
// by router handlers receiving watermill payloads.
func NewEventFromJson(b []byte) (Event, error) {
	var base EventImpl
	if err := json.Unmarshal(b, &base); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal event")
	}
	base.payload = b

	switch base.Type_ {
	case EventTypeStart:
		ret := &EventPartialCompletionStart{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, err
		}
		ret.payload = b
		return ret, nil
	case EventTypePartialCompletion:
		ret := &EventPartialCompletion{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, err
		}
		ret.payload = b
		return ret, nil
	case EventTypePartialThinking:
		ret := &EventPartialThinking{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, err
		}
		ret.payload = b
		return ret, nil
	case EventTypeFinal:
		ret := &EventFinal{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, err
		}
		ret.payload = b
		return ret, nil
	case EventTypeError:
		ret := &EventError{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, err
		}
		ret.payload = b
		return ret, nil
	case EventTypeInterrupt:
		ret := &EventInterrupt{}
		if err := json.Unmarshal(b, ret); err != nil {
			return nil, err
		}
		ret.payload = b
		return ret, nil
	}

	return &base, nil
}

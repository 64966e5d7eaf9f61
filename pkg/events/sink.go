package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/lithammer/shortuuid/v3"
	"github.com/rs/zerolog/log"
)

// Sink receives generation events. Publishing is best-effort: a failing sink
// must never affect the generation itself.
type Sink interface {
	PublishEvent(event Event) error
}

// NullSink drops everything.
type NullSink struct{}

func (NullSink) PublishEvent(Event) error {
	return nil
}

var _ Sink = NullSink{}

// PublisherSink serializes events and hands them to a watermill publisher on
// a fixed topic.
type PublisherSink struct {
	publisher message.Publisher
	topic     string
}

func NewPublisherSink(publisher message.Publisher, topic string) *PublisherSink {
	return &PublisherSink{
		publisher: publisher,
		topic:     topic,
	}
}

func (s *PublisherSink) PublishEvent(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(shortuuid.New(), payload)
	return s.publisher.Publish(s.topic, msg)
}

var _ Sink = (*PublisherSink)(nil)

// PublishBlind publishes to a sink and only logs failures.
func PublishBlind(sink Sink, event Event) {
	if sink == nil {
		return
	}
	if err := sink.PublishEvent(event); err != nil {
		log.Warn().Err(err).Str("event_type", string(event.Type())).Msg("failed to publish event")
	}
}

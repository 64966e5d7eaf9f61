package providers

import (
	"context"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
)

// Engine is one provider adapter instance, constructed with credentials,
// endpoint and model selection. It translates a normalized request into a
// backend call and normalizes the backend's stream framing back into an
// ordered sequence of deltas.
type Engine interface {
	// Generate starts a streamed completion over msgs (system-prompt-first,
	// then chronological turns). Deltas arrive on the returned stream in
	// receive order; cancelling ctx aborts the backend call promptly and the
	// stream reports an abort. A mid-stream backend error closes the stream
	// with a classified error, leaving already-delivered deltas intact.
	Generate(ctx context.Context, msgs conversation.Conversation) (*Stream, error)

	// ListModels returns the model ids this backend offers. Best-effort: on
	// failure it returns a static fallback list rather than an error, so
	// model pickers remain usable.
	ListModels(ctx context.Context) []string
}

// StreamEvent is one incremental unit of generated text. Exactly one of the
// fields is set; Thinking carries reasoning text kept out of the visible
// content stream.
type StreamEvent struct {
	Delta    string
	Thinking string
}

// Result is the final outcome of one generation.
type Result struct {
	Text       string
	Thinking   string
	Model      string
	StopReason *string
	Usage      *events.Usage
}

// Stream is a finite, cancellable sequence of deltas for one in-flight
// completion. It is not restartable. Consumers range over Events() until it
// closes, then read Result(). On cancellation the producer stops sending and
// pending events are dropped, not drained.
type Stream struct {
	ch     chan StreamEvent
	result *Result
	err    error
}

func NewStream() *Stream {
	return &Stream{
		ch: make(chan StreamEvent),
	}
}

func (s *Stream) Events() <-chan StreamEvent {
	return s.ch
}

// Result returns the final result or classified error. Only valid after
// Events() has closed.
func (s *Stream) Result() (*Result, error) {
	return s.result, s.err
}

// Emit delivers one event, giving up if ctx is cancelled. Returns false when
// the producer should stop. Producer-side only.
func (s *Stream) Emit(ctx context.Context, ev StreamEvent) bool {
	select {
	case s.ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close finishes the stream with a result or classified error and unblocks
// the consumer. Producer-side only; call exactly once.
func (s *Stream) Close(result *Result, err error) {
	s.result = result
	s.err = err
	close(s.ch)
}

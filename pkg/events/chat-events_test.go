package events

import (
	"encoding/json"
	"testing"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMetadata() EventMetadata {
	return EventMetadata{
		ID:        uuid.New(),
		SessionID: conversation.NewNodeID(),
		MessageID: conversation.NewNodeID(),
		Model:     "gpt-4o",
	}
}

func roundTrip(t *testing.T, event Event) Event {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	decoded, err := NewEventFromJson(payload)
	require.NoError(t, err)
	return decoded
}

func TestPartialCompletionRoundTrip(t *testing.T) {
	metadata := testMetadata()
	decoded := roundTrip(t, NewPartialCompletionEvent(metadata, "lo", "Hello"))

	partial, ok := decoded.(*EventPartialCompletion)
	require.True(t, ok)
	assert.Equal(t, "lo", partial.Delta)
	assert.Equal(t, "Hello", partial.Completion)
	assert.Equal(t, metadata.MessageID, partial.Metadata().MessageID)
	assert.Equal(t, "gpt-4o", partial.Metadata().Model)
}

func TestFinalRoundTrip(t *testing.T) {
	decoded := roundTrip(t, NewFinalEvent(testMetadata(), "Hello world"))
	final, ok := decoded.(*EventFinal)
	require.True(t, ok)
	assert.Equal(t, "Hello world", final.Text)
}

func TestThinkingRoundTrip(t *testing.T) {
	decoded := roundTrip(t, NewPartialThinkingEvent(testMetadata(), "hmm"))
	thinking, ok := decoded.(*EventPartialThinking)
	require.True(t, ok)
	assert.Equal(t, "hmm", thinking.Delta)
}

func TestErrorRoundTrip(t *testing.T) {
	decoded := roundTrip(t, NewErrorEvent(testMetadata(), errors.New("backend exploded")))
	errEvent, ok := decoded.(*EventError)
	require.True(t, ok)
	assert.Equal(t, "backend exploded", errEvent.ErrorString)
	assert.Equal(t, EventTypeError, errEvent.Type())
}

func TestInterruptRoundTrip(t *testing.T) {
	decoded := roundTrip(t, NewInterruptEvent(testMetadata(), "partial tex"))
	interrupt, ok := decoded.(*EventInterrupt)
	require.True(t, ok)
	assert.Equal(t, "partial tex", interrupt.Text)
}

func TestStartRoundTrip(t *testing.T) {
	decoded := roundTrip(t, NewStartEvent(testMetadata()))
	assert.Equal(t, EventTypeStart, decoded.Type())
}

func TestNewEventFromJsonInvalid(t *testing.T) {
	_, err := NewEventFromJson([]byte("not json"))
	require.Error(t, err)
}

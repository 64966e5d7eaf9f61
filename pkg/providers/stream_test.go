package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDeliversInOrder(t *testing.T) {
	stream := NewStream()
	go func() {
		ctx := context.Background()
		stream.Emit(ctx, StreamEvent{Delta: "Hel"})
		stream.Emit(ctx, StreamEvent{Delta: "lo"})
		stream.Close(&Result{Text: "Hello"}, nil)
	}()

	received := ""
	for ev := range stream.Events() {
		received += ev.Delta
	}
	assert.Equal(t, "Hello", received)

	result, err := stream.Result()
	require.NoError(t, err)
	assert.Equal(t, "Hello", result.Text)
}

func TestStreamEmitGivesUpOnCancel(t *testing.T) {
	stream := NewStream()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// nobody is receiving; a cancelled context must unblock the producer
	ok := stream.Emit(ctx, StreamEvent{Delta: "dropped"})
	assert.False(t, ok)
}

func TestStreamResultCarriesError(t *testing.T) {
	stream := NewStream()
	go stream.Close(&Result{Text: "partial"}, NewAPIError("openai", 500, "boom"))

	for range stream.Events() {
		t.Fatal("no events expected")
	}
	result, err := stream.Result()
	require.Error(t, err)
	assert.Equal(t, "partial", result.Text)
}

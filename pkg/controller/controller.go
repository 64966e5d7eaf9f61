package controller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/gateway"
	"github.com/go-go-golems/parley/pkg/providers"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Controller drives generations into assistant slots. It enforces the
// single-writer rule: at most one generation mutates a given slot, a newer
// one supersedes and cancels the older, and deltas are applied in receive
// order under the session guard.
type Controller struct {
	gateway *gateway.Gateway
	sink    events.Sink
	seq     atomic.Uint64
}

type Option func(*Controller)

func WithSink(sink events.Sink) Option {
	return func(c *Controller) {
		c.sink = sink
	}
}

func NewController(gw *gateway.Gateway, options ...Option) *Controller {
	ret := &Controller{
		gateway: gw,
		sink:    events.NullSink{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// StartGeneration streams a completion into slot. Dispatch errors (validation,
// unreachable backend before the first byte) are returned synchronously and
// the empty slot is removed from the trunk; the caller surfaces them at the
// point of action. Once the stream is live the method returns a channel that
// closes when the generation settles, and all further outcomes land on the
// slot itself.
func (c *Controller) StartGeneration(ctx context.Context, sess *conversation.Session, slot *conversation.Message) (<-chan struct{}, error) {
	genCtx, cancel := context.WithCancel(ctx)
	seq := c.seq.Add(1)

	sess.Lock()
	// a newer writer takes over the slot; the old generation is cancelled
	// and its remaining deltas are ignored
	slot.Cancel()
	slot.BindCancel(seq, cancel)
	slot.Generating = true
	sess.Unlock()

	stream, err := c.gateway.Complete(genCtx, sess)
	if err != nil {
		cancel()
		c.removeEmptySlot(sess, slot, seq)
		return nil, err
	}

	resolved := c.gateway.ResolveSettings(sess)
	metadata := events.EventMetadata{
		ID:        uuid.New(),
		SessionID: sess.ID,
		MessageID: slot.ID,
	}
	if resolved.Chat != nil {
		if resolved.Chat.Model != nil {
			metadata.Model = *resolved.Chat.Model
		}
		metadata.Temperature = resolved.Chat.Temperature
		metadata.TopP = resolved.Chat.TopP
	}
	events.PublishBlind(c.sink, events.NewStartEvent(metadata))

	done := make(chan struct{})
	started := time.Now()
	go func() {
		defer close(done)
		defer cancel()
		c.consume(genCtx, sess, slot, seq, stream, metadata, started)
	}()
	return done, nil
}

// consume applies the delta stream to the slot in receive order and settles
// the slot from the stream result.
func (c *Controller) consume(ctx context.Context, sess *conversation.Session, slot *conversation.Message, seq uint64, stream *providers.Stream, metadata events.EventMetadata, started time.Time) {
	for ev := range stream.Events() {
		sess.Lock()
		if slot.Generation() != seq {
			sess.Unlock()
			log.Debug().
				Str("slot_id", slot.ID.String()).
				Uint64("seq", seq).
				Msg("generation superseded, dropping stream")
			return
		}
		if ev.Thinking != "" {
			slot.AppendThinking(ev.Thinking)
			sess.Unlock()
			events.PublishBlind(c.sink, events.NewPartialThinkingEvent(metadata, ev.Thinking))
			continue
		}
		slot.AppendContent(ev.Delta)
		completion := slot.Content
		sess.Unlock()
		events.PublishBlind(c.sink, events.NewPartialCompletionEvent(metadata, ev.Delta, completion))
	}

	result, err := stream.Result()
	durationMs := time.Since(started).Milliseconds()
	metadata.DurationMs = &durationMs
	if result != nil {
		metadata.StopReason = result.StopReason
		if result.Usage != nil {
			metadata.Usage = result.Usage
		}
	}

	sess.Lock()
	if slot.Generation() != seq {
		sess.Unlock()
		return
	}
	slot.Generating = false

	switch {
	case providers.IsAbort(err):
		// user abort freezes partial content without marking an error
		sess.Unlock()
		log.Debug().Str("slot_id", slot.ID.String()).Msg("generation aborted")
		events.PublishBlind(c.sink, events.NewInterruptEvent(metadata, slot.Content))
	case err != nil:
		slot.Error = err.Error()
		sess.Unlock()
		log.Debug().Err(err).Str("slot_id", slot.ID.String()).Msg("generation failed")
		events.PublishBlind(c.sink, events.NewErrorEvent(metadata, err))
	default:
		c.settle(slot, result)
		text := slot.Content
		sess.Unlock()
		events.PublishBlind(c.sink, events.NewFinalEvent(metadata, text))
	}
}

// settle attaches the final inference metadata. Callers hold the guard.
func (c *Controller) settle(slot *conversation.Message, result *providers.Result) {
	if result == nil {
		return
	}
	meta := &conversation.Metadata{
		Model:      result.Model,
		StopReason: result.StopReason,
	}
	if result.Usage != nil {
		meta.Usage = &conversation.Usage{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
		}
		meta.TokensUsed = result.Usage.InputTokens + result.Usage.OutputTokens
	}
	slot.Metadata = meta
}

// removeEmptySlot drops a slot that never received a byte, so a failed
// dispatch leaves no husk on the trunk.
func (c *Controller) removeEmptySlot(sess *conversation.Session, slot *conversation.Message, seq uint64) {
	sess.Lock()
	defer sess.Unlock()
	if slot.Generation() != seq {
		return
	}
	slot.Generating = false
	for i, m := range sess.Trunk {
		if m.ID == slot.ID && m.Content == "" {
			sess.Trunk = append(sess.Trunk[:i], sess.Trunk[i+1:]...)
			return
		}
	}
}

// StopGeneration aborts the generation writing the given slot, if any.
func (c *Controller) StopGeneration(sess *conversation.Session, slotID conversation.NodeID) {
	msg, ok := sess.GetMessage(slotID)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()
	msg.Cancel()
}

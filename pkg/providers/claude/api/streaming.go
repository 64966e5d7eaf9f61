package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog/log"
)

type StreamingEventType string

const (
	PingType              StreamingEventType = "ping"
	MessageStartType      StreamingEventType = "message_start"
	ContentBlockStartType StreamingEventType = "content_block_start"
	ContentBlockDeltaType StreamingEventType = "content_block_delta"
	ContentBlockStopType  StreamingEventType = "content_block_stop"
	MessageDeltaType      StreamingEventType = "message_delta"
	MessageStopType       StreamingEventType = "message_stop"
	ErrorType             StreamingEventType = "error"
)

type StreamingDeltaType string

const (
	TextDeltaType     StreamingDeltaType = "text_delta"
	ThinkingDeltaType StreamingDeltaType = "thinking_delta"
)

type StreamingEvent struct {
	Type         StreamingEventType `json:"type"`
	Message      *MessageInfo       `json:"message,omitempty"`
	Delta        *Delta             `json:"delta,omitempty"`
	Error        *Error             `json:"error,omitempty"`
	Index        int                `json:"index,omitempty"`
	Usage        *Usage             `json:"usage,omitempty"`
	ContentBlock *StartedBlock      `json:"content_block,omitempty"`
}

type MessageInfo struct {
	ID    string `json:"id,omitempty"`
	Model string `json:"model,omitempty"`
	Usage *Usage `json:"usage,omitempty"`
}

type StartedBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Delta struct {
	Type         StreamingDeltaType `json:"type,omitempty"`
	Text         string             `json:"text,omitempty"`
	Thinking     string             `json:"thinking,omitempty"`
	StopReason   string             `json:"stop_reason,omitempty"`
	StopSequence string             `json:"stop_sequence,omitempty"`
}

// decodeSSE reads server-sent events off r and delivers each parsed event in
// order. Network chunk boundaries never align with event boundaries, so
// lines are accumulated until the blank line that terminates an event. A
// read failure other than EOF or cancellation is returned to the caller.
func decodeSSE(ctx context.Context, r io.Reader, events chan<- StreamingEvent) error {
	reader := bufio.NewReader(r)
	var eventLines [][]byte
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if len(bytes.TrimSpace(line)) != 0 {
			eventLines = append(eventLines, line)
			continue
		}

		// empty line terminates the event
		event, ok := parseSSEEvent(eventLines)
		eventLines = eventLines[:0]
		if !ok {
			continue
		}
		select {
		case events <- event:
		case <-ctx.Done():
			return nil
		}
		if event.Type == MessageStopType {
			// sentinel: the stream is done, anything after is noise
			return nil
		}
	}
}

// parseSSEEvent joins the data fields of one SSE event and unmarshals them.
func parseSSEEvent(lines [][]byte) (StreamingEvent, bool) {
	var data []byte
	for _, line := range lines {
		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))

		parts := bytes.SplitN(line, []byte(": "), 2)
		if len(parts) != 2 {
			continue
		}
		if string(parts[0]) == "data" {
			data = append(data, parts[1]...)
			data = append(data, '\n')
		}
	}
	data = bytes.TrimSuffix(data, []byte("\n"))
	if len(data) == 0 {
		return StreamingEvent{}, false
	}

	var event StreamingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		log.Debug().Err(err).Str("data", string(data)).Msg("failed to parse SSE event")
		return StreamingEvent{}, false
	}
	return event, true
}

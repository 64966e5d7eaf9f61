package claude

import (
	"context"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/providers"
	"github.com/go-go-golems/parley/pkg/providers/claude/api"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	origin         = "claude"
	defaultBaseURL = "https://api.anthropic.com"

	// the messages API requires max_tokens; used when settings leave it unset
	defaultMaxTokens = 4096
)

// Engine implements the provider adapter for the Anthropic messages API.
// The backend frames its stream as typed SSE events (message_start,
// content_block_delta, message_stop); this adapter normalizes them into the
// uniform delta sequence, routing thinking blocks into the reasoning
// stream.
type Engine struct {
	settings *settings.StepSettings
}

func NewEngine(stepSettings *settings.StepSettings) *Engine {
	return &Engine{
		settings: stepSettings,
	}
}

var _ providers.Engine = (*Engine)(nil)

func (e *Engine) client() (*api.Client, error) {
	apiKey := e.settings.API.APIKeys[settings.ProviderClaude]
	if apiKey == "" {
		return nil, &settings.ValidationError{Field: "claude.api_key", Reason: "missing API key"}
	}
	baseURL := e.settings.API.BaseURLs[settings.ProviderClaude]
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	options := []api.ClientOption{}
	if e.settings.Client != nil && e.settings.Client.HTTPClient != nil {
		options = append(options, api.WithHTTPClient(e.settings.Client.HTTPClient))
	}
	return api.NewClient(apiKey, baseURL, options...), nil
}

func (e *Engine) Generate(ctx context.Context, msgs conversation.Conversation) (*providers.Stream, error) {
	client, err := e.client()
	if err != nil {
		return nil, err
	}

	req, err := makeMessageRequest(e.settings, msgs)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("model", req.Model).Int("num_messages", len(req.Messages)).Msg("claude starting streaming request")
	sseEvents, errCh, err := client.StreamMessages(ctx, req)
	if err != nil {
		return nil, classify(err)
	}

	stream := providers.NewStream()
	go func() {
		result := &providers.Result{Model: req.Model}
		var usage events.Usage

		for event := range sseEvents {
			switch event.Type {
			case api.MessageStartType:
				if event.Message != nil {
					if event.Message.Model != "" {
						result.Model = event.Message.Model
					}
					if event.Message.Usage != nil {
						usage.InputTokens = event.Message.Usage.InputTokens
					}
				}
			case api.ContentBlockDeltaType:
				if event.Delta == nil {
					continue
				}
				switch event.Delta.Type {
				case api.ThinkingDeltaType:
					result.Thinking += event.Delta.Thinking
					if !stream.Emit(ctx, providers.StreamEvent{Thinking: event.Delta.Thinking}) {
						stream.Close(result, ctx.Err())
						return
					}
				case api.TextDeltaType:
					if event.Delta.Text == "" {
						continue
					}
					if !stream.Emit(ctx, providers.StreamEvent{Delta: event.Delta.Text}) {
						stream.Close(result, ctx.Err())
						return
					}
					result.Text += event.Delta.Text
				}
			case api.MessageDeltaType:
				if event.Delta != nil && event.Delta.StopReason != "" {
					reason := event.Delta.StopReason
					result.StopReason = &reason
				}
				if event.Usage != nil {
					usage.OutputTokens = event.Usage.OutputTokens
				}
			case api.ErrorType:
				// mid-stream backend error: already-delivered deltas stay
				// with the caller
				msg := "unknown streaming error"
				if event.Error != nil {
					msg = event.Error.Message
				}
				if usage.InputTokens > 0 || usage.OutputTokens > 0 {
					result.Usage = &usage
				}
				stream.Close(result, providers.NewAPIError(origin, 0, msg))
				return
			case api.MessageStopType:
				if usage.InputTokens > 0 || usage.OutputTokens > 0 {
					result.Usage = &usage
				}
				stream.Close(result, nil)
				return
			}
		}

		// channel closed without message_stop: cancellation or transport
		if usage.InputTokens > 0 || usage.OutputTokens > 0 {
			result.Usage = &usage
		}
		select {
		case err := <-errCh:
			stream.Close(result, classify(err))
		default:
			if ctx.Err() != nil {
				stream.Close(result, ctx.Err())
			} else {
				stream.Close(result, providers.NewNetworkError(origin, errors.New("stream ended unexpectedly")))
			}
		}
	}()

	return stream, nil
}

func makeMessageRequest(stepSettings *settings.StepSettings, msgs conversation.Conversation) (*api.Request, error) {
	chatSettings := stepSettings.Chat
	if chatSettings == nil || chatSettings.Model == nil {
		return nil, errors.New("no model specified")
	}
	model := *chatSettings.Model

	req := &api.Request{
		Model:     model,
		MaxTokens: defaultMaxTokens,
	}
	if chatSettings.MaxResponseTokens != nil {
		req.MaxTokens = *chatSettings.MaxResponseTokens
	}
	req.Temperature = chatSettings.Temperature
	req.TopP = chatSettings.TopP
	req.StopSequences = chatSettings.Stop

	for _, msg := range msgs {
		// the messages API takes the system prompt out of band
		if msg.Role == conversation.RoleSystem {
			req.System = msg.Content
			continue
		}
		content := []api.ContentBlock{api.NewTextBlock(msg.Content)}
		if len(msg.Pictures) > 0 && providers.SupportsVision(model) {
			for _, pic := range msg.Pictures {
				if pic.Base64 == "" {
					continue
				}
				content = append(content, api.NewImageBlock(pic.MediaType, pic.Base64))
			}
		}
		req.Messages = append(req.Messages, api.Message{
			Role:    string(msg.Role),
			Content: content,
		})
	}

	return req, nil
}

func classify(err error) error {
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		return providers.NewAPIError(origin, reqErr.StatusCode, reqErr.Body)
	}
	return providers.ClassifyTransport(origin, err)
}

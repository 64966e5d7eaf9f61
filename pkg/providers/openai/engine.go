package openai

import (
	"context"
	"io"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/providers"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

const origin = "openai"

// Engine implements the provider adapter for the OpenAI-compatible family
// (chat/completions SSE framing with a data: [DONE] sentinel, handled by the
// go-openai client).
type Engine struct {
	settings *settings.StepSettings
}

func NewEngine(stepSettings *settings.StepSettings) *Engine {
	return &Engine{
		settings: stepSettings,
	}
}

var _ providers.Engine = (*Engine)(nil)

func (e *Engine) Generate(ctx context.Context, msgs conversation.Conversation) (*providers.Stream, error) {
	client, err := MakeClient(e.settings.API, e.settings.Client)
	if err != nil {
		return nil, err
	}

	req, err := MakeCompletionRequest(e.settings, msgs)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("model", req.Model).Int("num_messages", len(req.Messages)).Msg("openai starting streaming request")
	sseStream, err := client.CreateChatCompletionStream(ctx, *req)
	if err != nil {
		return nil, classify(err)
	}

	stream := providers.NewStream()
	thinkTag := settings.DefaultThinkTag
	if e.settings.Chat.ThinkTag != nil {
		thinkTag = *e.settings.Chat.ThinkTag
	}

	go func() {
		defer func() {
			if err := sseStream.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close openai stream")
			}
		}()

		extractor := providers.NewThinkTagExtractor(thinkTag)
		result := &providers.Result{Model: req.Model}
		chunkCount := 0

		for {
			response, err := sseStream.Recv()
			if errors.Is(err, io.EOF) {
				visible, thinking := extractor.Flush()
				if visible != "" && stream.Emit(ctx, providers.StreamEvent{Delta: visible}) {
					result.Text += visible
				}
				result.Thinking += thinking
				log.Debug().Int("chunks_received", chunkCount).Msg("openai stream completed")
				stream.Close(result, nil)
				return
			}
			if err != nil {
				log.Debug().Err(err).Int("chunks_received", chunkCount).Msg("openai stream receive failed")
				stream.Close(result, classify(err))
				return
			}
			chunkCount++

			if response.Usage != nil {
				result.Usage = &events.Usage{
					InputTokens:  response.Usage.PromptTokens,
					OutputTokens: response.Usage.CompletionTokens,
				}
			}
			if len(response.Choices) == 0 {
				continue
			}
			choice := response.Choices[0]
			if choice.FinishReason != "" {
				reason := string(choice.FinishReason)
				result.StopReason = &reason
			}
			if choice.Delta.Content == "" {
				continue
			}

			visible, thinking := extractor.Feed(choice.Delta.Content)
			if thinking != "" {
				result.Thinking += thinking
				if !stream.Emit(ctx, providers.StreamEvent{Thinking: thinking}) {
					stream.Close(result, ctx.Err())
					return
				}
			}
			if visible != "" {
				if !stream.Emit(ctx, providers.StreamEvent{Delta: visible}) {
					stream.Close(result, ctx.Err())
					return
				}
				result.Text += visible
			}
		}
	}()

	return stream, nil
}

func classify(err error) error {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		return providers.NewAPIError(origin, apiErr.HTTPStatusCode, apiErr.Message)
	}
	return providers.ClassifyTransport(origin, err)
}

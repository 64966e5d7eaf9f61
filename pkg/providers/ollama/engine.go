package ollama

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/events"
	"github.com/go-go-golems/parley/pkg/providers"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const origin = "ollama"

// Engine implements the provider adapter for a local ollama daemon. The
// client delivers newline-delimited JSON chunks through a callback; the
// adapter pumps them into the uniform delta stream and splits think-tagged
// reasoning out of the visible text.
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
	baseURL := e.settings.API.BaseURLs[settings.ProviderOllama]
	if baseURL == "" {
		return nil, &settings.ValidationError{Field: "ollama.base_url", Reason: "missing base URL"}
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid ollama base URL %s", baseURL)
	}
	httpClient := http.DefaultClient
	if e.settings.Client != nil && e.settings.Client.HTTPClient != nil {
		httpClient = e.settings.Client.HTTPClient
	}
	return api.NewClient(parsed, httpClient), nil
}

func (e *Engine) Generate(ctx context.Context, msgs conversation.Conversation) (*providers.Stream, error) {
	client, err := e.client()
	if err != nil {
		return nil, err
	}

	req, err := makeChatRequest(e.settings, msgs)
	if err != nil {
		return nil, err
	}

	thinkTag := settings.DefaultThinkTag
	if e.settings.Chat.ThinkTag != nil {
		thinkTag = *e.settings.Chat.ThinkTag
	}

	log.Debug().Str("model", req.Model).Int("num_messages", len(req.Messages)).Msg("ollama starting streaming request")

	stream := providers.NewStream()
	go func() {
		extractor := providers.NewThinkTagExtractor(thinkTag)
		result := &providers.Result{Model: req.Model}
		emitErr := errors.New("stream consumer gone")

		err := client.Chat(ctx, req, func(resp api.ChatResponse) error {
			if resp.Done {
				result.Usage = &events.Usage{
					InputTokens:  resp.PromptEvalCount,
					OutputTokens: resp.EvalCount,
				}
				reason := "stop"
				result.StopReason = &reason
				return nil
			}

			visible, thinking := extractor.Feed(resp.Message.Content)
			if thinking != "" {
				result.Thinking += thinking
				if !stream.Emit(ctx, providers.StreamEvent{Thinking: thinking}) {
					return emitErr
				}
			}
			if visible != "" {
				if !stream.Emit(ctx, providers.StreamEvent{Delta: visible}) {
					return emitErr
				}
				result.Text += visible
			}
			return nil
		})

		if err != nil {
			if errors.Is(err, emitErr) || ctx.Err() != nil {
				stream.Close(result, ctx.Err())
				return
			}
			stream.Close(result, providers.ClassifyTransport(origin, err))
			return
		}

		visible, thinking := extractor.Flush()
		if visible != "" && stream.Emit(ctx, providers.StreamEvent{Delta: visible}) {
			result.Text += visible
		}
		result.Thinking += thinking
		stream.Close(result, nil)
	}()

	return stream, nil
}

func makeChatRequest(stepSettings *settings.StepSettings, msgs conversation.Conversation) (*api.ChatRequest, error) {
	chatSettings := stepSettings.Chat
	if chatSettings == nil || chatSettings.Model == nil {
		return nil, errors.New("no model specified")
	}
	model := *chatSettings.Model

	ollamaMessages := make([]api.Message, 0, len(msgs))
	for _, msg := range msgs {
		message := api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if len(msg.Pictures) > 0 && providers.SupportsVision(model) {
			for _, pic := range msg.Pictures {
				if pic.Base64 == "" {
					continue
				}
				raw, err := base64.StdEncoding.DecodeString(pic.Base64)
				if err != nil {
					log.Warn().Err(err).Str("picture", pic.Name).Msg("skipping undecodable picture")
					continue
				}
				message.Images = append(message.Images, api.ImageData(raw))
			}
		}
		ollamaMessages = append(ollamaMessages, message)
	}

	options := map[string]interface{}{}
	if chatSettings.Temperature != nil {
		options["temperature"] = *chatSettings.Temperature
	}
	if chatSettings.TopP != nil {
		options["top_p"] = *chatSettings.TopP
	}
	if chatSettings.MaxResponseTokens != nil {
		options["num_predict"] = *chatSettings.MaxResponseTokens
	}
	if len(chatSettings.Stop) > 0 {
		options["stop"] = chatSettings.Stop
	}

	streaming := true
	return &api.ChatRequest{
		Model:    model,
		Messages: ollamaMessages,
		Stream:   &streaming,
		Options:  options,
	}, nil
}

package openai

import (
	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/providers"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

// MakeClient builds a go-openai client from API settings. The base URL is
// how OpenAI-compatible backends (together, deepseek, local proxies) are
// reached with the same adapter.
func MakeClient(apiSettings *settings.APISettings, clientSettings *settings.ClientSettings) (*go_openai.Client, error) {
	if apiSettings == nil {
		return nil, errors.New("no api settings")
	}
	apiKey := apiSettings.APIKeys[settings.ProviderOpenAI]
	if apiKey == "" {
		return nil, &settings.ValidationError{Field: "openai.api_key", Reason: "missing API key"}
	}

	config := go_openai.DefaultConfig(apiKey)
	if baseURL := apiSettings.BaseURLs[settings.ProviderOpenAI]; baseURL != "" {
		config.BaseURL = baseURL
	}
	if clientSettings != nil && clientSettings.HTTPClient != nil {
		config.HTTPClient = clientSettings.HTTPClient
	}

	return go_openai.NewClientWithConfig(config), nil
}

// MakeCompletionRequest translates the normalized conversation into an
// OpenAI chat completion request. Image attachments become multi-content
// parts when the selected model supports vision.
func MakeCompletionRequest(
	stepSettings *settings.StepSettings,
	msgs conversation.Conversation,
) (*go_openai.ChatCompletionRequest, error) {
	chatSettings := stepSettings.Chat
	if chatSettings == nil || chatSettings.Model == nil {
		return nil, errors.New("no model specified")
	}
	model := *chatSettings.Model

	msgs_ := make([]go_openai.ChatCompletionMessage, 0, len(msgs))
	for _, msg := range msgs {
		msg_ := go_openai.ChatCompletionMessage{
			Role: string(msg.Role),
		}
		if len(msg.Pictures) > 0 && providers.SupportsVision(model) {
			parts := []go_openai.ChatMessagePart{
				{
					Type: go_openai.ChatMessagePartTypeText,
					Text: msg.Content,
				},
			}
			for _, pic := range msg.Pictures {
				url := pic.URL
				if url == "" && pic.Base64 != "" {
					url = "data:" + pic.MediaType + ";base64," + pic.Base64
				}
				parts = append(parts, go_openai.ChatMessagePart{
					Type: go_openai.ChatMessagePartTypeImageURL,
					ImageURL: &go_openai.ChatMessageImageURL{
						URL:    url,
						Detail: go_openai.ImageURLDetailAuto,
					},
				})
			}
			msg_.MultiContent = parts
		} else {
			msg_.Content = msg.Content
		}
		msgs_ = append(msgs_, msg_)
	}

	req := &go_openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs_,
		Stream:   true,
		StreamOptions: &go_openai.StreamOptions{
			IncludeUsage: true,
		},
	}
	if chatSettings.Temperature != nil {
		req.Temperature = float32(*chatSettings.Temperature)
	}
	if chatSettings.TopP != nil {
		req.TopP = float32(*chatSettings.TopP)
	}
	if chatSettings.MaxResponseTokens != nil {
		req.MaxTokens = *chatSettings.MaxResponseTokens
	}
	if len(chatSettings.Stop) > 0 {
		req.Stop = chatSettings.Stop
	}

	return req, nil
}

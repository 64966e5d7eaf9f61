package openai

import (
	"testing"

	"github.com/go-go-golems/parley/pkg/conversation"
	"github.com/go-go-golems/parley/pkg/settings"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSettings(model string) *settings.StepSettings {
	ret := settings.NewStepSettings()
	ret.Chat.Model = &model
	ret.API.APIKeys[settings.ProviderOpenAI] = "test-key"
	return ret
}

func TestMakeCompletionRequest(t *testing.T) {
	stepSettings := makeSettings("gpt-4o")
	temperature := 0.7
	stepSettings.Chat.Temperature = &temperature
	maxTokens := 512
	stepSettings.Chat.MaxResponseTokens = &maxTokens
	stepSettings.Chat.Stop = []string{"END"}

	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleSystem, "be brief"),
		conversation.NewMessage(conversation.RoleUser, "hi"),
	}

	req, err := MakeCompletionRequest(stepSettings, msgs)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", req.Model)
	assert.True(t, req.Stream)
	require.NotNil(t, req.StreamOptions)
	assert.True(t, req.StreamOptions.IncludeUsage)
	assert.InDelta(t, 0.7, req.Temperature, 0.001)
	assert.Equal(t, 512, req.MaxTokens)
	assert.Equal(t, []string{"END"}, req.Stop)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "be brief", req.Messages[0].Content)
	assert.Equal(t, "hi", req.Messages[1].Content)
}

func TestMakeCompletionRequestNoModel(t *testing.T) {
	stepSettings := settings.NewStepSettings()
	_, err := MakeCompletionRequest(stepSettings, nil)
	require.Error(t, err)
}

func TestMakeCompletionRequestVision(t *testing.T) {
	stepSettings := makeSettings("gpt-4o")
	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, "what is this?",
			conversation.WithPictures(conversation.Picture{
				Base64:    "aGVsbG8=",
				MediaType: "image/png",
				Name:      "shot.png",
			})),
	}

	req, err := MakeCompletionRequest(stepSettings, msgs)
	require.NoError(t, err)

	require.Len(t, req.Messages, 1)
	parts := req.Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.Equal(t, go_openai.ChatMessagePartTypeText, parts[0].Type)
	assert.Equal(t, "what is this?", parts[0].Text)
	assert.Equal(t, go_openai.ChatMessagePartTypeImageURL, parts[1].Type)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", parts[1].ImageURL.URL)
}

func TestMakeCompletionRequestPicturesIgnoredWithoutVision(t *testing.T) {
	stepSettings := makeSettings("gpt-3.5-turbo")
	msgs := conversation.Conversation{
		conversation.NewMessage(conversation.RoleUser, "what is this?",
			conversation.WithPictures(conversation.Picture{Base64: "aGVsbG8=", MediaType: "image/png"})),
	}

	req, err := MakeCompletionRequest(stepSettings, msgs)
	require.NoError(t, err)
	assert.Empty(t, req.Messages[0].MultiContent)
	assert.Equal(t, "what is this?", req.Messages[0].Content)
}

func TestMakeClient(t *testing.T) {
	stepSettings := makeSettings("gpt-4o")
	client, err := MakeClient(stepSettings.API, stepSettings.Client)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestMakeClientMissingKey(t *testing.T) {
	stepSettings := settings.NewStepSettings()
	_, err := MakeClient(stepSettings.API, stepSettings.Client)
	var validationErr *settings.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

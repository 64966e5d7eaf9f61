package settings

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlayAppliesOnlySetFields(t *testing.T) {
	base := NewStepSettings().Chat
	model := "gpt-4o"
	base.Model = &model
	temperature := 0.7
	base.Temperature = &temperature

	override := &ChatSettings{}
	overrideModel := "claude-3-haiku-20240307"
	override.Model = &overrideModel

	merged := base.Overlay(override)
	assert.Equal(t, "claude-3-haiku-20240307", *merged.Model)
	assert.Equal(t, 0.7, *merged.Temperature)

	// base untouched
	assert.Equal(t, "gpt-4o", *base.Model)
}

func TestOverlayNil(t *testing.T) {
	base := NewStepSettings().Chat
	merged := base.Overlay(nil)
	require.NotNil(t, merged)
	assert.Equal(t, *base.Provider, *merged.Provider)
}

func TestCloneIsDeep(t *testing.T) {
	original := NewStepSettings()
	model := "gpt-4o"
	original.Chat.Model = &model
	original.API.APIKeys[ProviderOpenAI] = "key-1"

	cloned := original.Clone()
	*cloned.Chat.Model = "changed"
	cloned.API.APIKeys[ProviderOpenAI] = "key-2"

	assert.Equal(t, "gpt-4o", *original.Chat.Model)
	assert.Equal(t, "key-1", original.API.APIKeys[ProviderOpenAI])
}

func TestCloneSharesHTTPClient(t *testing.T) {
	original := NewStepSettings()
	original.Client.HTTPClient = &http.Client{}

	cloned := original.Clone()
	assert.Same(t, original.Client.HTTPClient, cloned.Client.HTTPClient)
}

func TestValidate(t *testing.T) {
	model := "m"
	testCases := []struct {
		name     string
		mutate   func(*StepSettings)
		provider Provider
		field    string
	}{
		{
			name:     "missing model",
			mutate:   func(s *StepSettings) {},
			provider: ProviderOpenAI,
			field:    "model",
		},
		{
			name: "missing openai key",
			mutate: func(s *StepSettings) {
				s.Chat.Model = &model
			},
			provider: ProviderOpenAI,
			field:    "openai.api_key",
		},
		{
			name: "missing claude key",
			mutate: func(s *StepSettings) {
				s.Chat.Model = &model
			},
			provider: ProviderClaude,
			field:    "claude.api_key",
		},
		{
			name: "missing ollama base url",
			mutate: func(s *StepSettings) {
				s.Chat.Model = &model
			},
			provider: ProviderOllama,
			field:    "ollama.base_url",
		},
		{
			name: "unknown provider",
			mutate: func(s *StepSettings) {
				s.Chat.Model = &model
			},
			provider: Provider("mystery"),
			field:    "provider",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStepSettings()
			tc.mutate(s)
			err := s.Validate(tc.provider)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}
}

func TestValidateOK(t *testing.T) {
	s := NewStepSettings()
	model := "gpt-4o"
	s.Chat.Model = &model
	s.API.APIKeys[ProviderOpenAI] = "key"
	require.NoError(t, s.Validate(ProviderOpenAI))

	s.API.BaseURLs[ProviderOllama] = "http://localhost:11434"
	require.NoError(t, s.Validate(ProviderOllama))
}

func TestSettingsFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	s := NewStepSettings()
	model := "gpt-4o"
	s.Chat.Model = &model
	temperature := 0.3
	s.Chat.Temperature = &temperature
	s.API.APIKeys[ProviderClaude] = "secret"

	require.NoError(t, s.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", *loaded.Chat.Model)
	assert.Equal(t, 0.3, *loaded.Chat.Temperature)
	assert.Equal(t, "secret", loaded.API.APIKeys[ProviderClaude])
}

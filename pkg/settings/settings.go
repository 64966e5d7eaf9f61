package settings

import (
	"fmt"
	"net/http"
	"time"

	"github.com/huandu/go-clone"
)

// Provider identifies a backend family handled by one adapter.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
	ProviderOllama Provider = "ollama"
)

const (
	DefaultMaxContextMessages = 10
	DefaultThinkTag           = "think"
	DefaultTimeout            = 60 * time.Second
)

// ChatSettings are the per-generation knobs. Fields are pointers so that a
// per-session override only replaces what it actually sets; nil falls back
// to the engine-wide defaults.
type ChatSettings struct {
	Provider          *Provider `yaml:"provider,omitempty" mapstructure:"provider"`
	Model             *string   `yaml:"model,omitempty" mapstructure:"model"`
	MaxResponseTokens *int      `yaml:"max_response_tokens,omitempty" mapstructure:"max_response_tokens"`
	TopP              *float64  `yaml:"top_p,omitempty" mapstructure:"top_p"`
	Temperature       *float64  `yaml:"temperature,omitempty" mapstructure:"temperature"`
	Stop              []string  `yaml:"stop,omitempty" mapstructure:"stop"`

	// MaxContextMessages bounds how many non-system messages are sent as
	// context; truncation drops oldest first. The system message is always
	// retained.
	MaxContextMessages *int `yaml:"max_context_messages,omitempty" mapstructure:"max_context_messages"`

	// ThinkTag names the tag pair delimiting reasoning segments for backends
	// that inline them in the content stream.
	ThinkTag *string `yaml:"think_tag,omitempty" mapstructure:"think_tag"`
}

func (s *ChatSettings) Clone() *ChatSettings {
	return clone.Clone(s).(*ChatSettings)
}

// Overlay returns a copy of s with every non-nil field of override applied.
func (s *ChatSettings) Overlay(override *ChatSettings) *ChatSettings {
	ret := s.Clone()
	if override == nil {
		return ret
	}
	if override.Provider != nil {
		ret.Provider = override.Provider
	}
	if override.Model != nil {
		ret.Model = override.Model
	}
	if override.MaxResponseTokens != nil {
		ret.MaxResponseTokens = override.MaxResponseTokens
	}
	if override.TopP != nil {
		ret.TopP = override.TopP
	}
	if override.Temperature != nil {
		ret.Temperature = override.Temperature
	}
	if len(override.Stop) > 0 {
		ret.Stop = override.Stop
	}
	if override.MaxContextMessages != nil {
		ret.MaxContextMessages = override.MaxContextMessages
	}
	if override.ThinkTag != nil {
		ret.ThinkTag = override.ThinkTag
	}
	return ret
}

type ClientSettings struct {
	Timeout   *time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
	UserAgent *string        `yaml:"user_agent,omitempty" mapstructure:"user_agent"`

	HTTPClient *http.Client `yaml:"-" json:"-" mapstructure:"-"`
}

func NewClientSettings() *ClientSettings {
	defaultTimeout := DefaultTimeout
	return &ClientSettings{
		Timeout: &defaultTimeout,
	}
}

// APISettings holds per-provider credentials and endpoints, keyed by
// provider id. Never hard-code these; they come from config or per-session
// overrides.
type APISettings struct {
	APIKeys  map[Provider]string `yaml:"api_keys,omitempty" mapstructure:"api_keys"`
	BaseURLs map[Provider]string `yaml:"base_urls,omitempty" mapstructure:"base_urls"`
}

// StepSettings aggregates everything needed to construct a provider call.
type StepSettings struct {
	Chat   *ChatSettings   `yaml:"chat,omitempty" mapstructure:"chat"`
	Client *ClientSettings `yaml:"client,omitempty" mapstructure:"client"`
	API    *APISettings    `yaml:"api,omitempty" mapstructure:"api"`
}

func NewStepSettings() *StepSettings {
	maxContext := DefaultMaxContextMessages
	thinkTag := DefaultThinkTag
	provider := ProviderOpenAI
	return &StepSettings{
		Chat: &ChatSettings{
			Provider:           &provider,
			MaxContextMessages: &maxContext,
			ThinkTag:           &thinkTag,
			Stop:               []string{},
		},
		Client: NewClientSettings(),
		API: &APISettings{
			APIKeys:  map[Provider]string{},
			BaseURLs: map[Provider]string{},
		},
	}
}

func (s *StepSettings) Clone() *StepSettings {
	ret := clone.Clone(s).(*StepSettings)
	// http clients are shared, not cloned
	if s.Client != nil && ret.Client != nil {
		ret.Client.HTTPClient = s.Client.HTTPClient
	}
	return ret
}

// ValidationError blocks the triggering action when required configuration
// is missing; it is surfaced inline at the point of action, never attached
// to a message.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid settings: %s: %s", e.Field, e.Reason)
}

// Validate checks that the settings can construct a call for the given
// provider.
func (s *StepSettings) Validate(provider Provider) error {
	if s.Chat == nil || s.Chat.Model == nil || *s.Chat.Model == "" {
		return &ValidationError{Field: "model", Reason: "no model selected"}
	}
	switch provider {
	case ProviderOpenAI, ProviderClaude:
		if s.API == nil || s.API.APIKeys[provider] == "" {
			return &ValidationError{Field: string(provider) + ".api_key", Reason: "missing API key"}
		}
	case ProviderOllama:
		if s.API == nil || s.API.BaseURLs[provider] == "" {
			return &ValidationError{Field: "ollama.base_url", Reason: "missing base URL"}
		}
	default:
		return &ValidationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", provider)}
	}
	return nil
}

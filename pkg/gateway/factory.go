package gateway

import (
	"strings"

	"github.com/go-go-golems/parley/pkg/providers"
	"github.com/go-go-golems/parley/pkg/providers/claude"
	"github.com/go-go-golems/parley/pkg/providers/ollama"
	"github.com/go-go-golems/parley/pkg/providers/openai"
	"github.com/go-go-golems/parley/pkg/settings"
	"github.com/pkg/errors"
)

// EngineFactory creates provider engines from resolved settings. The
// interface exists so tests and embedding applications can substitute their
// own engines without the gateway knowing concrete implementations.
type EngineFactory interface {
	// CreateEngine builds an engine for the provider named in
	// stepSettings.Chat.Provider. Returns an error for unsupported providers.
	CreateEngine(stepSettings *settings.StepSettings) (providers.Engine, error)

	// SupportedProviders lists the provider ids this factory handles.
	SupportedProviders() []settings.Provider

	// DefaultProvider is used when settings leave the provider unset.
	DefaultProvider() settings.Provider
}

// StandardEngineFactory maps provider ids to the built-in adapters.
type StandardEngineFactory struct{}

func NewStandardEngineFactory() *StandardEngineFactory {
	return &StandardEngineFactory{}
}

var _ EngineFactory = (*StandardEngineFactory)(nil)

func (f *StandardEngineFactory) CreateEngine(stepSettings *settings.StepSettings) (providers.Engine, error) {
	if stepSettings == nil {
		return nil, errors.New("settings cannot be nil")
	}

	provider := f.DefaultProvider()
	if stepSettings.Chat != nil && stepSettings.Chat.Provider != nil {
		provider = settings.Provider(strings.ToLower(string(*stepSettings.Chat.Provider)))
	}

	switch provider {
	case settings.ProviderOpenAI:
		return openai.NewEngine(stepSettings), nil
	case settings.ProviderClaude, "anthropic":
		return claude.NewEngine(stepSettings), nil
	case settings.ProviderOllama:
		return ollama.NewEngine(stepSettings), nil
	default:
		supported := make([]string, 0, len(f.SupportedProviders()))
		for _, p := range f.SupportedProviders() {
			supported = append(supported, string(p))
		}
		return nil, errors.Errorf("unsupported provider %s. Supported providers: %s",
			provider, strings.Join(supported, ", "))
	}
}

func (f *StandardEngineFactory) SupportedProviders() []settings.Provider {
	return []settings.Provider{
		settings.ProviderOpenAI,
		settings.ProviderClaude,
		settings.ProviderOllama,
	}
}

func (f *StandardEngineFactory) DefaultProvider() settings.Provider {
	return settings.ProviderOpenAI
}

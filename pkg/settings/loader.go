package settings

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads settings from an optional config file and PARLEY_* environment
// variables, layered over the defaults.
func Load(configFile string) (*StepSettings, error) {
	ret := NewStepSettings()

	v := viper.New()
	v.SetEnvPrefix("parley")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "could not read config file %s", configFile)
		}
	}

	if err := v.Unmarshal(ret); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal settings")
	}

	// env fallbacks for credentials, following the usual variable names
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && ret.API.APIKeys[ProviderOpenAI] == "" {
		ret.API.APIKeys[ProviderOpenAI] = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && ret.API.APIKeys[ProviderClaude] == "" {
		ret.API.APIKeys[ProviderClaude] = key
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" && ret.API.BaseURLs[ProviderOllama] == "" {
		ret.API.BaseURLs[ProviderOllama] = host
	}

	return ret, nil
}

// SaveToFile writes the settings as YAML.
func (s *StepSettings) SaveToFile(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFromFile reads settings from a YAML file without viper layering, used
// by tests and by round-trip tooling.
func LoadFromFile(path string) (*StepSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ret := NewStepSettings()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

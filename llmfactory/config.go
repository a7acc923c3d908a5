package llmfactory

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

// Provider names supported by the factory.
const (
	ProviderAnthropic = "ANTHROPIC"
	ProviderOpenAI    = "OPENAI"
)

// Config describes the model provider to use. Values support
// environment expansion, so a config file may carry
// "${ANTHROPIC_API_KEY}" instead of a literal secret.
type Config struct {
	// Provider selects the upstream API: ANTHROPIC or OPENAI.
	Provider string `json:"provider" yaml:"provider" validate:"required,oneof=ANTHROPIC OPENAI"`
	// Model is the model identifier to request.
	Model string `json:"model" yaml:"model" validate:"required"`
	// Token is the API key. When empty, the provider's usual
	// environment variable is used.
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxTokens caps generation per model call.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	// SystemPrompt is prepended to every conversation.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	// ToolTimeout bounds a single tool execution, for example "30s".
	ToolTimeout string `json:"tool_timeout,omitempty" yaml:"tool_timeout,omitempty"`
}

// LoadConfig loads and validates the provider config from a JSON or
// YAML file, expanding environment variables.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to load config: %s", file)
	}
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	validate := validator.New()
	err := validate.Struct(c)
	if err != nil {
		return errors.WithMessage(err, "invalid config")
	}
	return nil
}

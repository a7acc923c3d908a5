package anthropic

import "net/http"

const (
	// TokenEnvVarName is the environment variable holding the API key.
	TokenEnvVarName = "ANTHROPIC_API_KEY"
)

// Options configure the Anthropic gateway.
type Options struct {
	Token      string
	BaseURL    string
	Model      string
	HttpClient *http.Client

	// MaxTokens is the maximum number of tokens to generate per call.
	MaxTokens int
	// Temperature is the sampling temperature, between 0 and 1.
	Temperature float64
	// AnthropicBetaHeader adds the Beta header to support experimental features.
	AnthropicBetaHeader string
}

// Option is a function that configures Options.
type Option func(*Options)

// WithToken passes the API token. Defaults to the ANTHROPIC_API_KEY
// environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel passes the model to use.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL passes a custom API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithHTTPClient passes a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HttpClient = client
	}
}

// WithMaxTokens passes the per-call generation limit.
func WithMaxTokens(maxTokens int) Option {
	return func(opts *Options) {
		opts.MaxTokens = maxTokens
	}
}

// WithTemperature passes the sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(opts *Options) {
		opts.Temperature = temperature
	}
}

// WithAnthropicBetaHeader sets the Beta header.
func WithAnthropicBetaHeader(val string) Option {
	return func(opts *Options) {
		opts.AnthropicBetaHeader = val
	}
}

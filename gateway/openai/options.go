package openai

import "net/http"

const (
	// TokenEnvVarName is the environment variable holding the API key.
	TokenEnvVarName = "OPENAI_API_KEY"
)

// Options configure the OpenAI gateway.
type Options struct {
	Token        string
	BaseURL      string
	Model        string
	Organization string
	HttpClient   *http.Client

	// MaxTokens is the maximum number of completion tokens per call.
	MaxTokens int
	// Temperature is the sampling temperature, between 0 and 2.
	Temperature float64
}

// Option is a function that configures Options.
type Option func(*Options)

// WithToken passes the API token. Defaults to the OPENAI_API_KEY
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

// WithOrganization sets the OpenAI organization.
func WithOrganization(organization string) Option {
	return func(opts *Options) {
		opts.Organization = organization
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

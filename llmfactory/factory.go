// Package llmfactory builds a model gateway from configuration.
package llmfactory

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/gateway"
	"github.com/effective-security/toolchat/gateway/anthropic"
	"github.com/effective-security/toolchat/gateway/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "llmfactory")

// Load reads the config file and returns the configured gateway.
func Load(location string) (gateway.Gateway, *Config, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, nil, err
	}
	gw, err := New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return gw, cfg, nil
}

// New returns a gateway for the configured provider.
func New(cfg *Config) (gateway.Gateway, error) {
	switch strings.ToUpper(cfg.Provider) {
	case ProviderAnthropic:
		var opts []anthropic.Option
		if cfg.Token != "" {
			opts = append(opts, anthropic.WithToken(cfg.Token))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, anthropic.WithMaxTokens(cfg.MaxTokens))
		}
		if cfg.Temperature > 0 {
			opts = append(opts, anthropic.WithTemperature(cfg.Temperature))
		}
		opts = append(opts, anthropic.WithModel(cfg.Model))
		logger.KV(xlog.INFO, "provider", ProviderAnthropic, "model", cfg.Model)
		return anthropic.New(opts...)
	case ProviderOpenAI:
		var opts []openai.Option
		if cfg.Token != "" {
			opts = append(opts, openai.WithToken(cfg.Token))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, openai.WithMaxTokens(cfg.MaxTokens))
		}
		if cfg.Temperature > 0 {
			opts = append(opts, openai.WithTemperature(cfg.Temperature))
		}
		opts = append(opts, openai.WithModel(cfg.Model))
		logger.KV(xlog.INFO, "provider", ProviderOpenAI, "model", cfg.Model)
		return openai.New(opts...)
	default:
		return nil, errors.Newf("unsupported provider: %s", cfg.Provider)
	}
}

package chat

import (
	"time"

	"github.com/effective-security/toolchat/tools"
)

// DefaultEventBuffer is the capacity of a Stream's event channel.
const DefaultEventBuffer = 64

type config struct {
	systemPrompt string
	toolTimeout  time.Duration
	callback     tools.Callback
	eventBuffer  int
}

// Option configures the Orchestrator.
type Option func(*config)

// WithSystemPrompt prepends a system turn to every conversation that
// does not already carry one.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) {
		c.systemPrompt = prompt
	}
}

// WithToolTimeout bounds a single tool execution.
func WithToolTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.toolTimeout = timeout
	}
}

// WithCallback registers an observer for tool execution.
func WithCallback(callback tools.Callback) Option {
	return func(c *config) {
		c.callback = callback
	}
}

// WithEventBuffer sets the capacity of the stream event channel.
func WithEventBuffer(size int) Option {
	return func(c *config) {
		c.eventBuffer = size
	}
}

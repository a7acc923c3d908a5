package tools

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
)

// Config is the tool configuration document consumed at process start.
// Unknown fields in declarations are ignored.
type Config struct {
	Tools []Declaration `json:"tools" yaml:"tools"`
}

// Declaration is one declared tool: the name the model addresses it by,
// the description shown to the model, and the JSON-schema object
// describing the call signature.
type Declaration struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters" yaml:"parameters"`
}

// LoadConfig reads a tool configuration document from a JSON file.
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	bs, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WithMessagef(ErrConfig, "failed to read %s: %s", file, err.Error())
	}
	if err := json.Unmarshal(bs, cfg); err != nil {
		return nil, errors.WithMessagef(ErrConfig, "failed to parse %s: %s", file, err.Error())
	}
	return cfg, nil
}

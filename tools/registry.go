// Package tools provides the tool registry and executor: declarative tool
// configuration is bound to registered implementations at process start,
// and calls are validated and executed with failures folded into results.
package tools

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/google/jsonschema-go/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "tools")

var (
	// ErrConfig is returned when the tool configuration is malformed.
	// It is fatal at startup: the process should not serve traffic.
	ErrConfig = errors.New("invalid tool configuration")
	// ErrUnknownTool is returned when resolving a name absent from the registry.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrUnboundTool is returned at load time for a declared tool with no
	// registered implementation.
	ErrUnboundTool = errors.New("tool has no registered implementation")
	// ErrFailedUnmarshalInput is returned by tools that cannot parse their input.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal tool input")
)

// Spec is an immutable, model-visible tool declaration.
type Spec struct {
	Name        string
	Description string
	// Parameters is the declared JSON-schema object for the call signature.
	Parameters *jsonschema.Schema

	raw json.RawMessage
}

// Required returns the names of required parameters.
func (s Spec) Required() []string {
	return s.Parameters.Required
}

// ParametersJSON returns the parameter schema exactly as declared, for
// structural forwarding to the model provider.
func (s Spec) ParametersJSON() json.RawMessage {
	return s.raw
}

// Binding associates a Spec with its executable implementation.
// Bindings are created at registry build time and never mutated.
type Binding struct {
	Spec Spec
	Tool ITool

	resolved *jsonschema.Resolved
}

// ValidateArguments checks the arguments against the declared parameter
// schema. The policy is strict: the schema is applied exactly as written,
// with no type coercion.
func (b *Binding) ValidateArguments(args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	return b.resolved.Validate(args)
}

// Registry is the immutable set of bound tools, in declaration order.
type Registry struct {
	bindings *orderedmap.OrderedMap[string, *Binding]
	specs    []Spec
}

// LoadRegistry builds a registry from the configuration and the registered
// implementations. Every declared tool must have an implementation; a
// declaration with no match fails fast rather than being silently ignored.
func LoadRegistry(cfg *Config, impls ...ITool) (*Registry, error) {
	implsByName := make(map[string]ITool, len(impls))
	for _, impl := range impls {
		implsByName[strings.ToLower(impl.Name())] = impl
	}

	reg := &Registry{
		bindings: orderedmap.New[string, *Binding](),
	}

	for _, decl := range cfg.Tools {
		if decl.Name == "" {
			return nil, errors.WithMessage(ErrConfig, "tool declaration is missing name")
		}
		if len(decl.Parameters) == 0 {
			return nil, errors.WithMessagef(ErrConfig, "tool %q is missing parameters", decl.Name)
		}

		key := strings.ToLower(decl.Name)
		if _, ok := reg.bindings.Get(key); ok {
			return nil, errors.WithMessagef(ErrConfig, "duplicate tool name %q", decl.Name)
		}

		sch := new(jsonschema.Schema)
		if err := json.Unmarshal(decl.Parameters, sch); err != nil {
			return nil, errors.WithMessagef(ErrConfig, "tool %q: parameters is not a valid JSON schema: %s", decl.Name, err.Error())
		}
		resolved, err := sch.Resolve(nil)
		if err != nil {
			return nil, errors.WithMessagef(ErrConfig, "tool %q: failed to resolve parameter schema: %s", decl.Name, err.Error())
		}

		impl, ok := implsByName[key]
		if !ok {
			return nil, errors.WithMessagef(ErrUnboundTool, "tool %q", decl.Name)
		}

		spec := Spec{
			Name:        decl.Name,
			Description: values.StringsCoalesce(decl.Description, impl.Description()),
			Parameters:  sch,
			raw:         decl.Parameters,
		}
		reg.bindings.Set(key, &Binding{
			Spec:     spec,
			Tool:     impl,
			resolved: resolved,
		})
		reg.specs = append(reg.specs, spec)
	}

	logger.KV(xlog.DEBUG,
		"status", "registry_loaded",
		"tools", strings.Join(reg.Names(), ","),
	)
	return reg, nil
}

// ListSpecs returns the tool declarations in configuration order.
// The order is stable: different orderings can influence model tool-choice
// bias and must be reproducible.
func (r *Registry) ListSpecs() []Spec {
	specs := make([]Spec, len(r.specs))
	copy(specs, r.specs)
	return specs
}

// Resolve returns the binding for a tool name.
func (r *Registry) Resolve(name string) (*Binding, error) {
	b, ok := r.bindings.Get(strings.ToLower(name))
	if !ok {
		return nil, errors.WithMessagef(ErrUnknownTool, "%q, available: %s", name, strings.Join(r.Names(), ", "))
	}
	return b, nil
}

// Names returns the declared tool names in configuration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for _, s := range r.specs {
		names = append(names, s.Name)
	}
	return names
}

// Len returns the number of bound tools.
func (r *Registry) Len() int {
	return len(r.specs)
}

// Package tools defines the tool catalog, capability gating, and the
// executor that dispatches model-requested tool calls.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Caps is the capability gate computed once per conversation turn from
// caller identity and account link state. It controls which tools are
// visible and executable for that turn.
type Caps struct {
	Admin      bool
	MailLinked bool
}

// Tool represents a callable tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Handler     func(ctx context.Context, args map[string]any) (string, error) `json:"-"`

	// Meta marks think/plan/reflect: tools whose effect is internal to
	// the orchestration run. They have no Handler; the executor
	// intercepts them before dispatch.
	Meta bool `json:"-"`

	// Gate flags. Zero values mean the tool is in the base set.
	AdminOnly bool `json:"-"`
	MailOnly  bool `json:"-"`

	schema *jsonschema.Schema
}

// visible reports whether the tool passes the capability gate.
func (t *Tool) visible(caps Caps) bool {
	if t.AdminOnly && !caps.Admin {
		return false
	}
	if t.MailOnly && !caps.MailLinked {
		return false
	}
	return true
}

// Declaration is the immutable catalog entry exposed to the model.
type Declaration struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Registry holds the tool catalog. Registration happens at construction
// time; afterward the registry is read-only and safe for concurrent use.
type Registry struct {
	tools map[string]*Tool
	order []string // registration order, for deterministic listings
}

// NewRegistry creates an empty registry. Builtins are registered by
// RegisterBuiltins once collaborators are wired.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Duplicate names and invalid parameter schemas
// are configuration errors: both panic so misconfiguration is caught at
// startup, not mid-conversation.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; exists {
		panic(fmt.Sprintf("tools: duplicate tool name %q", t.Name))
	}
	if t.Parameters != nil {
		t.schema = mustCompileSchema(t.Name, t.Parameters)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
}

// Get retrieves a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Declarations returns the catalog entries visible under caps, in
// registration order. Identical caps always yield identical membership.
func (r *Registry) Declarations(caps Caps) []Declaration {
	var result []Declaration
	for _, name := range r.order {
		t := r.tools[name]
		if !t.visible(caps) {
			continue
		}
		result = append(result, Declaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return result
}

// Specs returns the visible tools in the OpenAI-style wire shape the
// model client consumes.
func (r *Registry) Specs(caps Caps) []map[string]any {
	var result []map[string]any
	for _, d := range r.Declarations(caps) {
		params := d.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        d.Name,
				"description": d.Description,
				"parameters":  params,
			},
		})
	}
	return result
}

// mustCompileSchema compiles a parameter schema for argument validation.
func mustCompileSchema(name string, params map[string]any) *jsonschema.Schema {
	raw, err := json.Marshal(params)
	if err != nil {
		panic(fmt.Sprintf("tools: marshal %s parameter schema: %v", name, err))
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("tools: parse %s parameter schema: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	url := fmt.Sprintf("valet://tools/%s.json", name)
	if err := compiler.AddResource(url, doc); err != nil {
		panic(fmt.Sprintf("tools: add %s parameter schema: %v", name, err))
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("tools: compile %s parameter schema: %v", name, err))
	}
	return schema
}

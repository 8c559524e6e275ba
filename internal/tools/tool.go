package tools

import (
	"context"
	"encoding/json"

	"github.com/MKA06/luron-voice/internal/utils"
)

// Tool is one capability the language model may invoke during a call.
// Implementations must be safe for concurrent use across sessions.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON-schema object describing the arguments.
	Parameters() map[string]any
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// Definition is the provider-agnostic function declaration handed to the LLM
// leg when a session starts.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Registry maps tool names to handlers. It is populated once at startup;
// sessions only read from it.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		r.tools[t.Name()] = t
	}
	return r
}

func (r *Registry) Register(t Tool) error {
	if _, exists := r.tools[t.Name()]; exists {
		return utils.E(utils.CodeConflict, "Registry.Register", "tool already registered: "+t.Name(), nil)
	}
	r.tools[t.Name()] = t
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns declarations for the named tools, skipping unknown
// names. An empty slice of names yields no tools.
func (r *Registry) Definitions(names []string) []Definition {
	out := make([]Definition, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		out = append(out, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}

package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler is a registered tool implementation. It receives raw JSON
// arguments and returns a JSON-serializable value or an error. Handlers
// may issue outbound RPC calls to peer services.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool pairs a Handler with its descriptor for `tools/list`.
type Tool struct {
	Descriptor ToolDescriptor
	Handler    Handler
}

// Registry is the per-service mapping from tool name to (schema, handler).
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering the same name overwrites it.
func (r *Registry) Register(name, description string, inputSchema map[string]any, handler Handler) {
	r.tools[name] = Tool{
		Descriptor: ToolDescriptor{Name: name, Description: description, InputSchema: inputSchema},
		Handler:    handler,
	}
}

// List returns every registered tool's descriptor, for `tools/list`.
func (r *Registry) List() []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Descriptor)
	}
	return out
}

// Lookup finds a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Call validates the tool exists and invokes its handler. Callers use this
// from the dispatch loop; it does not itself catch panics — that is done
// once at the HTTP boundary in server.go.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	return t.Handler(ctx, args)
}

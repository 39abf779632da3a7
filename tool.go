package forgehand

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/forgehand/forgehand/chat"
	"github.com/forgehand/forgehand/internal/schema"
)

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	Success bool
	Output  string
	Error   string
}

// Ok builds a successful result with the given output.
func Ok(output string) ToolResult {
	return ToolResult{Success: true, Output: output}
}

// Errorf builds a failed result with a formatted error message.
func Errorf(format string, args ...any) ToolResult {
	return ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// ModelOutput renders the result as the string sent back to the model.
// Failures are prefixed so the model can distinguish them from output.
func (r ToolResult) ModelOutput() string {
	if r.Success {
		return r.Output
	}
	return "Error: " + r.Error
}

// Tool is a typed tool definition. The Input type parameter describes the
// tool's arguments; its JSON schema is generated from the struct's tags.
type Tool[T any] struct {
	Name        string
	Description string
	Run         func(ctx context.Context, input T) ToolResult
}

// toolEntry is a registered tool with its schema and a type-erased executor.
type toolEntry struct {
	schema  chat.ToolSchema
	execute func(ctx context.Context, args map[string]any) ToolResult
}

// ToolRegistry holds the tools available to an agent and dispatches calls
// by name. It satisfies the executor contract of the run loop.
type ToolRegistry struct {
	mu      sync.RWMutex
	entries map[string]*toolEntry
	order   []string
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{entries: make(map[string]*toolEntry)}
}

// Register adds a typed tool to the registry. Registering a second tool
// under the same name replaces the first.
func Register[T any](reg *ToolRegistry, tool Tool[T]) {
	run := tool.Run
	entry := &toolEntry{
		schema: chat.ToolSchema{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  schema.Generate[T](),
		},
		execute: func(ctx context.Context, args map[string]any) ToolResult {
			raw, err := json.Marshal(args)
			if err != nil {
				return Errorf("invalid arguments: %s", err)
			}
			var input T
			if err := json.Unmarshal(raw, &input); err != nil {
				return Errorf("invalid arguments for %s: %s", tool.Name, err)
			}
			return run(ctx, input)
		},
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.entries[tool.Name]; !exists {
		reg.order = append(reg.order, tool.Name)
	}
	reg.entries[tool.Name] = entry
}

// Names returns the registered tool names in registration order.
func (reg *ToolRegistry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, len(reg.order))
	copy(names, reg.order)
	return names
}

// Remove deletes a tool by name. Removing an unknown name is a no-op.
func (reg *ToolRegistry) Remove(name string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.entries[name]; !ok {
		return
	}
	delete(reg.entries, name)
	for i, n := range reg.order {
		if n == name {
			reg.order = append(reg.order[:i], reg.order[i+1:]...)
			break
		}
	}
}

// Schemas returns the tool schemas advertised to the model, in
// registration order.
func (reg *ToolRegistry) Schemas() []chat.ToolSchema {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	schemas := make([]chat.ToolSchema, 0, len(reg.order))
	for _, name := range reg.order {
		schemas = append(schemas, reg.entries[name].schema)
	}
	return schemas
}

// Execute dispatches one tool call by name. The returned string is the
// content recorded as the tool result; isError reports whether the tool
// failed. The error return is reserved for dispatch failures such as a
// panicking tool.
func (reg *ToolRegistry) Execute(ctx context.Context, name string, args map[string]any) (output string, isError bool, err error) {
	reg.mu.RLock()
	entry, ok := reg.entries[name]
	reg.mu.RUnlock()
	if !ok {
		known := reg.Names()
		sort.Strings(known)
		return fmt.Sprintf("Error: Unknown tool: %s (available: %v)", name, known), true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", name, r)
		}
	}()
	result := entry.execute(ctx, args)
	return result.ModelOutput(), !result.Success, nil
}

package tools

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"daybrief/internal/models"
)

// Tool represents a callable external capability with its metadata and
// execution function. Parameters is a JSON-schema object in the OpenAI
// function format; the generation model reads Description to decide when to
// invoke the tool.
type Tool struct {
	Name        string
	DisplayName string
	Description string
	Parameters  map[string]interface{}
	Execute     ExecuteFunc
	Category    string
	Keywords    []string
}

// ExecuteFunc is the function signature for tool execution
type ExecuteFunc func(ctx context.Context, args map[string]interface{}) (string, error)

// Registry manages the available tools. It is constructed explicitly and
// injected into the synthesizers so tests can substitute stub tools.
type Registry struct {
	tools map[string]*Tool
	mutex sync.RWMutex
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// NewDefaultRegistry creates a registry with the built-in tools registered:
// directions, place search, weather, and current time.
func NewDefaultRegistry(googleMapsAPIKey string) *Registry {
	r := NewRegistry()

	maps := newMapsClient(googleMapsAPIKey)
	weather := newWeatherClient()

	_ = r.Register(NewDirectionsTool(maps))
	_ = r.Register(NewPlacesTool(maps))
	_ = r.Register(NewWeatherTool(weather))
	_ = r.Register(NewTimeTool())

	log.Printf("🔧 [TOOLS] Registered %d built-in tools", r.Count())
	return r
}

// Register adds a new tool to the registry
func (r *Registry) Register(tool *Tool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Execute == nil {
		return fmt.Errorf("tool %s must have an Execute function", tool.Name)
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}

	r.tools[tool.Name] = tool
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.tools)
}

// List returns all registered tools in OpenAI tool format, sorted by name
// so the schema order presented to the model is stable.
func (r *Registry) List() []map[string]interface{} {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		tools = append(tools, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  tool.Parameters,
			},
		})
	}
	return tools
}

// ToolInfo is a JSON-serializable representation of a Tool (without the Execute function)
type ToolInfo struct {
	Name        string                 `json:"name"`
	DisplayName string                 `json:"displayName"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Parameters  map[string]interface{} `json:"parameters"`
	Keywords    []string               `json:"keywords"`
}

// ListDetailed returns all tools with full metadata, sorted by name
func (r *Registry) ListDetailed() []ToolInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]ToolInfo, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		result = append(result, ToolInfo{
			Name:        tool.Name,
			DisplayName: tool.DisplayName,
			Description: tool.Description,
			Category:    tool.Category,
			Parameters:  tool.Parameters,
			Keywords:    tool.Keywords,
		})
	}
	return result
}

// Run executes a tool by name and normalizes the outcome into a ToolResult.
// Expected failures (unknown tool, missing credential, no geocode match, no
// route, provider error body) become the result's Error string rather than a
// Go error, so the synthesis loop can feed them back to the model as
// information instead of aborting.
func (r *Registry) Run(ctx context.Context, name string, args map[string]interface{}) models.ToolResult {
	result := models.ToolResult{ToolName: name}

	tool, exists := r.Get(name)
	if !exists {
		result.Error = fmt.Sprintf("tool %s not found", name)
		return result
	}

	output, err := tool.Execute(ctx, args)
	if err != nil {
		log.Printf("⚠️ [TOOLS] %s failed: %v", name, err)
		result.Error = err.Error()
		return result
	}

	result.Result = output
	return result
}

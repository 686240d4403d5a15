// Package tooling provides the tool API advertised to the model and the
// registry dispatching tool calls by name.
package tooling

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
)

// ErrToolNotFound is returned by Execute when no tool is registered
// under the requested name.
var ErrToolNotFound = errors.New("tool not found")

// ArgumentError reports arguments that could not be parsed or failed
// validation before the tool ran.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// ExecutionError reports a tool that ran and failed.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Tool is one named capability the model may call. Execute receives the
// raw JSON argument text from the model and returns the textual result.
// Implementations must be free of side effects observable by other
// sessions and safe for concurrent use.
type Tool interface {
	Name() string
	Description() string
	Parameters() openai.FunctionParameters
	Execute(ctx context.Context, arguments string) (string, error)
}

// Registry is the static name-to-tool table. All registration happens
// at startup; afterwards the registry is read-only and safe to share
// across any number of concurrent sessions.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool)}
	for _, tool := range tools {
		if err := r.register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(tool Tool) error {
	if tool == nil {
		return errors.New("tool is nil")
	}
	name := tool.Name()
	if name == "" {
		return errors.New("tool name is empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Schemas returns the tool declarations in registration order, ready to
// be passed on a completion request.
func (r *Registry) Schemas() []openai.ChatCompletionToolUnionParam {
	var schemas []openai.ChatCompletionToolUnionParam
	for _, name := range r.order {
		tool := r.tools[name]
		schemas = append(schemas, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        tool.Name(),
					Description: openai.String(tool.Description()),
					Parameters:  tool.Parameters(),
				},
			},
		})
	}
	return schemas
}

// Execute dispatches one tool call. The returned error is ErrToolNotFound,
// an *ArgumentError or an *ExecutionError; callers fold it into the
// conversation as text rather than aborting the turn.
func (r *Registry) Execute(ctx context.Context, name, arguments string) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	result, err := tool.Execute(ctx, arguments)
	if err != nil {
		var argErr *ArgumentError
		if errors.As(err, &argErr) {
			return "", err
		}
		return "", &ExecutionError{Tool: name, Err: err}
	}
	return result, nil
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/slunk/slunk-mcp/protocol"
	"github.com/slunk/slunk-mcp/schema"
)

// Tool represents a named, schema-described operation invoked via
// tools/call.
type Tool struct {
	name        string
	description string
	inputType   reflect.Type
	inputSchema *schema.Schema
	handler     any
	hasContext  bool
}

// Name returns the tool name.
func (t *Tool) Name() string {
	return t.name
}

// ToolBuilder provides a fluent API for building tools.
type ToolBuilder struct {
	tool   *Tool
	server *Server
	err    error
}

// Description sets the tool description.
func (b *ToolBuilder) Description(desc string) *ToolBuilder {
	if b.err != nil {
		return b
	}
	b.tool.description = desc
	return b
}

// Handler sets the tool handler function and registers the tool.
// Handler signature must be one of:
//   - func(input T) (R, error)
//   - func(ctx context.Context, input T) (R, error)
//
// The input schema is generated from T and arguments are validated against
// it before every dispatch.
func (b *ToolBuilder) Handler(fn any) *ToolBuilder {
	if b.err != nil {
		return b
	}

	if err := b.validateHandler(fn); err != nil {
		b.err = err
		return b
	}

	b.tool.handler = fn
	b.server.registerTool(b.tool)
	return b
}

// Err returns the first error encountered while building, if any.
func (b *ToolBuilder) Err() error {
	return b.err
}

// validateHandler validates the handler function signature.
func (b *ToolBuilder) validateHandler(fn any) error {
	fnType := reflect.TypeOf(fn)

	if fnType == nil || fnType.Kind() != reflect.Func {
		return fmt.Errorf("handler must be a function, got %v", fnType)
	}

	numIn := fnType.NumIn()
	if numIn < 1 || numIn > 2 {
		return fmt.Errorf("handler must have 1 or 2 parameters, got %d", numIn)
	}

	var inputIdx int
	if numIn == 2 {
		if !fnType.In(0).Implements(reflect.TypeOf((*context.Context)(nil)).Elem()) {
			return fmt.Errorf("first parameter must be context.Context when using 2 parameters")
		}
		b.tool.hasContext = true
		inputIdx = 1
	}

	inputType := fnType.In(inputIdx)
	if inputType.Kind() == reflect.Ptr {
		inputType = inputType.Elem()
	}
	b.tool.inputType = inputType

	inputSchema, err := schema.FromType(inputType)
	if err != nil {
		return fmt.Errorf("failed to generate input schema: %w", err)
	}
	b.tool.inputSchema = inputSchema

	if fnType.NumOut() != 2 {
		return fmt.Errorf("handler must return (result, error), got %d return values", fnType.NumOut())
	}

	errType := reflect.TypeOf((*error)(nil)).Elem()
	if !fnType.Out(1).Implements(errType) {
		return fmt.Errorf("second return value must be error")
	}

	return nil
}

// Execute validates the raw arguments against the tool's schema and runs
// the handler. Validation failures surface as invalid-params errors before
// the handler is ever invoked.
func (t *Tool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}

	if t.inputSchema != nil {
		if err := t.inputSchema.Validate(input); err != nil {
			return nil, protocol.NewInvalidParams(fmt.Sprintf("invalid arguments: %v", err))
		}
	}

	inputPtr := reflect.New(t.inputType)
	if err := json.Unmarshal(input, inputPtr.Interface()); err != nil {
		return nil, protocol.NewInvalidParams(fmt.Sprintf("failed to parse arguments: %v", err))
	}

	fnVal := reflect.ValueOf(t.handler)
	var args []reflect.Value
	if t.hasContext {
		args = append(args, reflect.ValueOf(ctx))
	}
	args = append(args, inputPtr.Elem())

	results := fnVal.Call(args)

	if errVal := results[1].Interface(); errVal != nil {
		return nil, errVal.(error)
	}
	return results[0].Interface(), nil
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ramp/ramp-mcp-server/internal/protocol"
)

// Tool defines the behavior of a single MCP tool.
type Tool interface {
	Descriptor() protocol.ToolDescriptor
	Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError)
}

// ScopeDeniedError is returned for a known tool the session has no scopes for.
type ScopeDeniedError struct {
	Tool    string
	Missing []string
}

func (e *ScopeDeniedError) Error() string {
	return fmt.Sprintf("tool %s requires scope %s; restart the server with it in --scopes", e.Tool, strings.Join(e.Missing, ", "))
}

// Response converts the error for the wire.
func (e *ScopeDeniedError) Response() *protocol.ResponseError {
	return &protocol.ResponseError{
		Code:    protocol.CodeScopeDenied,
		Message: e.Error(),
		Data:    &protocol.ErrorData{Kind: "scope_denied", Tool: e.Tool},
	}
}

type entry struct {
	tool    Tool
	missing []string
}

// Toolbox stores and dispatches tools by name. Calls are serialized; the
// registry stays readable while one runs.
type Toolbox struct {
	mu    sync.RWMutex
	tools map[string]entry
	order []string

	callMu sync.Mutex
}

// NewToolbox constructs a toolbox with the provided tools enabled.
func NewToolbox(tools ...Tool) *Toolbox {
	tb := &Toolbox{tools: make(map[string]entry, len(tools))}
	for _, t := range tools {
		tb.add(t, nil)
	}
	return tb
}

func (tb *Toolbox) add(t Tool, missing []string) {
	name := t.Descriptor().Name
	if _, dup := tb.tools[name]; !dup {
		tb.order = append(tb.order, name)
	}
	tb.tools[name] = entry{tool: t, missing: missing}
}

// Add enables a tool.
func (tb *Toolbox) Add(t Tool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.add(t, nil)
}

// Deny records a tool that exists but cannot be used without the missing scopes.
// It is not described, and calling it yields a ScopeDeniedError.
func (tb *Toolbox) Deny(t Tool, missing []string) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.add(t, append([]string(nil), missing...))
}

// Describe returns the descriptors of the enabled tools in registration order.
func (tb *Toolbox) Describe() []protocol.ToolDescriptor {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	list := make([]protocol.ToolDescriptor, 0, len(tb.order))
	for _, name := range tb.order {
		if e := tb.tools[name]; len(e.missing) == 0 {
			list = append(list, e.tool.Descriptor())
		}
	}
	return list
}

// Enabled reports whether a tool is registered and usable.
func (tb *Toolbox) Enabled(name string) bool {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	e, ok := tb.tools[name]
	return ok && len(e.missing) == 0
}

// Known returns every tool, enabled or denied, in registration order.
func (tb *Toolbox) Known() []Tool {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	out := make([]Tool, 0, len(tb.order))
	for _, name := range tb.order {
		out = append(out, tb.tools[name].tool)
	}
	return out
}

// Call invokes a named tool.
func (tb *Toolbox) Call(ctx context.Context, name string, args json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	tb.mu.RLock()
	e, ok := tb.tools[name]
	tb.mu.RUnlock()
	if !ok {
		return protocol.CallResult{}, &protocol.ResponseError{Code: protocol.CodeMethodNotFound, Message: "tool not found: " + name}
	}
	if len(e.missing) > 0 {
		return protocol.CallResult{}, (&ScopeDeniedError{Tool: name, Missing: e.missing}).Response()
	}

	tb.callMu.Lock()
	defer tb.callMu.Unlock()
	return e.tool.Invoke(ctx, args)
}

package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Version is the MCP protocol revision advertised on initialize.
const Version = "2024-11-05"

// JSON-RPC and server error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603

	// Server-defined range.
	CodeUpstream    = -32000
	CodeScopeDenied = -32001
	CodeQuery       = -32002
)

// Request represents a minimal JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response models a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string         `json:"jsonrpc,omitempty"`
	ID      any            `json:"id"`
	Result  any            `json:"result,omitempty"`
	Error   *ResponseError `json:"error,omitempty"`
}

// ResponseError holds JSON-RPC error data.
type ResponseError struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

func (e *ResponseError) Error() string {
	return e.Message
}

// Detail renders the message followed by the error data, for transports
// that can only carry text.
func (e *ResponseError) Detail() string {
	d := e.Data
	if d == nil {
		return e.Message
	}
	var b strings.Builder
	b.WriteString(e.Message)
	fmt.Fprintf(&b, " [kind=%s", d.Kind)
	if d.Tool != "" {
		fmt.Fprintf(&b, " tool=%s", d.Tool)
	}
	if d.Resource != "" {
		fmt.Fprintf(&b, " resource=%s page=%d", d.Resource, d.Page)
	}
	if d.SQL != "" {
		fmt.Fprintf(&b, " sql=%q", d.SQL)
	}
	b.WriteString("]")
	return b.String()
}

// ErrorData tells the client which tool failed and how.
type ErrorData struct {
	Kind     string `json:"kind"`
	Tool     string `json:"tool,omitempty"`
	Resource string `json:"resource,omitempty"`
	Page     int    `json:"page,omitempty"`
	SQL      string `json:"sql,omitempty"`
}

// ToolDescriptor describes a tool available from the MCP server.
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema *JSONSchema `json:"inputSchema,omitempty"`
}

// JSONSchema is a minimal subset to describe tool input shapes.
type JSONSchema struct {
	Type                 string                `json:"type,omitempty"`
	Properties           map[string]JSONSchema `json:"properties,omitempty"`
	Items                *JSONSchema           `json:"items,omitempty"`
	Required             []string              `json:"required,omitempty"`
	Enum                 []string              `json:"enum,omitempty"`
	Format               string                `json:"format,omitempty"`
	Description          string                `json:"description,omitempty"`
	AdditionalProperties any                   `json:"additionalProperties,omitempty"`
}

// ListResult is the payload for tools/list.
type ListResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// CallParams represents parameters for tools/call.
type CallParams struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"arguments,omitempty"`
}

// ContentPart is a single piece of tool output.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the payload for a tool invocation.
type CallResult struct {
	Content []ContentPart `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// Text wraps s in a single text content part.
func Text(s string) CallResult {
	return CallResult{Content: []ContentPart{{Type: "text", Text: s}}}
}

// ObjectSchema builds an object schema from properties.
func ObjectSchema(props map[string]JSONSchema, required ...string) *JSONSchema {
	if props == nil {
		props = map[string]JSONSchema{}
	}
	if required == nil {
		required = []string{}
	}
	return &JSONSchema{Type: "object", Properties: props, Required: required}
}

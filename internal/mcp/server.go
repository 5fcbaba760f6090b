package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ramp/ramp-mcp-server/internal/logging"
	"github.com/ramp/ramp-mcp-server/internal/protocol"
	"github.com/ramp/ramp-mcp-server/internal/version"
)

// Server handles MCP JSON-RPC requests against a toolbox.
type Server struct {
	toolbox      *Toolbox
	instructions string
	lg           *logrus.Entry
}

// Option configures a Server.
type Option func(*Server)

// WithInstructions sets the text returned to clients on initialize.
func WithInstructions(text string) Option {
	return func(s *Server) { s.instructions = text }
}

// WithLogger sets the logger; nil discards.
func WithLogger(lg *logrus.Entry) Option {
	return func(s *Server) {
		if lg != nil {
			s.lg = lg
		}
	}
}

// NewServer wires a toolbox into an MCP server.
func NewServer(tb *Toolbox, opts ...Option) *Server {
	s := &Server{toolbox: tb, lg: logging.Discard()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Toolbox returns the server's toolbox.
func (s *Server) Toolbox() *Toolbox { return s.toolbox }

// Handle routes a single request.
func (s *Server) Handle(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if err := validateJSONRPC(req); err != nil {
		return protocol.Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Error: err}, nil
	}

	switch req.Method {
	case "initialize":
		info := version.Get()
		result := map[string]any{
			"protocolVersion": protocol.Version,
			"serverInfo": map[string]string{
				"name":    info.Name,
				"version": info.Version,
			},
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
		}
		if s.instructions != "" {
			result["instructions"] = s.instructions
		}
		return protocol.Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Result: result}, nil
	case "ping":
		return protocol.Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Result: map[string]any{}}, nil
	case "tools/list":
		return protocol.Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Result: protocol.ListResult{Tools: s.toolbox.Describe()}}, nil
	case "tools/call":
		var params protocol.CallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return protocol.Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Error: &protocol.ResponseError{Code: protocol.CodeInvalidParams, Message: "invalid params"}}, nil
		}
		if params.Name == "" {
			return protocol.Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Error: &protocol.ResponseError{Code: protocol.CodeInvalidParams, Message: "tool name required"}}, nil
		}
		result, toolErr := s.call(ctx, params.Name, params.Args)
		if toolErr != nil {
			return protocol.Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Error: toolErr}, nil
		}
		return protocol.Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Result: result}, nil
	default:
		return protocol.Response{JSONRPC: "2.0", ID: normalizeID(req.ID), Error: &protocol.ResponseError{Code: protocol.CodeMethodNotFound, Message: "method not found"}}, nil
	}
}

// call runs a tool and logs the outcome.
func (s *Server) call(ctx context.Context, name string, args json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	start := time.Now()
	res, rerr := s.toolbox.Call(ctx, name, args)
	lg := s.lg.WithFields(logrus.Fields{"tool": name, "took": time.Since(start).Round(time.Millisecond)})
	if rerr != nil {
		lg.WithField("code", rerr.Code).Warn(rerr.Message)
	} else {
		lg.Info("tool call")
	}
	return res, rerr
}

// WriteError builds a response with an error and wraps encode issues.
func WriteError(id any, code int, message string, err error) protocol.Response {
	detail := message
	if err != nil {
		detail = fmt.Sprintf("%s: %v", message, err)
	}
	return protocol.Response{JSONRPC: "2.0", ID: normalizeID(id), Error: &protocol.ResponseError{Code: code, Message: detail}}
}

func validateJSONRPC(req protocol.Request) *protocol.ResponseError {
	if req.JSONRPC != "" && req.JSONRPC != "2.0" {
		return &protocol.ResponseError{Code: protocol.CodeInvalidRequest, Message: "invalid jsonrpc version"}
	}
	if req.Method == "" {
		return &protocol.ResponseError{Code: protocol.CodeInvalidRequest, Message: "method required"}
	}
	return nil
}

func normalizeID(id any) any {
	if id == nil {
		return "0"
	}
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return v
	case int, int32, int64, uint32, uint64:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

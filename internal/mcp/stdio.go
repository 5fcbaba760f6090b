package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/ramp/ramp-mcp-server/internal/protocol"
	"github.com/ramp/ramp-mcp-server/internal/version"
)

// ServeStdio speaks MCP over in and out until ctx is cancelled or in is
// closed. Tool calls are dispatched through the same toolbox as HTTP.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	srv := mcpsrv.NewStdioServer(s.stdioServer())
	s.lg.Info("MCP server listening on stdio")
	if err := srv.Listen(ctx, in, out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}

func (s *Server) stdioServer() *mcpsrv.MCPServer {
	info := version.Get()
	opts := []mcpsrv.ServerOption{
		mcpsrv.WithToolCapabilities(false),
		// denied tools stay callable, so they answer with a scope error, but are never listed
		mcpsrv.WithToolFilter(func(_ context.Context, tools []mcplib.Tool) []mcplib.Tool {
			out := tools[:0:0]
			for _, t := range tools {
				if s.toolbox.Enabled(t.Name) {
					out = append(out, t)
				}
			}
			return out
		}),
	}
	if s.instructions != "" {
		opts = append(opts, mcpsrv.WithInstructions(s.instructions))
	}
	srv := mcpsrv.NewMCPServer(info.Name, info.Version, opts...)
	for _, t := range s.toolbox.Known() {
		tool, err := mcpTool(t.Descriptor())
		if err != nil {
			s.lg.WithError(err).WithField("tool", t.Descriptor().Name).Error("skipping tool")
			continue
		}
		srv.AddTool(tool, s.stdioHandler(tool.Name))
	}
	return srv
}

func mcpTool(d protocol.ToolDescriptor) (mcplib.Tool, error) {
	schema := d.InputSchema
	if schema == nil {
		schema = protocol.ObjectSchema(nil)
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return mcplib.Tool{}, err
	}
	return mcplib.NewToolWithRawSchema(d.Name, d.Description, raw), nil
}

func (s *Server) stdioHandler(name string) mcpsrv.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		var raw json.RawMessage
		if args := req.GetArguments(); len(args) > 0 {
			b, err := json.Marshal(args)
			if err != nil {
				return resultErr(err), nil
			}
			raw = b
		}
		res, rerr := s.call(ctx, name, raw)
		if rerr != nil {
			return responseErr(rerr), nil
		}
		return toMCPResult(res), nil
	}
}

func toMCPResult(res protocol.CallResult) *mcplib.CallToolResult {
	out := &mcplib.CallToolResult{IsError: res.IsError}
	for _, p := range res.Content {
		out.Content = append(out.Content, mcplib.NewTextContent(p.Text))
	}
	return out
}

// responseErr carries the full error, data included, since stdio tool
// failures travel as results rather than JSON-RPC errors.
func responseErr(rerr *protocol.ResponseError) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content:           []mcplib.Content{mcplib.NewTextContent(rerr.Detail())},
		StructuredContent: rerr,
		IsError:           true,
	}
}

// resultErr wraps an error in a CallToolResult with IsError set.
func resultErr(err error) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(err.Error())},
		IsError: true,
	}
}

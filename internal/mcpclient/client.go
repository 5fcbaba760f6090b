// Package mcpclient talks JSON-RPC to a running ramp-mcp HTTP server.
package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ramp/ramp-mcp-server/internal/protocol"
	"github.com/ramp/ramp-mcp-server/internal/version"
)

// DefaultTimeout covers a full resource load.
const DefaultTimeout = 5 * time.Minute

// Client issues JSON-RPC calls to the MCP server over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	counter    uint64
}

// New builds a client. token, if set, is sent as a bearer token.
func New(baseURL, token string, timeout time.Duration) *Client {
	trimmed := baseURL
	if !strings.HasSuffix(trimmed, "/") {
		trimmed += "/"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    trimmed,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) nextID() any {
	return atomic.AddUint64(&c.counter, 1)
}

// do sends one request and decodes result into out. A JSON-RPC error is
// returned as *protocol.ResponseError.
func (c *Client) do(ctx context.Context, method string, params, out any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	buf, err := json.Marshal(protocol.Request{
		JSONRPC: "2.0",
		ID:      c.nextID(),
		Method:  method,
		Params:  raw,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call mcp server: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1<<10))
		return fmt.Errorf("mcp server returned status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	var resp struct {
		Result json.RawMessage         `json:"result"`
		Error  *protocol.ResponseError `json:"error"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// ListTools fetches the advertised tools.
func (c *Client) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	var result protocol.ListResult
	if err := c.do(ctx, "tools/list", map[string]any{}, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool with raw JSON arguments.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (protocol.CallResult, error) {
	var result protocol.CallResult
	err := c.do(ctx, "tools/call", protocol.CallParams{Name: name, Args: args}, &result)
	return result, err
}

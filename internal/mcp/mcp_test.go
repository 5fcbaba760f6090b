package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ramp/ramp-mcp-server/internal/protocol"
	"github.com/ramp/ramp-mcp-server/internal/store"
	"github.com/ramp/ramp-mcp-server/internal/tools"
)

type echoTool struct{ name string }

func (e echoTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        e.name,
		Description: "echoes its arguments",
		InputSchema: protocol.ObjectSchema(map[string]protocol.JSONSchema{"msg": {Type: "string"}}),
	}
}

func (e echoTool) Invoke(_ context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args struct{ Msg string }
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return protocol.CallResult{}, &protocol.ResponseError{Code: protocol.CodeInvalidParams, Message: "invalid arguments"}
		}
	}
	if args.Msg == "fail" {
		return protocol.CallResult{}, &protocol.ResponseError{Code: protocol.CodeQuery, Message: "query failed"}
	}
	return protocol.Text(e.name + ":" + args.Msg), nil
}

func newTestServer() *Server {
	tb := NewToolbox(echoTool{"execute_query"}, echoTool{"load_bills"})
	tb.Deny(echoTool{"load_transactions"}, []string{"transactions:read"})
	return NewServer(tb, WithInstructions("load first, then query"))
}

func TestToolboxScopeGating(t *testing.T) {
	tb := newTestServer().Toolbox()

	var names []string
	for _, d := range tb.Describe() {
		names = append(names, d.Name)
	}
	if strings.Join(names, ",") != "execute_query,load_bills" {
		t.Fatalf("described tools = %v", names)
	}
	if tb.Enabled("load_transactions") || !tb.Enabled("load_bills") {
		t.Fatalf("Enabled mismatch")
	}
	if len(tb.Known()) != 3 {
		t.Fatalf("known = %d, want 3", len(tb.Known()))
	}

	_, rerr := tb.Call(context.Background(), "load_transactions", nil)
	if rerr == nil || rerr.Code != protocol.CodeScopeDenied {
		t.Fatalf("denied tool error = %+v", rerr)
	}
	if rerr.Data == nil || rerr.Data.Kind != "scope_denied" || !strings.Contains(rerr.Message, "transactions:read") {
		t.Fatalf("denied tool error = %+v", rerr)
	}

	_, rerr = tb.Call(context.Background(), "nope", nil)
	if rerr == nil || rerr.Code != protocol.CodeMethodNotFound {
		t.Fatalf("unknown tool error = %+v", rerr)
	}

	res, rerr := tb.Call(context.Background(), "load_bills", json.RawMessage(`{"msg":"hi"}`))
	if rerr != nil || res.Content[0].Text != "load_bills:hi" {
		t.Fatalf("call = %+v, %+v", res, rerr)
	}
}

func TestHandle(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	resp, _ := s.Handle(ctx, protocol.Request{JSONRPC: "2.0", ID: float64(1), Method: "initialize"})
	result := resp.Result.(map[string]any)
	if result["protocolVersion"] != protocol.Version || result["instructions"] != "load first, then query" {
		t.Fatalf("initialize = %+v", result)
	}
	if info := result["serverInfo"].(map[string]string); info["name"] != "ramp-mcp" {
		t.Fatalf("serverInfo = %+v", info)
	}

	resp, _ = s.Handle(ctx, protocol.Request{ID: "x", Method: "tools/list"})
	if got := len(resp.Result.(protocol.ListResult).Tools); got != 2 {
		t.Fatalf("tools/list returned %d tools", got)
	}

	resp, _ = s.Handle(ctx, protocol.Request{ID: float64(2), Method: "tools/call", Params: json.RawMessage(`{"name":"load_transactions"}`)})
	if resp.Error == nil || resp.Error.Code != protocol.CodeScopeDenied {
		t.Fatalf("tools/call denied = %+v", resp)
	}

	resp, _ = s.Handle(ctx, protocol.Request{ID: float64(3), Method: "tools/call", Params: json.RawMessage(`{}`)})
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("tools/call without name = %+v", resp)
	}

	resp, _ = s.Handle(ctx, protocol.Request{JSONRPC: "1.0", ID: float64(4), Method: "ping"})
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidRequest {
		t.Fatalf("bad version = %+v", resp)
	}

	resp, _ = s.Handle(ctx, protocol.Request{ID: float64(5), Method: "resources/list"})
	if resp.Error == nil || resp.Error.Code != protocol.CodeMethodNotFound {
		t.Fatalf("unknown method = %+v", resp)
	}
}

func post(t *testing.T, h http.Handler, remote, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.RemoteAddr = remote
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

const listBody = `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`

func TestHTTPGuardWithoutToken(t *testing.T) {
	guard, err := NewGuard("", "10.0.0.0/8")
	if err != nil {
		t.Fatal(err)
	}
	h := newTestServer().Handler(guard)

	if rr := post(t, h, "127.0.0.1:5000", "", listBody); rr.Code != http.StatusOK {
		t.Fatalf("loopback status = %d", rr.Code)
	}
	// the allowlist only applies when a token is configured
	if rr := post(t, h, "10.1.2.3:5000", "", listBody); rr.Code != http.StatusForbidden {
		t.Fatalf("remote status = %d, want 403", rr.Code)
	}
}

func TestHTTPGuardWithToken(t *testing.T) {
	guard, err := NewGuard("secret", "10.0.0.0/8, 192.168.1.7")
	if err != nil {
		t.Fatal(err)
	}
	h := newTestServer().Handler(guard)

	tests := []struct {
		name   string
		remote string
		token  string
		want   int
	}{
		{"loopback without token", "127.0.0.1:1", "", http.StatusUnauthorized},
		{"loopback with token", "127.0.0.1:1", "secret", http.StatusOK},
		{"allowed cidr", "10.9.9.9:1", "secret", http.StatusOK},
		{"allowed host", "192.168.1.7:1", "secret", http.StatusOK},
		{"wrong token", "10.9.9.9:1", "nope", http.StatusUnauthorized},
		{"outside allowlist", "172.16.0.1:1", "secret", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := post(t, h, tt.remote, tt.token, listBody); rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestParseAllowlistRejectsGarbage(t *testing.T) {
	if _, err := ParseAllowlist("10.0.0.0/8,not-an-ip"); err == nil {
		t.Fatal("expected error")
	}
}

func TestHTTPHandlerRoutes(t *testing.T) {
	h := newTestServer().Handler(nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("/health = %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"name":"ramp-mcp"`) {
		t.Fatalf("/version = %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET / = %d", rr.Code)
	}

	if rr := post(t, h, "127.0.0.1:1", "", `{not json`); rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid JSON status = %d", rr.Code)
	}
	if rr := post(t, h, "127.0.0.1:1", "", `{"jsonrpc":"2.0","method":"notifications/initialized"}`); rr.Code != http.StatusAccepted {
		t.Fatalf("notification status = %d", rr.Code)
	}

	rr = post(t, h, "127.0.0.1:1", "", `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"execute_query","arguments":{"msg":"fail"}}}`)
	var resp protocol.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != protocol.CodeQuery {
		t.Fatalf("tool error response = %s", rr.Body.String())
	}
}

type stdioResponse struct {
	ID     any `json:"id"`
	Result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		StructuredContent *protocol.ResponseError `json:"structuredContent"`
		IsError           bool                    `json:"isError"`
		Tools             []struct {
			Name string `json:"name"`
		} `json:"tools"`
	} `json:"result"`
}

type stdioClient struct {
	t     *testing.T
	in    io.Writer
	lines chan []byte
}

// startStdio serves s over pipes and completes the initialize handshake.
func startStdio(t *testing.T, s *Server) *stdioClient {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeStdio(ctx, inR, outW) }()

	lines := make(chan []byte, 16)
	go func() {
		defer close(lines)
		r := bufio.NewReader(outR)
		for {
			line, err := r.ReadBytes('\n')
			if err != nil {
				return
			}
			lines <- line
		}
	}()
	t.Cleanup(func() {
		cancel()
		_ = inW.Close()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("stdio server did not stop")
		}
		_ = outR.Close()
	})

	c := &stdioClient{t: t, in: inW, lines: lines}
	c.roundTrip(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`)
	c.send(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	return c
}

func (c *stdioClient) send(msg string) {
	c.t.Helper()
	if _, err := io.WriteString(c.in, msg+"\n"); err != nil {
		c.t.Fatal(err)
	}
}

func (c *stdioClient) recv() stdioResponse {
	c.t.Helper()
	select {
	case line, ok := <-c.lines:
		if !ok {
			c.t.Fatal("stdio output closed")
		}
		var r stdioResponse
		if err := json.Unmarshal(line, &r); err != nil {
			c.t.Fatalf("decode %s: %v", line, err)
		}
		return r
	case <-time.After(5 * time.Second):
		c.t.Fatal("no stdio response")
	}
	return stdioResponse{}
}

func (c *stdioClient) roundTrip(req string) stdioResponse {
	c.t.Helper()
	c.send(req)
	return c.recv()
}

func TestStdio(t *testing.T) {
	c := startStdio(t, newTestServer())

	list := c.roundTrip(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	var names []string
	for _, tool := range list.Result.Tools {
		names = append(names, tool.Name)
	}
	if strings.Contains(strings.Join(names, ","), "load_transactions") || len(names) != 2 {
		t.Fatalf("stdio tools = %v", names)
	}

	ok := c.roundTrip(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"load_bills","arguments":{"msg":"x"}}}`)
	if ok.Result.IsError || len(ok.Result.Content) != 1 || ok.Result.Content[0].Text != "load_bills:x" {
		t.Fatalf("stdio call = %+v", ok.Result)
	}

	denied := c.roundTrip(`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"load_transactions","arguments":{}}}`)
	if !denied.Result.IsError || !strings.Contains(denied.Result.Content[0].Text, "transactions:read") {
		t.Fatalf("stdio denied call = %+v", denied.Result)
	}
	if !strings.Contains(denied.Result.Content[0].Text, "kind=scope_denied tool=load_transactions") {
		t.Fatalf("stdio denied call lost its error data: %q", denied.Result.Content[0].Text)
	}
}

func TestStdioQueryErrorCarriesData(t *testing.T) {
	st, err := store.Open(context.Background(), store.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	c := startStdio(t, NewServer(NewToolbox(tools.ExecuteQuery(st))))

	const sql = "DELETE FROM bills WHERE 1=1"
	resp := c.roundTrip(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"execute_query","arguments":{"sql":"` + sql + `"}}}`)
	if !resp.Result.IsError || len(resp.Result.Content) != 1 {
		t.Fatalf("rejected query = %+v", resp.Result)
	}
	text := resp.Result.Content[0].Text
	for _, want := range []string{"kind=query", "tool=execute_query", `sql="` + sql + `"`} {
		if !strings.Contains(text, want) {
			t.Errorf("error text %q does not contain %s", text, want)
		}
	}

	rerr := resp.Result.StructuredContent
	if rerr == nil || rerr.Code != protocol.CodeQuery || rerr.Data == nil {
		t.Fatalf("structured error = %+v", rerr)
	}
	if rerr.Data.Kind != "query" || rerr.Data.Tool != "execute_query" || rerr.Data.SQL != sql {
		t.Fatalf("structured error data = %+v", rerr.Data)
	}
}

// blockingTool runs until release is closed.
type blockingTool struct {
	name    string
	started chan struct{}
	release chan struct{}
}

func newBlockingTool(name string) *blockingTool {
	return &blockingTool{name: name, started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{Name: b.name, Description: "blocks until released"}
}

func (b *blockingTool) Invoke(ctx context.Context, _ json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	close(b.started)
	select {
	case <-b.release:
		return protocol.Text("released"), nil
	case <-ctx.Done():
		return protocol.CallResult{}, &protocol.ResponseError{Code: protocol.CodeInternal, Message: ctx.Err().Error()}
	}
}

func TestToolboxReadableDuringCall(t *testing.T) {
	slow := newBlockingTool("load_bills")
	tb := NewToolbox(slow, echoTool{"execute_query"})

	first := make(chan *protocol.ResponseError, 1)
	go func() {
		_, rerr := tb.Call(context.Background(), "load_bills", nil)
		first <- rerr
	}()
	<-slow.started

	listed := make(chan int, 1)
	go func() {
		if tb.Enabled("execute_query") {
			listed <- len(tb.Describe())
		}
	}()
	select {
	case n := <-listed:
		if n != 2 {
			t.Fatalf("Describe returned %d tools", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("registry blocked while a tool call was running")
	}

	second := make(chan *protocol.ResponseError, 1)
	go func() {
		_, rerr := tb.Call(context.Background(), "execute_query", json.RawMessage(`{"msg":"x"}`))
		second <- rerr
	}()
	select {
	case <-second:
		t.Fatal("calls must not overlap")
	case <-time.After(50 * time.Millisecond):
	}

	close(slow.release)
	for _, ch := range []chan *protocol.ResponseError{first, second} {
		select {
		case rerr := <-ch:
			if rerr != nil {
				t.Fatalf("call = %+v", rerr)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("call did not finish after release")
		}
	}
}

func TestStdioListsDuringCall(t *testing.T) {
	slow := newBlockingTool("load_bills")
	c := startStdio(t, NewServer(NewToolbox(slow, echoTool{"execute_query"})))

	c.send(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"load_bills","arguments":{}}}`)
	select {
	case <-slow.started:
	case <-time.After(5 * time.Second):
		t.Fatal("tool was not invoked")
	}

	list := c.roundTrip(`{"jsonrpc":"2.0","id":3,"method":"tools/list"}`)
	if list.ID != float64(3) || len(list.Result.Tools) != 2 {
		t.Fatalf("tools/list during a call = %+v", list)
	}

	close(slow.release)
	done := c.recv()
	if done.ID != float64(2) || done.Result.IsError || done.Result.Content[0].Text != "released" {
		t.Fatalf("call after release = %+v", done)
	}
}

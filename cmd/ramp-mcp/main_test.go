package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ramp/ramp-mcp-server/internal/protocol"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestToolsCommand(t *testing.T) {
	out, err := run(t, "tools", "-s", "bills:read,bogus:read")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	lines := map[string]string{}
	for _, l := range strings.Split(out, "\n") {
		if f := strings.Fields(l); len(f) > 0 {
			lines[f[0]] = l
		}
	}
	if !strings.Contains(lines["load_bills"], "yes") {
		t.Fatalf("load_bills line = %q", lines["load_bills"])
	}
	if !strings.Contains(lines["load_transactions"], "missing transactions:read") {
		t.Fatalf("load_transactions line = %q", lines["load_transactions"])
	}
	if !strings.Contains(lines["execute_query"], "yes") {
		t.Fatalf("execute_query line = %q", lines["execute_query"])
	}
}

func TestCallCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req protocol.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		var p protocol.CallParams
		_ = json.Unmarshal(req.Params, &p)
		resp := protocol.Response{JSONRPC: "2.0", ID: req.ID}
		if p.Name == "load_users" {
			resp.Error = &protocol.ResponseError{Code: protocol.CodeScopeDenied, Message: "tool load_users requires scope users:read",
				Data: &protocol.ErrorData{Kind: "scope_denied", Tool: "load_users"}}
		} else {
			resp.Result = protocol.Text("ok " + p.Name)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	out, err := run(t, "call", "--url", srv.URL, "list_tables")
	if err != nil || !strings.Contains(out, "ok list_tables") {
		t.Fatalf("call = %q, %v", out, err)
	}
	_, err = run(t, "call", "--url", srv.URL, "load_users")
	if err == nil || !strings.Contains(err.Error(), "-32001") || !strings.Contains(err.Error(), "kind=scope_denied") {
		t.Fatalf("denied call err = %v", err)
	}
	if _, err := run(t, "call", "--url", srv.URL, "execute_query", "{not json"); err == nil {
		t.Fatal("expected invalid JSON error")
	}
}

func TestServeRejectsBadConfig(t *testing.T) {
	t.Setenv("RAMP_MCP_CONFIG", "")
	_, err := run(t, "serve", "--transport", "carrier-pigeon")
	if err == nil || !strings.Contains(err.Error(), "Transport") {
		t.Fatalf("err = %v", err)
	}
}

func TestServeLogStderrNeedsHTTP(t *testing.T) {
	t.Setenv("RAMP_MCP_CONFIG", "")
	_, err := run(t, "serve", "--log-stderr")
	if err == nil || !strings.Contains(err.Error(), "Log.Stderr requires Transport http") {
		t.Fatalf("err = %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil || !strings.HasPrefix(out, "ramp-mcp dev") {
		t.Fatalf("version = %q, %v", out, err)
	}
}

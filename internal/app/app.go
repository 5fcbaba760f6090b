package app

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ramp/ramp-mcp-server/internal/config"
	"github.com/ramp/ramp-mcp-server/internal/etl"
	"github.com/ramp/ramp-mcp-server/internal/logging"
	"github.com/ramp/ramp-mcp-server/internal/mcp"
	"github.com/ramp/ramp-mcp-server/internal/ramp"
	"github.com/ramp/ramp-mcp-server/internal/resource"
	"github.com/ramp/ramp-mcp-server/internal/store"
	"github.com/ramp/ramp-mcp-server/internal/tools"
)

// Instructions are sent to the client on initialize.
const Instructions = `This server loads Ramp data into an in-memory SQLite database and lets you query it.
1. Call a load_<resource> tool (or process_data) first. Each load replaces the previous table for that resource.
2. Use list_tables to see the loaded tables and their columns.
3. Run read-only SQL with execute_query. Prefer aggregation, GROUP BY and window functions over fetching raw rows; results are capped.
Amounts are decimal numbers in the major unit of their currency. Use get_ramp_categories to resolve category ids.`

// Entry is one row of the tool table.
type Entry struct {
	Name   string
	Scopes []string
	New    func(*Session) mcp.Tool
}

// Registry returns the static tool table: the scope-gated load tools first,
// then the tools every session has.
func Registry() []Entry {
	var out []Entry
	for _, d := range resource.Catalog() {
		d := d
		out = append(out, Entry{
			Name:   d.Tool,
			Scopes: d.Scopes,
			New:    func(s *Session) mcp.Tool { return tools.Load(d, s.Orchestrator) },
		})
	}
	return append(out,
		Entry{Name: "process_data", New: func(s *Session) mcp.Tool { return tools.ProcessData(s.Orchestrator) }},
		Entry{Name: "execute_query", New: func(s *Session) mcp.Tool { return tools.ExecuteQuery(s.Store) }},
		Entry{Name: "clear_table", New: func(s *Session) mcp.Tool { return tools.ClearTable(s.Orchestrator) }},
		Entry{Name: "list_tables", New: func(s *Session) mcp.Tool { return tools.ListTables(s.Store) }},
		Entry{Name: "get_ramp_categories", New: func(*Session) mcp.Tool { return tools.Categories() }},
		Entry{Name: "get_currencies", New: func(*Session) mcp.Tool { return tools.Currencies() }},
	)
}

// Missing returns the scopes of e that are not granted.
func (e Entry) Missing(granted []string) []string {
	have := make(map[string]bool, len(granted))
	for _, s := range granted {
		have[s] = true
	}
	var missing []string
	for _, s := range e.Scopes {
		if !have[s] {
			missing = append(missing, s)
		}
	}
	return missing
}

// GrantScopes keeps the requested scopes that some resource uses and warns
// about the rest.
func GrantScopes(requested []string, lg *logrus.Entry) []string {
	if lg == nil {
		lg = logging.Discard()
	}
	known := make(map[string]bool)
	for _, s := range resource.Scopes() {
		known[s] = true
	}
	var granted []string
	for _, s := range requested {
		if !known[s] {
			lg.WithField("scope", s).Warn("ignoring unknown scope")
			continue
		}
		granted = append(granted, s)
	}
	sort.Strings(granted)
	return granted
}

// NewToolbox resolves the registry against the granted scopes. Tools whose
// scopes are missing are kept as denied so that calling them is answered with
// a scope error rather than "tool not found".
func NewToolbox(scopes []string, s *Session) *mcp.Toolbox {
	tb := mcp.NewToolbox()
	for _, e := range Registry() {
		t := e.New(s)
		if missing := e.Missing(scopes); len(missing) > 0 {
			tb.Deny(t, missing)
			continue
		}
		tb.Add(t)
	}
	return tb
}

// NewMCPServer constructs an MCP server over the session's toolbox.
func NewMCPServer(s *Session, lg *logrus.Entry) *mcp.Server {
	return mcp.NewServer(NewToolbox(s.Scopes, s), mcp.WithInstructions(Instructions), mcp.WithLogger(lg))
}

// Session holds the state shared by the tools of one server process.
type Session struct {
	Scopes       []string
	Store        *store.Store
	Client       *ramp.Client
	Orchestrator *etl.Orchestrator
}

// NewSession authenticates against Ramp and opens an empty store.
func NewSession(ctx context.Context, cfg config.Config, lg *logrus.Entry) (*Session, error) {
	if lg == nil {
		lg = logging.Discard()
	}
	scopes := GrantScopes(cfg.Scopes, lg)

	baseURL, err := cfg.ResolveBaseURL()
	if err != nil {
		return nil, err
	}
	hc := &http.Client{Timeout: cfg.Client.Timeout}

	creds := cfg.Credentials
	creds.Scopes = scopes
	method, err := creds.Method()
	if err != nil {
		return nil, err
	}
	tokens, err := ramp.Authenticate(ctx, baseURL, creds, hc)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	lg.WithFields(logrus.Fields{"base_url": baseURL, "method": method, "scopes": scopes}).Info("authenticated")

	client, err := ramp.New(tokens, ramp.Options{
		BaseURL:           baseURL,
		PageSize:          cfg.Client.PageSize,
		MaxPages:          cfg.Client.MaxPages,
		MaxRetries:        cfg.Client.MaxRetries,
		RequestsPerSecond: cfg.Client.RequestsPerSecond,
		Timeout:           cfg.Client.Timeout,
		MaxBackoff:        cfg.Client.MaxBackoff,
		HTTPClient:        hc,
		Logger:            lg.WithField("component", "ramp"),
	})
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, store.Options{
		MaxRows:  cfg.Query.MaxRows,
		MaxBytes: cfg.Query.MaxBytes,
		Logger:   lg.WithField("component", "store"),
	})
	if err != nil {
		return nil, err
	}
	return &Session{
		Scopes:       scopes,
		Store:        st,
		Client:       client,
		Orchestrator: etl.New(client, st, scopes, lg.WithField("component", "etl")),
	}, nil
}

// Close discards every loaded table.
func (s *Session) Close() error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ramp/ramp-mcp-server/internal/protocol"
	"github.com/ramp/ramp-mcp-server/internal/resource"
)

type executeQueryTool struct {
	db Querier
}

// ExecuteQuery constructs the execute_query tool.
func ExecuteQuery(db Querier) *executeQueryTool {
	return &executeQueryTool{db: db}
}

func (t *executeQueryTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name: "execute_query",
		Description: "Run one read-only SQLite SELECT (a WITH ... SELECT is fine) against the loaded tables. " +
			"Window functions and aggregates are supported. Results are limited in rows and size; " +
			"aggregate in SQL instead of fetching raw rows.",
		InputSchema: protocol.ObjectSchema(map[string]protocol.JSONSchema{
			"sql": {Type: "string", Description: "A single SELECT statement"},
		}, "sql"),
	}
}

func (t *executeQueryTool) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args struct {
		SQL   string `json:"sql"`
		Query string `json:"query"`
	}
	if err := decode(raw, &args); err != nil {
		return protocol.CallResult{}, invalidArgs("execute_query", "invalid arguments: "+err.Error())
	}
	sql := args.SQL
	if sql == "" {
		sql = args.Query
	}
	if strings.TrimSpace(sql) == "" {
		return protocol.CallResult{}, invalidArgs("execute_query", "sql is required")
	}
	res, err := t.db.Query(ctx, sql)
	if err != nil {
		return protocol.CallResult{}, toResponse("execute_query", err)
	}
	out, err := json.Marshal(res)
	if err != nil {
		return protocol.CallResult{}, toResponse("execute_query", err)
	}
	return protocol.Text(string(out)), nil
}

type clearTableTool struct {
	loader Loader
}

// ClearTable constructs the clear_table tool.
func ClearTable(loader Loader) *clearTableTool {
	return &clearTableTool{loader: loader}
}

func (t *clearTableTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        "clear_table",
		Description: "Drop the table of a resource to free memory. Loading a resource again replaces its table anyway.",
		InputSchema: protocol.ObjectSchema(map[string]protocol.JSONSchema{
			"resource": {Type: "string", Enum: resource.Names(), Description: "Resource whose table to drop"},
		}, "resource"),
	}
}

func (t *clearTableTool) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args struct {
		Resource string `json:"resource"`
	}
	if err := decode(raw, &args); err != nil {
		return protocol.CallResult{}, invalidArgs("clear_table", "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(args.Resource) == "" {
		return protocol.CallResult{}, invalidArgs("clear_table", "resource is required")
	}
	existed, err := t.loader.Clear(ctx, args.Resource)
	if err != nil {
		return protocol.CallResult{}, toResponse("clear_table", err)
	}
	if !existed {
		return protocol.Text(fmt.Sprintf("Table %s was not loaded; nothing to clear.", args.Resource)), nil
	}
	return protocol.Text(fmt.Sprintf("Dropped table %s.", args.Resource)), nil
}

type listTablesTool struct {
	db Querier
}

// ListTables constructs the list_tables tool.
func ListTables(db Querier) *listTablesTool {
	return &listTablesTool{db: db}
}

func (t *listTablesTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        "list_tables",
		Description: "List the loaded tables with their columns, row counts and load state.",
		InputSchema: protocol.ObjectSchema(nil),
	}
}

func (t *listTablesTool) Invoke(_ context.Context, _ json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	tables := t.db.Tables()
	if len(tables) == 0 {
		return protocol.Text("No tables are loaded yet. Use a load_<resource> tool or process_data first."), nil
	}
	out, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		return protocol.CallResult{}, toResponse("list_tables", err)
	}
	return protocol.Text(string(out)), nil
}

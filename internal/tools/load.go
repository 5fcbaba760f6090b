// Package tools implements the MCP tools: one load tool per Ramp resource,
// the generic process_data loader, and the tools that query and manage the
// loaded tables.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ramp/ramp-mcp-server/internal/etl"
	"github.com/ramp/ramp-mcp-server/internal/protocol"
	"github.com/ramp/ramp-mcp-server/internal/resource"
	"github.com/ramp/ramp-mcp-server/internal/store"
)

// Loader fills and drops resource tables.
type Loader interface {
	Load(ctx context.Context, name string, filters map[string]any, columns []string) (etl.Result, error)
	Clear(ctx context.Context, name string) (bool, error)
}

// Querier runs read-only queries and reports table metadata.
type Querier interface {
	Query(ctx context.Context, sql string) (store.Result, error)
	Tables() []store.TableInfo
}

// loadTool loads one resource; its arguments are the resource's filters.
type loadTool struct {
	desc   resource.Descriptor
	loader Loader
}

// Load constructs the load_<resource> tool of a descriptor.
func Load(desc resource.Descriptor, loader Loader) *loadTool {
	return &loadTool{desc: desc, loader: loader}
}

func (t *loadTool) Descriptor() protocol.ToolDescriptor {
	text := fmt.Sprintf("Load %s into the table %q, replacing any previous load. %s Requires scope %s. "+
		"Afterwards answer questions with execute_query.",
		t.desc.Name, t.desc.Table(), t.desc.Description, strings.Join(t.desc.Scopes, " + "))
	if hasMoney(t.desc) {
		text += " " + resource.AmountNote
	}
	return protocol.ToolDescriptor{
		Name:        t.desc.Tool,
		Description: text,
		InputSchema: FilterSchema(t.desc),
	}
}

func (t *loadTool) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args map[string]any
	if err := decode(raw, &args); err != nil {
		return protocol.CallResult{}, invalidArgs(t.desc.Tool, "invalid arguments: "+err.Error())
	}
	res, err := t.loader.Load(ctx, t.desc.Name, args, nil)
	if err != nil {
		return protocol.CallResult{}, toResponse(t.desc.Tool, err)
	}
	return protocol.Text(loadSummary(t.desc, res)), nil
}

// processDataTool is the generic loader.
type processDataTool struct {
	loader Loader
}

// ProcessData constructs the process_data tool.
func ProcessData(loader Loader) *processDataTool {
	return &processDataTool{loader: loader}
}

func (t *processDataTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name: "process_data",
		Description: "Load any Ramp resource into its table, replacing any previous load. " +
			"Resources: " + strings.Join(resource.Names(), ", ") + ". " +
			"filters takes the same arguments as the matching load_<resource> tool; " +
			"columns optionally keeps only some columns of the table. " + resource.AmountNote,
		InputSchema: protocol.ObjectSchema(map[string]protocol.JSONSchema{
			"resource": {Type: "string", Enum: resource.Names(), Description: "Resource to load"},
			"filters": {
				Type:                 "object",
				Description:          "Filter arguments, e.g. {\"from_date\": \"2024-01-01\", \"to_date\": \"2024-01-31\"}",
				AdditionalProperties: true,
			},
			"columns": {
				Type:        "array",
				Items:       &protocol.JSONSchema{Type: "string"},
				Description: "Columns to keep; all columns when omitted",
			},
		}, "resource"),
	}
}

type processDataArgs struct {
	Resource string         `json:"resource"`
	Filters  map[string]any `json:"filters"`
	Columns  []string       `json:"columns"`
}

func (t *processDataTool) Invoke(ctx context.Context, raw json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	var args processDataArgs
	if err := decode(raw, &args); err != nil {
		return protocol.CallResult{}, invalidArgs("process_data", "invalid arguments: "+err.Error())
	}
	if strings.TrimSpace(args.Resource) == "" {
		return protocol.CallResult{}, invalidArgs("process_data", "resource is required")
	}
	res, err := t.loader.Load(ctx, args.Resource, args.Filters, args.Columns)
	if err != nil {
		return protocol.CallResult{}, toResponse("process_data", err)
	}
	desc, _ := resource.Lookup(res.Resource)
	return protocol.Text(loadSummary(desc, res)), nil
}

func loadSummary(desc resource.Descriptor, res etl.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Loaded %s rows into table %s (%d pages, %s, load %s).\n",
		humanize.Comma(int64(res.Rows)), res.Table, res.Pages, res.Took, res.LoadID)
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(res.Columns, ", "))
	if hasMoney(desc) {
		b.WriteString(resource.AmountNote + "\n")
	}
	b.WriteString("Query the table with execute_query; prefer aggregates over selecting every row.")
	return b.String()
}

func hasMoney(desc resource.Descriptor) bool {
	for _, c := range desc.Columns {
		if c.Kind == resource.Amount || c.Kind == resource.MinorAmount {
			return true
		}
	}
	return false
}

// decode unmarshals tool arguments; empty and null arguments leave v untouched.
func decode(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, v)
}

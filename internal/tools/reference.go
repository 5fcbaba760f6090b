package tools

import (
	"context"
	"encoding/json"

	"github.com/ramp/ramp-mcp-server/internal/protocol"
	"github.com/ramp/ramp-mcp-server/internal/resource"
)

type categoriesTool struct{}

// Categories constructs the get_ramp_categories tool.
func Categories() categoriesTool { return categoriesTool{} }

func (categoriesTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        "get_ramp_categories",
		Description: "List Ramp spend categories. Use the ids with the ramp_category_ids filter and to join sk_category_id columns.",
		InputSchema: protocol.ObjectSchema(nil),
	}
}

func (categoriesTool) Invoke(context.Context, json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	return jsonResult("get_ramp_categories", resource.Categories())
}

type currenciesTool struct{}

// Currencies constructs the get_currencies tool.
func Currencies() currenciesTool { return currenciesTool{} }

func (currenciesTool) Descriptor() protocol.ToolDescriptor {
	return protocol.ToolDescriptor{
		Name:        "get_currencies",
		Description: "List ISO 4217 currency codes with their number of minor-unit digits.",
		InputSchema: protocol.ObjectSchema(nil),
	}
}

func (currenciesTool) Invoke(context.Context, json.RawMessage) (protocol.CallResult, *protocol.ResponseError) {
	return jsonResult("get_currencies", resource.Currencies())
}

func jsonResult(tool string, v any) (protocol.CallResult, *protocol.ResponseError) {
	out, err := json.Marshal(v)
	if err != nil {
		return protocol.CallResult{}, toResponse(tool, err)
	}
	return protocol.Text(string(out)), nil
}

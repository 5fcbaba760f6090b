package tools

import (
	"github.com/ramp/ramp-mcp-server/internal/protocol"
	"github.com/ramp/ramp-mcp-server/internal/resource"
)

// FilterSchema describes the filters of a resource as a tool input schema.
// Fixed filters are not exposed.
func FilterSchema(desc resource.Descriptor) *protocol.JSONSchema {
	props := make(map[string]protocol.JSONSchema, len(desc.Filters))
	var required []string
	for _, f := range desc.Filters {
		if f.Fixed != nil {
			continue
		}
		s := protocol.JSONSchema{Description: f.Description, Enum: f.Enum}
		switch f.Type {
		case resource.FilterDate:
			s.Type, s.Format = "string", "date"
		case resource.FilterBool:
			s.Type = "boolean"
		case resource.FilterInt:
			s.Type = "integer"
		case resource.FilterStrings:
			s.Type, s.Items = "array", &protocol.JSONSchema{Type: "string"}
		default:
			s.Type = "string"
		}
		props[f.Name] = s
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return protocol.ObjectSchema(props, required...)
}

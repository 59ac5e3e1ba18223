package tool

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/schema"

	"github.com/arbor-chat/arbor/internal/store"
)

// Registry holds the tools available to a turn.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same ID twice replaces the
// earlier entry.
func (r *Registry) Register(t Tool) {
	r.tools[t.ID()] = t
}

// Get looks a tool up by ID.
func (r *Registry) Get(id string) (Tool, bool) {
	t, ok := r.tools[id]
	return t, ok
}

// IDs returns the registered tool IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Infos returns the tool declarations passed to the model.
func (r *Registry) Infos() ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(r.tools))
	for _, id := range r.IDs() {
		t := r.tools[id]
		params, err := parseSchemaParams(t.Parameters())
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", id, err)
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        t.ID(),
			Desc:        t.Description(),
			ParamsOneOf: params,
		})
	}
	return infos, nil
}

// Default builds the standard registry: weather lookups plus the
// document tools.
func Default(st *store.Store, drafter Drafter, weatherBaseURL string) *Registry {
	r := NewRegistry()
	r.Register(NewWeatherTool(weatherBaseURL))
	r.Register(NewCreateDocumentTool(st))
	r.Register(NewUpdateDocumentTool(st))
	r.Register(NewRequestSuggestionsTool(st, drafter))
	return r
}

type jsonSchema struct {
	Type       string                `json:"type"`
	Properties map[string]jsonSchema `json:"properties,omitempty"`
	Items      *jsonSchema           `json:"items,omitempty"`
	Required   []string              `json:"required,omitempty"`
	Desc       string                `json:"description,omitempty"`
	Enum       []string              `json:"enum,omitempty"`
}

func parseSchemaParams(raw json.RawMessage) (*schema.ParamsOneOf, error) {
	var js jsonSchema
	if err := json.Unmarshal(raw, &js); err != nil {
		return nil, fmt.Errorf("parse parameters schema: %w", err)
	}
	params := make(map[string]*schema.ParameterInfo, len(js.Properties))
	required := make(map[string]bool, len(js.Required))
	for _, name := range js.Required {
		required[name] = true
	}
	for name, prop := range js.Properties {
		params[name] = toParamInfo(prop, required[name])
	}
	return schema.NewParamsOneOfByParams(params), nil
}

func toParamInfo(js jsonSchema, required bool) *schema.ParameterInfo {
	info := &schema.ParameterInfo{
		Desc:     js.Desc,
		Required: required,
		Enum:     js.Enum,
	}
	switch js.Type {
	case "string":
		info.Type = schema.String
	case "number":
		info.Type = schema.Number
	case "integer":
		info.Type = schema.Integer
	case "boolean":
		info.Type = schema.Boolean
	case "array":
		info.Type = schema.Array
		if js.Items != nil {
			info.ElemInfo = toParamInfo(*js.Items, false)
		}
	case "object":
		info.Type = schema.Object
		sub := make(map[string]*schema.ParameterInfo, len(js.Properties))
		subRequired := make(map[string]bool, len(js.Required))
		for _, name := range js.Required {
			subRequired[name] = true
		}
		for name, prop := range js.Properties {
			sub[name] = toParamInfo(prop, subRequired[name])
		}
		info.SubParams = sub
	default:
		info.Type = schema.String
	}
	return info
}

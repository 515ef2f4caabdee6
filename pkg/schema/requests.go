package schema

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Request schemas accepted by the API and MCP layers.
const (
	DiscoverRequest    = "discover_request"
	QueueConfigRequest = "queue_config"
	CacheConfigRequest = "cache_config"
)

// Request returns the embedded schema document for name.
func Request(name string) (json.RawMessage, error) {
	data, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown request schema %q", name)
	}
	return data, nil
}

// ValidateRequest validates a raw JSON body against the named request schema.
func (v *Validator) ValidateRequest(name string, body []byte) error {
	doc, err := Request(name)
	if err != nil {
		return err
	}
	return v.ValidateJSON(doc, body)
}

// ValidateRequestArgs validates already decoded arguments, as received by
// MCP tool handlers.
func (v *Validator) ValidateRequestArgs(name string, args map[string]any) error {
	doc, err := Request(name)
	if err != nil {
		return err
	}
	if args == nil {
		args = map[string]any{}
	}
	return v.Validate(doc, args)
}

// Package schema checks lanscout request bodies against the JSON Schema
// documents embedded under schemas/. The HTTP handlers validate raw bodies
// with ValidateRequest; the MCP tools validate their decoded argument maps
// with ValidateRequestArgs, so both surfaces reject the same inputs.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaURL names the single resource each compiler holds.
const schemaURL = "request.json"

// Validator compiles schema documents on first use and keeps them, keyed by
// the document text. It is safe for concurrent use.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewValidator returns a Validator with nothing compiled yet.
func NewValidator() *Validator {
	return &Validator{cache: make(map[string]*jsonschema.Schema)}
}

// Validate checks an already decoded payload. Numbers must be float64 or
// json.Number, as produced by encoding/json. A nil, null or {} schema
// accepts anything.
func (v *Validator) Validate(schemaDoc json.RawMessage, payload any) error {
	if acceptsAll(schemaDoc) {
		return nil
	}
	compiled, err := v.compiled(schemaDoc)
	if err != nil {
		return err
	}
	return compiled.Validate(payload)
}

// ValidateJSON decodes body with the validator's own decoder, which keeps
// integer precision, and checks it against schemaDoc.
func (v *Validator) ValidateJSON(schemaDoc json.RawMessage, body []byte) error {
	payload, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return v.Validate(schemaDoc, payload)
}

func acceptsAll(doc json.RawMessage) bool {
	switch string(bytes.TrimSpace(doc)) {
	case "", "{}", "null":
		return true
	}
	return false
}

func (v *Validator) compiled(doc json.RawMessage) (*jsonschema.Schema, error) {
	key := string(doc)

	v.mu.RLock()
	s, ok := v.cache[key]
	v.mu.RUnlock()
	if ok {
		return s, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.cache[key]; ok {
		return s, nil
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, parsed); err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	s, err = c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	v.cache[key] = s
	return s, nil
}

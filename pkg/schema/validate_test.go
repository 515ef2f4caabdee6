package schema

import (
	"encoding/json"
	"testing"
)

func portSchema() json.RawMessage {
	return json.RawMessage(`{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"properties": {
			"protocol": {"type": "string", "enum": ["tcp", "udp"]},
			"port": {"type": "integer", "minimum": 1, "maximum": 65535}
		},
		"additionalProperties": false
	}`)
}

func TestValidate_ValidPayload(t *testing.T) {
	v := NewValidator()

	err := v.Validate(portSchema(), map[string]any{
		"protocol": "tcp",
		"port":     float64(443),
	})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidate_InvalidEnum(t *testing.T) {
	v := NewValidator()

	err := v.Validate(portSchema(), map[string]any{"protocol": "sctp"})
	if err == nil {
		t.Error("expected validation error for invalid enum value")
	}
}

func TestValidate_OutOfRange(t *testing.T) {
	v := NewValidator()

	err := v.Validate(portSchema(), map[string]any{"port": float64(70000)})
	if err == nil {
		t.Error("expected validation error for out-of-range port")
	}
}

func TestValidate_UnknownProperty(t *testing.T) {
	v := NewValidator()

	err := v.Validate(portSchema(), map[string]any{"port": float64(80), "host": "x"})
	if err == nil {
		t.Error("expected validation error for unknown property")
	}
}

func TestValidate_EmptySchema(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(json.RawMessage(`{}`), map[string]any{"anything": "goes"}); err != nil {
		t.Errorf("empty schema should skip validation, got: %v", err)
	}
	if err := v.Validate(nil, map[string]any{"anything": "goes"}); err != nil {
		t.Errorf("nil schema should skip validation, got: %v", err)
	}
}

func TestValidate_CachesSchema(t *testing.T) {
	v := NewValidator()

	if err := v.Validate(portSchema(), map[string]any{"port": float64(22)}); err != nil {
		t.Fatal(err)
	}
	if err := v.ValidateJSON(portSchema(), []byte(`{"port": 23}`)); err != nil {
		t.Fatal(err)
	}

	v.mu.RLock()
	cacheSize := len(v.cache)
	v.mu.RUnlock()
	if cacheSize != 1 {
		t.Errorf("expected 1 cached schema, got %d", cacheSize)
	}
}

func TestValidateJSON_Malformed(t *testing.T) {
	v := NewValidator()

	if err := v.ValidateJSON(portSchema(), []byte(`{"port": `)); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestValidateRequest(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		schema  string
		body    string
		wantErr bool
	}{
		{"discover empty", DiscoverRequest, `{}`, false},
		{"discover full", DiscoverRequest, `{"strategy":"race","timeout_ms":2000,"preferred_methods":["mdns"]}`, false},
		{"discover bad strategy", DiscoverRequest, `{"strategy":"fastest"}`, true},
		{"discover negative timeout", DiscoverRequest, `{"timeout_ms":-1}`, true},
		{"discover duplicate methods", DiscoverRequest, `{"preferred_methods":["mdns","mdns"]}`, true},
		{"queue learning", QueueConfigRequest, `{"learning_enabled":false}`, false},
		{"queue methods", QueueConfigRequest, `{"methods":[{"name":"mdns","priority":9,"timeout_ms":5000,"retries":1,"enabled":true}]}`, false},
		{"queue priority range", QueueConfigRequest, `{"methods":[{"name":"mdns","priority":11}]}`, true},
		{"queue method without name", QueueConfigRequest, `{"methods":[{"priority":5}]}`, true},
		{"cache size", CacheConfigRequest, `{"max_size":50}`, false},
		{"cache empty", CacheConfigRequest, `{}`, true},
		{"cache zero size", CacheConfigRequest, `{"max_size":0}`, true},
		{"cache fractional ttl", CacheConfigRequest, `{"ttl_ms":1.5}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(tt.schema, []byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRequestArgs(t *testing.T) {
	v := NewValidator()

	if err := v.ValidateRequestArgs(DiscoverRequest, nil); err != nil {
		t.Errorf("nil args should be an empty request, got: %v", err)
	}
	if err := v.ValidateRequestArgs(CacheConfigRequest, map[string]any{"ttl_ms": float64(120000)}); err != nil {
		t.Errorf("expected valid args, got: %v", err)
	}
	if err := v.ValidateRequestArgs("nope", nil); err == nil {
		t.Error("expected error for unknown request schema")
	}
}

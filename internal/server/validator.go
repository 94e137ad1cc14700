package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas
var schemaFiles embed.FS

const clientSchemaURL = "https://pokertable.local/schemas/client.json"

// Validator checks inbound client messages against the embedded schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the client message schema.
func NewValidator() (*Validator, error) {
	data, err := schemaFiles.ReadFile("schemas/client.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read client schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(clientSchemaURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add client schema: %w", err)
	}
	schema, err := compiler.Compile(clientSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile client schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks a raw client message.
func (v *Validator) Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

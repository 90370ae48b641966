// Package schema validates workflow artifacts against named JSON schemas.
//
// Artifacts produced by the workflow (PRD, test plan, issue list, progress
// report) are JSON documents. Their schemas are embedded YAML files
// compiled into [openapi3.Schema] values at load time, so `nvst write-json`
// can reject malformed agent output before it lands on disk.
//
// Key entry points:
//   - [Registry] holds the compiled schemas; create with [NewRegistry]
//   - [Registry.Validate] checks raw JSON against a named schema
//   - [Writer] validates and atomically writes artifacts
package schema

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var schemaFS embed.FS

// Registry holds the compiled artifact schemas by name.
type Registry struct {
	schemas map[string]*openapi3.Schema
}

// NewRegistry loads and compiles every embedded schema.
//
// Schema names are the embedded file names without extension: prd,
// test-plan, issues, progress.
func NewRegistry() (*Registry, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded schemas: %w", err)
	}

	r := &Registry{schemas: make(map[string]*openapi3.Schema, len(entries))}
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".yaml")

		data, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
		}

		s, err := compileSchema(data)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		r.schemas[name] = s
	}

	return r, nil
}

// compileSchema converts a YAML schema document into an openapi3.Schema.
// The YAML is round-tripped through JSON because openapi3.Schema only
// unmarshals JSON.
func compileSchema(data []byte) (*openapi3.Schema, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("schema is not JSON-compatible: %w", err)
	}

	var s openapi3.Schema
	if err := s.UnmarshalJSON(jsonData); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	if err := s.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("schema does not validate: %w", err)
	}
	return &s, nil
}

// Names returns the registered schema names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the compiled schema with the given name.
func (r *Registry) Get(name string) (*openapi3.Schema, error) {
	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema: %q (known schemas: %s)", name, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

// Validate checks raw JSON bytes against the named schema.
//
// Returns nil for valid documents. For invalid ones the error names the
// first offending field where the schema library reports one.
func (r *Registry) Validate(name string, data []byte) error {
	s, err := r.Get(name)
	if err != nil {
		return err
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("artifact is not valid JSON: %w", err)
	}

	if err := s.VisitJSON(value); err != nil {
		var schemaErr *openapi3.SchemaError
		if errors.As(err, &schemaErr) && len(schemaErr.JSONPointer()) > 0 {
			return fmt.Errorf("artifact does not match schema %s at %s: %s",
				name, strings.Join(schemaErr.JSONPointer(), "/"), schemaErr.Reason)
		}
		return fmt.Errorf("artifact does not match schema %s: %w", name, err)
	}
	return nil
}

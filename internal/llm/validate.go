package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaRegistry compiles each named schema once.
type schemaRegistry struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

var schemas = &schemaRegistry{compiled: map[string]*jsonschema.Schema{}}

// validate checks raw against s and returns a *SchemaError on mismatch.
func (r *schemaRegistry) validate(s *Schema, raw json.RawMessage) error {
	if s == nil {
		return nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &SchemaError{Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := r.get(s)
	if err != nil {
		return &SchemaError{Content: raw, Err: err}
	}
	if err := compiled.Validate(doc); err != nil {
		return &SchemaError{Content: raw, Err: err}
	}
	return nil
}

func (r *schemaRegistry) get(s *Schema) (*jsonschema.Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.compiled[s.Name]; ok {
		return c, nil
	}

	// The compiler wants a decoded JSON document, not Go maps with typed slices.
	b, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %q: %w", s.Name, err)
	}
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode schema %q: %w", s.Name, err)
	}

	url := "mem://schemas/" + s.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add schema %q: %w", s.Name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", s.Name, err)
	}

	r.compiled[s.Name] = compiled
	return compiled, nil
}

// Validate checks raw against s. It is exported for callers that receive
// JSON from outside a Provider.
func Validate(s *Schema, raw json.RawMessage) error {
	return schemas.validate(s, raw)
}

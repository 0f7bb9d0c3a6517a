package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type wrapKind int

const (
	wrapNone wrapKind = iota
	wrapValue
	wrapItems
)

const (
	valueKey = "value"
	itemsKey = "items"
)

func wrapFor(s map[string]any) wrapKind {
	switch s["type"] {
	case "object":
		return wrapNone
	case "array":
		return wrapItems
	default:
		return wrapValue
	}
}

// Contract is a root-object JSON Schema sent to the model together with the
// wrapping needed to recover the bare value.
type Contract struct {
	Name   string
	schema map[string]any
	wrap   wrapKind
	model  json.RawMessage
	loader *gojsonschema.Schema
}

func newContract(name string, inner map[string]any, wrap wrapKind) (*Contract, error) {
	root := inner
	switch wrap {
	case wrapValue:
		root = object(map[string]any{valueKey: inner}, valueKey)
	case wrapItems:
		root = object(map[string]any{itemsKey: inner}, itemsKey)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(root))
	if err != nil {
		return nil, fmt.Errorf("compile contract %s: %w", name, err)
	}
	model, err := json.Marshal(stripFormats(root))
	if err != nil {
		return nil, fmt.Errorf("encode contract %s: %w", name, err)
	}
	return &Contract{Name: name, schema: root, wrap: wrap, model: model, loader: compiled}, nil
}

// JSON returns the schema to hand to the model. Validation-only formats are
// removed since providers reject unknown ones.
func (c *Contract) JSON() json.RawMessage {
	return c.model
}

// Wrapped reports whether the bare value sits under a container key
func (c *Contract) Wrapped() bool {
	return c.wrap != wrapNone
}

// ValidationError lists every schema violation found in a document
type ValidationError struct {
	Contract string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed: %s", e.Contract, strings.Join(e.Problems, "; "))
}

// Validate checks a wrapped document against the contract
func (c *Contract) Validate(doc json.RawMessage) error {
	result, err := c.loader.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return &ValidationError{Contract: c.Name, Problems: problems}
	}
	return nil
}

// Unwrap extracts the bare value from a wrapped document
func (c *Contract) Unwrap(doc json.RawMessage) (json.RawMessage, error) {
	if c.wrap == wrapNone {
		return doc, nil
	}
	var container map[string]json.RawMessage
	if err := json.Unmarshal(doc, &container); err != nil {
		return nil, fmt.Errorf("%s: expected an object: %w", c.Name, err)
	}
	key := valueKey
	if c.wrap == wrapItems {
		key = itemsKey
	}
	v, ok := container[key]
	if !ok {
		return nil, fmt.Errorf("%s: missing %q", c.Name, key)
	}
	return v, nil
}

// Wrap places a bare value under the container key the contract expects
func (c *Contract) Wrap(value json.RawMessage) (json.RawMessage, error) {
	switch c.wrap {
	case wrapValue:
		return json.Marshal(map[string]json.RawMessage{valueKey: value})
	case wrapItems:
		return json.Marshal(map[string]json.RawMessage{itemsKey: value})
	}
	return value, nil
}

func stripFormats(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if k == "format" && val == FormatNonBlank {
				continue
			}
			out[k] = stripFormats(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = stripFormats(val)
		}
		return out
	}
	return v
}

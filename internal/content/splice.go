package content

import (
	"bytes"
	"encoding/json"
	"fmt"

	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
)

// SectionValue returns the current encoded value of one top-level field.
// With index set it returns a single element of a list field.
func SectionValue(g Generated, section string, index *int) (json.RawMessage, error) {
	fields, err := fieldsOf(g)
	if err != nil {
		return nil, err
	}
	raw, ok := fields[section]
	if !ok {
		raw = json.RawMessage("null")
	}
	if index == nil {
		return raw, nil
	}
	items, err := itemsOf(raw, section)
	if err != nil {
		return nil, err
	}
	if *index < 0 || *index >= len(items) {
		return nil, rpgerr.InvalidArgumentf("index %d out of range for %s (len %d)", *index, section, len(items))
	}
	return items[*index], nil
}

// SectionLen returns the number of elements in a list field; absent is 0
func SectionLen(g Generated, section string) (int, error) {
	fields, err := fieldsOf(g)
	if err != nil {
		return 0, err
	}
	raw, ok := fields[section]
	if !ok {
		return 0, nil
	}
	items, err := itemsOf(raw, section)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// SpliceSection replaces exactly one top-level field (or one element of a
// list field when index is set) and returns a new record. Every other field
// keeps its encoded bytes; g itself is not modified.
func SpliceSection(g Generated, section string, index *int, value json.RawMessage) (Generated, error) {
	fields, err := fieldsOf(g)
	if err != nil {
		return Generated{}, err
	}
	if !json.Valid(value) {
		return Generated{}, rpgerr.InvalidArgumentf("value for %s is not valid JSON", section)
	}

	if index == nil {
		fields[section] = compact(value)
	} else {
		items, err := itemsOf(fields[section], section)
		if err != nil {
			return Generated{}, err
		}
		if *index < 0 || *index >= len(items) {
			return Generated{}, rpgerr.InvalidArgumentf("index %d out of range for %s (len %d)", *index, section, len(items))
		}
		items[*index] = compact(value)
		encoded, err := json.Marshal(items)
		if err != nil {
			return Generated{}, fmt.Errorf("failed to encode %s: %w", section, err)
		}
		fields[section] = encoded
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return Generated{}, fmt.Errorf("failed to encode record: %w", err)
	}
	out, err := Decode(g.Type, data)
	if err != nil {
		return Generated{}, rpgerr.WrapWithCode(err, rpgerr.CodeInvalidArgument, "spliced value does not fit "+section)
	}
	return out, nil
}

// Fields returns the top-level encoded fields of the payload
func Fields(g Generated) (map[string]json.RawMessage, error) {
	return fieldsOf(g)
}

func fieldsOf(g Generated) (map[string]json.RawMessage, error) {
	data, err := g.PayloadJSON()
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to split record: %w", err)
	}
	return fields, nil
}

func itemsOf(raw json.RawMessage, section string) ([]json.RawMessage, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, rpgerr.InvalidArgumentf("section %s is not a list", section)
	}
	return items, nil
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

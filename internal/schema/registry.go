// Package schema is the static registry of structural contracts that model
// output must satisfy, per content type and per regenerable section.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/qninhdt/rpg-forge/internal/content"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
)

// FormatNonBlank rejects strings that are empty or only whitespace
const FormatNonBlank = "nonblank"

type nonBlankFormatChecker struct{}

// IsFormat reports whether the input has visible characters
func (nonBlankFormatChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok {
		return true
	}
	return strings.TrimSpace(s) != ""
}

var registerFormats sync.Once

// RegisterCustomFormats registers the nonblank format with gojsonschema
func RegisterCustomFormats() {
	registerFormats.Do(func() {
		gojsonschema.FormatCheckers.Add(FormatNonBlank, nonBlankFormatChecker{})
	})
}

// Registry holds compiled contracts. It is read-only after construction and
// safe for concurrent use.
type Registry struct {
	full     map[content.Type]*Contract
	sections map[content.Type]map[string]*sectionContracts
}

type sectionContracts struct {
	list    bool
	whole   *Contract
	element *Contract
}

// NewRegistry compiles every contract
func NewRegistry() (*Registry, error) {
	RegisterCustomFormats()

	roots := map[content.Type]map[string]any{
		content.TypeCharacter:   characterSchema(),
		content.TypeEnvironment: environmentSchema(),
		content.TypeMission:     missionSchema(),
	}

	r := &Registry{
		full:     make(map[content.Type]*Contract, len(roots)),
		sections: make(map[content.Type]map[string]*sectionContracts, len(roots)),
	}

	for t, root := range roots {
		c, err := newContract(string(t), root, wrapNone)
		if err != nil {
			return nil, err
		}
		r.full[t] = c

		props := root["properties"].(map[string]any)
		r.sections[t] = make(map[string]*sectionContracts)
		for _, sec := range sectionOrder[t] {
			prop, ok := props[sec.name].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("section %s.%s has no schema", t, sec.name)
			}
			sc := &sectionContracts{list: sec.list}
			name := string(t) + "." + sec.name
			if sc.whole, err = newContract(name, prop, wrapFor(prop)); err != nil {
				return nil, err
			}
			if sec.list {
				item := prop["items"].(map[string]any)
				if sc.element, err = newContract(name+"[]", item, wrapFor(item)); err != nil {
					return nil, err
				}
			}
			r.sections[t][sec.name] = sc
		}
	}
	return r, nil
}

// MustNewRegistry panics if a static contract fails to compile
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(fmt.Sprintf("schema registry: %v", err))
	}
	return r
}

// For returns the full contract of a content type
func (r *Registry) For(t content.Type) (*Contract, error) {
	c, ok := r.full[t]
	if !ok {
		return nil, rpgerr.InvalidArgumentf("unknown content type %q", t)
	}
	return c, nil
}

// ForSection returns the contract of one regenerable section. With index set
// the contract narrows to a single element of a list section.
func (r *Registry) ForSection(t content.Type, name string, index *int) (*Contract, error) {
	secs, ok := r.sections[t]
	if !ok {
		return nil, rpgerr.InvalidArgumentf("unknown content type %q", t)
	}
	sc, ok := secs[name]
	if !ok {
		return nil, rpgerr.UnknownSection(string(t), name)
	}
	if index == nil {
		return sc.whole, nil
	}
	if !sc.list {
		return nil, rpgerr.InvalidArgumentf("section %s of %s is not a list", name, t)
	}
	if *index < 0 {
		return nil, rpgerr.InvalidArgumentf("negative index %d", *index)
	}
	return sc.element, nil
}

// HasSection reports whether name is a regenerable section of t
func (r *Registry) HasSection(t content.Type, name string) bool {
	_, ok := r.sections[t][name]
	return ok
}

// IsListSection reports whether a section holds a list
func (r *Registry) IsListSection(t content.Type, name string) bool {
	sc, ok := r.sections[t][name]
	return ok && sc.list
}

// Sections lists the regenerable sections of t in display order
func (r *Registry) Sections(t content.Type) []string {
	out := make([]string, 0, len(sectionOrder[t]))
	for _, s := range sectionOrder[t] {
		out = append(out, s.name)
	}
	return out
}

// ValidateContent checks an assembled record against its full contract
func (r *Registry) ValidateContent(g content.Generated) error {
	c, err := r.For(g.Type)
	if err != nil {
		return err
	}
	data, err := g.PayloadJSON()
	if err != nil {
		return err
	}
	return c.Validate(data)
}

// ValidateSectionValue checks a bare (unwrapped) section value
func (r *Registry) ValidateSectionValue(t content.Type, name string, index *int, value json.RawMessage) error {
	c, err := r.ForSection(t, name, index)
	if err != nil {
		return err
	}
	doc, err := c.Wrap(value)
	if err != nil {
		return err
	}
	return c.Validate(doc)
}

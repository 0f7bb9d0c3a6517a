// Package content holds the generated content model: the three content
// variants, the tagged union that carries them, and the caller-supplied
// constraints that shape a generation.
package content

import (
	"encoding/json"
	"fmt"
	"strings"

	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
)

// Type selects schema, prompt family and fallback generator
type Type string

const (
	TypeCharacter   Type = "character"
	TypeEnvironment Type = "environment"
	TypeMission     Type = "mission"
)

// Types lists every content type in a stable order
var Types = []Type{TypeCharacter, TypeEnvironment, TypeMission}

// Valid reports whether t is one of the known content types
func (t Type) Valid() bool {
	switch t {
	case TypeCharacter, TypeEnvironment, TypeMission:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// ParseType parses a content type name, case-insensitively
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", rpgerr.InvalidArgumentf("unknown content type %q", s)
	}
	return t, nil
}

// Payload is implemented by the three content variants only
type Payload interface {
	ContentType() Type
	DisplayName() string
	// Tidy replaces nil required lists with empty ones so they encode as []
	Tidy()
	sealed()
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Attributes are the six ability scores
type Attributes struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// Spell is a single spell known by a character
type Spell struct {
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Description string `json:"description"`
}

// Skill is a skill entry; Modifier is always derived, never trusted
type Skill struct {
	Name        string `json:"name"`
	Proficiency bool   `json:"proficiency"`
	Modifier    int    `json:"modifier"`
}

// ClassFeature is a class feature gained at a given level
type ClassFeature struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Level       int    `json:"level"`
}

// Character is a player or non-player character sheet
type Character struct {
	Name              string         `json:"name"`
	Race              string         `json:"race"`
	Class             string         `json:"class"`
	Level             int            `json:"level"`
	Background        string         `json:"background"`
	History           string         `json:"history"`
	Personality       string         `json:"personality"`
	Attributes        Attributes     `json:"attributes"`
	Expertise         []string       `json:"expertise"`
	Spells            []Spell        `json:"spells"`
	Skills            []Skill        `json:"skills"`
	Traits            []string       `json:"traits"`
	RacialTraits      []string       `json:"racialTraits,omitempty"`
	ClassFeatures     []ClassFeature `json:"classFeatures,omitempty"`
	VoiceDescription  string         `json:"voiceDescription"`
	AssociatedMission string         `json:"associatedMission,omitempty"`
}

func (*Character) ContentType() Type    { return TypeCharacter }
func (c *Character) DisplayName() string { return c.Name }
func (*Character) sealed()               {}

func (c *Character) Tidy() {
	c.Expertise = orEmpty(c.Expertise)
	c.Spells = orEmpty(c.Spells)
	c.Skills = orEmpty(c.Skills)
	c.Traits = orEmpty(c.Traits)
}

// Environment is a location description
type Environment struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Ambient         string   `json:"ambient"`
	Mood            string   `json:"mood"`
	Lighting        string   `json:"lighting"`
	Features        []string `json:"features"`
	NPCs            []string `json:"npcs"`
	CurrentConflict string   `json:"currentConflict,omitempty"`
	AdventureHooks  []string `json:"adventureHooks,omitempty"`
}

func (*Environment) ContentType() Type    { return TypeEnvironment }
func (e *Environment) DisplayName() string { return e.Name }
func (*Environment) sealed()               {}

func (e *Environment) Tidy() {
	e.Features = orEmpty(e.Features)
	e.NPCs = orEmpty(e.NPCs)
}

// PathType tags an alternative objective
type PathType string

const (
	PathCombat  PathType = "combat"
	PathSocial  PathType = "social"
	PathStealth PathType = "stealth"
	PathMixed   PathType = "mixed"
)

// PathTypes lists the valid path types
var PathTypes = []PathType{PathCombat, PathSocial, PathStealth, PathMixed}

// Objective is a mission objective
type Objective struct {
	Description   string   `json:"description"`
	Primary       bool     `json:"primary"`
	IsAlternative bool     `json:"isAlternative,omitempty"`
	PathType      PathType `json:"pathType,omitempty"`
}

// Rewards of a mission
type Rewards struct {
	XP    *int     `json:"xp,omitempty"`
	Gold  *int     `json:"gold,omitempty"`
	Items []string `json:"items"`
}

// PowerfulItem is a notable item tied to a mission
type PowerfulItem struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ChoiceReward binds a reward to a player decision
type ChoiceReward struct {
	Condition string `json:"condition"`
	Rewards   string `json:"rewards"`
}

// Mission is an adventure hook with objectives and rewards
type Mission struct {
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Context            string         `json:"context"`
	Objectives         []Objective    `json:"objectives"`
	Rewards            Rewards        `json:"rewards"`
	Difficulty         Difficulty     `json:"difficulty"`
	RelatedNPCs        []string       `json:"relatedNPCs"`
	RelatedLocations   []string       `json:"relatedLocations"`
	RecommendedLevel   string         `json:"recommendedLevel,omitempty"`
	PowerfulItems      []PowerfulItem `json:"powerfulItems,omitempty"`
	PossibleOutcomes   []string       `json:"possibleOutcomes,omitempty"`
	ChoiceBasedRewards []ChoiceReward `json:"choiceBasedRewards,omitempty"`
}

func (*Mission) ContentType() Type    { return TypeMission }
func (m *Mission) DisplayName() string { return m.Title }
func (*Mission) sealed()               {}

func (m *Mission) Tidy() {
	m.Objectives = orEmpty(m.Objectives)
	m.Rewards.Items = orEmpty(m.Rewards.Items)
	m.RelatedNPCs = orEmpty(m.RelatedNPCs)
	m.RelatedLocations = orEmpty(m.RelatedLocations)
}

// Generated is the tagged union over the three content variants. The tag is
// set when the value is constructed and never inferred from the payload shape.
type Generated struct {
	Type    Type
	Payload Payload
}

// Wrap tags a payload with its content type
func Wrap(p Payload) Generated {
	return Generated{Type: p.ContentType(), Payload: p}
}

// Character returns the character payload, if that is what g carries
func (g Generated) Character() (*Character, bool) {
	c, ok := g.Payload.(*Character)
	return c, ok && g.Type == TypeCharacter
}

// Environment returns the environment payload, if that is what g carries
func (g Generated) Environment() (*Environment, bool) {
	e, ok := g.Payload.(*Environment)
	return e, ok && g.Type == TypeEnvironment
}

// Mission returns the mission payload, if that is what g carries
func (g Generated) Mission() (*Mission, bool) {
	m, ok := g.Payload.(*Mission)
	return m, ok && g.Type == TypeMission
}

// DisplayName returns the display name of the payload
func (g Generated) DisplayName() string {
	if g.Payload == nil {
		return ""
	}
	return g.Payload.DisplayName()
}

type wireGenerated struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes as {"type": ..., "data": ...}
func (g Generated) MarshalJSON() ([]byte, error) {
	if g.Payload == nil {
		return nil, fmt.Errorf("generated %s has no payload", g.Type)
	}
	data, err := json.Marshal(g.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireGenerated{Type: g.Type, Data: data})
}

// UnmarshalJSON decodes the {"type", "data"} envelope
func (g *Generated) UnmarshalJSON(b []byte) error {
	var w wireGenerated
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	decoded, err := Decode(w.Type, w.Data)
	if err != nil {
		return err
	}
	*g = decoded
	return nil
}

// Decode parses a bare payload of the given type
func Decode(t Type, data []byte) (Generated, error) {
	var p Payload
	switch t {
	case TypeCharacter:
		p = &Character{}
	case TypeEnvironment:
		p = &Environment{}
	case TypeMission:
		p = &Mission{}
	default:
		return Generated{}, rpgerr.InvalidArgumentf("unknown content type %q", t)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return Generated{}, fmt.Errorf("failed to decode %s: %w", t, err)
	}
	p.Tidy()
	return Wrap(p), nil
}

// PayloadJSON returns the bare payload encoding
func (g Generated) PayloadJSON() (json.RawMessage, error) {
	if g.Payload == nil {
		return nil, fmt.Errorf("generated %s has no payload", g.Type)
	}
	return json.Marshal(g.Payload)
}

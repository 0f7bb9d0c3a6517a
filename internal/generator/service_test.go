package generator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qninhdt/rpg-forge/internal/agents"
	"github.com/qninhdt/rpg-forge/internal/content"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
	"github.com/qninhdt/rpg-forge/internal/fallback"
	"github.com/qninhdt/rpg-forge/internal/language"
	"github.com/qninhdt/rpg-forge/internal/mocks"
	"github.com/qninhdt/rpg-forge/internal/schema"
	"github.com/qninhdt/rpg-forge/internal/validation"
)

type fixedDetector struct {
	mu   sync.Mutex
	lang language.Language
	seen []string
}

func (d *fixedDetector) Detect(text string) language.Language {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, text)
	return d.lang
}

var testRegistry = schema.MustNewRegistry()

func newTestService(t *testing.T, client agents.Client) (*Service, *fixedDetector) {
	t.Helper()
	det := &fixedDetector{lang: language.English}
	return NewService(client, testRegistry, det, fallback.MustNew(nil), nil), det
}

func healthyClient(t *testing.T) *mocks.MockClient {
	client := mocks.NewMockClient(t)
	client.On("CheckCredential").Return(nil)
	client.On("Provider").Return("openai").Maybe()
	return client
}

func payload(t *testing.T, g content.Generated) json.RawMessage {
	t.Helper()
	raw, err := g.PayloadJSON()
	require.NoError(t, err)
	return raw
}

func TestGenerateUsesModelOutput(t *testing.T) {
	client := healthyClient(t)
	svc, _ := newTestService(t, client)

	model := fallback.MustNew(nil).Generate("a port city", content.TypeEnvironment, nil)
	client.On("Generate", mock.Anything, mock.MatchedBy(func(req agents.Request) bool {
		return req.Temperature == agents.FullBand.Default &&
			req.Contract != nil && req.SystemPrompt != "" && req.UserPrompt != ""
	})).Return(payload(t, model), nil).Once()

	res, err := svc.Generate(context.Background(), "a port city", content.TypeEnvironment, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, SourceAI, res.Source)
	assert.Empty(t, res.FallbackReason)
	assert.Equal(t, language.English, res.Language)
	assert.Equal(t, model.DisplayName(), res.Content.DisplayName())
	assert.NoError(t, testRegistry.ValidateContent(res.Content))
}

func TestGenerateClampsTemperature(t *testing.T) {
	client := healthyClient(t)
	svc, _ := newTestService(t, client)

	model := fallback.MustNew(nil).Generate("x", content.TypeMission, nil)
	client.On("Generate", mock.Anything, mock.MatchedBy(func(req agents.Request) bool {
		return req.Temperature == agents.FullBand.Max
	})).Return(payload(t, model), nil).Once()

	hot := 3.0
	_, err := svc.Generate(context.Background(), "x", content.TypeMission, nil, &content.GenerationParams{Temperature: &hot})
	require.NoError(t, err)
}

func TestGenerateFallsBackOnModelError(t *testing.T) {
	client := healthyClient(t)
	svc, _ := newTestService(t, client)

	client.On("Generate", mock.Anything, mock.Anything).
		Return(nil, rpgerr.Generation(errors.New("boom"), "upstream failed")).Once()

	res, err := svc.Generate(context.Background(), "a haunted mill", content.TypeCharacter, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, ReasonGenerationError, res.FallbackReason)
	assert.NoError(t, testRegistry.ValidateContent(res.Content))
}

func TestGenerateFallsBackOnUndecodableOutput(t *testing.T) {
	client := healthyClient(t)
	svc, _ := newTestService(t, client)

	client.On("Generate", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"name": 12}`), nil).Once()

	res, err := svc.Generate(context.Background(), "a haunted mill", content.TypeEnvironment, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, ReasonInvalidOutput, res.FallbackReason)
}

func TestGenerateWithoutCredential(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CheckCredential").Return(rpgerr.Configuration(rpgerr.ReasonMissing, "AI API key is not configured"))
	client.On("Provider").Return("openai")
	svc, _ := newTestService(t, client)

	res, err := svc.Generate(context.Background(), "a desert caravan", content.TypeMission, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, ReasonNoCredential, res.FallbackReason)
	client.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestGenerateMalformedCredentialIsAnError(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CheckCredential").Return(rpgerr.Configuration(rpgerr.ReasonMalformed, "AI API key has an unrecognized format"))
	client.On("Provider").Return("openai")
	svc, _ := newTestService(t, client)

	_, err := svc.Generate(context.Background(), "a desert caravan", content.TypeMission, nil, nil)
	require.Error(t, err)
	assert.True(t, rpgerr.IsConfiguration(err))
	client.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestGenerateOffline(t *testing.T) {
	svc, _ := newTestService(t, nil)

	res, err := svc.Generate(context.Background(), "a desert caravan", content.TypeCharacter, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, ReasonOffline, res.FallbackReason)
}

func TestGenerateRejectsUnknownType(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Generate(context.Background(), "x", content.Type("dungeon"), nil, nil)
	assert.True(t, rpgerr.IsInvalidArgument(err))
}

func TestDifficultyPriority(t *testing.T) {
	client := healthyClient(t)
	svc, _ := newTestService(t, client)

	model := fallback.MustNew(nil).Generate("slay the dragon", content.TypeMission, nil)
	m, _ := model.Mission()
	require.Equal(t, content.DifficultyDeadly, m.Difficulty)
	client.On("Generate", mock.Anything, mock.Anything).Return(payload(t, model), nil)

	res, err := svc.Generate(context.Background(), "slay the dragon", content.TypeMission, &content.AdvancedInput{Difficulty: "easy"}, nil)
	require.NoError(t, err)
	got, _ := res.Content.Mission()
	assert.Equal(t, content.DifficultyEasy, got.Difficulty)

	res, err = svc.Generate(context.Background(), "slay the dragon", content.TypeMission, nil, nil)
	require.NoError(t, err)
	got, _ = res.Content.Mission()
	assert.Equal(t, content.DifficultyDeadly, got.Difficulty)
}

func TestRegenerateSectionUnknownSectionMakesNoCall(t *testing.T) {
	client := mocks.NewMockClient(t)
	svc, _ := newTestService(t, client)
	current := fallback.MustNew(nil).Generate("a tavern", content.TypeEnvironment, nil)

	_, err := svc.RegenerateSection(context.Background(), SectionRequest{
		Scenario: "a tavern",
		Type:     content.TypeEnvironment,
		Section:  "dragons",
		Current:  current,
	})
	require.Error(t, err)
	assert.True(t, rpgerr.IsUnknownSection(err))
	client.AssertNotCalled(t, "CheckCredential")
	client.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestRegenerateSectionIndexOutOfRange(t *testing.T) {
	client := mocks.NewMockClient(t)
	svc, _ := newTestService(t, client)
	current := fallback.MustNew(nil).Generate("a tavern", content.TypeEnvironment, &content.AdvancedInput{NPCCount: 2})

	idx := 5
	_, err := svc.RegenerateSection(context.Background(), SectionRequest{
		Scenario: "a tavern",
		Type:     content.TypeEnvironment,
		Section:  "npcs",
		Index:    &idx,
		Current:  current,
	})
	assert.True(t, rpgerr.IsInvalidArgument(err))
	client.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestRegenerateSectionIsolation(t *testing.T) {
	client := healthyClient(t)
	svc, _ := newTestService(t, client)
	current := fallback.MustNew(nil).Generate("a tavern", content.TypeEnvironment, nil)
	before := payload(t, current)

	client.On("Generate", mock.Anything, mock.MatchedBy(func(req agents.Request) bool {
		return req.Temperature == agents.SectionBand.Default && req.Contract != nil
	})).Return(json.RawMessage(`{"value":"The Salt Market"}`), nil).Once()

	res, err := svc.RegenerateSection(context.Background(), SectionRequest{
		Scenario: "a tavern",
		Type:     content.TypeEnvironment,
		Section:  "name",
		Current:  current,
	})
	require.NoError(t, err)
	assert.Equal(t, SourceAI, res.Source)
	assert.JSONEq(t, `"The Salt Market"`, string(res.Value))
	assert.JSONEq(t, string(before), string(payload(t, current)), "current record must not change")

	spliced, err := content.SpliceSection(current, res.Section, res.Index, res.Value)
	require.NoError(t, err)
	oldFields, _ := content.Fields(current)
	newFields, _ := content.Fields(spliced)
	for k, v := range oldFields {
		if k == "name" {
			continue
		}
		assert.JSONEq(t, string(v), string(newFields[k]), k)
	}
}

func TestRegenerateSectionFallsBackOnInvalidOutput(t *testing.T) {
	client := healthyClient(t)
	svc, _ := newTestService(t, client)
	current := fallback.MustNew(nil).Generate("a tavern", content.TypeEnvironment, nil)

	client.On("Generate", mock.Anything, mock.Anything).Return(json.RawMessage(`{"wrong":1}`), nil).Once()

	res, err := svc.RegenerateSection(context.Background(), SectionRequest{
		Scenario: "a tavern",
		Type:     content.TypeEnvironment,
		Section:  "description",
		Current:  current,
	})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, ReasonInvalidOutput, res.FallbackReason)
	assert.NoError(t, testRegistry.ValidateSectionValue(content.TypeEnvironment, "description", nil, res.Value))
}

func TestRegenerateSkillsRecomputesModifiers(t *testing.T) {
	client := healthyClient(t)
	svc, _ := newTestService(t, client)
	current := fallback.MustNew(nil).Generate("a tower", content.TypeCharacter, &content.AdvancedInput{Class: "Wizard", Level: 5})
	c, _ := current.Character()

	client.On("Generate", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"items":[{"name":"Arcana","proficiency":true,"modifier":99}]}`), nil).Once()

	res, err := svc.RegenerateSection(context.Background(), SectionRequest{
		Scenario: "a tower",
		Type:     content.TypeCharacter,
		Section:  "skills",
		Current:  current,
	})
	require.NoError(t, err)

	var skills []content.Skill
	require.NoError(t, json.Unmarshal(res.Value, &skills))
	require.Len(t, skills, 1)
	want := content.SkillModifier(c.Attributes, c.Level, content.Intelligence, true, false)
	assert.Equal(t, want, skills[0].Modifier)
}

func wizardWithFeatures(t *testing.T) content.Generated {
	t.Helper()
	g := fallback.MustNew(nil).Generate("a tower", content.TypeCharacter, &content.AdvancedInput{Class: "Wizard", Level: 2})
	c, ok := g.Character()
	require.True(t, ok)
	c.ClassFeatures = []content.ClassFeature{
		{Name: "Spellcasting", Description: "Cast wizard spells.", Level: 1},
		{Name: "Arcane Recovery", Description: "Recover spell slots.", Level: 1},
		{Name: "Arcane Tradition", Description: "Choose a school.", Level: 2},
		{Name: "Evocation Savant", Description: "Copy evocation spells cheaply.", Level: 2},
	}
	return content.Wrap(c)
}

func featureNames(t *testing.T, g content.Generated) []string {
	t.Helper()
	c, ok := g.Character()
	require.True(t, ok)
	names := make([]string, 0, len(c.ClassFeatures))
	for _, f := range c.ClassFeatures {
		names = append(names, f.Name)
	}
	return names
}

func TestRegenerateFeatureElementKeepsPosition(t *testing.T) {
	client := healthyClient(t)
	svc, _ := newTestService(t, client)
	current := wizardWithFeatures(t)
	idx := 3

	client.On("Generate", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"name":"Ritual Adept","description":"Cast rituals from the spellbook.","level":2}`), nil).Once()

	res, err := svc.RegenerateSection(context.Background(), SectionRequest{
		Scenario: "a tower",
		Type:     content.TypeCharacter,
		Section:  "classFeatures",
		Index:    &idx,
		Current:  current,
	})
	require.NoError(t, err)
	assert.Equal(t, SourceAI, res.Source)

	spliced, err := content.SpliceSection(current, res.Section, res.Index, res.Value)
	require.NoError(t, err)
	assert.Equal(t, []string{"Spellcasting", "Arcane Recovery", "Arcane Tradition", "Ritual Adept"}, featureNames(t, spliced))
}

func TestRegenerateFeatureElementThatWouldMoveFallsBack(t *testing.T) {
	client := healthyClient(t)
	svc, _ := newTestService(t, client)
	current := wizardWithFeatures(t)
	idx := 3

	// a level 1 feature at the end is re-sorted ahead of Arcane Tradition
	client.On("Generate", mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"name":"Ritual Adept","description":"Cast rituals from the spellbook.","level":1}`), nil).Once()

	res, err := svc.RegenerateSection(context.Background(), SectionRequest{
		Scenario: "a tower",
		Type:     content.TypeCharacter,
		Section:  "classFeatures",
		Index:    &idx,
		Current:  current,
	})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, ReasonInvalidOutput, res.FallbackReason)

	spliced, err := content.SpliceSection(current, res.Section, res.Index, res.Value)
	require.NoError(t, err)
	names := featureNames(t, spliced)
	require.Len(t, names, 4)
	assert.Equal(t, []string{"Spellcasting", "Arcane Recovery", "Arcane Tradition"}, names[:3])
	seen := map[string]bool{}
	for _, n := range names {
		assert.False(t, seen[n], "duplicate feature %s", n)
		seen[n] = true
	}
}

func TestRegenerateSkillsMustKeepExpertise(t *testing.T) {
	client := healthyClient(t)
	svc, _ := newTestService(t, client)
	current := fallback.MustNew(nil).Generate("a rooftop thief", content.TypeCharacter, &content.AdvancedInput{Class: "Rogue", Level: 5})
	c, _ := current.Character()
	require.Len(t, c.Expertise, 2)

	client.On("Generate", mock.Anything, mock.MatchedBy(func(req agents.Request) bool {
		return strings.Contains(req.UserPrompt, "MUST still include: "+strings.Join(c.Expertise, ", "))
	})).Return(json.RawMessage(`{"items":[{"name":"Medicine","proficiency":true,"modifier":4}]}`), nil).Once()

	res, err := svc.RegenerateSection(context.Background(), SectionRequest{
		Scenario: "a rooftop thief",
		Type:     content.TypeCharacter,
		Section:  "skills",
		Current:  current,
	})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, ReasonInvalidOutput, res.FallbackReason)

	spliced, err := content.SpliceSection(current, res.Section, res.Index, res.Value)
	require.NoError(t, err)
	after, _ := spliced.Character()
	assert.Equal(t, c.Expertise, after.Expertise)
	assert.Empty(t, validation.MissingExpertise(*after))
}

func TestRegenerateSectionWithoutCredential(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CheckCredential").Return(rpgerr.Configuration(rpgerr.ReasonMissing, "missing"))
	client.On("Provider").Return("openai")
	svc, _ := newTestService(t, client)
	current := fallback.MustNew(nil).Generate("a heist", content.TypeMission, nil)

	res, err := svc.RegenerateSection(context.Background(), SectionRequest{
		Scenario: "a heist",
		Type:     content.TypeMission,
		Section:  "title",
		Current:  current,
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonNoCredential, res.FallbackReason)
	assert.NoError(t, testRegistry.ValidateSectionValue(content.TypeMission, "title", nil, res.Value))
}

func TestVariationTemperature(t *testing.T) {
	client := healthyClient(t)
	svc, det := newTestService(t, client)
	original := fallback.MustNew(nil).Generate("um mercado em Lisboa", content.TypeEnvironment, nil)

	client.On("Generate", mock.Anything, mock.MatchedBy(func(req agents.Request) bool {
		return req.Temperature == agents.VariationTemperature
	})).Return(payload(t, original), nil).Once()

	hot := 0.2
	res, err := svc.GenerateVariation(context.Background(), original, "um mercado em Lisboa", "", &content.GenerationParams{Temperature: &hot, Tone: content.TonePlayful})
	require.NoError(t, err)
	assert.Equal(t, content.TypeEnvironment, res.Content.Type)
	assert.Equal(t, []string{"um mercado em Lisboa"}, det.seen)
}

func TestVariationDetectsFromSummaryWithoutScenario(t *testing.T) {
	svc, det := newTestService(t, nil)
	original := fallback.MustNew(nil).Generate("a crypt", content.TypeMission, nil)

	res, err := svc.GenerateVariation(context.Background(), original, "", "make it funnier", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, content.TypeMission, res.Content.Type)
	require.Len(t, det.seen, 1)
	assert.NotEmpty(t, det.seen[0])
	assert.NoError(t, testRegistry.ValidateContent(res.Content))
}

func TestVariationRejectsEmptyOriginal(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.GenerateVariation(context.Background(), content.Generated{}, "", "", nil)
	assert.True(t, rpgerr.IsInvalidArgument(err))
}

func TestGenerateBatch(t *testing.T) {
	svc, _ := newTestService(t, nil)
	items := []BatchItem{
		{Type: content.TypeCharacter, Scenario: "a paladin"},
		{Type: content.Type("dungeon"), Scenario: "a pit"},
		{Type: content.TypeMission, Scenario: "a heist", AdvancedInput: &content.AdvancedInput{Difficulty: "hard"}},
	}

	results, err := svc.GenerateBatch(context.Background(), items, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0, results[0].Index)
	require.NotNil(t, results[0].Result)
	assert.Equal(t, content.TypeCharacter, results[0].Result.Content.Type)

	assert.Nil(t, results[1].Result)
	assert.NotEmpty(t, results[1].Error)

	m, ok := results[2].Result.Content.Mission()
	require.True(t, ok)
	assert.Equal(t, content.DifficultyHard, m.Difficulty)
}

func TestGenerateBatchStopsOnConfigurationError(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CheckCredential").Return(rpgerr.Configuration(rpgerr.ReasonMalformed, "bad key"))
	client.On("Provider").Return("openai")
	svc, _ := newTestService(t, client)

	_, err := svc.GenerateBatch(context.Background(), []BatchItem{
		{Type: content.TypeCharacter, Scenario: "a"},
		{Type: content.TypeCharacter, Scenario: "b"},
	}, 1)
	assert.True(t, rpgerr.IsConfiguration(err))
}

func TestGenerateBatchLimits(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.GenerateBatch(context.Background(), nil, 0)
	assert.True(t, rpgerr.IsInvalidArgument(err))

	_, err = svc.GenerateBatch(context.Background(), make([]BatchItem, MaxBatchSize+1), 0)
	assert.True(t, rpgerr.IsInvalidArgument(err))
}

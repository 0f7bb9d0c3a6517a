package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/qninhdt/rpg-forge/internal/agents"
	"github.com/qninhdt/rpg-forge/internal/content"
	"github.com/qninhdt/rpg-forge/internal/db"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
	"github.com/qninhdt/rpg-forge/internal/fallback"
	"github.com/qninhdt/rpg-forge/internal/generator"
	"github.com/qninhdt/rpg-forge/internal/language"
	"github.com/qninhdt/rpg-forge/internal/mocks"
	"github.com/qninhdt/rpg-forge/internal/schema"
)

const testSecret = "api-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type APITestSuite struct {
	suite.Suite
	registry *schema.Registry
	store    *db.DB
	server   *Server
}

func (s *APITestSuite) SetupSuite() {
	s.registry = schema.MustNewRegistry()
}

func (s *APITestSuite) SetupTest() {
	store, err := db.NewDB(filepath.Join(s.T().TempDir(), "api.db"))
	s.Require().NoError(err)
	s.store = store
	s.server = s.newServer(nil)
}

func (s *APITestSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *APITestSuite) newServer(client agents.Client) *Server {
	svc := generator.NewService(client, s.registry, language.NewDefaultDetector(nil), fallback.MustNew(nil), nil)
	return NewServer(svc, s.store, s.registry, Options{
		JWTSecret:      testSecret,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}, nil)
}

func (s *APITestSuite) token(user string) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": user}).SignedString([]byte(testSecret))
	s.Require().NoError(err)
	return tok
}

func (s *APITestSuite) do(h http.Handler, method, path, user string, body interface{}) (int, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (s *APITestSuite) generate(user string, t content.Type, scenario string) generator.Result {
	code, env := s.do(s.server, http.MethodPost, "/api/generate", user, map[string]interface{}{
		"type":     t,
		"scenario": scenario,
	})
	s.Require().Equal(http.StatusOK, code, env.Error)
	var res generator.Result
	s.Require().NoError(json.Unmarshal(env.Data, &res))
	return res
}

func (s *APITestSuite) saveRecord(user string, res generator.Result, scenario string) db.Record {
	code, env := s.do(s.server, http.MethodPost, "/api/contents", user, map[string]interface{}{
		"scenario": scenario,
		"language": res.Language,
		"source":   res.Source,
		"content":  res.Content,
		"tags":     []string{"Test"},
	})
	s.Require().Equal(http.StatusCreated, code, env.Error)
	var rec db.Record
	s.Require().NoError(json.Unmarshal(env.Data, &rec))
	return rec
}

func (s *APITestSuite) TestHealthAndMetrics() {
	code, env := s.do(s.server, http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, code)
	s.True(env.Success)

	rec := httptest.NewRecorder()
	s.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *APITestSuite) TestSchemas() {
	code, env := s.do(s.server, http.MethodGet, "/api/schemas/character", "", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Contains(string(env.Data), `"sections"`)

	code, _ = s.do(s.server, http.MethodGet, "/api/schemas/environment/sections/npcs?index=0", "", nil)
	s.Equal(http.StatusOK, code)

	code, env = s.do(s.server, http.MethodGet, "/api/schemas/environment/sections/dragons", "", nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal(string(rpgerr.CodeUnknownSection), env.Code)

	code, _ = s.do(s.server, http.MethodGet, "/api/schemas/dungeon", "", nil)
	s.Equal(http.StatusBadRequest, code)
}

func (s *APITestSuite) TestAuthRequired() {
	code, env := s.do(s.server, http.MethodPost, "/api/generate", "", map[string]string{"type": "mission", "scenario": "x"})
	s.Equal(http.StatusUnauthorized, code)
	s.False(env.Success)
}

func (s *APITestSuite) TestGenerateOffline() {
	res := s.generate("alice", content.TypeCharacter, "A dwarven smith seeking revenge")
	s.Equal(generator.SourceFallback, res.Source)
	s.Equal(generator.ReasonOffline, res.FallbackReason)
	s.NoError(s.registry.ValidateContent(res.Content))
}

func (s *APITestSuite) TestGenerateValidation() {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"unknown type", map[string]interface{}{"type": "dungeon", "scenario": "x"}},
		{"blank scenario", map[string]interface{}{"type": "mission", "scenario": "  "}},
		{"bad level", map[string]interface{}{"type": "character", "scenario": "x", "advancedInput": map[string]int{"level": 40}}},
		{"bad tone", map[string]interface{}{"type": "character", "scenario": "x", "params": map[string]string{"tone": "grumpy"}}},
		{"unknown field", map[string]interface{}{"type": "character", "scenario": "x", "extra": true}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			code, env := s.do(s.server, http.MethodPost, "/api/generate", "alice", tt.body)
			s.Equal(http.StatusBadRequest, code)
			s.Equal(string(rpgerr.CodeInvalidArgument), env.Code)
		})
	}
}

func (s *APITestSuite) TestMalformedCredentialIsSanitized() {
	client := mocks.NewMockClient(s.T())
	client.On("CheckCredential").Return(rpgerr.Configuration(rpgerr.ReasonMalformed, "AI API key has an unrecognized format"))
	client.On("Provider").Return("openai")
	server := s.newServer(client)

	code, env := s.do(server, http.MethodPost, "/api/generate", "alice", map[string]string{"type": "mission", "scenario": "a heist"})
	s.Equal(http.StatusServiceUnavailable, code)
	s.Equal(string(rpgerr.CodeConfiguration), env.Code)
	s.NotContains(env.Error, "API key")
	client.AssertNotCalled(s.T(), "Generate", mock.Anything, mock.Anything)
}

func (s *APITestSuite) TestStatelessSectionAndVariation() {
	res := s.generate("alice", content.TypeEnvironment, "a smugglers' cove")

	code, env := s.do(s.server, http.MethodPost, "/api/sections/regenerate", "alice", map[string]interface{}{
		"scenario": "a smugglers' cove",
		"section":  "adventureHooks",
		"content":  res.Content,
	})
	s.Require().Equal(http.StatusOK, code, env.Error)
	var section generator.SectionResult
	s.Require().NoError(json.Unmarshal(env.Data, &section))
	s.NoError(s.registry.ValidateSectionValue(content.TypeEnvironment, "adventureHooks", nil, section.Value))

	code, env = s.do(s.server, http.MethodPost, "/api/sections/regenerate", "alice", map[string]interface{}{
		"scenario": "a smugglers' cove",
		"section":  "dragons",
		"content":  res.Content,
	})
	s.Equal(http.StatusBadRequest, code)
	s.Equal(string(rpgerr.CodeUnknownSection), env.Code)

	code, env = s.do(s.server, http.MethodPost, "/api/variations", "alice", map[string]interface{}{
		"scenario":    "a smugglers' cove",
		"instruction": "at night, during a storm",
		"content":     res.Content,
	})
	s.Require().Equal(http.StatusOK, code, env.Error)
	var variation generator.Result
	s.Require().NoError(json.Unmarshal(env.Data, &variation))
	s.Equal(content.TypeEnvironment, variation.Content.Type)
}

func (s *APITestSuite) TestLibraryLifecycle() {
	res := s.generate("alice", content.TypeMission, "rescue the merchant's daughter")
	rec := s.saveRecord("alice", res, "rescue the merchant's daughter")
	s.Equal(1, rec.Version)
	s.Equal([]string{"test"}, rec.Tags)

	code, _ := s.do(s.server, http.MethodGet, "/api/contents/"+rec.ID, "bob", nil)
	s.Equal(http.StatusForbidden, code)

	code, env := s.do(s.server, http.MethodGet, "/api/contents?type=mission&tag=test", "alice", nil)
	s.Require().Equal(http.StatusOK, code)
	var listed []db.Record
	s.Require().NoError(json.Unmarshal(env.Data, &listed))
	s.Len(listed, 1)

	code, env = s.do(s.server, http.MethodPost, "/api/contents/"+rec.ID+"/sections/title", "alice", nil)
	s.Require().Equal(http.StatusOK, code, env.Error)
	var regenerated struct {
		Content db.Record               `json:"content"`
		Section generator.SectionResult `json:"section"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &regenerated))
	s.Equal(2, regenerated.Content.Version)
	s.Equal("title", regenerated.Section.Section)

	code, env = s.do(s.server, http.MethodGet, "/api/contents/"+rec.ID+"/versions", "alice", nil)
	s.Require().Equal(http.StatusOK, code)
	var versions []db.Version
	s.Require().NoError(json.Unmarshal(env.Data, &versions))
	s.Len(versions, 2)
	s.Equal("regenerated title", versions[1].Note)

	code, env = s.do(s.server, http.MethodPut, "/api/contents/"+rec.ID+"/tags", "alice", map[string][]string{"tags": {"Heist", "city"}})
	s.Require().Equal(http.StatusOK, code, env.Error)

	code, env = s.do(s.server, http.MethodPost, "/api/contents/"+rec.ID+"/variations", "alice", map[string]string{"instruction": "make it a comedy"})
	s.Require().Equal(http.StatusCreated, code, env.Error)

	code, env = s.do(s.server, http.MethodGet, "/api/contents/"+rec.ID+"/variations", "alice", nil)
	s.Require().Equal(http.StatusOK, code)
	var variations []db.Record
	s.Require().NoError(json.Unmarshal(env.Data, &variations))
	s.Require().Len(variations, 1)
	s.Equal(rec.ID, variations[0].ParentID)

	code, _ = s.do(s.server, http.MethodDelete, "/api/contents/"+rec.ID, "alice", nil)
	s.Equal(http.StatusOK, code)
	code, _ = s.do(s.server, http.MethodGet, "/api/contents/"+rec.ID, "alice", nil)
	s.Equal(http.StatusNotFound, code)
}

func (s *APITestSuite) TestGenerateBatch() {
	code, env := s.do(s.server, http.MethodPost, "/api/generate/batch", "alice", map[string]interface{}{
		"items": []map[string]interface{}{
			{"type": "character", "scenario": "a bard"},
			{"type": "environment", "scenario": "a bazaar"},
		},
	})
	s.Require().Equal(http.StatusOK, code, env.Error)
	var results []generator.BatchResult
	s.Require().NoError(json.Unmarshal(env.Data, &results))
	s.Require().Len(results, 2)
	s.Equal(content.TypeEnvironment, results[1].Result.Content.Type)

	code, env = s.do(s.server, http.MethodPost, "/api/generate/batch", "alice", map[string]interface{}{
		"items": []map[string]interface{}{{"type": "character", "scenario": ""}},
	})
	s.Equal(http.StatusBadRequest, code)
	s.Contains(env.Error, "item 0")
}

func (s *APITestSuite) TestInvalidContentID() {
	code, env := s.do(s.server, http.MethodGet, "/api/contents/not-a-uuid", "alice", nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal(string(rpgerr.CodeInvalidArgument), env.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

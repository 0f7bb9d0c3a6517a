package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/qninhdt/rpg-forge/internal/content"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
	"github.com/qninhdt/rpg-forge/internal/generator"
	"github.com/qninhdt/rpg-forge/internal/validation"
)

type generateRequest struct {
	Type          string                    `json:"type"`
	Scenario      string                    `json:"scenario"`
	AdvancedInput *content.AdvancedInput    `json:"advancedInput,omitempty"`
	Params        *content.GenerationParams `json:"params,omitempty"`
}

type batchRequest struct {
	Items       []generator.BatchItem `json:"items"`
	Concurrency int                   `json:"concurrency,omitempty"`
}

type regenerateSectionRequest struct {
	Scenario     string                    `json:"scenario"`
	Section      string                    `json:"section"`
	SectionIndex *int                      `json:"sectionIndex,omitempty"`
	Content      content.Generated         `json:"content"`
	Params       *content.GenerationParams `json:"params,omitempty"`
}

type variationRequest struct {
	Scenario    string                    `json:"scenario"`
	Instruction string                    `json:"instruction"`
	Content     content.Generated         `json:"content"`
	Params      *content.GenerationParams `json:"params,omitempty"`
}

// getSchema returns the full contract of a content type
func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	t, err := content.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	contract, err := s.registry.For(t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]interface{}{
		"type":     t,
		"schema":   contract.JSON(),
		"sections": s.registry.Sections(t),
	})
}

// getSectionSchema returns one section contract; ?index=n narrows it to an
// element of a list section
func (s *Server) getSectionSchema(w http.ResponseWriter, r *http.Request) {
	t, err := content.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var index *int
	if raw := r.URL.Query().Get("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, rpgerr.InvalidArgument("index must be an integer"))
			return
		}
		index = &n
	}
	section := chi.URLParam(r, "section")
	contract, err := s.registry.ForSection(t, section, index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]interface{}{
		"type":    t,
		"section": section,
		"list":    s.registry.IsListSection(t, section),
		"schema":  contract.JSON(),
	})
}

// generate produces a new record
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := content.ParseType(req.Type)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateGeneration(req.Scenario, req.AdvancedInput, req.Params); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.gen.Generate(r.Context(), req.Scenario, t, req.AdvancedInput, req.Params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res)
}

// generateBatch produces several independent records in one request
func (s *Server) generateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Concurrency < 0 || req.Concurrency > 8 {
		s.writeError(w, r, rpgerr.InvalidArgument("concurrency must be between 1 and 8"))
		return
	}
	for i, item := range req.Items {
		if err := validateGeneration(item.Scenario, item.AdvancedInput, item.Params); err != nil {
			s.writeError(w, r, rpgerr.WrapWithCode(err, rpgerr.CodeOf(err), fmt.Sprintf("item %d: %s", i, messageOf(err))))
			return
		}
	}

	results, err := s.gen.GenerateBatch(r.Context(), req.Items, req.Concurrency)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, results)
}

// regenerateSection is the stateless section endpoint: the caller sends the
// current record and receives only the new section value
func (s *Server) regenerateSection(w http.ResponseWriter, r *http.Request) {
	var req regenerateSectionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateSection(req.Section, req.SectionIndex, req.Params); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Content.Payload == nil {
		s.writeError(w, r, rpgerr.InvalidArgument("content is required"))
		return
	}

	res, err := s.gen.RegenerateSection(r.Context(), generator.SectionRequest{
		Scenario: req.Scenario,
		Type:     req.Content.Type,
		Section:  req.Section,
		Index:    req.SectionIndex,
		Current:  req.Content,
		Params:   req.Params,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res)
}

// generateVariation is the stateless variation endpoint
func (s *Server) generateVariation(w http.ResponseWriter, r *http.Request) {
	var req variationRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Content.Payload == nil {
		s.writeError(w, r, rpgerr.InvalidArgument("content is required"))
		return
	}
	if err := validateVariation(req.Instruction, req.Params); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.gen.GenerateVariation(r.Context(), req.Content, req.Scenario, req.Instruction, req.Params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, res)
}

func validateGeneration(scenario string, adv *content.AdvancedInput, params *content.GenerationParams) error {
	if err := validation.ValidateScenario(scenario); err != nil {
		return err
	}
	if err := validation.ValidateAdvanced(adv); err != nil {
		return err
	}
	return validation.ValidateParams(params)
}

func validateSection(section string, index *int, params *content.GenerationParams) error {
	if err := validation.ValidateSectionName(section); err != nil {
		return err
	}
	if err := validation.ValidateSectionIndex(index); err != nil {
		return err
	}
	return validation.ValidateParams(params)
}

func validateVariation(instruction string, params *content.GenerationParams) error {
	if err := validation.ValidateInstruction(instruction); err != nil {
		return err
	}
	return validation.ValidateParams(params)
}

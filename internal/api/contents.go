package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/qninhdt/rpg-forge/internal/content"
	"github.com/qninhdt/rpg-forge/internal/db"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
	"github.com/qninhdt/rpg-forge/internal/generator"
	"github.com/qninhdt/rpg-forge/internal/language"
	"github.com/qninhdt/rpg-forge/internal/validation"
)

type saveContentRequest struct {
	Scenario string            `json:"scenario"`
	Language string            `json:"language"`
	Source   string            `json:"source"`
	Content  content.Generated `json:"content"`
	Tags     []string          `json:"tags"`
	ParentID string            `json:"parentId,omitempty"`
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

type storedSectionRequest struct {
	SectionIndex *int                      `json:"sectionIndex,omitempty"`
	Params       *content.GenerationParams `json:"params,omitempty"`
}

type storedVariationRequest struct {
	Instruction string                    `json:"instruction"`
	Params      *content.GenerationParams `json:"params,omitempty"`
	Tags        []string                  `json:"tags"`
}

// contentRequest resolves the caller and validates the {id} path parameter
func contentRequest(r *http.Request) (id, user string, err error) {
	user, err = userID(r)
	if err != nil {
		return "", "", err
	}
	id = chi.URLParam(r, "id")
	if err := validation.ValidateContentID(id); err != nil {
		return "", "", err
	}
	return id, user, nil
}

// listContents lists the caller's library
func (s *Server) listContents(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	var filter db.ListFilter
	if raw := q.Get("type"); raw != "" {
		t, err := content.ParseType(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.Type = t
	}
	filter.Tag = q.Get("tag")
	filter.Search = q.Get("search")
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, rpgerr.InvalidArgumentf("%s must be a non-negative integer", key))
			return
		}
		*dst = n
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}

	records, err := s.store.ListContents(user, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, records)
}

// saveContent stores a generated record in the caller's library
func (s *Server) saveContent(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req saveContentRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Content.Payload == nil {
		s.writeError(w, r, rpgerr.InvalidArgument("content is required"))
		return
	}
	if err := s.registry.ValidateContent(req.Content); err != nil {
		s.writeError(w, r, rpgerr.WrapWithCode(err, rpgerr.CodeInvalidArgument, "content does not match its schema"))
		return
	}
	tags, err := validation.ValidateTags(req.Tags)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ParentID != "" {
		if err := validation.ValidateContentID(req.ParentID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	source := req.Source
	if source != string(generator.SourceAI) && source != string(generator.SourceFallback) {
		source = "manual"
	}

	rec := &db.Record{
		UserID:   user,
		Scenario: req.Scenario,
		Language: language.Parse(req.Language),
		Source:   source,
		Content:  req.Content,
		Tags:     tags,
		ParentID: req.ParentID,
	}
	if err := s.store.SaveContent(rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, rec)
}

// getContent returns one stored record
func (s *Server) getContent(w http.ResponseWriter, r *http.Request) {
	id, user, err := contentRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.store.GetContent(id, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, rec)
}

// deleteContent removes a stored record
func (s *Server) deleteContent(w http.ResponseWriter, r *http.Request) {
	id, user, err := contentRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteContent(id, user); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]string{"id": id})
}

// listVersions returns the history of a stored record
func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	id, user, err := contentRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	versions, err := s.store.ListVersions(id, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, versions)
}

// setTags replaces the tags of a stored record
func (s *Server) setTags(w http.ResponseWriter, r *http.Request) {
	id, user, err := contentRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req tagsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tags, err := validation.ValidateTags(req.Tags)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SetTags(id, user, tags); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.store.GetContent(id, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, rec)
}

// regenerateStoredSection regenerates one section of a stored record,
// splices it in and writes a new version
func (s *Server) regenerateStoredSection(w http.ResponseWriter, r *http.Request) {
	id, user, err := contentRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	section := chi.URLParam(r, "section")
	var req storedSectionRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if err := validateSection(section, req.SectionIndex, req.Params); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.store.GetContent(id, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.gen.RegenerateSection(r.Context(), generator.SectionRequest{
		Scenario: rec.Scenario,
		Type:     rec.Type,
		Section:  section,
		Index:    req.SectionIndex,
		Current:  rec.Content,
		Params:   req.Params,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	spliced, err := content.SpliceSection(rec.Content, res.Section, res.Index, res.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	note := "regenerated " + section
	if res.Index != nil {
		note += "[" + strconv.Itoa(*res.Index) + "]"
	}
	updated, err := s.store.UpdatePayload(id, user, spliced, note)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]interface{}{
		"content": updated,
		"section": res,
	})
}

// listVariations lists records generated from a stored record
func (s *Server) listVariations(w http.ResponseWriter, r *http.Request) {
	id, user, err := contentRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	records, err := s.store.ListVariations(id, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, records)
}

// createStoredVariation generates a sibling of a stored record and saves it
// linked to its parent
func (s *Server) createStoredVariation(w http.ResponseWriter, r *http.Request) {
	id, user, err := contentRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req storedVariationRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if err := validateVariation(req.Instruction, req.Params); err != nil {
		s.writeError(w, r, err)
		return
	}
	tags, err := validation.ValidateTags(req.Tags)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	parent, err := s.store.GetContent(id, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.gen.GenerateVariation(r.Context(), parent.Content, parent.Scenario, req.Instruction, req.Params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec := &db.Record{
		UserID:   user,
		Scenario: parent.Scenario,
		Language: res.Language,
		Source:   string(res.Source),
		Content:  res.Content,
		Tags:     tags,
		ParentID: parent.ID,
	}
	if err := s.store.SaveContent(rec); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]interface{}{
		"content":        rec,
		"source":         res.Source,
		"fallbackReason": res.FallbackReason,
	})
}

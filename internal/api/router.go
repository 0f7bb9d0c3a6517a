// Package api is the HTTP surface of the content generator and library.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qninhdt/rpg-forge/internal/content"
	"github.com/qninhdt/rpg-forge/internal/db"
	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
	"github.com/qninhdt/rpg-forge/internal/generator"
	mw "github.com/qninhdt/rpg-forge/internal/middleware"
	"github.com/qninhdt/rpg-forge/internal/schema"
)

// Generator is the generation pipeline the handlers drive
type Generator interface {
	Generate(ctx context.Context, scenario string, t content.Type, adv *content.AdvancedInput, params *content.GenerationParams) (*generator.Result, error)
	RegenerateSection(ctx context.Context, req generator.SectionRequest) (*generator.SectionResult, error)
	GenerateVariation(ctx context.Context, original content.Generated, originalScenario, instruction string, params *content.GenerationParams) (*generator.Result, error)
	GenerateBatch(ctx context.Context, items []generator.BatchItem, concurrency int) ([]generator.BatchResult, error)
}

// Store is the content library
type Store interface {
	SaveContent(rec *db.Record) error
	GetContent(id, userID string) (*db.Record, error)
	ListContents(userID string, f db.ListFilter) ([]*db.Record, error)
	UpdatePayload(id, userID string, g content.Generated, note string) (*db.Record, error)
	ListVersions(id, userID string) ([]db.Version, error)
	SetTags(id, userID string, tags []string) error
	DeleteContent(id, userID string) error
	ListVariations(parentID, userID string) ([]*db.Record, error)
}

// Options configure the HTTP middleware stack
type Options struct {
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
}

// Server handles HTTP requests
type Server struct {
	router      chi.Router
	gen         Generator
	store       Store
	registry    *schema.Registry
	rateLimiter *mw.RateLimiter
	opts        Options
	logger      *zap.Logger
}

// NewServer creates a new API server
func NewServer(gen Generator, store Store, registry *schema.Registry, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 5
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 10
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	s := &Server{
		router:      chi.NewRouter(),
		gen:         gen,
		store:       store,
		registry:    registry,
		rateLimiter: mw.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		opts:        opts,
		logger:      logger.Named("api"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.SecurityHeadersMiddleware)

	s.router.Get("/healthz", s.health)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Use(s.rateLimiter.Middleware)
		r.Use(mw.MaxBodySizeMiddleware(s.opts.MaxBodyBytes))

		r.Get("/api/schemas/{type}", s.getSchema)
		r.Get("/api/schemas/{type}/sections/{section}", s.getSectionSchema)

		r.Group(func(r chi.Router) {
			r.Use(mw.Auth(s.opts.JWTSecret))

			r.Post("/api/generate", s.generate)
			r.Post("/api/generate/batch", s.generateBatch)
			r.Post("/api/sections/regenerate", s.regenerateSection)
			r.Post("/api/variations", s.generateVariation)

			r.Get("/api/contents", s.listContents)
			r.Post("/api/contents", s.saveContent)
			r.Get("/api/contents/{id}", s.getContent)
			r.Delete("/api/contents/{id}", s.deleteContent)
			r.Get("/api/contents/{id}/versions", s.listVersions)
			r.Put("/api/contents/{id}/tags", s.setTags)
			r.Post("/api/contents/{id}/sections/{section}", s.regenerateStoredSection)
			r.Get("/api/contents/{id}/variations", s.listVariations)
			r.Post("/api/contents/{id}/variations", s.createStoredVariation)
		})
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response wraps API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

// writeError writes an error response. Messages of 5xx responses never
// reach the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := rpgerr.CodeOf(err)
	status := code.HTTPStatus()
	message := messageOf(err)
	if status >= 500 {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", code.String()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		message = http.StatusText(status)
	}

	writeJSON(w, status, Response{
		Success: false,
		Error:   message,
		Code:    code.String(),
	})
}

// messageOf returns the client-facing part of err
func messageOf(err error) string {
	var coded *rpgerr.Error
	if errors.As(err, &coded) {
		return coded.Message
	}
	return err.Error()
}

// decode reads a JSON body into v
func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return rpgerr.InvalidArgument("request body too large")
		}
		return rpgerr.InvalidArgument("invalid request body")
	}
	return nil
}

// userID extracts the caller id set by the auth middleware
func userID(r *http.Request) (string, error) {
	id := mw.UserID(r.Context())
	if id == "" {
		return "", rpgerr.Unauthenticated("missing user id")
	}
	return id, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, map[string]string{"status": "ok"})
}

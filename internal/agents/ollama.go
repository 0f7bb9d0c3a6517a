package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
)

// OllamaOptions configures a local Ollama client
type OllamaOptions struct {
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// OllamaClient talks to the native Ollama chat API. It needs no credential.
type OllamaClient struct {
	client    *api.Client
	model     string
	timeout   time.Duration
	maxTokens int
	logger    *zap.Logger
}

// NewOllamaClient creates a new Ollama client
func NewOllamaClient(opts OllamaOptions, logger *zap.Logger) (*OllamaClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}

	// api.NewClient wants the root URL without /v1
	base := strings.TrimSuffix(strings.TrimSuffix(opts.BaseURL, "/"), "/v1")
	if base == "" || base == defaultBaseURL {
		base = "http://localhost:11434"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama base URL %q: %w", base, err)
	}

	return &OllamaClient{
		client:    api.NewClient(parsed, &http.Client{Timeout: opts.Timeout}),
		model:     opts.Model,
		timeout:   opts.Timeout,
		maxTokens: opts.MaxTokens,
		logger:    logger.Named("ollama"),
	}, nil
}

// Provider implements Client
func (c *OllamaClient) Provider() string { return "ollama" }

// CheckCredential implements Client; local models need none
func (c *OllamaClient) CheckCredential() error { return nil }

// Generate implements Client using Ollama structured outputs
func (c *OllamaClient) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
			"num_predict": maxTokens,
		},
	}
	if req.Contract != nil {
		chatReq.Format = req.Contract.JSON()
	} else {
		chatReq.Format = json.RawMessage(`"json"`)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var reply strings.Builder
	err := c.client.Chat(requestCtx, chatReq, func(r api.ChatResponse) error {
		reply.WriteString(r.Message.Content)
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		observeRequest(c.Provider(), "error", duration)
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("chat request timed out", zap.Duration("timeout", c.timeout), zap.Error(err))
		} else {
			c.logger.Warn("chat request failed", zap.Duration("duration", duration), zap.Error(err))
		}
		return nil, rpgerr.Generation(err, "chat request failed")
	}

	doc, err := finish(reply.String(), req.Contract)
	if err != nil {
		observeRequest(c.Provider(), "error_invalid_response", duration)
		return nil, err
	}

	observeRequest(c.Provider(), "success", duration)
	c.logger.Info("chat response received", zap.Duration("duration", duration), zap.Int("bytes", len(doc)))
	return doc, nil
}

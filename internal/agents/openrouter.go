package agents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	rpgerr "github.com/qninhdt/rpg-forge/internal/errors"
)

const (
	defaultBaseURL   = "https://openrouter.ai/api/v1"
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 4096
)

// OpenAIOptions configures an OpenAI-compatible client
type OpenAIOptions struct {
	APIKey      string
	KeyPrefixes []string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
}

// OpenAIClient talks to OpenRouter or any OpenAI-compatible endpoint
type OpenAIClient struct {
	client    *openai.Client
	apiKey    string
	prefixes  []string
	model     string
	maxTokens int
	logger    *zap.Logger
}

// headerTransport adds the attribution headers OpenRouter expects
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// NewOpenAIClient creates a new OpenAI-compatible client
func NewOpenAIClient(opts OpenAIOptions, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = opts.BaseURL
	cfg.HTTPClient = &http.Client{
		Timeout: opts.Timeout,
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": "https://rpg-forge.local",
				"X-Title":      "RPG Forge",
			},
		},
	}

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(cfg),
		apiKey:    opts.APIKey,
		prefixes:  opts.KeyPrefixes,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		logger:    logger.Named("openai"),
	}
}

// Provider implements Client
func (c *OpenAIClient) Provider() string { return "openai" }

// CheckCredential implements Client
func (c *OpenAIClient) CheckCredential() error {
	return ValidateCredential(c.apiKey, c.prefixes)
}

// Generate calls the chat completion endpoint with a JSON schema response format
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := c.CheckCredential(); err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: float32(req.Temperature),
		MaxTokens:   maxTokens,
	}
	if req.Contract != nil {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName(req.Contract),
				Schema: req.Contract.JSON(),
				Strict: false,
			},
		}
	}

	c.logger.Debug("sending completion request",
		zap.String("model", c.model),
		zap.Int("system_bytes", len(req.SystemPrompt)),
		zap.Int("user_bytes", len(req.UserPrompt)),
		zap.Float64("temperature", req.Temperature),
	)

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(start)

	if err != nil {
		status := "error"
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden) {
			status = "error_auth"
		}
		observeRequest(c.Provider(), status, duration)
		c.logger.Warn("completion request failed", zap.Duration("duration", duration), zap.Error(err))
		return nil, rpgerr.Generation(err, "completion request failed")
	}

	if len(resp.Choices) == 0 {
		observeRequest(c.Provider(), "error_empty_response", duration)
		return nil, rpgerr.Generation(nil, "no choices in response")
	}

	doc, err := finish(resp.Choices[0].Message.Content, req.Contract)
	if err != nil {
		observeRequest(c.Provider(), "error_invalid_response", duration)
		c.logger.Warn("completion did not satisfy contract", zap.Duration("duration", duration), zap.Error(err))
		return nil, err
	}

	observeRequest(c.Provider(), "success", duration)
	c.logger.Info("completion received",
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return doc, nil
}

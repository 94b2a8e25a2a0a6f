package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"gopherai-docqa/internal/metrics"
	"gopherai-docqa/internal/pkg/backoff"
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

var (
	ErrMissingAPIKey   = errors.New("api key is not configured")
	ErrEmptyCompletion = errors.New("empty llm choices")
	ErrProvider        = errors.New("model provider error")
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a single JSON object response.
	JSON bool
}

// Completer is the chat-completion surface the rest of the service depends on.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error)
}

type ChatConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxRetries     int
	RetryDelay     time.Duration
	RequestsPerSec float64
	Logger         *zap.Logger
}

// Client talks to any OpenAI-compatible chat endpoint (Groq, OpenAI, local gateways).
type Client struct {
	client     *openai.Client
	model      string
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewClient(cfg ChatConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("llm model is empty")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

// Complete sends one chat completion, retrying rate-limit and server errors with backoff.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoff.Delay(c.retryDelay, attempt)
			c.logger.Warn("retrying llm request", zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm rate limiter: %w", err)
		}

		start := time.Now()
		resp, err := c.client.CreateChatCompletion(ctx, req)
		metrics.LLMRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.LLMRequestsTotal.WithLabelValues(c.model, "error").Inc()
			lastErr = parseAPIError("llm", err)
			if !retryable(err) {
				return "", lastErr
			}
			continue
		}
		if len(resp.Choices) == 0 {
			metrics.LLMRequestsTotal.WithLabelValues(c.model, "empty").Inc()
			lastErr = ErrEmptyCompletion
			continue
		}
		metrics.LLMRequestsTotal.WithLabelValues(c.model, "success").Inc()
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("llm request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = RoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		// transport failure, no response
		return true
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// parseAPIError flattens provider errors into one readable message wrapping ErrProvider.
func parseAPIError(kind string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", kind, apiErr.HTTPStatusCode, apiErr.Message, ErrProvider)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%s API error %d: %s: %w", kind, reqErr.HTTPStatusCode, strings.TrimSpace(string(reqErr.Body)), ErrProvider)
	}
	return fmt.Errorf("%s request failed: %v: %w", kind, err, ErrProvider)
}

// Unconfigured stands in for a provider that could not be built; every call fails with Err.
type Unconfigured struct {
	Err error
}

func (u Unconfigured) Complete(context.Context, []ChatMessage, CompletionOptions) (string, error) {
	return "", u.Err
}

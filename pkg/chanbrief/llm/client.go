// Package llm implements the summarization service client over an
// OpenAI-compatible chat completions endpoint. The default base URL is
// Gemini's OpenAI compatibility surface, so the same client works with
// Gemini, OpenAI, and any compatible proxy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-pro"

// defaultCallTimeout bounds a single summarization call. The pipeline's
// run cap is the outer bound; this keeps one stalled call from eating it.
const defaultCallTimeout = 90 * time.Second

// ServiceError classifies a summarization failure.
type ServiceError struct {
	// Kind is one of "timeout", "quota", or "malformed-response".
	Kind string
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("summarization service (%s): %v", e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Client calls the summarization service. Implements digest.SummaryClient.
type Client struct {
	client      openai.Client
	model       string
	callTimeout time.Duration
	logger      *slog.Logger
}

// New creates a summarization client. Empty baseURL and model fall back
// to the Gemini defaults.
func New(apiKey, baseURL, model string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(strings.TrimRight(baseURL, "/")),
		),
		model:       model,
		callTimeout: defaultCallTimeout,
		logger:      logger.With("component", "llm", "model", model),
	}
}

// Summarize sends the prompt and returns the service's text.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		serr := classify(err)
		c.logger.Warn("summarization call failed",
			"kind", serr.Kind, "elapsed", time.Since(start), "error", err)
		return "", serr
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		serr := &ServiceError{Kind: "malformed-response", Err: errors.New("no completion choices returned")}
		c.logger.Warn("summarization call returned no content", "elapsed", time.Since(start))
		return "", serr
	}

	c.logger.Debug("summarization call succeeded",
		"prompt_len", len(prompt), "elapsed", time.Since(start))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// classify maps transport/API errors onto the ServiceError taxonomy.
func classify(err error) *ServiceError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ServiceError{Kind: "timeout", Err: err}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusPaymentRequired:
			return &ServiceError{Kind: "quota", Err: err}
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return &ServiceError{Kind: "timeout", Err: err}
		}
	}
	return &ServiceError{Kind: "malformed-response", Err: err}
}

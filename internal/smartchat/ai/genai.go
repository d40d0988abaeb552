package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/chevai/smartchat/common/retry"
)

// DefaultGeminiModel is the generation model used unless configured
// otherwise.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiClient adapts the Google GenAI SDK to the Generator interface.
// Capacity failures are normalized to ErrProviderUnavailable; transient
// server errors are retried with backoff before giving up.
type GeminiClient struct {
	client *genai.Client
	model  string
	retry  retry.Config
}

// NewGeminiClient builds a client for the given API key. An empty model
// selects DefaultGeminiModel.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	cfg := retry.DefaultConfig
	cfg.MaxAttempts = 2
	cfg.InitialDelay = 500 * time.Millisecond
	cfg.ShouldRetry = func(err error) bool {
		// Retry plain server hiccups once. Capacity errors go straight to
		// the fallback path instead of burning more quota on retries.
		return !errors.Is(err, ErrProviderUnavailable)
	}

	return &GeminiClient{client: client, model: model, retry: cfg}, nil
}

// Generate sends the prompt and returns the model's text.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	err := retry.Do(ctx, c.retry, func() error {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
		if err != nil {
			return classifyGenAIError(err)
		}
		text = resp.Text()
		if text == "" {
			return errors.New("empty model response")
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// classifyGenAIError maps provider capacity failures onto the sentinel the
// router falls back on.
func classifyGenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code == 503 {
			return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "overloaded") || strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "rate limit") {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return err
}

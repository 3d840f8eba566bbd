package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/academy/internal/llm/prompts"
	"github.com/pavelanni/academy/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// OptionsPerQuestion is the number of answer options a generated question carries.
const OptionsPerQuestion = 4

// Generator produces study content from course text. Failures wrap
// model.ErrUpstreamUnavailable.
type Generator interface {
	GenerateSummary(ctx context.Context, text string) (string, error)
	GenerateQuestions(ctx context.Context, text string, n int) ([]model.Question, error)
}

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	Timeout        time.Duration
	RetryBackoff   time.Duration
	MaxSourceRunes int
	Language       prompts.Language
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
	opts  Options
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string, opts Options) (*Client, error) {
	if err := prompts.Load(prompts.FS); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxSourceRunes <= 0 {
		opts.MaxSourceRunes = prompts.DefaultMaxSourceRunes
	}
	if opts.Language == "" {
		opts.Language = prompts.LanguageRussian
	}
	if !prompts.IsValidLanguage(string(opts.Language)) {
		return nil, fmt.Errorf("unsupported prompt language %q", opts.Language)
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
		opts:  opts,
	}, nil
}

// Ping checks that the endpoint answers a model listing.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// GenerateSummary asks the model for a summary of text.
func (c *Client) GenerateSummary(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", model.Invalid("CourseHasNoText", "course has no text to summarize", nil)
	}
	prompt, err := prompts.BuildSummaryPrompt(c.opts.Language, text, c.opts.MaxSourceRunes)
	if err != nil {
		return "", fmt.Errorf("build summary prompt: %w", err)
	}

	var summary string
	err = c.withRetry(ctx, "summary", func(ctx context.Context) error {
		raw, err := c.complete(ctx, prompt, false, 0.5)
		if err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return errors.New("empty summary")
		}
		summary = raw
		return nil
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}

// GenerateQuestions asks the model for exactly n multiple-choice questions
// about text. Output that is malformed, has the wrong count or fails
// validation is treated as an upstream failure.
func (c *Client) GenerateQuestions(ctx context.Context, text string, n int) ([]model.Question, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.Invalid("CourseHasNoText", "course has no text to generate questions from", nil)
	}
	if n <= 0 {
		return nil, model.Invalid("InvalidQuestionCount", "number of questions must be positive", nil)
	}
	prompt, err := prompts.BuildQuestionsPrompt(c.opts.Language, text, n, OptionsPerQuestion, c.opts.MaxSourceRunes)
	if err != nil {
		return nil, fmt.Errorf("build questions prompt: %w", err)
	}

	var questions []model.Question
	err = c.withRetry(ctx, "questions", func(ctx context.Context) error {
		raw, err := c.complete(ctx, prompt, true, 0.3)
		if err != nil {
			return err
		}
		qs, err := ParseQuestions(raw, n)
		if err != nil {
			return err
		}
		questions = qs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// withRetry runs fn with a per-attempt timeout, retrying once after the
// configured backoff.
func (c *Client) withRetry(ctx context.Context, what string, fn func(context.Context) error) error {
	const attempts = 2
	var lastErr error
	for i := range attempts {
		if i > 0 {
			timer := time.NewTimer(c.opts.RetryBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w: %s: %v", model.ErrUpstreamUnavailable, what, ctx.Err())
			case <-timer.C:
			}
		}
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		lastErr = fn(attemptCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		slog.Warn("LLM generation attempt failed", "kind", what, "attempt", i+1, "error", lastErr)
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("%w: %s: %v", model.ErrUpstreamUnavailable, what, lastErr)
}

func (c *Client) complete(ctx context.Context, systemPrompt string, jsonOutput bool, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		},
		Temperature: temperature,
	}
	if jsonOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return raw, nil
}

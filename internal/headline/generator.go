package headline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultWorkers    = 5

	promptTextLimit = 500
)

const promptTemplate = "You are a talented headline writer for a school newspaper. " +
	"Write a single-line headline of under 10 words for this school bulletin announcement. " +
	"Make it catchy, clear and informative, and make sure it conveys the most important part of the announcement. " +
	"If the body only contains a date it is probably a canteen menu rather than an exam notice, so name it accordingly.\n\n" +
	"Return ONLY the headline without quotes, explanation, or additional text:\n\n" +
	"%s..."

var errEmptyHeadline = errors.New("no usable headline in response")

// Config holds headline endpoint configuration.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Workers    int
}

// Generator asks a chat-completion endpoint for short headlines and falls
// back to a headline cut from the text itself.
type Generator struct {
	client     *resty.Client
	endpoint   string
	maxRetries int
	retryDelay time.Duration
	workers    int
	logger     *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
		Text *string `json:"text"`
	} `json:"choices"`
}

func New(cfg Config, logger *slog.Logger) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	return &Generator{
		client:     resty.New().SetTimeout(cfg.Timeout),
		endpoint:   cfg.Endpoint,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		workers:    cfg.Workers,
		logger:     logger.With("component", "headline"),
	}
}

// Generate returns a headline for text. It never fails: when every
// attempt is exhausted the result of Fallback is returned.
func (g *Generator) Generate(ctx context.Context, text string) string {
	attempts := g.maxRetries + 1

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var headline string
		headline, err = g.request(ctx, text)
		if err == nil {
			return headline
		}

		if attempt == attempts {
			break
		}

		g.logger.Debug("headline request failed, retrying",
			"attempt", attempt,
			"delay", g.retryDelay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			g.logger.Debug("headline generation cancelled", "error", ctx.Err())
			return Fallback(text)
		case <-time.After(g.retryDelay):
		}
	}

	g.logger.Warn("headline generation failed, using fallback",
		"attempts", attempts,
		"error", err,
	)
	return Fallback(text)
}

// GenerateAll generates headlines concurrently with a bounded number of
// requests in flight. The result at index i belongs to texts[i].
func (g *Generator) GenerateAll(ctx context.Context, texts []string) []string {
	headlines := make([]string, len(texts))

	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for i, text := range texts {
		eg.Go(func() error {
			headlines[i] = g.Generate(ctx, text)
			return nil
		})
	}
	_ = eg.Wait()

	return headlines
}

func (g *Generator) request(ctx context.Context, text string) (string, error) {
	body := chatRequest{
		Messages: []chatMessage{{Role: "user", Content: buildPrompt(text)}},
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(g.endpoint)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode())
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	headline, ok := Clean(firstChoice(parsed))
	if !ok {
		return "", errEmptyHeadline
	}
	return headline, nil
}

func firstChoice(resp chatResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	choice := resp.Choices[0]
	if choice.Message != nil && choice.Message.Content != nil {
		return *choice.Message.Content
	}
	if choice.Text != nil {
		return *choice.Text
	}
	return ""
}

func buildPrompt(text string) string {
	runes := []rune(text)
	if len(runes) > promptTextLimit {
		runes = runes[:promptTextLimit]
	}
	return fmt.Sprintf(promptTemplate, string(runes))
}

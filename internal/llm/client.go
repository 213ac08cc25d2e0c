// Package llm wraps an OpenAI-compatible chat-completion endpoint (OpenAI,
// DeepSeek, or a local Ollama server) behind a typed client with a fixed
// error taxonomy.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oipromot/office-optimizer/internal/language"
)

// thinkBlockRe strips a <think>...</think> reasoning preamble that some
// self-hosted model servers emit even when enable_thinking is false.
var thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Config holds the chat-completion endpoint configuration. It is read once at
// construction and injected by constructor; nothing re-reads the environment
// per call.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ConfigFromEnv builds a Config from API_BASE_URL, API_KEY and
// AI_MODEL/MODEL. The base URL is normalized to end in /v1, and a dummy key
// is substituted when none is configured because local servers such as
// Ollama ignore the key but the wire format still requires a bearer header.
func ConfigFromEnv() Config {
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
		log.Printf("WARN: API_BASE_URL not set, defaulting to %s", baseURL)
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = strings.TrimRight(baseURL, "/") + "/v1"
	}

	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		apiKey = "sk-no-key-required"
	}

	model := os.Getenv("AI_MODEL")
	if model == "" {
		model = os.Getenv("MODEL")
	}
	if model == "" {
		model = "qwen3:1.7b"
	}

	return Config{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       model,
		MaxTokens:   1500,
		Temperature: 0.1,
		Timeout:     30 * time.Second,
	}
}

// Client calls the chat-completion endpoint. It is stateless apart from the
// read-only configuration and is safe for concurrent use across sessions.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// Completion is the cleaned result of a successful call.
type Completion struct {
	Text         string
	Model        string
	ResponseTime time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
	// EnableThinking must be sent as false on every non-streaming call;
	// Qwen-family servers otherwise emit an unparseable reasoning preamble.
	EnableThinking bool `json:"enable_thinking"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// NewClient creates a chat-completion client for the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1500
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "chat-completion",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tracer:  otel.Tracer("chat-completion-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Config returns the client's configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Complete sends a system prompt plus user message and returns the cleaned
// model output. Expected failure modes (network errors, non-200 responses,
// malformed payloads) come back as a *CallError, never a panic or raw error.
// Elapsed wall-clock time is recorded on both paths.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (*Completion, *CallError) {
	ctx, span := c.tracer.Start(ctx, "llm.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.model", c.cfg.Model),
		attribute.Int("llm.max_tokens", c.cfg.MaxTokens),
	)

	start := time.Now()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.completeInternal(ctx, systemPrompt, userMessage)
	})

	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		return nil, c.newCallError(err, language.IsChinese(userMessage), elapsed)
	}

	text := thinkBlockRe.ReplaceAllString(result.(string), "")
	text = strings.TrimSpace(text)

	span.SetAttributes(attribute.Int("llm.response_chars", len(text)))

	return &Completion{
		Text:         text,
		Model:        c.cfg.Model,
		ResponseTime: elapsed,
	}, nil
}

func (c *Client) completeInternal(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:      c.cfg.MaxTokens,
		Temperature:    c.cfg.Temperature,
		Stream:         false,
		EnableThinking: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.cfg.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("chat completion returned status %d (failed to read body: %w)", resp.StatusCode, readErr)
		}
		return "", fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("failed to parse response: no choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// ListModels fetches the model ids exposed by the endpoint. Used by the
// diagnostics tool, not by the optimizer.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, span := c.tracer.Start(ctx, "llm.list_models")
	defer span.End()

	url := fmt.Sprintf("%s/models", c.cfg.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to reach models endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("models endpoint returned status %d", resp.StatusCode)
	}

	var list modelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to parse models response: %w", err)
	}

	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Probe sends a trivial "hello" completion and reports the round-trip time.
// Used by the diagnostics tool to verify the configured model end to end.
func (c *Client) Probe(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, callErr := c.Complete(ctx, "You are a health check. Reply with a single word.", "hello")
	if callErr != nil {
		return time.Since(start), callErr
	}
	return time.Since(start), nil
}

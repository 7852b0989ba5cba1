// Package llm wraps the OpenAI-compatible chat-completion API used to draft
// outreach messages. Rate-limit and server errors are retried in the client
// with exponential backoff, honoring a Retry-After header when the server
// sends one.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"herald/internal/config"
	"herald/internal/services"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 8 * time.Second
)

// Client posts chat completions to an OpenAI-compatible endpoint.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client

	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
}

// NewClient builds a chat client from configuration.
func NewClient(cfg config.LLM) *Client {
	return &Client{
		endpoint: cfg.BaseURL,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		retryAttempts:  defaultRetryAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a system+user prompt pair and returns the assistant text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "", "generate", "llm.api_key is not set", nil)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternal, "", "generate", "marshal request", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		text, retryAfter, err := c.complete(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err

		delay, retry := c.retryDelay(ctx, err, attempt, retryAfter)
		if !retry {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return "", services.Wrap(services.ErrTimeout, "", "generate", "interrupted while backing off", err)
		}
	}
	return "", lastErr
}

// complete performs one round trip. On a throttled or failing response the
// returned duration carries the server's Retry-After hint, zero otherwise.
func (c *Client) complete(ctx context.Context, body []byte) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, services.Wrap(services.ErrExternal, "", "generate", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, services.Wrap(services.ErrTransient, "", "generate", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", retryAfter, services.Wrap(services.ErrTransient, "", "generate", "status "+resp.Status, nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", 0, services.Wrap(services.ErrConfiguration, "", "generate", "status "+resp.Status, nil)
	case resp.StatusCode != http.StatusOK:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		detail := fmt.Sprintf("status %s: %s", resp.Status, strings.TrimSpace(string(payload)))
		return "", 0, services.Wrap(services.ErrExternal, "", "generate", detail, nil)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", 0, services.Wrap(services.ErrExternal, "", "generate", "decode response", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", 0, services.Wrap(services.ErrExternal, "", "generate", parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", 0, services.Wrap(services.ErrExternal, "", "generate", "empty completion", nil)
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", 0, services.Wrap(services.ErrExternal, "", "generate", "empty completion text", nil)
	}
	return text, 0, nil
}

// retryDelay decides whether err warrants another attempt. A server-sent
// Retry-After wins over the computed backoff; both are capped.
func (c *Client) retryDelay(ctx context.Context, err error, attempt int, retryAfter time.Duration) (time.Duration, bool) {
	if attempt >= c.retryAttempts || ctx.Err() != nil {
		return 0, false
	}
	if !errors.Is(err, services.ErrTransient) {
		return 0, false
	}
	if retryAfter > 0 {
		if retryAfter > c.retryMaxDelay {
			retryAfter = c.retryMaxDelay
		}
		return retryAfter, true
	}
	delay := c.retryBaseDelay << (attempt - 1)
	if delay > c.retryMaxDelay {
		delay = c.retryMaxDelay
	}
	return delay, true
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay
		}
	}
	return 0
}

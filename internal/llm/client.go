// Package llm calls an OpenRouter-compatible chat-completion endpoint with
// per-call timeouts, bounded retries, and typed failure classification.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/tidewhale/tidewhale/internal/history"
)

const (
	backoffBase      = 500 * time.Millisecond
	backoffJitterMax = 250 * time.Millisecond
)

// Params configures a Client. Zero values get sensible defaults.
type Params struct {
	// APIURL is the chat-completions endpoint.
	APIURL string
	// Referer is sent as HTTP-Referer when set (OpenRouter app attribution).
	Referer string
	// Timeout bounds one attempt. Default 20s.
	Timeout time.Duration
	// Retries is the total attempt budget for retryable failures. Default 3.
	Retries int
	// HTTPClient, when set, is used instead of an internally owned client
	// and is not closed by Close.
	HTTPClient *http.Client
}

// Client is a reusable OpenRouter chat client. Safe for concurrent use.
type Client struct {
	apiURL     string
	referer    string
	timeout    time.Duration
	retries    int
	httpClient *http.Client
	ownClient  bool

	// backoff is swappable so tests don't sleep through real delays.
	backoff func(attempt int) time.Duration
}

// New creates a Client from p.
func New(p Params) *Client {
	if p.APIURL == "" {
		p.APIURL = "https://openrouter.ai/api/v1/chat/completions"
	}
	if p.Timeout <= 0 {
		p.Timeout = 20 * time.Second
	}
	if p.Retries <= 0 {
		p.Retries = 3
	}

	c := &Client{
		apiURL:  p.APIURL,
		referer: p.Referer,
		timeout: p.Timeout,
		retries: p.Retries,
		backoff: defaultBackoff,
	}
	if p.HTTPClient != nil {
		c.httpClient = p.HTTPClient
	} else {
		c.httpClient = &http.Client{}
		c.ownClient = true
	}
	return c
}

// Close releases idle connections of the client it owns. Injected clients
// are left untouched.
func (c *Client) Close() {
	if c.ownClient {
		c.httpClient.CloseIdleConnections()
	}
}

// GetResponse sends the conversation to the model and returns the reply text,
// trimmed of surrounding whitespace.
//
// Timeout and Upstream failures are retried with jittered exponential backoff
// up to the configured attempt budget; RateLimited, ModelNotFound, and
// MalformedResponse surface immediately. After the budget is spent, the last
// retryable failure is returned.
func (c *Client) GetResponse(ctx context.Context, apiKey string, turns []history.Turn, model string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retries; attempt++ {
		text, err := c.send(ctx, apiKey, turns, model)
		if err == nil {
			return text, nil
		}

		var llmErr *Error
		if !errors.As(err, &llmErr) || !llmErr.retryable() {
			return "", err
		}
		lastErr = err

		if attempt == c.retries {
			break
		}
		slog.Warn("llm: attempt failed, retrying",
			"attempt", attempt, "kind", llmErr.Kind, "err", llmErr.Message)

		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return "", &Error{Kind: KindTimeout, Message: "cancelled while backing off", Err: ctx.Err()}
		}
	}

	return "", lastErr
}

// requestBody is the chat-completion request payload.
type requestBody struct {
	Model    string         `json:"model"`
	Messages []history.Turn `json:"messages"`
}

// responseBody is the subset of the chat-completion response we care about.
type responseBody struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// send performs one attempt, classifying every failure into an *Error.
func (c *Client) send(ctx context.Context, apiKey string, turns []history.Turn, model string) (string, error) {
	data, err := json.Marshal(requestBody{Model: model, Messages: turns})
	if err != nil {
		return "", &Error{Kind: KindMalformedResponse, Message: "marshal request", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(data))
	if err != nil {
		return "", &Error{Kind: KindUpstream, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
		}
		return "", &Error{Kind: KindUpstream, Message: "network error", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &Error{Kind: KindTimeout, Message: "response read timed out", Err: err}
		}
		return "", &Error{Kind: KindUpstream, Message: "read response", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &Error{Kind: KindRateLimited, Status: resp.StatusCode,
			Message: "request quota exceeded"}
	case resp.StatusCode == http.StatusNotFound:
		return "", &Error{Kind: KindModelNotFound, Status: resp.StatusCode,
			Message: fmt.Sprintf("model %q not found", model)}
	case resp.StatusCode >= 500:
		return "", &Error{Kind: KindUpstream, Status: resp.StatusCode,
			Message: truncateBody(raw)}
	case resp.StatusCode != http.StatusOK:
		return "", &Error{Kind: KindMalformedResponse, Status: resp.StatusCode,
			Message: truncateBody(raw)}
	}

	return parseResponse(raw)
}

// parseResponse extracts choices[0].message.content from a 200 body.
func parseResponse(raw []byte) (string, error) {
	var body responseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", &Error{Kind: KindMalformedResponse, Status: http.StatusOK,
			Message: "invalid JSON in response", Err: err}
	}
	if len(body.Choices) == 0 || body.Choices[0].Message.Content == nil {
		return "", &Error{Kind: KindMalformedResponse, Status: http.StatusOK,
			Message: "response missing choices[0].message.content"}
	}
	return strings.TrimSpace(*body.Choices[0].Message.Content), nil
}

// defaultBackoff: base * 2^(attempt-1) plus up to 250ms of jitter.
func defaultBackoff(attempt int) time.Duration {
	delay := backoffBase << (attempt - 1)
	return delay + time.Duration(rand.Int63n(int64(backoffJitterMax)))
}

func truncateBody(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/research-orchestrator/internal/httputil"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const defaultMaxTokens = 4096

// ClaudeBackend calls the Claude Messages API with one user message per
// prompt and returns the concatenated text blocks.
type ClaudeBackend struct {
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client

	// MaxRetries bounds re-sends on 503 (0 uses the httputil default).
	// Quota responses are never re-sent on the same key.
	MaxRetries int

	// Limiter is acquired before every HTTP attempt. Nil disables it.
	Limiter httputil.Acquirer
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

// claudeMessage is a single message in the Claude API conversation.
type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the response body from the Claude Messages API.
type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

// claudeContent is a content block in the Claude API response.
type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// claudeError is the error envelope returned with non-2xx statuses.
type claudeError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends prompt to the Claude API. Quota and overload responses
// wrap ErrQuotaExhausted so a Rotator can move to the next credential.
func (c *ClaudeBackend) Generate(ctx context.Context, prompt string) (string, error) {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: maxTokens,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httputil.Do(ctx, c.Client, req, httputil.Policy{
		MaxRetries: c.MaxRetries,
		RetryOn:    retryUnavailable,
		Limiter:    c.Limiter,
	})
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if isQuotaResponse(resp.StatusCode, body) {
			return "", fmt.Errorf("Claude API returned %d: %w", resp.StatusCode, ErrQuotaExhausted)
		}
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	var b strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content in Claude API response")
	}
	return b.String(), nil
}

// retryUnavailable re-sends only on 503. A 429 or 529 goes straight back to
// the Rotator as quota exhaustion.
func retryUnavailable(status int) bool {
	return status == http.StatusServiceUnavailable
}

// isQuotaResponse reports whether a failed response means the credential
// is out of quota: HTTP 429, HTTP 529, or an error body typed
// rate_limit_error or overloaded_error.
func isQuotaResponse(status int, body []byte) bool {
	if status == http.StatusTooManyRequests || status == 529 {
		return true
	}
	var ce claudeError
	if json.Unmarshal(body, &ce) != nil {
		return false
	}
	switch ce.Error.Type {
	case "rate_limit_error", "overloaded_error":
		return true
	}
	return false
}

// Package llm wraps the Anthropic Messages API behind the single
// completion call the verification pipeline needs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1/messages"
	anthropicModel   = "claude-sonnet-4-20250514"
	anthropicVersion = "2023-06-01"
	maxTokens        = 1024
	requestTimeout   = 30 * time.Second
)

var (
	ErrModelUnavailable = errors.New("language model unavailable")
	ErrModelRefused     = errors.New("language model returned no usable response")
)

// Client calls the Anthropic Messages API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewClient creates a client for the Anthropic Messages API.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Complete sends a system+user prompt and returns the raw text reply.
// One attempt only: the externally visible recovery path is the user's
// "check again" action, which re-runs the whole pipeline from scratch.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: ANTHROPIC_API_KEY not set", ErrModelUnavailable)
	}

	req := anthropicRequest{
		Model:     anthropicModel,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrModelUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrModelUnavailable, resp.StatusCode, respBody)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrModelUnavailable, err)
	}

	if len(apiResp.Content) == 0 || apiResp.Content[0].Text == "" {
		return "", ErrModelRefused
	}
	return apiResp.Content[0].Text, nil
}

// Package summarize calls an external language-model service to condense
// extracted document text. One outbound request per call, no caching of
// identical inputs, no retry or backoff.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	defaultBaseURL = "https://api.groq.com/openai/v1/chat/completions"

	// Model is fixed; there is no fallback model and no chunking. Very large
	// inputs may be rejected or truncated by the remote service.
	Model = "llama3-8b-8192"
)

type Client struct {
	BaseURL string
	Model   string
	apiKey  string
	Client  *http.Client
}

// New builds a client for the summarization endpoint. SUMMARIZER_URL
// overrides the base URL (used by tests and self-hosted gateways).
func New(apiKey string) *Client {
	url := os.Getenv("SUMMARIZER_URL")
	if url == "" {
		url = defaultBaseURL
	}
	return &Client{
		BaseURL: url,
		Model:   Model,
		apiKey:  apiKey,
		Client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize sends the full text as a single prompt and returns the model's
// response. Transport and service errors come back as descriptive error
// values so the caller's handling stays uniform.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "user", Content: "Summarize the following text: " + text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("summarizer returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("summarizer returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

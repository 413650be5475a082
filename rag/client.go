// Package rag wraps the retrieval-augmented generation backend behind a
// single Answer call. The backend is an OpenAI-compatible chat completions
// API; retrieval over the knowledge index happens on the backend's side.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ragmail/config"
)

var (
	// ErrNotConfigured indicates no API key was provided.
	ErrNotConfigured = errors.New("rag client not configured")
	// ErrRequestFailed indicates the backend call failed.
	ErrRequestFailed = errors.New("rag request failed")
	// ErrEmptyResponse indicates the backend returned no completion.
	ErrEmptyResponse = errors.New("empty rag response")
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	indexName  string
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.RAG.BaseURL, "/"),
		apiKey:    cfg.RAG.APIKey,
		model:     cfg.RAG.Model,
		indexName: cfg.RAG.IndexName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Answer sends the structured email context to the generation backend and
// returns the completion text. One blocking call, no internal retry; the
// caller decides how a failure affects the cycle.
func (c *Client) Answer(ctx context.Context, contextText string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt()},
			{Role: "user", Content: contextText},
		},
		Temperature: 0,
	}
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrRequestFailed, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

func (c *Client) systemPrompt() string {
	prompt := "You are an automated email assistant. Answer the sender's question " +
		"concisely and politely using the retrieved knowledge available to you."
	if c.indexName != "" {
		prompt += fmt.Sprintf(" Ground your answer in the %q knowledge base.", c.indexName)
	}
	return prompt
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"campuspark/models"

	"go.uber.org/zap"
)

// NaturalLanguageFallback answers utterances the dialogue rules do not cover.
type NaturalLanguageFallback interface {
	Complete(ctx context.Context, prompt string, cc models.CompletionContext, history []models.ChatMessage) (string, error)
}

type completionRequest struct {
	Prompt              string                   `json:"prompt"`
	Context             models.CompletionContext `json:"context"`
	ConversationHistory []models.ChatMessage     `json:"conversationHistory"`
}

type completionResponse struct {
	Response string `json:"response"`
}

// CompletionClient posts the turn to the external chat-completion service.
type CompletionClient struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

func NewCompletionClient(url string, httpClient *http.Client, logger *zap.Logger) *CompletionClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CompletionClient{url: url, http: httpClient, logger: logger}
}

func (c *CompletionClient) Complete(ctx context.Context, prompt string, cc models.CompletionContext, history []models.ChatMessage) (string, error) {
	if history == nil {
		history = []models.ChatMessage{}
	}
	payload, err := json.Marshal(completionRequest{Prompt: prompt, Context: cc, ConversationHistory: history})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completion service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("Completion service returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return "", fmt.Errorf("completion service status %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if out.Response == "" {
		return "", fmt.Errorf("completion service returned an empty response")
	}
	return out.Response, nil
}

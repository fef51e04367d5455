// File: services/intelligence/geminiClient.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campuspark/models"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const assistantInstruction = "You are a campus parking assistant. Answer briefly and only about parking on campus. " +
	"Never claim a space was reserved; reservations are handled separately."

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = genai.NewUserContent(genai.Text(assistantInstruction))
	return &GeminiClient{client: client, model: model}, nil
}

// Complete implements NaturalLanguageFallback. History is replayed as a chat
// session and the structured context is prefixed to the prompt.
func (g *GeminiClient) Complete(ctx context.Context, prompt string, cc models.CompletionContext, history []models.ChatMessage) (string, error) {
	cs := g.model.StartChat()
	for _, m := range history {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(contextPreamble(cc)+prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("gemini returned an empty response")
	}
	return sb.String(), nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func contextPreamble(cc models.CompletionContext) string {
	var parts []string
	if cc.UserName != "" {
		parts = append(parts, "user: "+cc.UserName)
	}
	if cc.Role != "" {
		parts = append(parts, "role: "+cc.Role)
	}
	if cc.SelectedParking != "" {
		parts = append(parts, "selected space: "+cc.SelectedParking)
	}
	if cc.Entrance != "" {
		parts = append(parts, "entrance: "+cc.Entrance)
	}
	if cc.LastParkingQuery != "" {
		parts = append(parts, "last parking query: "+cc.LastParkingQuery)
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, "; ") + "]\n"
}

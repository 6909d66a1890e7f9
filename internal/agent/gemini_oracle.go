package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiOracle implements Oracle using Google's Gemini API.
type GeminiOracle struct {
	client  *genai.Client
	modelID string
}

// NewGeminiOracle creates a new Gemini-backed oracle.
func NewGeminiOracle(ctx context.Context, apiKey, modelID string) (*GeminiOracle, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("agent: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("agent: failed to create gemini client: %w", err)
	}

	return &GeminiOracle{
		client:  client,
		modelID: modelID,
	}, nil
}

// Infer sends one prompt and returns the concatenated text response.
func (o *GeminiOracle) Infer(ctx context.Context, system, prompt string) (string, error) {
	model := o.client.GenerativeModel(o.modelID)
	model.SetTemperature(0)
	if strings.TrimSpace(system) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("agent: gemini inference failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("agent: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("agent: gemini returned empty content")
	}

	var out strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// Close releases resources held by the Gemini client.
func (o *GeminiOracle) Close() error {
	if o.client != nil {
		return o.client.Close()
	}
	return nil
}

var _ Oracle = (*GeminiOracle)(nil)

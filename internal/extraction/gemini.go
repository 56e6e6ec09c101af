package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-pro"

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a new Gemini Extractor instance
func NewGemini(ctx context.Context, apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  modelName,
	}, nil
}

// Name returns the provider and model identifier
func (g *Gemini) Name() string {
	return "gemini/" + g.model
}

// Extract sends the image and prompt and returns the concatenated text parts of the first candidate
func (g *Gemini) Extract(ctx context.Context, req *Request) (string, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = g.model
	}
	model := g.client.GenerativeModel(modelName)
	model.SetTemperature(float32(req.Temperature))

	// genai.ImageData expects just the format suffix (e.g., "jpeg"), not the full MIME type
	parts := []genai.Part{
		genai.ImageData(strings.TrimPrefix(req.MIMEType, "image/"), req.Image),
		genai.Text(req.System + "\n\n" + req.Prompt),
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("%w: generating content: %w", ErrInference, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no response from gemini", ErrInference)
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return responseText.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

package index

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GoogleDefaultEmbeddingModel is used when the configuration names no
// embedding model.
const GoogleDefaultEmbeddingModel = "text-embedding-004"

// GoogleEmbedder embeds query text with Google's embedding API. The indexes
// must have been built with the same embedding model for similarities to be
// meaningful.
type GoogleEmbedder struct {
	client *genai.Client
	model  string
}

// NewGoogleEmbedder creates an embedder authenticated with the given API key.
func NewGoogleEmbedder(ctx context.Context, apiKey, model string) (*GoogleEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding API key cannot be empty")
	}
	if model == "" {
		model = GoogleDefaultEmbeddingModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	return &GoogleEmbedder{client: client, model: model}, nil
}

// Embed returns the embedding vector for the given text.
func (e *GoogleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embedding response contained no vector")
	}

	return resp.Embeddings[0].Values, nil
}

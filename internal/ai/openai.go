package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// embedder is the slice of the go-openai client the OpenAI client needs;
// swapped out in tests.
type embedder interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

type OpenAIClient struct {
	config *ClientConfig
	api    embedder
}

func NewOpenAIClient(config *ClientConfig) *OpenAIClient {
	if config.EmbedModel == "" {
		config.EmbedModel = string(openai.SmallEmbedding3)
	}
	if config.Dim == 0 {
		// Default dimensions per embedding model
		switch openai.EmbeddingModel(config.EmbedModel) {
		case openai.SmallEmbedding3:
			config.Dim = 1536
		case openai.LargeEmbedding3:
			config.Dim = 3072
		case openai.AdaEmbeddingV2:
			config.Dim = 1536
		default:
			config.Dim = 1536
		}
	}

	return &OpenAIClient{
		config: config,
		api:    openai.NewClient(config.APIKey),
	}
}

// Embed implements the embedding functionality
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.config.APIKey == "" {
		return nil, errors.New("PROVIDER_API_KEY unset")
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.config.EmbedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

func (c *OpenAIClient) Dim() int {
	return c.config.Dim
}

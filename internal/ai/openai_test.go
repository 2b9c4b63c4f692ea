package ai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// fakeEmbedder implements the embedder interface for testing
type fakeEmbedder struct {
	CreateEmbeddingsFunc func(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

func (f *fakeEmbedder) CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	if f.CreateEmbeddingsFunc != nil {
		return f.CreateEmbeddingsFunc(ctx, req)
	}
	return openai.EmbeddingResponse{}, nil
}

func TestOpenAIClient_DefaultModels(t *testing.T) {
	tests := []struct {
		name       string
		embedModel string
		wantModel  string
		wantDim    int
	}{
		{"defaults", "", string(openai.SmallEmbedding3), 1536},
		{"large model", string(openai.LargeEmbedding3), string(openai.LargeEmbedding3), 3072},
		{"ada", string(openai.AdaEmbeddingV2), string(openai.AdaEmbeddingV2), 1536},
		{"unknown model falls back", "some-future-model", "some-future-model", 1536},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewOpenAIClient(&ClientConfig{APIKey: "sk-test", EmbedModel: tt.embedModel})
			if c.config.EmbedModel != tt.wantModel {
				t.Errorf("Expected model %q, got %q", tt.wantModel, c.config.EmbedModel)
			}
			if c.Dim() != tt.wantDim {
				t.Errorf("Expected dim %d, got %d", tt.wantDim, c.Dim())
			}
		})
	}
}

func TestOpenAIClient_DimNotOverridden(t *testing.T) {
	c := NewOpenAIClient(&ClientConfig{APIKey: "sk-test", Dim: 256})
	if c.Dim() != 256 {
		t.Errorf("Explicit dim must win, got %d", c.Dim())
	}
}

func TestOpenAIClient_Embed(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		fake    func(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
		want    []float32
		wantErr bool
	}{
		{
			name:    "missing api key",
			apiKey:  "",
			wantErr: true,
		},
		{
			name:   "successful embedding",
			apiKey: "sk-test",
			fake: func(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
				return openai.EmbeddingResponse{
					Data: []openai.Embedding{{Embedding: []float32{0.1, 0.2, 0.3}}},
				}, nil
			},
			want: []float32{0.1, 0.2, 0.3},
		},
		{
			name:   "api error propagates",
			apiKey: "sk-test",
			fake: func(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
				return openai.EmbeddingResponse{}, errors.New("rate limited")
			},
			wantErr: true,
		},
		{
			name:   "empty data",
			apiKey: "sk-test",
			fake: func(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
				return openai.EmbeddingResponse{}, nil
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewOpenAIClient(&ClientConfig{APIKey: tt.apiKey})
			c.api = &fakeEmbedder{CreateEmbeddingsFunc: tt.fake}

			got, err := c.Embed(context.Background(), "Testtext")
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d dims, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Dim %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

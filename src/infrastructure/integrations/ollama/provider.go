package ollama

import (
	"context"
)

// Provider binds a client to an embedding model and a generation model.
// It satisfies the chat core's LLM interface. A single generation model
// is used for answers; retrieval works on embeddings only.
type Provider struct {
	client          *Client
	embeddingModel  string
	generationModel string
}

func NewProvider(client *Client, embeddingModel, generationModel string) *Provider {
	return &Provider{
		client:          client,
		embeddingModel:  embeddingModel,
		generationModel: generationModel,
	}
}

func (p *Provider) Embed(ctx context.Context, credential, text string) ([]float32, error) {
	return p.client.GetEmbedding(ctx, p.embeddingModel, credential, text)
}

func (p *Provider) Generate(ctx context.Context, credential, system, prompt string) (string, error) {
	return p.client.Generate(ctx, p.generationModel, credential, system, prompt, map[string]interface{}{
		"temperature": 0.01,
	})
}

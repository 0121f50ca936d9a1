package weaviate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate/entities/models"

	"docchat/src/core/chat"
	"docchat/src/core/chunk"
)

// Builder builds one Weaviate class per upload batch. Rebuilding a
// session index creates a fresh class; Close drops it.
type Builder struct {
	sdk *SDK
	llm chat.LLM
}

func NewBuilder(sdk *SDK, llm chat.LLM) *Builder {
	return &Builder{
		sdk: sdk,
		llm: llm,
	}
}

func chunkClassName() string {
	return "ChatIndex_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

func (b *Builder) Build(ctx context.Context, sessionID, credential string, chunks []chunk.Chunk) (chat.Index, error) {
	className := chunkClassName()
	properties := []*models.Property{
		{
			Name:        "content",
			DataType:    []string{"text"},
			Description: "The content of the chunk",
		},
		{
			Name:        "source",
			DataType:    []string{"text"},
			Description: "Filename of the source document",
		},
		{
			Name:        "sessionId",
			DataType:    []string{"text"},
			Description: "Session the chunk belongs to",
		},
		{
			Name:        "ord",
			DataType:    []string{"int"},
			Description: "Order of the chunk within the batch",
		},
	}
	if err := b.sdk.CreateSchema(ctx, className, properties); err != nil {
		return nil, fmt.Errorf("failed to initialize class: %w", err)
	}

	objects := make([]VectorObject, 0, len(chunks))
	for _, c := range chunks {
		vector, err := b.llm.Embed(ctx, credential, c.Content)
		if err != nil {
			// Drop the half-built class so a failed batch leaves nothing behind.
			if delErr := b.sdk.DeleteSchema(ctx, className); delErr != nil {
				return nil, fmt.Errorf("failed to embed chunk %d: %v (cleanup also failed: %w)", c.Index, err, delErr)
			}
			return nil, fmt.Errorf("failed to embed chunk %d: %w", c.Index, err)
		}
		objects = append(objects, VectorObject{
			Vector: vector,
			Properties: map[string]interface{}{
				"content":   c.Content,
				"source":    c.Source,
				"sessionId": sessionID,
				"ord":       c.Index,
			},
		})
	}

	if err := b.sdk.BatchAddVectors(ctx, className, objects); err != nil {
		if delErr := b.sdk.DeleteSchema(ctx, className); delErr != nil {
			return nil, fmt.Errorf("failed to store vectors: %v (cleanup also failed: %w)", err, delErr)
		}
		return nil, fmt.Errorf("failed to store vectors: %w", err)
	}

	return &Index{
		sdk:       b.sdk,
		className: className,
		size:      len(objects),
	}, nil
}

// Index is one immutable upload batch stored as a Weaviate class.
type Index struct {
	sdk       *SDK
	className string
	size      int
}

func (idx *Index) Search(ctx context.Context, vector []float32, k int) ([]chat.Hit, error) {
	results, err := idx.sdk.QueryVectors(ctx, idx.className, vector, QueryConfig{
		Fields: []string{"content", "source"},
		Limit:  k,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]chat.Hit, 0, len(results))
	for _, result := range results {
		content, _ := result.Properties["content"].(string)
		source, _ := result.Properties["source"].(string)
		hits = append(hits, chat.Hit{
			Content: content,
			Source:  source,
			Score:   result.Score,
		})
	}
	return hits, nil
}

func (idx *Index) Len() int {
	return idx.size
}

// Close drops the backing class.
func (idx *Index) Close(ctx context.Context) error {
	return idx.sdk.DeleteSchema(ctx, idx.className)
}

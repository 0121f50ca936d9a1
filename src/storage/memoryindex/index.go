// Package memoryindex provides the default per-session similarity
// index: an in-memory flat index with cosine scoring, built once per
// upload batch and immutable afterwards.
package memoryindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"docchat/src/core/chat"
	"docchat/src/core/chunk"
)

type entry struct {
	content string
	source  string
	vector  []float32
}

// Index holds the embedded chunks of one upload batch.
type Index struct {
	entries []entry
}

// Builder embeds chunks and assembles an Index in one batch pass.
type Builder struct {
	llm chat.LLM
}

func NewBuilder(llm chat.LLM) *Builder {
	return &Builder{llm: llm}
}

func (b *Builder) Build(ctx context.Context, sessionID, credential string, chunks []chunk.Chunk) (chat.Index, error) {
	entries := make([]entry, 0, len(chunks))
	for _, c := range chunks {
		vector, err := b.llm.Embed(ctx, credential, c.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %d: %w", c.Index, err)
		}
		entries = append(entries, entry{
			content: c.Content,
			source:  c.Source,
			vector:  vector,
		})
	}
	return &Index{entries: entries}, nil
}

// Search returns the k entries most similar to the query vector by
// cosine similarity, best first.
func (idx *Index) Search(ctx context.Context, vector []float32, k int) ([]chat.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits := make([]chat.Hit, 0, len(idx.entries))
	for _, e := range idx.entries {
		hits = append(hits, chat.Hit{
			Content: e.content,
			Source:  e.source,
			Score:   cosineSimilarity(vector, e.vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (idx *Index) Len() int {
	return len(idx.entries)
}

func (idx *Index) Close(ctx context.Context) error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

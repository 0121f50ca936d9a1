package memoryindex_test

import (
	"context"
	"errors"
	"testing"

	"docchat/src/core/chunk"
	"docchat/src/storage/memoryindex"
)

type vectorLLM struct {
	vectors map[string][]float32
}

func (v *vectorLLM) Embed(ctx context.Context, credential, text string) ([]float32, error) {
	vec, ok := v.vectors[text]
	if !ok {
		return nil, errors.New("no vector for text: " + text)
	}
	return vec, nil
}

func (v *vectorLLM) Generate(ctx context.Context, credential, system, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

func TestSearchReturnsNearestFirst(t *testing.T) {
	llm := &vectorLLM{vectors: map[string][]float32{
		"about the sky":    {1, 0, 0},
		"about the grass":  {0, 1, 0},
		"about the ocean":  {0.9, 0.1, 0},
		"unrelated matter": {0, 0, 1},
	}}

	chunks := []chunk.Chunk{
		{Source: "a.txt", Index: 0, Content: "about the sky"},
		{Source: "a.txt", Index: 1, Content: "about the grass"},
		{Source: "b.txt", Index: 2, Content: "about the ocean"},
		{Source: "b.txt", Index: 3, Content: "unrelated matter"},
	}

	idx, err := memoryindex.NewBuilder(llm).Build(context.Background(), "session", "token", chunks)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if idx.Len() != len(chunks) {
		t.Fatalf("Len() = %d, want %d", idx.Len(), len(chunks))
	}

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("Search() returned %d hits, want 3", len(hits))
	}

	if hits[0].Content != "about the sky" {
		t.Errorf("top hit = %q, want %q", hits[0].Content, "about the sky")
	}
	if hits[1].Content != "about the ocean" {
		t.Errorf("second hit = %q, want %q", hits[1].Content, "about the ocean")
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not ordered by score: %v then %v", hits[i-1].Score, hits[i].Score)
		}
	}
}

func TestSearchSmallerIndexThanK(t *testing.T) {
	llm := &vectorLLM{vectors: map[string][]float32{
		"only entry": {1, 0},
	}}
	chunks := []chunk.Chunk{{Source: "a.txt", Index: 0, Content: "only entry"}}

	idx, err := memoryindex.NewBuilder(llm).Build(context.Background(), "session", "token", chunks)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("Search() returned %d hits, want 1", len(hits))
	}
}

func TestBuildPropagatesEmbeddingFailure(t *testing.T) {
	llm := &vectorLLM{vectors: map[string][]float32{}}
	chunks := []chunk.Chunk{{Source: "a.txt", Index: 0, Content: "no vector"}}

	_, err := memoryindex.NewBuilder(llm).Build(context.Background(), "session", "token", chunks)
	if err == nil {
		t.Fatal("Build() error = nil, want embedding failure")
	}
}

func TestSearchCanceledContext(t *testing.T) {
	llm := &vectorLLM{vectors: map[string][]float32{
		"entry": {1, 0},
	}}
	chunks := []chunk.Chunk{{Source: "a.txt", Index: 0, Content: "entry"}}

	idx, err := memoryindex.NewBuilder(llm).Build(context.Background(), "session", "token", chunks)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Search() error = %v, want context.Canceled", err)
	}
}

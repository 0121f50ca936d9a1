package chat

import (
	"context"
	"fmt"
)

const DefaultTopK = 3

// Chain turns a question into an answer: embed the question, retrieve
// the top-k chunks, assemble the prompt and invoke the generation
// model. Failures propagate unchanged; the chain never retries.
type Chain struct {
	llm  LLM
	topK int
}

func NewChain(llm LLM, topK int) *Chain {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Chain{
		llm:  llm,
		topK: topK,
	}
}

// Answer runs one retrieval-augmented generation turn against the
// given index and transcript. The transcript itself is not modified.
func (c *Chain) Answer(ctx context.Context, credential string, index Index, history []Turn, question string) (string, []Hit, error) {
	vector, err := c.llm.Embed(ctx, credential, question)
	if err != nil {
		return "", nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := index.Search(ctx, vector, c.topK)
	if err != nil {
		return "", nil, fmt.Errorf("failed to search index: %w", err)
	}

	prompt, err := buildPrompt(history, hits, question)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	answer, err := c.llm.Generate(ctx, credential, AnswerSystemMessage, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return answer, hits, nil
}

package chat

import (
	"context"
	"errors"
	"time"

	"docchat/src/core/chunk"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrMissingCredential = errors.New("credential required before documents can be processed")
	ErrAwaitingDocuments = errors.New("no documents have been indexed for this session")
	ErrNoContentIndexed  = errors.New("no content indexed")
)

// State is the macro-state of a session. Questions are only accepted
// once an index has been built.
type State string

const (
	StateAwaitingDocuments State = "awaiting_documents"
	StateReadyForQuestions State = "ready_for_questions"
)

// Turn is one completed question/answer exchange.
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"createdAt"`
}

// Hit is one retrieved chunk with its similarity score.
type Hit struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// LLM provides embeddings and text generation. The session credential
// is forwarded on every call.
type LLM interface {
	Embed(ctx context.Context, credential, text string) ([]float32, error)
	Generate(ctx context.Context, credential, system, prompt string) (string, error)
}

// Index answers top-k nearest-neighbor queries over one upload batch.
// Implementations are immutable once built; a new batch means a new
// index.
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	Len() int
	Close(ctx context.Context) error
}

// IndexBuilder embeds a chunk batch and builds its index in one shot.
type IndexBuilder interface {
	Build(ctx context.Context, sessionID, credential string, chunks []chunk.Chunk) (Index, error)
}

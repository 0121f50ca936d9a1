package chunk

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"

	"docchat/src/core/ingest"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 100
)

// Chunk is one retrieval window with its provenance.
type Chunk struct {
	Source  string `json:"source"`
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// Splitter packs extracted text into overlapping windows. Newlines are
// preferred split points, then spaces, then raw characters, so chunks
// stay within the size bound regardless of input.
type Splitter struct {
	size    int
	overlap int
}

type Option func(*Splitter)

func WithSize(n int) Option {
	return func(s *Splitter) {
		if n > 0 {
			s.size = n
		}
	}
}

func WithOverlap(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.overlap = n
		}
	}
}

func NewSplitter(opts ...Option) *Splitter {
	s := &Splitter{
		size:    DefaultSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Split splits a single text into windows of at most the configured
// size with the configured overlap. Pure and deterministic.
func (s *Splitter) Split(text string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.size),
		textsplitter.WithChunkOverlap(s.overlap),
		textsplitter.WithSeparators([]string{"\n", " ", ""}),
	)
	return splitter.SplitText(text)
}

// SplitSegments splits every segment in order and numbers the resulting
// chunks consecutively across the whole batch.
func (s *Splitter) SplitSegments(segments []ingest.Segment) ([]Chunk, error) {
	var chunks []Chunk
	for _, seg := range segments {
		parts, err := s.Split(seg.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to split segment %d of %s: %w", seg.Index, seg.Source, err)
		}
		for _, part := range parts {
			chunks = append(chunks, Chunk{
				Source:  seg.Source,
				Index:   len(chunks),
				Content: part,
			})
		}
	}
	return chunks, nil
}

package chat

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"docchat/src/core/chunk"
	"docchat/src/core/ingest"
	"docchat/src/infrastructure/log"
)

// UploadFile is one uploaded document: raw bytes plus the original
// filename whose extension selects the loader.
type UploadFile struct {
	Filename string
	Content  []byte
}

// UploadResult reports what one upload batch produced.
type UploadResult struct {
	Indexed []string `json:"indexed"`
	Skipped []string `json:"skipped"`
	Chunks  int      `json:"chunks"`
}

// Archiver stores uploaded originals outside the session, e.g. in an
// object store for later background re-indexing.
type Archiver interface {
	Archive(ctx context.Context, sessionID, filename string, content []byte) error
}

// Service coordinates sessions, ingestion, index building and the
// conversational chain.
type Service struct {
	sessions *Manager
	ingestor *ingest.Ingestor
	splitter *chunk.Splitter
	builder  IndexBuilder
	chain    *Chain
	archiver Archiver
}

type ServiceOption func(*Service)

// WithSplitter overrides the default chunking configuration.
func WithSplitter(s *chunk.Splitter) ServiceOption {
	return func(svc *Service) {
		svc.splitter = s
	}
}

// WithTopK overrides how many chunks are retrieved per question.
// Non-positive values keep the default.
func WithTopK(k int) ServiceOption {
	return func(svc *Service) {
		if k > 0 {
			svc.chain.topK = k
		}
	}
}

// WithArchiver enables archiving of uploaded originals.
func WithArchiver(a Archiver) ServiceOption {
	return func(svc *Service) {
		svc.archiver = a
	}
}

func NewService(builder IndexBuilder, llm LLM, opts ...ServiceOption) *Service {
	svc := &Service{
		sessions: NewManager(),
		ingestor: ingest.NewIngestor(),
		splitter: chunk.NewSplitter(),
		builder:  builder,
		chain:    NewChain(llm, DefaultTopK),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateSession starts a new empty session in AwaitingDocuments state.
func (svc *Service) CreateSession() *Session {
	return svc.sessions.Create()
}

// SetCredential stores the API credential for a session.
func (svc *Service) SetCredential(sessionID, credential string) error {
	s, err := svc.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	s.SetCredential(credential)
	return nil
}

// History returns the session transcript in submission order.
func (svc *Service) History(sessionID string) ([]Turn, error) {
	s, err := svc.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.History(), nil
}

// SessionState returns the macro-state of a session.
func (svc *Service) SessionState(sessionID string) (State, error) {
	s, err := svc.sessions.Get(sessionID)
	if err != nil {
		return "", err
	}
	return s.State(), nil
}

// SessionCount returns the number of live sessions.
func (svc *Service) SessionCount() int {
	return svc.sessions.Len()
}

// DeleteSession destroys a session and its index.
func (svc *Service) DeleteSession(ctx context.Context, sessionID string) error {
	return svc.sessions.Delete(ctx, sessionID)
}

// UploadDocuments ingests a batch of files, chunks and embeds their
// text and builds the session index. A later batch replaces the index;
// history is preserved. Unsupported extensions are skipped and
// reported, a parse failure aborts the whole batch, and a batch that
// yields no text at all is rejected with ErrNoContentIndexed.
func (svc *Service) UploadDocuments(ctx context.Context, sessionID string, files []UploadFile) (*UploadResult, error) {
	s, err := svc.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.credential == "" {
		return nil, ErrMissingCredential
	}

	result := &UploadResult{}
	var segments []ingest.Segment
	for _, f := range files {
		if !svc.ingestor.Supports(f.Filename) {
			result.Skipped = append(result.Skipped, f.Filename)
			continue
		}
		segs, err := svc.ingestor.Ingest(ctx, f.Filename, bytes.NewReader(f.Content))
		if err != nil {
			return nil, err
		}
		segments = append(segments, segs...)
		result.Indexed = append(result.Indexed, f.Filename)
	}

	chunks, err := svc.splitter.SplitSegments(segments)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoContentIndexed
	}
	result.Chunks = len(chunks)

	index, err := svc.builder.Build(ctx, s.ID, s.credential, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	if s.index != nil {
		if err := s.index.Close(ctx); err != nil {
			log.Error(err, "failed to release previous index", "session", s.ID)
		}
	}
	s.index = index
	s.state = StateReadyForQuestions

	if svc.archiver != nil {
		for _, f := range files {
			if !svc.ingestor.Supports(f.Filename) {
				continue
			}
			if err := svc.archiver.Archive(ctx, s.ID, f.Filename, f.Content); err != nil {
				log.Error(err, "failed to archive upload", "session", s.ID, "filename", f.Filename)
			}
		}
	}

	return result, nil
}

// Ask answers one question against the session index. On success the
// turn is appended to the transcript; on failure the transcript is
// left untouched.
func (svc *Service) Ask(ctx context.Context, sessionID, question string) (*Turn, error) {
	s, err := svc.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.credential == "" {
		return nil, ErrMissingCredential
	}
	if s.state != StateReadyForQuestions || s.index == nil {
		return nil, ErrAwaitingDocuments
	}

	answer, _, err := svc.chain.Answer(ctx, s.credential, s.index, s.history, question)
	if err != nil {
		return nil, err
	}

	turn := Turn{
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now().UTC(),
	}
	s.history = append(s.history, turn)
	return &turn, nil
}

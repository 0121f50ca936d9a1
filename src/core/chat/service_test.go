package chat_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"docchat/src/core/chat"
	"docchat/src/core/chunk"
)

type fakeLLM struct {
	mu          sync.Mutex
	embedErr    error
	generateErr error
	generated   int
	lastPrompt  string
	lastSystem  string
}

func (f *fakeLLM) Embed(ctx context.Context, credential, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeLLM) Generate(ctx context.Context, credential, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generateErr != nil {
		return "", f.generateErr
	}
	f.generated++
	f.lastSystem = system
	f.lastPrompt = prompt
	return fmt.Sprintf("answer %d", f.generated), nil
}

type fakeIndex struct {
	chunks []chunk.Chunk
	closed bool
	lastK  int
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, k int) ([]chat.Hit, error) {
	f.lastK = k
	hits := make([]chat.Hit, 0, k)
	for i, c := range f.chunks {
		if i >= k {
			break
		}
		hits = append(hits, chat.Hit{Content: c.Content, Source: c.Source, Score: 1})
	}
	return hits, nil
}

func (f *fakeIndex) Len() int { return len(f.chunks) }

func (f *fakeIndex) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

type fakeBuilder struct {
	built []*fakeIndex
	err   error
}

func (f *fakeBuilder) Build(ctx context.Context, sessionID, credential string, chunks []chunk.Chunk) (chat.Index, error) {
	if f.err != nil {
		return nil, f.err
	}
	idx := &fakeIndex{chunks: chunks}
	f.built = append(f.built, idx)
	return idx, nil
}

func newTestService(llm *fakeLLM, builder *fakeBuilder) *chat.Service {
	return chat.NewService(builder, llm)
}

func textUpload(name, content string) chat.UploadFile {
	return chat.UploadFile{Filename: name, Content: []byte(content)}
}

func TestUploadRequiresCredential(t *testing.T) {
	svc := newTestService(&fakeLLM{}, &fakeBuilder{})
	s := svc.CreateSession()

	_, err := svc.UploadDocuments(context.Background(), s.ID, []chat.UploadFile{
		textUpload("notes.txt", "The sky is blue."),
	})
	if !errors.Is(err, chat.ErrMissingCredential) {
		t.Errorf("UploadDocuments() error = %v, want ErrMissingCredential", err)
	}
}

func TestAskBeforeUpload(t *testing.T) {
	svc := newTestService(&fakeLLM{}, &fakeBuilder{})
	s := svc.CreateSession()
	if err := svc.SetCredential(s.ID, "token"); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}

	_, err := svc.Ask(context.Background(), s.ID, "What color is the sky?")
	if !errors.Is(err, chat.ErrAwaitingDocuments) {
		t.Errorf("Ask() error = %v, want ErrAwaitingDocuments", err)
	}
}

func TestUnknownSession(t *testing.T) {
	svc := newTestService(&fakeLLM{}, &fakeBuilder{})

	_, err := svc.Ask(context.Background(), "nope", "hello?")
	if !errors.Is(err, chat.ErrSessionNotFound) {
		t.Errorf("Ask() error = %v, want ErrSessionNotFound", err)
	}
	if err := svc.SetCredential("nope", "token"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Errorf("SetCredential() error = %v, want ErrSessionNotFound", err)
	}
}

func TestUploadSkipsUnsupportedFiles(t *testing.T) {
	svc := newTestService(&fakeLLM{}, &fakeBuilder{})
	s := svc.CreateSession()
	if err := svc.SetCredential(s.ID, "token"); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}

	result, err := svc.UploadDocuments(context.Background(), s.ID, []chat.UploadFile{
		textUpload("notes.txt", "The sky is blue.\nGrass is green."),
		textUpload("data.csv", "a,b,c"),
	})
	if err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}

	if len(result.Indexed) != 1 || result.Indexed[0] != "notes.txt" {
		t.Errorf("Indexed = %v, want [notes.txt]", result.Indexed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "data.csv" {
		t.Errorf("Skipped = %v, want [data.csv]", result.Skipped)
	}
	if result.Chunks == 0 {
		t.Error("Chunks = 0, want > 0")
	}
}

func TestUploadAllUnsupported(t *testing.T) {
	svc := newTestService(&fakeLLM{}, &fakeBuilder{})
	s := svc.CreateSession()
	if err := svc.SetCredential(s.ID, "token"); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}

	_, err := svc.UploadDocuments(context.Background(), s.ID, []chat.UploadFile{
		textUpload("data.csv", "a,b,c"),
		textUpload("image.png", "not really an image"),
	})
	if !errors.Is(err, chat.ErrNoContentIndexed) {
		t.Errorf("UploadDocuments() error = %v, want ErrNoContentIndexed", err)
	}

	state, err := svc.SessionState(s.ID)
	if err != nil {
		t.Fatalf("SessionState() error = %v", err)
	}
	if state != chat.StateAwaitingDocuments {
		t.Errorf("state = %v, want %v", state, chat.StateAwaitingDocuments)
	}
}

func TestAskAppendsHistoryInOrder(t *testing.T) {
	llm := &fakeLLM{}
	svc := newTestService(llm, &fakeBuilder{})
	s := svc.CreateSession()
	if err := svc.SetCredential(s.ID, "token"); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}

	ctx := context.Background()
	if _, err := svc.UploadDocuments(ctx, s.ID, []chat.UploadFile{
		textUpload("notes.txt", "The sky is blue.\nGrass is green."),
	}); err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}

	questions := []string{"first?", "second?", "third?"}
	for _, q := range questions {
		if _, err := svc.Ask(ctx, s.ID, q); err != nil {
			t.Fatalf("Ask(%q) error = %v", q, err)
		}
	}

	history, err := svc.History(s.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != len(questions) {
		t.Fatalf("History() has %d turns, want %d", len(history), len(questions))
	}
	for i, turn := range history {
		if turn.Question != questions[i] {
			t.Errorf("turn %d question = %q, want %q", i, turn.Question, questions[i])
		}
		wantAnswer := fmt.Sprintf("answer %d", i+1)
		if turn.Answer != wantAnswer {
			t.Errorf("turn %d answer = %q, want %q", i, turn.Answer, wantAnswer)
		}
	}
}

func TestFailedTurnLeavesHistoryUntouched(t *testing.T) {
	llm := &fakeLLM{}
	svc := newTestService(llm, &fakeBuilder{})
	s := svc.CreateSession()
	if err := svc.SetCredential(s.ID, "token"); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}

	ctx := context.Background()
	if _, err := svc.UploadDocuments(ctx, s.ID, []chat.UploadFile{
		textUpload("notes.txt", "The sky is blue."),
	}); err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}

	if _, err := svc.Ask(ctx, s.ID, "works?"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	llm.generateErr = errors.New("model endpoint exploded")
	if _, err := svc.Ask(ctx, s.ID, "fails?"); err == nil {
		t.Fatal("Ask() error = nil, want generation failure")
	}

	history, err := svc.History(s.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("History() has %d turns after failure, want 1", len(history))
	}
	if history[0].Question != "works?" {
		t.Errorf("remaining turn question = %q, want %q", history[0].Question, "works?")
	}
}

func TestReuploadReplacesIndexKeepsHistory(t *testing.T) {
	llm := &fakeLLM{}
	builder := &fakeBuilder{}
	svc := newTestService(llm, builder)
	s := svc.CreateSession()
	if err := svc.SetCredential(s.ID, "token"); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}

	ctx := context.Background()
	if _, err := svc.UploadDocuments(ctx, s.ID, []chat.UploadFile{
		textUpload("first.txt", "The sky is blue."),
	}); err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}
	if _, err := svc.Ask(ctx, s.ID, "about the first batch?"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if _, err := svc.UploadDocuments(ctx, s.ID, []chat.UploadFile{
		textUpload("second.txt", "Grass is green."),
	}); err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}

	if len(builder.built) != 2 {
		t.Fatalf("builder built %d indexes, want 2", len(builder.built))
	}
	if !builder.built[0].closed {
		t.Error("first index was not closed on re-upload")
	}
	if builder.built[1].closed {
		t.Error("second index was closed prematurely")
	}

	history, err := svc.History(s.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 {
		t.Errorf("History() has %d turns after re-upload, want 1", len(history))
	}

	if _, err := svc.Ask(ctx, s.ID, "about the second batch?"); err != nil {
		t.Fatalf("Ask() after re-upload error = %v", err)
	}
	if !strings.Contains(llm.lastPrompt, "Grass is green.") {
		t.Errorf("prompt after re-upload does not contain new content: %q", llm.lastPrompt)
	}
}

func TestPromptContainsExcerptsHistoryAndQuestion(t *testing.T) {
	llm := &fakeLLM{}
	svc := newTestService(llm, &fakeBuilder{})
	s := svc.CreateSession()
	if err := svc.SetCredential(s.ID, "token"); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}

	ctx := context.Background()
	if _, err := svc.UploadDocuments(ctx, s.ID, []chat.UploadFile{
		textUpload("notes.txt", "The sky is blue."),
	}); err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}

	if _, err := svc.Ask(ctx, s.ID, "What color is the sky?"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if _, err := svc.Ask(ctx, s.ID, "And the grass?"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	prompt := llm.lastPrompt
	for _, want := range []string{
		"[notes.txt]",
		"The sky is blue.",
		"What color is the sky?",
		"answer 1",
		"And the grass?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if llm.lastSystem != chat.AnswerSystemMessage {
		t.Errorf("system message = %q, want AnswerSystemMessage", llm.lastSystem)
	}
}

func TestTopKOptionIgnoresNonPositive(t *testing.T) {
	builder := &fakeBuilder{}
	svc := chat.NewService(builder, &fakeLLM{}, chat.WithTopK(0))
	s := svc.CreateSession()
	if err := svc.SetCredential(s.ID, "token"); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}

	ctx := context.Background()
	if _, err := svc.UploadDocuments(ctx, s.ID, []chat.UploadFile{
		textUpload("notes.txt", "The sky is blue."),
	}); err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}
	if _, err := svc.Ask(ctx, s.ID, "how many chunks?"); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if got := builder.built[0].lastK; got != chat.DefaultTopK {
		t.Errorf("search k = %d, want default %d", got, chat.DefaultTopK)
	}
}

func TestDeleteSessionClosesIndex(t *testing.T) {
	builder := &fakeBuilder{}
	svc := newTestService(&fakeLLM{}, builder)
	s := svc.CreateSession()
	if err := svc.SetCredential(s.ID, "token"); err != nil {
		t.Fatalf("SetCredential() error = %v", err)
	}

	ctx := context.Background()
	if _, err := svc.UploadDocuments(ctx, s.ID, []chat.UploadFile{
		textUpload("notes.txt", "The sky is blue."),
	}); err != nil {
		t.Fatalf("UploadDocuments() error = %v", err)
	}

	if err := svc.DeleteSession(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if len(builder.built) != 1 || !builder.built[0].closed {
		t.Error("index was not closed on session delete")
	}
	if _, err := svc.History(s.ID); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Errorf("History() after delete error = %v, want ErrSessionNotFound", err)
	}
}

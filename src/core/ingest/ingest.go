package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"docchat/src/infrastructure/log"
)

// Segment is one extracted piece of text with its provenance. PDF files
// yield one segment per page, other formats a single segment.
type Segment struct {
	Source  string `json:"source"`
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// Ingestor extracts text segments from uploaded document files.
type Ingestor struct{}

func NewIngestor() *Ingestor {
	return &Ingestor{}
}

// Supports reports whether the file's extension has a loader.
func (ing *Ingestor) Supports(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".doc", ".txt":
		return true
	}
	return false
}

// Ingest extracts the text segments of one uploaded file. The upload is
// spooled to a temporary file which is removed on every exit path. An
// unsupported extension yields an empty segment list and no error; a
// parse failure is returned to the caller.
func (ing *Ingestor) Ingest(ctx context.Context, filename string, r io.Reader) ([]Segment, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !ing.Supports(filename) {
		log.Info("skipping unsupported file format", "filename", filename, "extension", ext)
		return nil, nil
	}

	tmp, err := os.CreateTemp("", "docchat-upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to spool upload %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	var texts []string
	switch ext {
	case ".pdf":
		texts, err = extractPDF(ctx, path)
	case ".docx", ".doc":
		texts, err = extractDOCX(path)
	case ".txt":
		texts, err = extractPlain(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", filename, err)
	}

	segments := make([]Segment, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		segments = append(segments, Segment{
			Source:  filename,
			Index:   len(segments),
			Content: text,
		})
	}

	return segments, nil
}

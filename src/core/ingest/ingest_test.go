package ingest_test

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"docchat/src/core/ingest"
)

func TestSupports(t *testing.T) {
	ing := ingest.NewIngestor()

	tests := []struct {
		filename string
		want     bool
	}{
		{"report.pdf", true},
		{"report.PDF", true},
		{"letter.docx", true},
		{"letter.doc", true},
		{"notes.txt", true},
		{"data.csv", false},
		{"image.png", false},
		{"noextension", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := ing.Supports(tt.filename); got != tt.want {
				t.Errorf("Supports(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestIngestPlainText(t *testing.T) {
	ing := ingest.NewIngestor()

	content := "The sky is blue.\nGrass is green.\n"
	segments, err := ing.Ingest(context.Background(), "notes.txt", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("Ingest() returned %d segments, want 1", len(segments))
	}
	if segments[0].Source != "notes.txt" {
		t.Errorf("segment source = %q, want %q", segments[0].Source, "notes.txt")
	}
	if segments[0].Content != content {
		t.Errorf("segment content = %q, want %q", segments[0].Content, content)
	}
}

func TestIngestUnsupportedFormat(t *testing.T) {
	ing := ingest.NewIngestor()

	segments, err := ing.Ingest(context.Background(), "data.csv", strings.NewReader("a,b,c"))
	if err != nil {
		t.Fatalf("Ingest() error = %v, want nil for unsupported format", err)
	}
	if len(segments) != 0 {
		t.Errorf("Ingest() returned %d segments for unsupported format, want 0", len(segments))
	}
}

func TestIngestEmptyTextFile(t *testing.T) {
	ing := ingest.NewIngestor()

	segments, err := ing.Ingest(context.Background(), "empty.txt", strings.NewReader("   \n \t\n"))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("Ingest() returned %d segments for whitespace-only file, want 0", len(segments))
	}
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatalf("failed to create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatalf("failed to write zip entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func TestIngestDocx(t *testing.T) {
	ing := ingest.NewIngestor()

	documentXML := `<?xml version="1.0"?>
<w:document><w:body>
<w:p><w:r><w:t>The sky is blue.</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Grass is </w:t></w:r><w:r><w:t>green.</w:t></w:r></w:p>
</w:body></w:document>`

	segments, err := ing.Ingest(context.Background(), "notes.docx", bytes.NewReader(buildDocx(t, documentXML)))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("Ingest() returned %d segments, want 1", len(segments))
	}

	content := segments[0].Content
	if !strings.Contains(content, "The sky is blue.") {
		t.Errorf("content missing first paragraph: %q", content)
	}
	if !strings.Contains(content, "Grass is green.") {
		t.Errorf("content missing joined runs of second paragraph: %q", content)
	}

	first := strings.Index(content, "The sky is blue.")
	second := strings.Index(content, "Grass is green.")
	between := content[first+len("The sky is blue.") : second]
	if !strings.Contains(between, "\n") {
		t.Errorf("paragraphs not separated by newline: %q", content)
	}
}

func TestIngestDocxUnescapesEntities(t *testing.T) {
	ing := ingest.NewIngestor()

	documentXML := `<?xml version="1.0"?>
<w:document><w:body>
<w:p><w:r><w:t>Profit &amp; loss: revenue &lt; costs.</w:t></w:r></w:p>
</w:body></w:document>`

	segments, err := ing.Ingest(context.Background(), "report.docx", bytes.NewReader(buildDocx(t, documentXML)))
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("Ingest() returned %d segments, want 1", len(segments))
	}

	want := "Profit & loss: revenue < costs."
	if !strings.Contains(segments[0].Content, want) {
		t.Errorf("content = %q, want it to contain %q", segments[0].Content, want)
	}
}

func TestIngestCorruptDocx(t *testing.T) {
	ing := ingest.NewIngestor()

	_, err := ing.Ingest(context.Background(), "broken.docx", strings.NewReader("this is not a zip archive"))
	if err == nil {
		t.Fatal("Ingest() error = nil, want parse failure for corrupt docx")
	}
}

package ingest

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// extractPlain reads a text file as a single entry. Invalid UTF-8 bytes
// are replaced rather than rejected.
func extractPlain(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if !utf8.Valid(content) {
		return []string{strings.ToValidUTF8(string(content), "�")}, nil
	}
	return []string{string(content)}, nil
}

package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the main document body inside a .docx package.
const docxDocumentXMLPath = "word/document.xml"

// wtTag matches <w:t>text</w:t> including variants with attributes such
// as <w:t xml:space="preserve">.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// extractDOCX reads the OOXML package at path and returns its body text
// as a single entry. Paragraph boundaries become newlines so downstream
// splitting on "\n" keeps paragraphs together.
func extractDOCX(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("not an OOXML package: %w", err)
	}
	defer zr.Close()

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docxDocumentXMLPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		break
	}
	if docXML == nil {
		return nil, fmt.Errorf("%s not found in package", docxDocumentXMLPath)
	}

	// One line of output per <w:p> paragraph; text nodes within a
	// paragraph are joined directly since runs split mid-word.
	var b strings.Builder
	for _, para := range bytes.Split(docXML, []byte("</w:p>")) {
		matches := wtTag.FindAllSubmatch(para, -1)
		if len(matches) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		for _, m := range matches {
			// Text nodes carry XML entities for &, < and >.
			b.WriteString(html.UnescapeString(string(m[1])))
		}
	}

	return []string{b.String()}, nil
}

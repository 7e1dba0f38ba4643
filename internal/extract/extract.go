// Package extract turns uploaded course material files into plain text so
// they can be chunked and embedded.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor extracts plain text from course material files. Supported
// formats: plain text (.txt, .md, .rst), PDF, DOCX, XLSX, PPTX, ODP, ODS.
// Unknown extensions are read as plain text; the corpus source filters
// extensions before extraction.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.FromBytes(content, filepath.Ext(path))
}

// FromBytes extracts text from content. ext selects the format and includes
// the leading dot.
func (e *Extractor) FromBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return pdfText(content)
	case ".docx":
		return docxText(content)
	case ".xlsx":
		return xlsxText(content)
	case ".pptx":
		return pptxText(content)
	case ".odp":
		return odpText(content)
	case ".ods":
		return odsText(content)
	default:
		return plainText(content), nil
	}
}

// plainText returns content as a string, replacing invalid UTF-8 sequences
// so downstream JSON encoding never fails.
func plainText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return strings.ToValidUTF8(string(content), "�")
}

package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PlainTextSource extracts text from plain-text and Markdown files by
// reading them verbatim. Richer formats (PDF, DOCX) are out of scope per
// spec §6 and are plugged in by registering another TextSource.
type PlainTextSource struct {
	Extensions map[string]struct{}
}

// NewPlainTextSource builds a PlainTextSource handling the given
// extensions (e.g. ".md", ".txt"), matched case-insensitively.
func NewPlainTextSource(extensions []string) *PlainTextSource {
	m := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		m[strings.ToLower(ext)] = struct{}{}
	}
	return &PlainTextSource{Extensions: m}
}

// CanHandle implements TextSource.
func (s *PlainTextSource) CanHandle(path string) bool {
	_, ok := s.Extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract implements TextSource by reading the file as UTF-8 text. Binary
// files (a NUL byte in the first block, the teacher's scanner heuristic)
// are rejected rather than silently garbled into the chunker.
func (s *PlainTextSource) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if isBinary(data) {
		return "", fmt.Errorf("ingest: %s looks binary, not text", path)
	}
	return string(data), nil
}

var _ TextSource = (*PlainTextSource)(nil)

// isBinary reports whether the first block of data contains a NUL byte,
// the same heuristic the teacher's scanner uses to skip binary files.
func isBinary(data []byte) bool {
	n := len(data)
	if n > 512 {
		n = 512
	}
	return bytes.Contains(data[:n], []byte{0})
}

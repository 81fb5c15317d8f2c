package extract

import (
	"context"
	"os"
	"unicode/utf8"
)

// Text reads UTF-8 plain text files as a single span.
type Text struct{}

// NewText returns a plain-text extractor.
func NewText() *Text {
	return &Text{}
}

// Extract implements Extractor.
func (t *Text) Extract(_ context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, errInvalidUTF8
	}
	return []string{string(data)}, nil
}

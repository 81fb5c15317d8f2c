// Package extract turns source documents into ordered paragraph-like text spans.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrUnsupported is returned for files whose extension has no extractor.
	ErrUnsupported = errors.New("unsupported document type")
	// ErrExtraction wraps any failure to read or decode a document.
	ErrExtraction = errors.New("extraction failed")

	errInvalidUTF8 = errors.New("file is not valid UTF-8")
)

// Extractor produces the text spans of one document.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// Registry dispatches extraction by lower-cased file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Extractor)}
}

// DefaultRegistry wires the built-in extractors: plain text, Markdown and PDF.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewText(), ".txt", ".text")
	r.Register(NewMarkdown(), ".md", ".markdown")
	r.Register(NewPDF(nil), ".pdf")
	return r
}

// Register binds an extractor to one or more extensions, replacing any
// previous binding.
func (r *Registry) Register(e Extractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Supports reports whether ext (with leading dot) has an extractor.
func (r *Registry) Supports(ext string) bool {
	_, ok := r.byExt[strings.ToLower(ext)]
	return ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract runs the extractor registered for path's extension. Failures are
// wrapped with ErrExtraction so callers can skip the document.
func (r *Registry) Extract(ctx context.Context, path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	spans, err := e.Extract(ctx, path)
	if err != nil {
		if errors.Is(err, ErrExtraction) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrExtraction, path, err)
	}
	return spans, nil
}

package extract

import (
	"bytes"
	"context"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown extracts one span per block (heading, paragraph, list item text,
// code block) from a Markdown document, dropping the markup around them.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown returns a Markdown extractor backed by goldmark's CommonMark parser.
func NewMarkdown() *Markdown {
	return &Markdown{md: goldmark.New()}
}

// Extract implements Extractor.
func (m *Markdown) Extract(_ context.Context, path string) ([]string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return m.blocks(src)
}

func (m *Markdown) blocks(src []byte) ([]string, error) {
	doc := m.md.Parser().Parse(text.NewReader(src))

	var spans []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindParagraph, ast.KindTextBlock,
			ast.KindFencedCodeBlock, ast.KindCodeBlock:
			if s := blockText(n, src); s != "" {
				spans = append(spans, s)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return spans, nil
}

func blockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := seg.Value(src)
		buf.Write(line)
		if !bytes.HasSuffix(line, []byte("\n")) {
			buf.WriteByte('\n')
		}
	}
	return string(bytes.TrimSpace(buf.Bytes()))
}

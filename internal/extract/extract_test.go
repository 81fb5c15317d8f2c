package extract

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.args = append([]string{name}, args...)
	return m.output, m.err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestText_Extract(t *testing.T) {
	path := writeFile(t, "notes.txt", "hello\n\nworld\n")

	spans, err := NewText().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello\n\nworld\n"}, spans)
}

func TestText_InvalidUTF8(t *testing.T) {
	path := writeFile(t, "bin.txt", string([]byte{0xff, 0xfe, 0xfd}))

	_, err := NewText().Extract(context.Background(), path)
	assert.ErrorIs(t, err, errInvalidUTF8)
}

func TestMarkdown_Extract(t *testing.T) {
	src := "# Getting started\n\nInstall the CLI via the\npackage manager.\n\n- first item\n- second item\n\n```sh\ntool init\n```\n"
	path := writeFile(t, "guide.md", src)

	spans, err := NewMarkdown().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Getting started",
		"Install the CLI via the\npackage manager.",
		"first item",
		"second item",
		"tool init",
	}, spans)
}

func TestPDF_ExtractSplitsPages(t *testing.T) {
	runner := &mockRunner{output: []byte("page one\n\f\fpage two\n\f")}

	spans, err := NewPDF(runner).Extract(context.Background(), "/docs/spec.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"page one\n", "page two\n"}, spans)
	assert.Equal(t, []string{"pdftotext", "-enc", "UTF-8", "/docs/spec.pdf", "-"}, runner.args)
}

func TestPDF_MissingBinary(t *testing.T) {
	runner := &mockRunner{err: exec.ErrNotFound}

	_, err := NewPDF(runner).Extract(context.Background(), "/docs/spec.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, exec.ErrNotFound)
	assert.Contains(t, err.Error(), "poppler")
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestRegistry_Dispatch(t *testing.T) {
	r := DefaultRegistry()

	assert.True(t, r.Supports(".PDF"))
	assert.True(t, r.Supports(".md"))
	assert.False(t, r.Supports(".docx"))
	assert.Equal(t, []string{".markdown", ".md", ".pdf", ".text", ".txt"}, r.Extensions())

	path := writeFile(t, "README.TXT", "body")
	spans, err := r.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"body"}, spans)
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extract(context.Background(), "/tmp/file.docx")
	assert.ErrorIs(t, err, ErrUnsupported)

	cause := errors.New("corrupt xref table")
	r.Register(NewPDF(&mockRunner{err: cause}), ".pdf")
	_, err = r.Extract(context.Background(), "/tmp/broken.pdf")
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, cause)

	r.Register(NewText(), ".txt")
	_, err = r.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

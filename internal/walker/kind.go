package walker

import (
	"path/filepath"
	"strings"
)

var extensionToKind = map[string]string{
	".pdf":      "PDF",
	".md":       "Markdown",
	".markdown": "Markdown",
	".txt":      "Text",
	".text":     "Text",
}

// DetectKind returns a display name for a document's type based on its
// extension, or "unknown".
func DetectKind(filename string) string {
	if kind, ok := extensionToKind[strings.ToLower(filepath.Ext(filename))]; ok {
		return kind
	}
	return "unknown"
}

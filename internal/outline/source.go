package outline

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Source converts an exported document into an outline snapshot.
type Source interface {
	Build(r io.Reader, name string) (*Document, error)
}

// SupportedExtensions lists export formats a snapshot can be built from.
var SupportedExtensions = map[string]bool{
	".html":     true,
	".htm":      true,
	".md":       true,
	".markdown": true,
	".docx":     true,
}

// ForFile returns the appropriate source for a filename.
func ForFile(name string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".html", ".htm":
		return &HTMLSource{}, nil
	case ".md", ".markdown":
		return &MarkdownSource{}, nil
	case ".docx":
		return &DOCXSource{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupported checks whether a filename has a supported extension.
func IsSupported(name string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Load builds the snapshot for a file using the source matching its
// extension.
func Load(r io.Reader, name string) (*Document, error) {
	src, err := ForFile(name)
	if err != nil {
		return nil, err
	}
	return src.Build(r, name)
}

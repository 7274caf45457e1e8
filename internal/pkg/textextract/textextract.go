// Package textextract turns uploaded files into plain text with page and
// word counts.
package textextract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoText          = errors.New("no extractable text")
)

type Result struct {
	Text      string
	PageCount int
	WordCount int
}

// Extractor reads the file at path. fileType is the lower-case extension.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path, fileType string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		text  string
		pages int
		err   error
	)
	switch fileType {
	case "pdf":
		text, pages, err = extractPDF(path)
	case "docx":
		text, pages, err = extractDOCX(path)
	case "txt", "md":
		text, pages, err = extractPlain(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, fileType)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s text failed: %w", fileType, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}
	return &Result{
		Text:      text,
		PageCount: pages,
		WordCount: CountWords(text),
	}, nil
}

func CountWords(text string) int {
	return len(strings.Fields(text))
}

func extractPlain(path string) (string, int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	return string(b), 1, nil
}

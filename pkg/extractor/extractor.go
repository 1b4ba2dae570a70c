// Package extractor converts uploaded documents into plain text annotated
// with page markers of the form "--- PAGE <n> ---". PDF extraction is an
// external collaborator implementing the same interface; this package covers
// plain-text and HTML uploads.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/legallens/legallens/internal/types"
)

// PageMarker formats the marker inserted before each page's text.
func PageMarker(page int) string {
	return fmt.Sprintf("--- PAGE %d ---", page)
}

// ForFile picks an extractor implementation by file extension.
func ForFile(name string) types.Extractor {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return &HTML{}
	default:
		return &Text{}
	}
}

// Text extracts plain-text uploads. Form feeds are treated as page breaks;
// text that already carries page markers is passed through untouched.
type Text struct{}

func (t *Text) Extract(_ context.Context, name string, data []byte) (string, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: no text in %s", types.ErrExtractionFailed, name)
	}

	if strings.Contains(text, "--- PAGE ") {
		return text, nil
	}

	pages := strings.Split(text, "\f")
	var b strings.Builder
	page := 0
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		page++
		if page > 1 {
			b.WriteString("\n\n")
		}
		b.WriteString(PageMarker(page))
		b.WriteString(" ")
		b.WriteString(p)
	}

	if page == 0 {
		return "", fmt.Errorf("%w: no text in %s", types.ErrExtractionFailed, name)
	}

	return b.String(), nil
}

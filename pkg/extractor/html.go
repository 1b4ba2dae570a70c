package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/legallens/legallens/internal/types"
)

// HTML extracts the readable text of an HTML upload. HTML has no page
// structure, so the whole document lands on page 1.
type HTML struct{}

func (h *HTML) Extract(_ context.Context, name string, data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: parsing %s: %v", types.ErrExtractionFailed, name, err)
	}

	doc.Find("script, style, nav, header, footer, noscript").Remove()

	var parts []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, td, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	// Fall back to the body text when the document has no block elements
	if len(parts) == 0 {
		if t := strings.TrimSpace(doc.Find("body").Text()); t != "" {
			parts = append(parts, t)
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no text in %s", types.ErrExtractionFailed, name)
	}

	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	return PageMarker(1) + " " + text, nil
}

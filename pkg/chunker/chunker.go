// Package chunker splits extracted document text into bounded-size chunks
// suitable for embedding, carrying forward the page markers inserted by the
// extractor.
package chunker

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/legallens/legallens/internal/models"
	"github.com/legallens/legallens/internal/types"
)

var pageMarkerRe = regexp.MustCompile(`--- PAGE (\d+) ---`)

type Chunker struct {
	maxChunkSize int
}

func New(maxChunkSize int) *Chunker {
	return &Chunker{maxChunkSize: maxChunkSize}
}

// Chunk splits text into consecutive chunks of at most maxChunkSize
// characters. Page markers stay inside chunk content; each chunk records the
// page in effect at its start. Text without markers lands on page 1.
func (c *Chunker) Chunk(text string) ([]models.Chunk, error) {
	return Split(text, c.maxChunkSize)
}

// Split is the underlying chunking function. It never drops trailing
// content and never produces an empty chunk; the final chunk may be shorter
// than maxChunkSize.
func Split(text string, maxChunkSize int) ([]models.Chunk, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", types.ErrInvalidInput)
	}
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: maxChunkSize must be positive, got %d", types.ErrInvalidInput, maxChunkSize)
	}

	runes := []rune(text)

	// Marker positions in rune offsets, in document order. Matches arrive in
	// increasing byte order, so one forward pass converts the offsets.
	type marker struct {
		start int
		page  int
	}
	var markers []marker
	byteOff, runeOff := 0, 0
	for _, m := range pageMarkerRe.FindAllStringSubmatchIndex(text, -1) {
		page, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		runeOff += utf8.RuneCountInString(text[byteOff:m[0]])
		byteOff = m[0]
		markers = append(markers, marker{start: runeOff, page: page})
	}

	var chunks []models.Chunk
	next := 0 // next marker to pass
	page := 1

	for start := 0; start < len(runes); start += maxChunkSize {
		end := start + maxChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		// Advance to the last marker beginning at or before this chunk's start
		for next < len(markers) && markers[next].start <= start {
			page = markers[next].page
			next++
		}

		chunks = append(chunks, models.Chunk{
			Content:       string(runes[start:end]),
			PageNumber:    page,
			SequenceIndex: len(chunks),
		})
	}

	return chunks, nil
}

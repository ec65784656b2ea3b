package ingest

import (
	"math"
	"regexp"
	"strings"

	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/extractor"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
)

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// ChunkDraft is an unpersisted chunk produced by the chunker.
type ChunkDraft struct {
	Text       string
	PageNumber *int
	TokenCount int
}

// Chunker accumulates paragraphs into chunks bounded by a token
// budget. Each chunk is tagged with the page number of its first
// paragraph.
type Chunker struct {
	chunkSize  int
	multiplier float64
}

func NewChunker(chunkSize int, multiplier float64) *Chunker {
	if multiplier <= 0 {
		multiplier = 1.3
	}
	return &Chunker{chunkSize: chunkSize, multiplier: multiplier}
}

// EstimateTokens approximates the token count of a text as word count
// times a fixed multiplier. An estimate only, never exact.
func (c *Chunker) EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Round(float64(words) * c.multiplier))
}

// Chunk splits page texts into paragraph-aligned chunks. When no page
// list is available the full text is treated as a single unnumbered
// page. A document yielding zero paragraphs is an error, never an
// empty chunk list.
func (c *Chunker) Chunk(fullText string, pages []extractor.Page) ([]ChunkDraft, error) {
	if len(pages) == 0 {
		pages = []extractor.Page{{Text: fullText, Number: 0}}
	}

	var chunks []ChunkDraft
	var buf strings.Builder
	var bufPage *int
	bufTokens := 0

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		text := strings.TrimSpace(buf.String())
		chunks = append(chunks, ChunkDraft{
			Text:       text,
			PageNumber: bufPage,
			TokenCount: c.EstimateTokens(text),
		})
		buf.Reset()
		bufPage = nil
		bufTokens = 0
	}

	for _, page := range pages {
		pageNum := pageNumber(page.Number)
		for _, para := range paragraphSplit.Split(page.Text, -1) {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			paraTokens := c.EstimateTokens(para)

			// A paragraph that alone exceeds the budget becomes its own
			// oversized chunk rather than being truncated.
			if bufTokens+paraTokens > c.chunkSize {
				flush()
			}
			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			} else {
				bufPage = pageNum
			}
			buf.WriteString(para)
			bufTokens += paraTokens
		}
	}
	flush()

	if len(chunks) == 0 {
		return nil, entity.ErrEmptyDocument
	}
	return chunks, nil
}

func pageNumber(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

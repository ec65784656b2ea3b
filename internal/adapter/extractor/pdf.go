package extractor

import (
	"fmt"
	"strings"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"

	"github.com/ledongthuc/pdf"
)

// Page is one page's extracted text with its 1-based page number.
// Pages that yielded no text are omitted.
type Page struct {
	Text   string
	Number int
}

type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract pulls text out of a PDF file, page by page. Returns the full
// document text plus the ordered page list so the chunker can tag
// chunks with page numbers.
func (e *PDFExtractor) Extract(filePath string) (string, []Page, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: open pdf: %v", entity.ErrExtractionFailed, err)
	}
	defer f.Close()

	var pages []Page
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Text: strings.TrimSpace(text), Number: i})
	}

	if len(pages) == 0 {
		return "", nil, entity.ErrEmptyDocument
	}

	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n\n"), pages, nil
}

// Package normalize turns uploaded documents into ordered OCR-ready pages.
// PDFs are rasterized page by page, DOCX text is extracted directly, and
// single images pass through untouched.
package normalize

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"net/http"
	"strings"

	docx "github.com/fumiama/go-docx"
	fitz "github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"

	"github.com/pablopedrosap/medical-ai-template/internal/config"
	"github.com/pablopedrosap/medical-ai-template/internal/domain"
	"github.com/pablopedrosap/medical-ai-template/internal/observability"
)

const jpegQuality = 85

// Normalizer renders documents into pages using the configured rendering
// resolutions.
type Normalizer struct {
	conversionDPI int
	fallbackDPI   int
	maxImageBytes int
	logger        zerolog.Logger
	metrics       *observability.Metrics
}

// New builds a Normalizer from the OCR configuration.
func New(cfg config.OCRConfig, logger zerolog.Logger, metrics *observability.Metrics) *Normalizer {
	return &Normalizer{
		conversionDPI: cfg.ConversionDPI,
		fallbackDPI:   cfg.FallbackDPI,
		maxImageBytes: cfg.MaxImageBytes,
		logger:        logger,
		metrics:       metrics,
	}
}

// Normalize converts a document into its ordered pages. The returned error
// is an UnsupportedFormatError for unrecognized input and a ConversionError
// when a PDF page fails to render at both resolutions.
func (n *Normalizer) Normalize(doc domain.Document) ([]domain.Page, error) {
	format := doc.Format
	if format == "" {
		format = domain.FormatFromFilename(doc.Name)
	}

	switch format {
	case domain.FormatPDF:
		return n.normalizePDF(doc)
	case domain.FormatDocx:
		return n.normalizeDocx(doc)
	case domain.FormatImage:
		return n.normalizeImage(doc)
	default:
		return nil, &domain.UnsupportedFormatError{Name: doc.Name, Format: doc.Format}
	}
}

func (n *Normalizer) normalizePDF(doc domain.Document) ([]domain.Page, error) {
	pdf, err := fitz.NewFromMemory(doc.Content)
	if err != nil {
		return nil, &domain.ConversionError{Name: doc.Name, Page: 0, Cause: err}
	}
	defer pdf.Close()

	pageCount := pdf.NumPage()
	if pageCount == 0 {
		return nil, &domain.ConversionError{Name: doc.Name, Page: 0, Cause: fmt.Errorf("document has no pages")}
	}

	pages := make([]domain.Page, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		data, err := n.renderPage(pdf, i, n.conversionDPI)
		if err != nil {
			n.logger.Warn().
				Str("document_name", doc.Name).
				Int("page", i+1).
				Int("dpi", n.fallbackDPI).
				Err(err).
				Msg("retrying page render at fallback resolution")
			n.metrics.RecordConversionFallback()

			data, err = n.renderPage(pdf, i, n.fallbackDPI)
			if err != nil {
				return nil, &domain.ConversionError{Name: doc.Name, Page: i + 1, Cause: err}
			}
		}

		pages = append(pages, domain.Page{
			DocumentID: doc.ID,
			Index:      i,
			ImageData:  data,
			MIMEType:   "image/jpeg",
			NeedsOCR:   true,
		})
	}
	return pages, nil
}

// renderPage rasterizes one PDF page as JPEG and enforces the per-image
// size budget, so an oversized render is treated like a render failure and
// retried at the fallback resolution.
func (n *Normalizer) renderPage(pdf *fitz.Document, index, dpi int) ([]byte, error) {
	img, err := pdf.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("render at %d dpi: %w", dpi, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode at %d dpi: %w", dpi, err)
	}
	if n.maxImageBytes > 0 && buf.Len() > n.maxImageBytes {
		return nil, fmt.Errorf("rendered image is %d bytes at %d dpi, budget is %d", buf.Len(), dpi, n.maxImageBytes)
	}
	return buf.Bytes(), nil
}

func (n *Normalizer) normalizeDocx(doc domain.Document) ([]domain.Page, error) {
	parsed, err := docx.Parse(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return nil, &domain.ConversionError{Name: doc.Name, Page: 0, Cause: err}
	}

	var b strings.Builder
	for _, item := range parsed.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			writeLine(&b, paragraphText(it))
		case *docx.Table:
			for _, row := range it.TableRows {
				cells := make([]string, 0, len(row.TableCells))
				for _, cell := range row.TableCells {
					var cellText []string
					for _, p := range cell.Paragraphs {
						if t := paragraphText(p); t != "" {
							cellText = append(cellText, t)
						}
					}
					cells = append(cells, strings.Join(cellText, " "))
				}
				writeLine(&b, strings.Join(cells, "\t"))
			}
		}
	}

	return []domain.Page{{
		DocumentID: doc.ID,
		Index:      0,
		Text:       strings.TrimRight(b.String(), "\n"),
		NeedsOCR:   false,
	}}, nil
}

func (n *Normalizer) normalizeImage(doc domain.Document) ([]domain.Page, error) {
	mimeType := http.DetectContentType(doc.Content)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, &domain.UnsupportedFormatError{Name: doc.Name, Format: doc.Format}
	}

	return []domain.Page{{
		DocumentID: doc.ID,
		Index:      0,
		ImageData:  doc.Content,
		MIMEType:   mimeType,
		NeedsOCR:   true,
	}}, nil
}

// paragraphText concatenates the text runs of a paragraph.
func paragraphText(p *docx.Paragraph) string {
	var b strings.Builder
	for _, child := range p.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				b.WriteString(t.Text)
			}
		}
	}
	return b.String()
}

func writeLine(b *strings.Builder, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	b.WriteString(line)
	b.WriteByte('\n')
}

// Package domain provides domain models and business logic for the medical
// report pipeline service.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// DocumentFormat identifies how an uploaded document must be normalized
// before OCR.
type DocumentFormat string

const (
	// FormatPDF is a paged document that is rendered page-by-page to images.
	FormatPDF DocumentFormat = "pdf"

	// FormatDocx is a word-processor document whose text is extracted
	// directly without rasterization.
	FormatDocx DocumentFormat = "docx"

	// FormatImage is a single-image document (PNG or JPEG).
	FormatImage DocumentFormat = "image"
)

// FormatFromFilename infers the document format from a file name extension.
// It returns an empty format for unrecognized extensions; callers decide
// whether that is an UnsupportedFormatError.
func FormatFromFilename(name string) DocumentFormat {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	switch strings.ToLower(name[idx:]) {
	case ".pdf":
		return FormatPDF
	case ".docx", ".doc":
		return FormatDocx
	case ".png", ".jpg", ".jpeg":
		return FormatImage
	default:
		return ""
	}
}

// Document is an uploaded file as received from object storage. Documents
// are immutable once ingested.
type Document struct {
	// ID is the document identifier within a job.
	ID uuid.UUID `json:"id"`

	// Name is the original file name, used for format inference and logging.
	Name string `json:"name"`

	// Format is the declared input format.
	Format DocumentFormat `json:"format"`

	// Content is the raw document bytes.
	Content []byte `json:"content"`
}

// Page is one ordered unit of a normalized document. Pages are created by
// the normalizer, consumed by the OCR stage, and never mutated after.
type Page struct {
	// DocumentID is the owning document.
	DocumentID uuid.UUID `json:"document_id"`

	// Index is the zero-based position of the page within its document.
	Index int `json:"index"`

	// ImageData holds the rendered page image for OCR (empty for pages
	// whose text was extracted directly).
	ImageData []byte `json:"image_data,omitempty"`

	// MIMEType is the media type of ImageData (e.g. "image/jpeg").
	MIMEType string `json:"mime_type,omitempty"`

	// Text holds directly extracted text for text-extractable documents.
	Text string `json:"text,omitempty"`

	// NeedsOCR reports whether the page must go through the OCR capability.
	NeedsOCR bool `json:"needs_ocr"`

	// Confidence is the extraction confidence reported by the OCR provider,
	// when available.
	Confidence float64 `json:"confidence,omitempty"`
}

package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
)

// Extraction method identifiers reported in ProcessingResult.
const (
	MethodPDFText   = "pdf_text"
	MethodPDFLayout = "pdf_layout"
	MethodOCR       = "ocr"
	MethodText      = "text"
	MethodMarkdown  = "markdown"
	// MethodPartial flags a document where at least one page exhausted
	// every strategy and contributed no text.
	MethodPartial = "partial"
)

type Config struct {
	// MinTextLength is the minimum number of non-whitespace characters a
	// strategy must produce before the chain accepts its output. Pages
	// below the threshold are treated as scanned images.
	MinTextLength int
}

// OCR recognizes text in a file. pages selects 1-based PDF pages to
// rasterize; nil means the whole file.
type OCR interface {
	Recognize(ctx context.Context, data []byte, filename, mimeType string, pages []int) (string, error)
}

type Result struct {
	Text   string
	Method string
}

// Chain converts raw file bytes into plain text, trying strategies in
// priority order per MIME class. A strategy failure advances the chain;
// the chain itself fails only when every applicable strategy is exhausted.
type Chain struct {
	cfg Config
	ocr OCR
}

func NewChain(cfg Config, ocr OCR) *Chain {
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 20
	}
	return &Chain{cfg: cfg, ocr: ocr}
}

type mimeClass int

const (
	classUnsupported mimeClass = iota
	classPDF
	classImage
	classText
	classMarkdown
)

func (c *Chain) Extract(ctx context.Context, data []byte, mimeType, filename string) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty content", appErr.ErrExtractionFailed)
	}
	class, resolved := classify(data, mimeType, filename)
	logger := logutil.GetLogger(ctx).With(
		zap.String("filename", filename),
		zap.String("mime_type", resolved),
	)
	switch class {
	case classPDF:
		return c.extractPDF(ctx, logger, data, filename)
	case classImage:
		return c.extractImage(ctx, data, filename, resolved)
	case classMarkdown:
		return extractMarkdown(data)
	case classText:
		return extractPlainText(data)
	default:
		return nil, fmt.Errorf("%w: %s", appErr.ErrUnsupportedType, resolved)
	}
}

func (c *Chain) extractImage(ctx context.Context, data []byte, filename, mimeType string) (*Result, error) {
	if c.ocr == nil {
		return nil, fmt.Errorf("%w: ocr not configured", appErr.ErrExtractionFailed)
	}
	text, err := c.ocr.Recognize(ctx, data, filename, mimeType, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: ocr: %v", appErr.ErrExtractionFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: ocr produced no text", appErr.ErrExtractionFailed)
	}
	return &Result{Text: text, Method: MethodOCR}, nil
}

func (c *Chain) hasEnoughText(s string) bool {
	return countNonWhitespace(s) >= c.cfg.MinTextLength
}

func countNonWhitespace(s string) int {
	count := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}

// classify maps a declared MIME type (plus content sniffing for generic
// uploads) to an extraction class.
func classify(data []byte, declared, filename string) (mimeClass, string) {
	mt := strings.ToLower(strings.TrimSpace(declared))
	if idx := strings.Index(mt, ";"); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}
	if mt == "" || mt == "application/octet-stream" {
		detected := mimetype.Detect(data)
		mt = detected.String()
		if idx := strings.Index(mt, ";"); idx >= 0 {
			mt = strings.TrimSpace(mt[:idx])
		}
	}
	switch {
	case mt == "application/pdf":
		return classPDF, mt
	case strings.HasPrefix(mt, "image/"):
		return classImage, mt
	case mt == "text/markdown" || hasExt(filename, ".md", ".markdown"):
		if strings.HasPrefix(mt, "text/") || mt == "application/octet-stream" {
			return classMarkdown, "text/markdown"
		}
		return classUnsupported, mt
	case strings.HasPrefix(mt, "text/"),
		mt == "application/json",
		mt == "application/xml",
		mt == "application/x-ndjson":
		return classText, mt
	default:
		return classUnsupported, mt
	}
}

func hasExt(filename string, exts ...string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

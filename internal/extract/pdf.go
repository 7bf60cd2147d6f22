package extract

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"context"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
)

// extractPDF walks the strategy ladder per page: embedded text layer,
// positioned-text reconstruction, then OCR for pages that still look like
// scanned images. Pages with a usable text layer never hit OCR.
func (c *Chain) extractPDF(ctx context.Context, logger *zap.Logger, data []byte, filename string) (*Result, error) {
	pages, err := pdfPageTexts(data)
	if err != nil {
		logger.Warn("pdf text layer unreadable, trying ocr", zap.Error(err))
		return c.pdfWholeOCR(ctx, data, filename)
	}
	return c.resolvePDFPages(ctx, logger, data, filename, pages)
}

// resolvePDFPages runs the per-page strategy ladder over the text layer
// output. Pages that exhaust every strategy keep whatever thin text the
// layer gave and are recorded with a partial marker in the method string.
func (c *Chain) resolvePDFPages(ctx context.Context, logger *zap.Logger, data []byte, filename string, pages []string) (*Result, error) {
	methods := newMethodSet()
	var ocrPages []int
	for i := range pages {
		if c.hasEnoughText(pages[i]) {
			methods.add(MethodPDFText)
			continue
		}
		// Text layer too thin: reconstruct from positioned text objects.
		layout, lerr := pdfLayoutText(data, i+1)
		if lerr == nil && c.hasEnoughText(layout) {
			pages[i] = layout
			methods.add(MethodPDFLayout)
			continue
		}
		ocrPages = append(ocrPages, i+1)
	}

	unresolved := 0
	for _, pageNum := range ocrPages {
		if c.ocr == nil {
			unresolved++
			continue
		}
		text, oerr := c.ocr.Recognize(ctx, data, filename, "application/pdf", []int{pageNum})
		if oerr != nil {
			logger.Warn("ocr failed for page", zap.Int("page", pageNum), zap.Error(oerr))
			unresolved++
			continue
		}
		if strings.TrimSpace(text) == "" {
			unresolved++
			continue
		}
		pages[pageNum-1] = strings.TrimSpace(text)
		methods.add(MethodOCR)
	}
	if unresolved > 0 {
		logger.Warn("pages exhausted all strategies", zap.Int("pages", unresolved))
		methods.add(MethodPartial)
	}

	text := joinPages(pages)
	if !c.hasEnoughText(text) {
		return nil, fmt.Errorf("%w: pdf yielded no usable text", appErr.ErrExtractionFailed)
	}
	return &Result{Text: text, Method: methods.String()}, nil
}

func (c *Chain) pdfWholeOCR(ctx context.Context, data []byte, filename string) (*Result, error) {
	if c.ocr == nil {
		return nil, fmt.Errorf("%w: pdf unreadable and ocr not configured", appErr.ErrExtractionFailed)
	}
	text, err := c.ocr.Recognize(ctx, data, filename, "application/pdf", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: ocr: %v", appErr.ErrExtractionFailed, err)
	}
	if !c.hasEnoughText(text) {
		return nil, fmt.Errorf("%w: ocr produced no usable text", appErr.ErrExtractionFailed)
	}
	return &Result{Text: strings.TrimSpace(text), Method: MethodOCR}, nil
}

// pdfPageTexts extracts the embedded text layer page by page. Malformed
// documents surface as an error, never a panic.
func pdfPageTexts(data []byte) (texts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	total := reader.NumPage()
	if total == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	texts = make([]string, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, perr := page.GetPlainText(nil)
		if perr != nil {
			continue
		}
		texts[i-1] = strings.TrimSpace(content)
	}
	return texts, nil
}

// pdfLayoutText rebuilds a page's text from its positioned text objects,
// ordered top-to-bottom then left-to-right. Catches text the plain-text
// walk misses when the content stream has unusual structure.
func pdfLayoutText(data []byte, pageNum int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf layout panic: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	if pageNum < 1 || pageNum > reader.NumPage() {
		return "", fmt.Errorf("page %d out of range", pageNum)
	}
	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d is null", pageNum)
	}
	items := page.Content().Text
	if len(items) == 0 {
		return "", nil
	}
	// PDF Y grows upward: reading order is descending Y, ascending X.
	sorted := make([]pdf.Text, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})
	const lineTolerance = 2.0
	var sb strings.Builder
	lastY := sorted[0].Y
	prev := ""
	for i, item := range sorted {
		if i > 0 {
			if lastY-item.Y > lineTolerance {
				sb.WriteByte('\n')
			} else if !strings.HasSuffix(prev, " ") && !strings.HasPrefix(item.S, " ") {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(item.S)
		prev = item.S
		lastY = item.Y
	}
	return strings.TrimSpace(sb.String()), nil
}

func joinPages(pages []string) string {
	nonEmpty := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		nonEmpty = append(nonEmpty, strings.TrimSpace(p))
	}
	return strings.Join(nonEmpty, "\n\n")
}

type methodSet struct {
	order []string
	seen  map[string]bool
}

func newMethodSet() *methodSet {
	return &methodSet{seen: make(map[string]bool)}
}

func (m *methodSet) add(method string) {
	if m.seen[method] {
		return
	}
	m.seen[method] = true
	m.order = append(m.order, method)
}

func (m *methodSet) String() string {
	if len(m.order) == 0 {
		return ""
	}
	return strings.Join(m.order, "+")
}

package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErr "github.com/seekerhut/docvault/internal/pkg/errors"
)

type fakeOCR struct {
	text     string
	err      error
	calls    int
	gotPages [][]int
	gotMime  string
}

func (f *fakeOCR) Recognize(ctx context.Context, data []byte, filename, mimeType string, pages []int) (string, error) {
	f.calls++
	f.gotPages = append(f.gotPages, pages)
	f.gotMime = mimeType
	return f.text, f.err
}

func TestExtractPlainText(t *testing.T) {
	chain := NewChain(Config{MinTextLength: 10}, nil)
	res, err := chain.Extract(context.Background(), []byte("hello world, this is plain text content"), "text/plain", "note.txt")
	require.NoError(t, err)
	require.Equal(t, MethodText, res.Method)
	require.Equal(t, "hello world, this is plain text content", res.Text)
}

func TestExtractPlainTextStripsBOM(t *testing.T) {
	chain := NewChain(Config{MinTextLength: 5}, nil)
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("content after byte order mark")...)
	res, err := chain.Extract(context.Background(), data, "text/plain; charset=utf-8", "note.txt")
	require.NoError(t, err)
	require.Equal(t, "content after byte order mark", res.Text)
}

func TestExtractMarkdownStripsStructure(t *testing.T) {
	chain := NewChain(Config{MinTextLength: 5}, nil)
	source := "# Title\n\nSome **bold** paragraph text here.\n\n```\ncode line\n```\n"
	res, err := chain.Extract(context.Background(), []byte(source), "text/markdown", "readme.md")
	require.NoError(t, err)
	require.Equal(t, MethodMarkdown, res.Method)
	require.Contains(t, res.Text, "Title")
	require.NotContains(t, res.Text, "#")
	require.Contains(t, res.Text, "bold paragraph text")
	require.NotContains(t, res.Text, "**")
	require.Contains(t, res.Text, "code line")
}

func TestExtractMarkdownByExtension(t *testing.T) {
	chain := NewChain(Config{MinTextLength: 5}, nil)
	res, err := chain.Extract(context.Background(), []byte("plain looking markdown paragraph"), "", "doc.md")
	require.NoError(t, err)
	require.Equal(t, MethodMarkdown, res.Method)
}

func TestExtractUnsupportedType(t *testing.T) {
	chain := NewChain(Config{}, nil)
	_, err := chain.Extract(context.Background(), []byte{0x50, 0x4b, 0x03, 0x04}, "application/zip", "archive.zip")
	require.ErrorIs(t, err, appErr.ErrUnsupportedType)
}

func TestExtractEmptyData(t *testing.T) {
	chain := NewChain(Config{}, nil)
	_, err := chain.Extract(context.Background(), nil, "text/plain", "empty.txt")
	require.ErrorIs(t, err, appErr.ErrExtractionFailed)
}

func TestExtractImageRequiresOCR(t *testing.T) {
	chain := NewChain(Config{}, nil)
	_, err := chain.Extract(context.Background(), []byte{0x89, 0x50, 0x4e, 0x47}, "image/png", "scan.png")
	require.ErrorIs(t, err, appErr.ErrExtractionFailed)
}

func TestExtractImageViaOCR(t *testing.T) {
	ocr := &fakeOCR{text: "recognized scan content"}
	chain := NewChain(Config{MinTextLength: 5}, ocr)
	res, err := chain.Extract(context.Background(), []byte{0x89, 0x50, 0x4e, 0x47}, "image/png", "scan.png")
	require.NoError(t, err)
	require.Equal(t, MethodOCR, res.Method)
	require.Equal(t, "recognized scan content", res.Text)
	require.Equal(t, 1, ocr.calls)
	require.Nil(t, ocr.gotPages[0])
}

func TestExtractImageOCRFailure(t *testing.T) {
	ocr := &fakeOCR{err: errors.New("backend down")}
	chain := NewChain(Config{}, ocr)
	_, err := chain.Extract(context.Background(), []byte{0x89, 0x50, 0x4e, 0x47}, "image/jpeg", "scan.jpg")
	require.ErrorIs(t, err, appErr.ErrExtractionFailed)
}

func TestExtractUnreadablePDFFallsBackToOCR(t *testing.T) {
	ocr := &fakeOCR{text: "full document text recovered by ocr"}
	chain := NewChain(Config{MinTextLength: 10}, ocr)
	res, err := chain.Extract(context.Background(), []byte("%PDF-1.4 not really a pdf"), "application/pdf", "scan.pdf")
	require.NoError(t, err)
	require.Equal(t, MethodOCR, res.Method)
	require.Equal(t, "full document text recovered by ocr", res.Text)
	require.Equal(t, "application/pdf", ocr.gotMime)
	require.Nil(t, ocr.gotPages[0])
}

func TestExtractUnreadablePDFWithoutOCR(t *testing.T) {
	chain := NewChain(Config{}, nil)
	_, err := chain.Extract(context.Background(), []byte("%PDF-1.4 not really a pdf"), "application/pdf", "scan.pdf")
	require.ErrorIs(t, err, appErr.ErrExtractionFailed)
}

func TestClassifySniffsOctetStream(t *testing.T) {
	class, resolved := classify([]byte("just ordinary text content"), "application/octet-stream", "notes.txt")
	require.Equal(t, classText, class)
	require.Contains(t, resolved, "text/")
}

func TestHasEnoughTextCountsNonWhitespace(t *testing.T) {
	chain := NewChain(Config{MinTextLength: 5}, nil)
	require.False(t, chain.hasEnoughText("  a b  \n"))
	require.True(t, chain.hasEnoughText("abcde"))
}

func TestResolvePDFPagesMarksPartialOnOCRFailure(t *testing.T) {
	ocr := &fakeOCR{err: errors.New("ocr backend down")}
	chain := NewChain(Config{MinTextLength: 10}, ocr)
	pages := []string{"this page has a perfectly readable text layer", "x"}

	res, err := chain.resolvePDFPages(context.Background(), zap.NewNop(), []byte("not a pdf"), "scan.pdf", pages)
	require.NoError(t, err)
	require.Equal(t, "pdf_text+partial", res.Method)
	require.Contains(t, res.Text, "perfectly readable text layer")
	require.Equal(t, 1, ocr.calls)
}

func TestResolvePDFPagesMarksPartialWithoutOCR(t *testing.T) {
	chain := NewChain(Config{MinTextLength: 10}, nil)
	pages := []string{"this page has a perfectly readable text layer", "x"}

	res, err := chain.resolvePDFPages(context.Background(), zap.NewNop(), []byte("not a pdf"), "scan.pdf", pages)
	require.NoError(t, err)
	require.Equal(t, "pdf_text+partial", res.Method)
}

func TestResolvePDFPagesOCRRecoversThinPage(t *testing.T) {
	ocr := &fakeOCR{text: "recovered scanned page content"}
	chain := NewChain(Config{MinTextLength: 10}, ocr)
	pages := []string{"this page has a perfectly readable text layer", "x"}

	res, err := chain.resolvePDFPages(context.Background(), zap.NewNop(), []byte("not a pdf"), "scan.pdf", pages)
	require.NoError(t, err)
	require.Equal(t, "pdf_text+ocr", res.Method)
	require.Contains(t, res.Text, "recovered scanned page content")
	require.Equal(t, [][]int{{2}}, ocr.gotPages)
}

func TestMethodSetOrderAndDedup(t *testing.T) {
	m := newMethodSet()
	m.add(MethodPDFText)
	m.add(MethodOCR)
	m.add(MethodPDFText)
	require.Equal(t, "pdf_text+ocr", m.String())
	require.Equal(t, "", newMethodSet().String())
}

func TestJoinPagesSkipsEmpty(t *testing.T) {
	joined := joinPages([]string{"page one", "", "  ", "page three"})
	require.Equal(t, "page one\n\npage three", joined)
}
